// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	json5 "github.com/KevinWang15/go-json5"
	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/ops/prnu"
	"github.com/ocalfw/prnu/internal/synth"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Parameters of a synthetic input frame
type Synthetic struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Seed  uint32 `json:"seed"`  // 0 picks a random seed
	Count int    `json:"count"` // number of frames, seeds increase by one per frame
}

// Where input frames come from. Exactly one of the two must be set
type Source struct {
	Synthetic *Synthetic `json:"synthetic,omitempty"`
	Files     []string   `json:"files,omitempty"` // glob patterns of FITS or TIFF files, relative to the working directory
}

// A calibration job as read from a JSON5 file or request body
type Config struct {
	Source     Source          `json:"source"`
	Region     frame.Region    `json:"region"`
	Threshold  float64         `json:"threshold"`
	Formula    calib.Formula   `json:"formula"`
	Pipeline   *ops.OpSequence `json:"pipeline,omitempty"` // defaults to all eight stages with the given formula
	Output     string          `json:"output"`             // product file name pattern, an integer verb like %02d takes the frame ID
	MaxThreads int             `json:"maxThreads"`         // 0 uses all available
}

// Default configuration: one synthetic 1024x600 frame over rows 100..500 and columns 200..500
func Default() *Config {
	return &Config{
		Source:    Source{},
		Region:    frame.NewRegion(100, 500, 200, 500),
		Threshold: frame.DefaultBadPixelThreshold,
		Formula:   calib.FormulaCosine,
	}
}

// Parses a JSON5 configuration, applying defaults for missing entries. The result is validated
func Parse(data []byte) (*Config, error) {
	// normalize JSON5 to plain JSON, so custom unmarshalers of nested types apply
	var generic interface{}
	if err := json5.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	plain, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}

	c := Default()
	if err = json.Unmarshal(plain, c); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if c.Source.Synthetic != nil {
		c.Source.Synthetic.applyDefaults()
	}
	if c.Pipeline == nil {
		c.Pipeline = prnu.NewDefaultPipeline(c.Formula)
	}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reads and parses a JSON5 configuration file
func ReadFile(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (s *Synthetic) applyDefaults() {
	if s.Rows == 0 {
		s.Rows = synth.DefaultRows
	}
	if s.Cols == 0 {
		s.Cols = synth.DefaultCols
	}
	if s.Count == 0 {
		s.Count = 1
	}
}

func invalid(field, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

// Checks the configuration for consistency. Region bounds are checked against the frame later
func (c *Config) Validate() error {
	hasSynth, hasFiles := c.Source.Synthetic != nil, len(c.Source.Files) > 0
	if hasSynth == hasFiles {
		return invalid("source", "need exactly one of synthetic or files")
	}
	if s := c.Source.Synthetic; s != nil {
		if s.Rows <= 0 || s.Cols <= 0 {
			return invalid("source.synthetic", "dimensions %dx%d must be positive", s.Rows, s.Cols)
		}
		if s.Count < 0 {
			return invalid("source.synthetic.count", "%d must not be negative", s.Count)
		}
		if err := c.Region.Validate(s.Rows, s.Cols); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
		}
	}
	if c.Region.NumRows() <= 0 || c.Region.NumCols() <= 0 {
		return invalid("region", "%v is empty", c.Region)
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return invalid("threshold", "%v is not finite", c.Threshold)
	}
	if c.MaxThreads < 0 {
		return invalid("maxThreads", "%d must not be negative", c.MaxThreads)
	}
	if c.Pipeline == nil || len(c.Pipeline.Steps) == 0 {
		return invalid("pipeline", "no steps")
	}
	return nil
}

// Builds the job and its input promises for the given context
func (c *Config) Job(ctx *ops.Context) (*prnu.Job, []prnu.Promise, error) {
	if c.MaxThreads > 0 {
		ctx.MaxThreads = c.MaxThreads
	}
	job := &prnu.Job{
		Region:    c.Region,
		Threshold: c.Threshold,
		Pipeline:  c.Pipeline,
		Output:    c.Output,
	}

	if s := c.Source.Synthetic; s != nil {
		ins := make([]prnu.Promise, s.Count)
		for i := range ins {
			seed := s.Seed
			if seed != 0 {
				seed += uint32(i)
			}
			ins[i] = prnu.NewSyntheticPromise(i, s.Rows, s.Cols, seed, ctx)
		}
		return job, ins, nil
	}
	ins, err := prnu.NewFilePromises(c.Source.Files, 0, ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(ins) == 0 {
		return nil, nil, invalid("source.files", "no files match %v", c.Source.Files)
	}
	return job, ins, nil
}
