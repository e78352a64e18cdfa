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


package prnu

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ocalfw/prnu/internal/fits"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/synth"
)

// A promise for an input frame. Returns the materialized frame and an optional swath
// frame to add to it, or an error
type Promise func() (f, swath *frame.Frame, err error)

// Returns a promise for a synthetic noise frame with the given ID, dimensions and seed, plus its swath
func NewSyntheticPromise(id, rows, cols int, seed uint32, c *ops.Context) Promise {
	return func() (f, swath *frame.Frame, err error) {
		f, swath, err = synth.Generate(rows, cols, seed, c.BudgetMB)
		if err != nil {
			return nil, nil, fmt.Errorf("%d: %w", id, err)
		}
		f.ID = id
		fmt.Fprintf(c.Log, "%d: Generated %s synthetic frame with seed %d\n", id, f.DimensionsToString(), seed)
		return f, swath, nil
	}
}

// Returns one promise per file matching the given patterns. IDs are assigned sequentially from firstID
func NewFilePromises(filePatterns []string, firstID int, c *ops.Context) (outs []Promise, err error) {
	id := firstID
	for _, pattern := range filePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if !isPathAllowed(match) {
				return nil, errors.New("Filename outside current directory tree, aborting")
			}
			outs = append(outs, newFilePromise(id, match, c))
			id++
		}
	}
	return outs, nil
}

func newFilePromise(id int, fileName string, c *ops.Context) Promise {
	return func() (f, swath *frame.Frame, err error) {
		f, err = fits.ReadFrameFile(fileName, id, c.Log)
		if err != nil {
			return nil, nil, err
		}
		warning := ""
		if nans := f.CountNaN(); nans > 0 {
			warning = fmt.Sprintf("; WARNING %d NaN pixels", nans)
		}
		fmt.Fprintf(c.Log, "%d: Loaded %s frame from %s%s\n", id, f.DimensionsToString(), fileName, warning)
		return f, nil, nil
	}
}

// Checks that a path stays within the current directory tree
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) {
		return false // relative paths only
	}
	if strings.Contains(p, "..") {
		return false // no going outside the tree
	}
	return true
}

// Integer verb for the frame ID in an output file name pattern, e.g. %d or %03d
var idVerb = regexp.MustCompile(`%[-+ 0#]*[0-9]*d`)

// Returns the product file name for the given frame ID. Patterns without an integer verb are used as is
func OutputFileName(pattern string, id int) string {
	if !idVerb.MatchString(pattern) {
		return pattern
	}
	return fmt.Sprintf(pattern, id)
}

// Removes the frame ID verb from an output file name pattern
func TrimIDVerb(pattern string) string {
	return idVerb.ReplaceAllString(pattern, "")
}

// A calibration job: runs the pipeline on each input frame over the same region
type Job struct {
	Region    frame.Region
	Threshold float64         // pixels below are masked as bad
	Pipeline  *ops.OpSequence // stages to apply
	Output    string          // product file name pattern with an integer verb like %02d for the frame ID, or empty for no output
}

// Materializes the promise, runs the pipeline on it and writes the product if configured
func (j *Job) Run(in Promise, c *ops.Context) (*ops.Data, error) {
	f, swath, err := in()
	if err != nil {
		return nil, err
	}
	s, err := frame.NewSignal(f, j.Region, j.Threshold)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	if swath != nil {
		if err = s.AddSwath(swath); err != nil {
			return nil, fmt.Errorf("%d: %w", f.ID, err)
		}
	}
	s.PrintSummary(c.Log)

	d := ops.NewData(f.ID, s)
	if _, err = j.Pipeline.Apply(d, c); err != nil {
		return nil, err
	}
	for _, r := range d.Results {
		fmt.Fprintf(c.Log, "%d: %v\n", d.ID, r)
	}

	if j.Output != "" {
		fileName := OutputFileName(j.Output, d.ID)
		if !isPathAllowed(fileName) {
			return nil, fmt.Errorf("%d: output %s outside current directory tree, aborting", d.ID, fileName)
		}
		fmt.Fprintf(c.Log, "%d: Writing calibration product to %s\n", d.ID, fileName)
		if err = fits.WriteProductFile(fileName, d.Output()); err != nil {
			return nil, fmt.Errorf("%d: %w", d.ID, err)
		}
	}
	return d, nil
}

// Runs the job on all promises with given concurrency limit. Results are in input order.
// Returns the first error encountered, after all runs have finished
func (j *Job) RunAll(ins []Promise, c *ops.Context) (outs []*ops.Data, err error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if len(ins) > 1 && j.Output != "" && !idVerb.MatchString(j.Output) {
		return nil, fmt.Errorf("output %s has no %%d for the frame ID, but there are %d frames", j.Output, len(ins))
	}
	maxThreads := c.MaxThreads
	if maxThreads < 1 {
		maxThreads = 1
	}
	outs = make([]*ops.Data, len(ins))
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			d, err := j.Run(theIn, c)
			outs[i] = d
			errs <- err
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	close(errs)
	for e := range errs {
		if e != nil && err == nil {
			err = e
		}
	}
	return outs, err
}
