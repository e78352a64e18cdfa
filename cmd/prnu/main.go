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


package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	nl "github.com/ocalfw/prnu/internal"
	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/config"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/ops/prnu"
	"github.com/ocalfw/prnu/internal/rest"
	"github.com/ocalfw/prnu/internal/synth"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var out = flag.String("out", "", "save calibration product with given filename pattern, e.g. `prnu%02d.fits`")
var log = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of output file with .log")
var maxThreads = flag.Int("maxThreads", 0, "maximum number of concurrent threads, 0 for all available")

var rows = flag.Int("rows", synth.DefaultRows, "rows of the synthetic frame")
var cols = flag.Int("cols", synth.DefaultCols, "columns of the synthetic frame")
var seed = flag.Uint("seed", 1, "random seed of the synthetic frame, 0 for a random one")
var roi = flag.String("roi", "100:500,200:500", "region of interest as `rowStart:rowStop,colStart:colStop`, stops exclusive")
var threshold = flag.Float64("threshold", frame.DefaultBadPixelThreshold, "mask pixels below this value as bad")
var formula = flag.String("formula", calib.FormulaCosine.String(), "spectral calibration formula, one of cosine, elliptical or linear")

var addr = flag.String("addr", ":8080", "listen on `address` when serving")
var chroot = flag.String("chroot", "", "chroot to `dir` before serving (requires root)")
var setuid = flag.Int("setuid", -1, "set user id to `uid` before serving")

func main() {
	start := time.Now()
	logWriter := nl.Log

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: %s [-flag value] (run|synth|serve|legal|version) [job.json5]

Commands:
  run     Run the calibration job described by the given JSON5 file
  synth   Run the calibration pipeline on a synthetic noise frame with swath
  serve   Serve the calibration REST API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *log == "%auto" {
		if *out != "" {
			*log = strings.TrimSuffix(prnu.TrimIDVerb(*out), filepath.Ext(*out)) + ".log"
		} else {
			*log = ""
		}
	}
	if *log != "" {
		if err := nl.LogAlsoToFile(*log); err != nil {
			nl.LogFatalf("Unable to open logfile '%s'\n", *log)
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatalf("Could not create CPU profile: %s\n", err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatalf("Could not start CPU profile: %s\n", err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "run":
		if len(args) < 2 {
			err = fmt.Errorf("run needs a job file")
			break
		}
		var cfg *config.Config
		if cfg, err = config.ReadFile(args[1]); err != nil {
			break
		}
		err = runJob(cfg, logWriter)

	case "synth":
		var cfg *config.Config
		if cfg, err = synthConfig(); err != nil {
			break
		}
		err = runJob(cfg, logWriter)

	case "serve":
		if err = rest.MakeSandbox(*chroot, *setuid, logWriter); err != nil {
			break
		}
		err = rest.Serve(*addr, newContext)

	case "legal":
		fmt.Fprint(logWriter, legal)

	case "version":
		fmt.Fprintf(logWriter, "Version %s built with %s\nRunning on %s\n", version, runtime.Version(), newContext(logWriter))

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	elapsed := time.Since(start)
	fmt.Fprintf(logWriter, "\nDone after %v\n", elapsed)

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatalf("Could not create memory profile: %s\n", err.Error())
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatalf("Could not write allocation profile: %s\n", err.Error())
		}
	}

	if err != nil {
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	nl.LogSync()
}

func newContext(log io.Writer) *ops.Context {
	c := ops.NewContext(log)
	if *maxThreads > 0 {
		c.MaxThreads = *maxThreads
	}
	return c
}

// Builds a job configuration for one synthetic frame from the command line flags
func synthConfig() (*config.Config, error) {
	f, err := calib.ParseFormula(*formula)
	if err != nil {
		return nil, err
	}
	var r frame.Region
	if _, err = fmt.Sscanf(*roi, "%d:%d,%d:%d", &r.Rows.Start, &r.Rows.Stop, &r.Cols.Start, &r.Cols.Stop); err != nil {
		return nil, fmt.Errorf("%w: roi '%s': %s", config.ErrInvalidConfig, *roi, err.Error())
	}

	cfg := config.Default()
	cfg.Source.Synthetic = &config.Synthetic{Rows: *rows, Cols: *cols, Seed: uint32(*seed), Count: 1}
	cfg.Region = r
	cfg.Threshold = *threshold
	cfg.Formula = f
	cfg.Pipeline = prnu.NewDefaultPipeline(f)
	cfg.Output = *out
	return cfg, cfg.Validate()
}

// Runs a calibration job and logs its settings and results
func runJob(cfg *config.Config, logWriter io.Writer) error {
	if *out != "" {
		cfg.Output = *out
	}
	c := newContext(logWriter)
	fmt.Fprintf(logWriter, "Running on %v\n", c)

	m, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "\nCalibrating with these settings:\n%s\n", string(m))

	job, ins, err := cfg.Job(c)
	if err != nil {
		return err
	}
	ds, err := job.RunAll(ins, c)
	if err != nil {
		return err
	}
	for _, d := range ds {
		implemented := 0
		for _, r := range d.Results {
			if ops.IsImplemented(r) {
				implemented++
			}
		}
		fmt.Fprintf(logWriter, "%d: %d of %d stages computed, %d mesh points\n", d.ID, implemented, len(d.Results), len(d.Mesh))
	}
	return nil
}
