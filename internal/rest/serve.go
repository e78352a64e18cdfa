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


package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	nl "github.com/ocalfw/prnu/internal"
	"github.com/ocalfw/prnu/internal/calib"
	"github.com/ocalfw/prnu/internal/config"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
	"github.com/ocalfw/prnu/internal/stats"
)

// Creates a new execution context per request, writing to the given log
type ContextFactory func(log io.Writer) *ops.Context

// Builds the router for the calibration API
func NewRouter(newContext ContextFactory) *gin.Engine {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/formulas", getFormulas)
			v1.POST("/prnu", func(c *gin.Context) { postPRNU(c, newContext) })
		}
	}
	return r
}

// Listens and serves on the given address, e.g. ":8080"
func Serve(addr string, newContext ContextFactory) error {
	return NewRouter(newContext).Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func getFormulas(c *gin.Context) {
	names := []string{}
	for _, f := range calib.Formulas() {
		names = append(names, f.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"formulas": names,
		"default":  calib.FormulaCosine.String(),
	})
}

// Mesh point with the signal as null where not available
type meshPoint struct {
	Row        int      `json:"row"`
	Wavelength float64  `json:"wavelength"`
	Signal     *float64 `json:"signal"`
}

type runResponse struct {
	ID         int             `json:"id"`
	Region     frame.Region    `json:"region"`
	ColFactors []*float64      `json:"colFactors"`
	RowFactors []*float64      `json:"rowFactors"`
	RowNorm    *stats.Summary  `json:"rowNorm,omitempty"`
	Smooth     *stats.Summary  `json:"smooth,omitempty"`
	MeshPoints int             `json:"meshPoints"`
	Mesh       []meshPoint     `json:"mesh,omitempty"`
	Results    json.RawMessage `json:"results"`
}

func newRunResponse(d *ops.Data, withMesh bool) (*runResponse, error) {
	out := d.Output()
	res := &runResponse{
		ID:         out.ID,
		Region:     out.Region,
		ColFactors: stats.NullableSlice(out.ColFactors),
		RowFactors: stats.NullableSlice(out.RowFactors),
		MeshPoints: len(out.Mesh),
	}
	if out.RowNorm != nil {
		s := stats.NewSummary(out.RowNorm.Data)
		res.RowNorm = &s
	}
	if out.Smooth != nil {
		s := stats.NewSummary(out.Smooth.Data)
		res.Smooth = &s
	}
	if withMesh {
		res.Mesh = make([]meshPoint, len(out.Mesh))
		for i, p := range out.Mesh {
			res.Mesh[i] = meshPoint{Row: p.Row, Wavelength: p.Wavelength, Signal: stats.Nullable(p.Signal)}
		}
	}
	results, err := ops.MarshalResults(out.Results)
	if err != nil {
		return nil, err
	}
	res.Results = results
	return res, nil
}

// Runs a calibration job given as JSON5 in the request body. Returns per-frame outputs and the log.
// Query parameter mesh=true includes all mesh points. Jobs with an output file are rejected
func postPRNU(c *gin.Context, newContext ContextFactory) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := config.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.Output != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "output files cannot be written via the API, results are returned in the response"})
		return
	}

	logBuf := &bytes.Buffer{}
	ctx := newContext(nl.NewSyncWriter(logBuf))
	job, ins, err := cfg.Job(ctx)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "log": logBuf.String()})
		return
	}
	ds, err := job.RunAll(ins, ctx)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "log": logBuf.String()})
		return
	}

	withMesh := c.Query("mesh") == "true"
	runs := make([]*runResponse, len(ds))
	for i, d := range ds {
		if runs[i], err = newRunResponse(d, withMesh); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "log": logBuf.String()})
}

// Input errors map to 400, everything else to 500
func statusFor(err error) int {
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, frame.ErrInvalidRegion) ||
		errors.Is(err, frame.ErrInvalidFrame) || errors.Is(err, frame.ErrShapeMismatch) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
