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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ocalfw/prnu/internal/ops"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(func(log io.Writer) *ops.Context {
		return &ops.Context{Log: log, MaxThreads: 2, BudgetMB: 1024}
	})
}

func TestPing(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("ping=%d %s", w.Code, w.Body.String())
	}
}

func TestFormulas(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/formulas", nil))
	var res struct {
		Formulas []string `json:"formulas"`
		Default  string   `json:"default"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Formulas) != 3 || res.Default != "cosine" {
		t.Errorf("formulas=%+v", res)
	}
}

func TestPostPRNU(t *testing.T) {
	body := `{
		source: {synthetic: {rows: 40, cols: 30, seed: 5, count: 2}},
		region: {rows: {start: 5, stop: 35}, cols: {start: 2, stop: 28}},
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prnu?mesh=true", strings.NewReader(body))
	newTestRouter().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		Runs []struct {
			ID         int        `json:"id"`
			ColFactors []*float64 `json:"colFactors"`
			RowFactors []*float64 `json:"rowFactors"`
			MeshPoints int        `json:"meshPoints"`
			Mesh       []struct {
				Row int `json:"row"`
			} `json:"mesh"`
			Results []struct {
				Kind string `json:"kind"`
			} `json:"results"`
		} `json:"runs"`
		Log string `json:"log"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Runs) != 2 {
		t.Fatalf("runs=%d; want 2", len(res.Runs))
	}
	run := res.Runs[1]
	if run.ID != 1 || len(run.ColFactors) != 26 || len(run.RowFactors) != 30 {
		t.Errorf("run id %d, %d col factors, %d row factors", run.ID, len(run.ColFactors), len(run.RowFactors))
	}
	if run.MeshPoints != 30*26 || len(run.Mesh) != 30*26 || run.Mesh[0].Row != 5 {
		t.Errorf("mesh %d points, %d listed", run.MeshPoints, len(run.Mesh))
	}
	computed := 0
	for _, r := range run.Results {
		if r.Kind == "computed" {
			computed++
		}
	}
	if len(run.Results) != 8 || computed != 3 {
		t.Errorf("%d results, %d computed; want 8, 3", len(run.Results), computed)
	}
	if !strings.Contains(res.Log, "not implemented") {
		t.Errorf("log does not report pending stages")
	}
}

func TestPostPRNUBadRequest(t *testing.T) {
	for _, body := range []string{
		`{nonsense`,
		`{source: {synthetic: {rows: 10, cols: 10}}}`,
		`{source: {synthetic: {rows: 64, cols: 80}}, region: {rows: {start: 10, stop: 50}, cols: {start: 20, stop: 60}}, output: "x%d.fits"}`,
	} {
		w := httptest.NewRecorder()
		newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/prnu", strings.NewReader(body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d; want 400", body, w.Code)
		}
	}
}
