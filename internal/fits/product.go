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


package fits

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"
	"github.com/ocalfw/prnu/internal/frame"
	"github.com/ocalfw/prnu/internal/ops"
)

// Extension names of the calibration product
const (
	ExtColFactors = "FNORMCOL"
	ExtRowFactors = "FNORMROW"
	ExtSCM        = "SCM"
	ExtSmooth     = "SMOOTH"
	ExtMesh       = "MESH"
)

// Writes the outputs of a pipeline run to a file with given filename.
// Creates/overwrites the file if necessary
func WriteProductFile(fileName string, out *ops.Output) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err = WriteProduct(w, out); err != nil {
		return err
	}
	return w.Flush()
}

// Writes the outputs of a pipeline run as multi-extension FITS. The primary HDU holds the
// row-normalized signal, extensions hold the factors, the calibration map, the inverse
// normalized signal and the (row, wavelength, signal) mesh as a binary table
func WriteProduct(w io.Writer, out *ops.Output) error {
	if out.RowNorm == nil {
		return fmt.Errorf("%d: %w: no row-normalized signal to write", out.ID, ops.ErrMissingInput)
	}
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()

	regionCards := []fitsio.Card{
		{Name: "ROISTR", Value: out.Region.Rows.Start, Comment: "first region row"},
		{Name: "ROISTP", Value: out.Region.Rows.Stop, Comment: "region row stop, exclusive"},
		{Name: "COISTR", Value: out.Region.Cols.Start, Comment: "first region column"},
		{Name: "COISTP", Value: out.Region.Cols.Stop, Comment: "region column stop, exclusive"},
	}
	if err = writeImage(f, "", out.RowNorm.Cols, out.RowNorm.Rows, out.RowNorm.Data, regionCards); err != nil {
		return err
	}
	if err = writeImage(f, ExtColFactors, len(out.ColFactors), 1, out.ColFactors, nil); err != nil {
		return err
	}
	if err = writeImage(f, ExtRowFactors, len(out.RowFactors), 1, out.RowFactors, nil); err != nil {
		return err
	}
	for _, ext := range []struct {
		name string
		fr   *frame.Frame
	}{{ExtSCM, out.SCM}, {ExtSmooth, out.Smooth}} {
		if ext.fr == nil {
			continue
		}
		if err = writeImage(f, ext.name, ext.fr.Cols, ext.fr.Rows, ext.fr.Data, nil); err != nil {
			return err
		}
	}
	if len(out.Mesh) > 0 {
		if err = writeMesh(f, out.Mesh); err != nil {
			return err
		}
	}
	return nil
}

func writeImage(f *fitsio.File, name string, width, height int, data []float64, cards []fitsio.Card) error {
	im := fitsio.NewImage(-64, []int{width, height})
	defer im.Close()
	if name != "" {
		cards = append([]fitsio.Card{{Name: "EXTNAME", Value: name, Comment: "extension name"}}, cards...)
	}
	if len(cards) > 0 {
		if err := im.Header().Append(cards...); err != nil {
			return err
		}
	}
	if err := im.Write(data); err != nil {
		return err
	}
	return f.Write(im)
}

func writeMesh(f *fitsio.File, mesh []ops.MeshPoint) error {
	cols := []fitsio.Column{
		{Name: "ROW", Format: "J"},
		{Name: "WAVELEN", Format: "D"},
		{Name: "SIGNAL", Format: "D"},
	}
	table, err := fitsio.NewTable(ExtMesh, cols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer table.Close()
	for i := range mesh {
		row := int32(mesh[i].Row)
		if err = table.Write(&row, &mesh[i].Wavelength, &mesh[i].Signal); err != nil {
			return err
		}
	}
	return f.Write(table)
}
