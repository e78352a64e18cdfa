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
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/ocalfw/prnu/internal/frame"
	"golang.org/x/image/tiff"
)

// Reads a frame from a grayscale TIFF. 16-bit samples are scaled to [0,1];
// color images are converted to 16-bit gray first
func ReadTIFF(r io.Reader, id int) (*frame.Frame, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", id, err)
	}
	return NewFrameFromImage(img, id)
}

// Converts a Go image into a frame, scaling 16-bit gray values to [0,1]
func NewFrameFromImage(img image.Image, id int) (*frame.Frame, error) {
	bounds := img.Bounds()
	f, err := frame.NewFrame(bounds.Dy(), bounds.Dx(), nil)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", id, err)
	}
	f.ID = id

	const scale = 1.0 / 65535
	switch gray := img.(type) {
	case *image.Gray16:
		for y := 0; y < f.Rows; y++ {
			row := f.Row(y)
			for x := range row {
				row[x] = float64(gray.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y) * scale
			}
		}
	default:
		for y := 0; y < f.Rows; y++ {
			row := f.Row(y)
			for x := range row {
				c := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				row[x] = float64(c.Y) * scale
			}
		}
	}
	return f, nil
}
