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
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/ocalfw/prnu/internal/frame"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80  // Line size of a FITS header

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float32
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:    make(map[string]bool),
		Ints:     make(map[string]int32),
		Floats:   make(map[string]float32),
		Strings:  make(map[string]string),
		Dates:    make(map[string]string),
		Comments: make([]string, 0),
		History:  make([]string, 0),
		End:      false,
	}
}

// Reads a detector frame from the file with the given name. Decompresses gzip if .gz or .gzip
// suffix is present, and reads TIFF if a .tif or .tiff suffix is present
func ReadFrameFile(fileName string, id int, logWriter io.Writer) (*frame.Frame, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	lExt := strings.ToLower(path.Ext(fileName))
	if lExt == ".tif" || lExt == ".tiff" {
		fr, err := ReadTIFF(f, id)
		if err != nil {
			return nil, err
		}
		fr.FileName = fileName
		return fr, nil
	} else if lExt == ".gz" || lExt == ".gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	fr, _, err := ReadFrame(r, id, logWriter)
	if err != nil {
		return nil, err
	}
	fr.FileName = fileName
	return fr, nil
}

func (h *Header) popInt32(key string, id int) (res int32, err error) {
	if val, ok := h.Ints[key]; ok {
		delete(h.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", id, key)
}

func (h *Header) popInt32OrFloat(key string, id int) (res float64, err error) {
	if val, ok := h.Ints[key]; ok {
		delete(h.Ints, key)
		return float64(val), nil
	} else if val, ok := h.Floats[key]; ok {
		delete(h.Floats, key)
		return float64(val), nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", id, key)
}

// Reads a two-dimensional FITS primary HDU into a frame. NAXIS1 is the column count,
// NAXIS2 the row count. Values are scaled with BSCALE and BZERO
func ReadFrame(r io.Reader, id int, logWriter io.Writer) (f *frame.Frame, h Header, err error) {
	h = NewHeader()
	if err = h.read(r, id, logWriter); err != nil {
		return nil, h, err
	}

	// check mandatory fields as per standard
	if !h.Bools["SIMPLE"] {
		return nil, h, fmt.Errorf("%d: Not a valid FITS file; SIMPLE=T missing in header", id)
	}
	delete(h.Bools, "SIMPLE")

	bitpix, err := h.popInt32("BITPIX", id)
	if err != nil {
		return nil, h, err
	}
	naxis, err := h.popInt32("NAXIS", id)
	if err != nil {
		return nil, h, err
	}
	if naxis != 2 {
		return nil, h, fmt.Errorf("%d: Need a 2D detector frame, got NAXIS=%d", id, naxis)
	}
	cols, err := h.popInt32("NAXIS1", id)
	if err != nil {
		return nil, h, err
	}
	rows, err := h.popInt32("NAXIS2", id)
	if err != nil {
		return nil, h, err
	}

	bzero, err := h.popInt32OrFloat("BZERO", id)
	if err != nil {
		bzero = 0
	}
	bscale, err := h.popInt32OrFloat("BSCALE", id)
	if err != nil {
		bscale = 1
	}

	if f, err = frame.NewFrame(int(rows), int(cols), nil); err != nil {
		return nil, h, fmt.Errorf("%d: %w", id, err)
	}
	f.ID = id
	if err = readData(r, f.Data, bitpix, bscale, bzero, id, logWriter); err != nil {
		return nil, h, err
	}
	return f, h, nil
}

// Decodes one big-endian value of the given width
type decoder func(b []byte) float64

func decoderFor(bitpix int32) (dec decoder, bytesPerValue int, err error) {
	switch bitpix {
	case 8:
		return func(b []byte) float64 { return float64(b[0]) }, 1, nil
	case 16:
		return func(b []byte) float64 { return float64(int16(binary.BigEndian.Uint16(b))) }, 2, nil
	case 32:
		return func(b []byte) float64 { return float64(int32(binary.BigEndian.Uint32(b))) }, 4, nil
	case 64:
		return func(b []byte) float64 { return float64(int64(binary.BigEndian.Uint64(b))) }, 8, nil
	case -32:
		return func(b []byte) float64 { return float64(math.Float32frombits(binary.BigEndian.Uint32(b))) }, 4, nil
	case -64:
		return func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) }, 8, nil
	}
	return nil, 0, fmt.Errorf("unknown BITPIX value %d", bitpix)
}

const bufLen int = 16 * 1024 // input buffer length for reading from file

// Batched read of data of the given type from the file, converting from network byte order and applying bscale and bzero
func readData(r io.Reader, data []float64, bitpix int32, bscale, bzero float64, id int, logWriter io.Writer) error {
	dec, bytesPerValue, err := decoderFor(bitpix)
	if err != nil {
		return fmt.Errorf("%d: %w", id, err)
	}
	if bitpix == 64 {
		fmt.Fprintf(logWriter, "%d: Warning: loss of precision converting int%d to float64 values\n", id, bitpix)
	}

	buf := make([]byte, bufLen-bufLen%bytesPerValue)
	dataIndex := 0
	for dataIndex < len(data) {
		bytesToRead := (len(data) - dataIndex) * bytesPerValue
		if bytesToRead > len(buf) {
			bytesToRead = len(buf)
		}
		if _, err := io.ReadFull(r, buf[:bytesToRead]); err != nil {
			return fmt.Errorf("%d: %s", id, err.Error())
		}
		for i := 0; i < bytesToRead; i += bytesPerValue {
			data[dataIndex] = dec(buf[i:i+bytesPerValue])*bscale + bzero
			dataIndex++
		}
	}
	return nil
}

func (h *Header) read(r io.Reader, id int, logWriter io.Writer) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		bytesRead, err := io.ReadFull(r, buf)
		if err != nil || bytesRead != fitsBlockSize {
			return fmt.Errorf("%d: reading FITS header: %v", id, err)
		}
		h.Length += int32(bytesRead)

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				fmt.Fprintf(logWriter, "%d: Warning:Cannot parse '%s', ignoring\n", id, string(line))
			} else {
				h.readLine(reParser.SubexpNames(), subValues, id, lineNo, logWriter)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte, id, lineNo int, logWriter io.Writer) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] != nil && len(subNames[i]) == 1 {
			switch c := subNames[i][0]; c {
			case byte('E'): // end line
				h.End = true
			case byte('H'): // history line
				h.History = append(h.History, string(subValues[i]))
			case byte('C'): // comment line
				h.Comments = append(h.Comments, string(subValues[i]))
			case byte('k'): // key
				key = string(subValues[i])
			case byte('b'): // boolean
				if len(subValues[i]) > 0 {
					v := subValues[i][0]
					h.Bools[key] = v == byte('t') || v == byte('T')
				}
			case byte('i'): // int
				val, err := strconv.ParseInt(string(subValues[i]), 10, 64)
				if err == nil {
					h.Ints[key] = int32(val)
				}
			case byte('f'): // float
				val, err := strconv.ParseFloat(strings.Replace(string(subValues[i]), "D", "E", 1), 64)
				if err == nil {
					h.Floats[key] = float32(val)
				}
			case byte('s'): // string
				h.Strings[key] = strings.TrimRight(string(subValues[i]), " ")
			case byte('d'): // date
				h.Dates[key] = string(subValues[i])
			case byte('c'): // comment
				// ignore value comments
			default:
				fmt.Fprintf(logWriter, "%d:%d:Warning:Unknown token '%s'\n", id, lineNo, string(c))
			}
		}
	}
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + white + "(?P<H>" + rest + ")"

	commKey := "COMMENT"
	commLine := commKey + white + "(?P<C>" + rest + ")"

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?[0-9]*\\.[0-9]*(?:[ED][-+]?[0-9]+)?)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9].?[0-9]*)"
	val := "(?:" + boo + "|" + inte + "|" + floa + "|" + stri + "|" + date + ")"

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
