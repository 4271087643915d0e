package array

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/janelia-flyem/cclabels/dvid"
)

// DType is the element type of a packed raw label file.
type DType string

const (
	Uint8  DType = "uint8"
	Uint16 DType = "uint16"
	Uint32 DType = "uint32"
	Uint64 DType = "uint64"
)

// ParseDType returns the DType for a name; an empty name means Uint64.
func ParseDType(name string) (DType, error) {
	switch DType(name) {
	case "":
		return Uint64, nil
	case Uint8, Uint16, Uint32, Uint64:
		return DType(name), nil
	default:
		return "", fmt.Errorf("unsupported label dtype %q (use uint8, uint16, uint32, or uint64)", name)
	}
}

// Size returns the number of bytes per element.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32:
		return 4
	case Uint64:
		return 8
	default:
		return 0
	}
}

// MaxValue returns the largest label representable by the type.
func (d DType) MaxValue() uint64 {
	switch d {
	case Uint8:
		return math.MaxUint8
	case Uint16:
		return math.MaxUint16
	case Uint32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// ReadRaw reads a packed little-endian label array of the given shape in C order.
// The reader must hold exactly that many elements.
func ReadRaw(r io.Reader, shape dvid.Point, dtype DType) (*dvid.Volume, error) {
	size := dtype.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported label dtype %q", dtype)
	}
	vol, err := dvid.NewVolume(shape)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(r, 1<<20)
	data := vol.Data()
	buf := make([]byte, size)
	for i := range data {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("raw %s data ended after %d of %d labels: %v", dtype, i, len(data), err)
		}
		switch dtype {
		case Uint8:
			data[i] = uint64(buf[0])
		case Uint16:
			data[i] = uint64(binary.LittleEndian.Uint16(buf))
		case Uint32:
			data[i] = uint64(binary.LittleEndian.Uint32(buf))
		case Uint64:
			data[i] = binary.LittleEndian.Uint64(buf)
		}
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("raw %s data holds more than the %d labels of shape %s", dtype, len(data), shape)
	}
	return vol, nil
}

// WriteRaw writes the volume as a packed little-endian array of the given type.  A
// label that does not fit the type is an error.
func WriteRaw(w io.Writer, vol *dvid.Volume, dtype DType) error {
	size := dtype.Size()
	if size == 0 {
		return fmt.Errorf("unsupported label dtype %q", dtype)
	}
	maxValue := dtype.MaxValue()
	bw := bufio.NewWriterSize(w, 1<<20)
	buf := make([]byte, size)
	for i, label := range vol.Data() {
		if label > maxValue {
			return fmt.Errorf("label %d at index %d does not fit in %s", label, i, dtype)
		}
		switch dtype {
		case Uint8:
			buf[0] = uint8(label)
		case Uint16:
			binary.LittleEndian.PutUint16(buf, uint16(label))
		case Uint32:
			binary.LittleEndian.PutUint32(buf, uint32(label))
		case Uint64:
			binary.LittleEndian.PutUint64(buf, label)
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ImportRaw reads a raw label file covering dst's bounds and writes it into dst.
func ImportRaw(ctx context.Context, r io.Reader, dst Array, dtype DType) error {
	bounds := dst.Bounds()
	vol, err := ReadRaw(r, bounds.Size, dtype)
	if err != nil {
		return err
	}
	return dst.Write(ctx, bounds, vol)
}

// ExportRaw writes all of src as a raw label file.
func ExportRaw(ctx context.Context, src Array, w io.Writer, dtype DType) error {
	vol, err := src.Read(ctx, src.Bounds())
	if err != nil {
		return err
	}
	return WriteRaw(w, vol, dtype)
}
