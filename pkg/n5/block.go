package n5

import (
	"encoding/binary"
	"math"

	cerrors "github.com/microsim/cosem/pkg/errors"
)

const (
	modeDefault   = 0
	modeVarlength = 1
)

// Block is one decoded block. Shape and Data are C-ordered.
type Block struct {
	Shape []int
	Data  []float64
}

// DecodeBlock parses a block file: header, then the payload decompressed
// with codec and converted from dtype.
func DecodeBlock(raw []byte, dtype DataType, codec Codec) (*Block, error) {
	if len(raw) < 4 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "block of %d bytes has no header", len(raw))
	}
	mode := binary.BigEndian.Uint16(raw[0:2])
	ndim := int(binary.BigEndian.Uint16(raw[2:4]))
	off := 4
	if len(raw) < off+4*ndim {
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "block header truncated")
	}
	dims := make([]int, ndim)
	n := 1
	for i := range dims {
		dims[i] = int(binary.BigEndian.Uint32(raw[off:]))
		n *= dims[i]
		off += 4
	}

	switch mode {
	case modeDefault:
	case modeVarlength:
		if len(raw) < off+4 {
			return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "block header truncated")
		}
		count := int(binary.BigEndian.Uint32(raw[off:]))
		off += 4
		if count != n {
			return nil, cerrors.New(cerrors.ErrCodeUnsupported,
				"varlength block with %d elements for extent %v", count, dims)
		}
	default:
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "unknown block mode %d", mode)
	}

	payload, err := codec.Decode(raw[off:])
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidFormat, err, "decompress block")
	}
	size := dtype.Size()
	if size == 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "unsupported data type %q", dtype)
	}
	if len(payload) < n*size {
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat,
			"block payload has %d bytes, extent %v of %s needs %d", len(payload), dims, dtype, n*size)
	}

	b := &Block{Shape: reversed(dims), Data: make([]float64, n)}
	decodeValues(payload, dtype, b.Data)
	return b, nil
}

// EncodeBlock builds a default-mode block file for a C-ordered block.
func EncodeBlock(b *Block, dtype DataType, codec Codec) ([]byte, error) {
	size := dtype.Size()
	if size == 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "unsupported data type %q", dtype)
	}
	payload := make([]byte, len(b.Data)*size)
	encodeValues(b.Data, dtype, payload)
	compressed, err := codec.Encode(payload)
	if err != nil {
		return nil, err
	}

	dims := reversed(b.Shape)
	out := make([]byte, 4+4*len(dims), 4+4*len(dims)+len(compressed))
	binary.BigEndian.PutUint16(out[0:], modeDefault)
	binary.BigEndian.PutUint16(out[2:], uint16(len(dims)))
	for i, d := range dims {
		binary.BigEndian.PutUint32(out[4+4*i:], uint32(d))
	}
	return append(out, compressed...), nil
}

func decodeValues(src []byte, dtype DataType, dst []float64) {
	be := binary.BigEndian
	for i := range dst {
		switch dtype {
		case Uint8:
			dst[i] = float64(src[i])
		case Int8:
			dst[i] = float64(int8(src[i]))
		case Uint16:
			dst[i] = float64(be.Uint16(src[2*i:]))
		case Int16:
			dst[i] = float64(int16(be.Uint16(src[2*i:])))
		case Uint32:
			dst[i] = float64(be.Uint32(src[4*i:]))
		case Int32:
			dst[i] = float64(int32(be.Uint32(src[4*i:])))
		case Float32:
			dst[i] = float64(math.Float32frombits(be.Uint32(src[4*i:])))
		case Uint64:
			dst[i] = float64(be.Uint64(src[8*i:]))
		case Int64:
			dst[i] = float64(int64(be.Uint64(src[8*i:])))
		case Float64:
			dst[i] = math.Float64frombits(be.Uint64(src[8*i:]))
		}
	}
}

func encodeValues(src []float64, dtype DataType, dst []byte) {
	be := binary.BigEndian
	for i, v := range src {
		switch dtype {
		case Uint8:
			dst[i] = uint8(v)
		case Int8:
			dst[i] = byte(int8(v))
		case Uint16:
			be.PutUint16(dst[2*i:], uint16(v))
		case Int16:
			be.PutUint16(dst[2*i:], uint16(int16(v)))
		case Uint32:
			be.PutUint32(dst[4*i:], uint32(v))
		case Int32:
			be.PutUint32(dst[4*i:], uint32(int32(v)))
		case Float32:
			be.PutUint32(dst[4*i:], math.Float32bits(float32(v)))
		case Uint64:
			be.PutUint64(dst[8*i:], uint64(v))
		case Int64:
			be.PutUint64(dst[8*i:], uint64(int64(v)))
		case Float64:
			be.PutUint64(dst[8*i:], math.Float64bits(v))
		}
	}
}
