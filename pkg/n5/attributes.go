package n5

import (
	"encoding/json"
	"fmt"
	"slices"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
)

// AttributesFile is the name of the metadata document of every array.
const AttributesFile = "attributes.json"

// DataType names the stored element type.
type DataType string

// Supported data types.
const (
	Uint8   DataType = "uint8"
	Uint16  DataType = "uint16"
	Uint32  DataType = "uint32"
	Uint64  DataType = "uint64"
	Int8    DataType = "int8"
	Int16   DataType = "int16"
	Int32   DataType = "int32"
	Int64   DataType = "int64"
	Float32 DataType = "float32"
	Float64 DataType = "float64"
)

// Size returns the number of bytes per element, or 0 for an unknown type.
func (d DataType) Size() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Uint64, Int64, Float64:
		return 8
	}
	return 0
}

// Compression is the "compression" object of attributes.json.
type Compression struct {
	Type    string `json:"type"`
	Level   int    `json:"level,omitempty"`
	UseZlib bool   `json:"useZlib,omitempty"`
}

// PixelResolution is the older, Saalfeld-lab way of giving voxel size,
// fastest axis first.
type PixelResolution struct {
	Dimensions []float64 `json:"dimensions"`
	Unit       string    `json:"unit"`
}

// Attributes is the decoded attributes.json of an array. Dimensions and
// BlockSize are kept in file order (fastest axis first).
type Attributes struct {
	Dimensions      []int            `json:"dimensions"`
	BlockSize       []int            `json:"blockSize"`
	DataType        DataType         `json:"dataType"`
	Compression     Compression      `json:"compression"`
	CompressionType string           `json:"compressionType,omitempty"`
	Transform       *geom.Transform  `json:"transform,omitempty"`
	PixelResolution *PixelResolution `json:"pixelResolution,omitempty"`
}

// ParseAttributes decodes and validates an attributes.json document.
func ParseAttributes(data []byte) (*Attributes, error) {
	var a Attributes
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidFormat, err, "decode %s", AttributesFile)
	}
	// Pre-2.0 containers name the codec at the top level.
	if a.Compression.Type == "" {
		a.Compression.Type = a.CompressionType
	}
	if a.Compression.Type == "" {
		a.Compression.Type = "raw"
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks that the attributes describe a readable array.
func (a *Attributes) Validate() error {
	if len(a.Dimensions) == 0 {
		return cerrors.New(cerrors.ErrCodeInvalidFormat, "array has no dimensions")
	}
	if len(a.BlockSize) != len(a.Dimensions) {
		return cerrors.New(cerrors.ErrCodeInvalidFormat,
			"blockSize has %d entries for %d dimensions", len(a.BlockSize), len(a.Dimensions))
	}
	for i := range a.Dimensions {
		if a.Dimensions[i] < 0 || a.BlockSize[i] <= 0 {
			return cerrors.New(cerrors.ErrCodeInvalidFormat,
				"invalid extent %d or block size %d on axis %d", a.Dimensions[i], a.BlockSize[i], i)
		}
	}
	if a.DataType.Size() == 0 {
		return cerrors.New(cerrors.ErrCodeInvalidFormat, "unsupported data type %q", a.DataType)
	}
	return nil
}

// Shape returns the array extent in C order.
func (a *Attributes) Shape() []int { return reversed(a.Dimensions) }

// Chunks returns the block size in C order.
func (a *Attributes) Chunks() []int { return reversed(a.BlockSize) }

// CTransform returns the voxel-to-physical transform in C order. An
// explicit transform is used as is; pixelResolution is reversed; without
// either the transform is the identity in nanometers.
func (a *Attributes) CTransform() geom.Transform {
	rank := len(a.Dimensions)
	if t := a.Transform; t != nil && t.Validate(rank) == nil {
		out := *t
		if len(out.Units) != rank {
			out.Units = slices.Repeat([]string{"nm"}, rank)
		}
		return out
	}
	t := geom.Identity(defaultAxes(rank)...)
	if pr := a.PixelResolution; pr != nil && len(pr.Dimensions) == rank {
		for i, v := range reversed(pr.Dimensions) {
			if v > 0 {
				t.Scale[i] = v
			}
			if pr.Unit != "" {
				t.Units[i] = pr.Unit
			}
		}
	}
	return t
}

// defaultAxes names C-ordered axes: z, y, x for volumes, with extra leading
// axes numbered.
func defaultAxes(rank int) []string {
	names := []string{"x", "y", "z"}
	out := make([]string, rank)
	for i := range rank {
		f := rank - 1 - i // position counted fastest-first
		if f < len(names) {
			out[i] = names[f]
		} else {
			out[i] = fmt.Sprintf("dim_%d", f)
		}
	}
	return out
}

func reversed[T any](s []T) []T {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}
