package n5

import (
	"context"
	"encoding/json"
	"slices"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/storage"
)

// WriteAttributes stores attrs as the attributes.json of the array at path.
func WriteAttributes(ctx context.Context, w storage.Writer, path string, attrs *Attributes) error {
	if err := attrs.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	return w.Put(ctx, storage.Join(path, AttributesFile), data)
}

// WriteArray stores src as an N5 array at path: the attributes, then every
// block that holds at least one non-zero value. src must have the C-ordered
// shape described by attrs.
func WriteArray(ctx context.Context, w storage.Writer, path string, attrs *Attributes, src *ndarray.Array) error {
	if !slices.Equal(src.Shape, attrs.Shape()) {
		return cerrors.New(cerrors.ErrCodeInvalidInput,
			"array shape %v does not match attributes %v", src.Shape, attrs.Shape())
	}
	codec, err := CodecFor(attrs.Compression)
	if err != nil {
		return err
	}
	if err := WriteAttributes(ctx, w, path, attrs); err != nil {
		return err
	}

	a := &Array{path: storage.Join(path), shape: attrs.Shape(), chunks: attrs.Chunks()}
	full := geom.BoxOf(a.shape)
	if full.Empty() {
		return nil
	}
	first, last := full.Blocks(a.chunks)
	for coords := range blockRange(first, last) {
		lo := make([]int, len(coords))
		hi := make([]int, len(coords))
		for i := range coords {
			lo[i] = coords[i] * a.chunks[i]
			hi[i] = lo[i] + a.chunks[i]
		}
		part, err := src.Slice(geom.Box{Min: lo, Max: hi})
		if err != nil {
			return err
		}
		if allZero(part.Data) {
			continue
		}
		raw, err := EncodeBlock(&Block{Shape: part.Shape, Data: part.Data}, attrs.DataType, codec)
		if err != nil {
			return err
		}
		if err := w.Put(ctx, a.BlockKey(coords), raw); err != nil {
			return err
		}
	}
	return nil
}

func allZero(data []float64) bool {
	for _, v := range data {
		if v != 0 {
			return false
		}
	}
	return true
}
