package source

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gocloud.dev/blob/memblob"

	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/n5"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/storage"
)

func TestFormats(t *testing.T) {
	for _, f := range KnownFormats() {
		if !f.Known() {
			t.Errorf("%q should be known", f)
		}
	}
	if Format("hdf5").Known() {
		t.Error("hdf5 should not be known")
	}
	if !MultiLODDracoMesh.IsMesh() || !LegacyMesh.IsMesh() || N5.IsMesh() {
		t.Error("IsMesh() misclassifies formats")
	}
	if LevelPath(3) != "s3" {
		t.Errorf("LevelPath(3) = %q", LevelPath(3))
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Lookup(N5); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Lookup() on empty registry error = %v", err)
	}

	called := 0
	r.Register(Zarr, ReaderFunc(func(ctx context.Context, url string, level int) (Volume, error) {
		called++
		return nil, nil
	}))
	if _, err := r.Open(context.Background(), Zarr, "mem://x", 0); err != nil || called != 1 {
		t.Errorf("Open(zarr) error = %v, calls = %d", err, called)
	}
	if _, err := r.Open(context.Background(), Zarr, "mem://x", -1); cerrors.GetCode(err) != cerrors.ErrCodeInvalidInput {
		t.Errorf("Open() with negative level error = %v", err)
	}

	_, err := r.Open(context.Background(), Precomputed, "mem://x", 0)
	if !errors.Is(err, ErrUnsupportedFormat) || cerrors.GetCode(err) != cerrors.ErrCodeUnsupported {
		t.Errorf("Open(precomputed) error = %v", err)
	}

	if got := NewDefaultRegistry().Formats(); !reflect.DeepEqual(got, []Format{N5}) {
		t.Errorf("default Formats() = %v", got)
	}
}

func TestN5Reader(t *testing.T) {
	ctx := context.Background()
	bucket := storage.NewBucketStore(memblob.OpenBucket(nil), "", "mem://cosem/d.n5")
	defer bucket.Close()

	attrs := &n5.Attributes{
		Dimensions:  []int{4, 3, 2},
		BlockSize:   []int{2, 2, 2},
		DataType:    n5.Uint8,
		Compression: n5.Compression{Type: "raw"},
	}
	src, _ := ndarray.New([]string{"z", "y", "x"}, attrs.Shape())
	for i := range src.Data {
		src.Data[i] = float64(i)
	}
	if err := n5.WriteArray(ctx, bucket, "em/fibsem-uint8/s1", attrs, src); err != nil {
		t.Fatalf("WriteArray() error: %v", err)
	}

	var opened string
	reg := NewDefaultRegistry(WithStoreOpener(func(ctx context.Context, url string) (storage.Store, error) {
		opened = url
		return storage.NopCloser(bucket), nil
	}))

	vol, err := reg.Open(ctx, N5, "mem://cosem/d.n5/em/fibsem-uint8", 1)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer vol.Close()

	if opened != "mem://cosem/d.n5" {
		t.Errorf("store opened at %q, want the container root", opened)
	}
	if !reflect.DeepEqual(vol.Shape(), []int{2, 3, 4}) || vol.DType() != "uint8" {
		t.Errorf("Shape() = %v, DType() = %s", vol.Shape(), vol.DType())
	}
	arr, err := vol.Read(ctx, geom.BoxOf(vol.Shape()))
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !reflect.DeepEqual(arr.Data, src.Data) {
		t.Errorf("Read() = %v", arr.Data)
	}

	if _, err := reg.Open(ctx, N5, "mem://cosem/d.n5/em/fibsem-uint8", 0); !errors.Is(err, n5.ErrNotArray) {
		t.Errorf("Open() of missing level error = %v, want ErrNotArray", err)
	}
}
