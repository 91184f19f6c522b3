package cosem

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"gocloud.dev/blob/memblob"

	"github.com/microsim/cosem/pkg/catalog"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/geom"
	"github.com/microsim/cosem/pkg/n5"
	"github.com/microsim/cosem/pkg/ndarray"
	"github.com/microsim/cosem/pkg/observability"
	"github.com/microsim/cosem/pkg/source"
	"github.com/microsim/cosem/pkg/storage"
)

const container = "mem://cosem/jrc_test.n5"

// writeVolume stores a z, y, x volume whose values are offset + row-major index.
func writeVolume(t *testing.T, store *storage.BucketStore, path string, shape []int, block []int, scale, offset float64) {
	t.Helper()
	tr := geom.Transform{
		Axes:      []string{"z", "y", "x"},
		Units:     []string{"nm", "nm", "nm"},
		Scale:     []float64{scale, scale, scale},
		Translate: []float64{0, 0, 0},
	}
	attrs := &n5.Attributes{
		Dimensions:  []int{shape[2], shape[1], shape[0]},
		BlockSize:   []int{block[2], block[1], block[0]},
		DataType:    n5.Uint16,
		Compression: n5.Compression{Type: "gzip"},
		Transform:   &tr,
	}
	src, err := ndarray.New([]string{"z", "y", "x"}, shape)
	if err != nil {
		t.Fatalf("ndarray.New() error: %v", err)
	}
	for i := range src.Data {
		src.Data[i] = offset + float64(i)
	}
	if err := n5.WriteArray(context.Background(), store, path+"/s0", attrs, src); err != nil {
		t.Fatalf("WriteArray(%s) error: %v", path, err)
	}
}

func testManifest() *catalog.Manifest {
	n5src := func(name, path, content string) catalog.Source {
		return catalog.Source{
			Name:        name,
			URL:         container + "/" + path,
			Format:      "n5",
			ContentType: content,
		}
	}
	pos := geom.Vec3{12, 12, 6}
	return &catalog.Manifest{
		Name:     "jrc_test",
		Metadata: catalog.Metadata{Title: "Test cell", ID: "jrc_test"},
		Sources: map[string]catalog.Source{
			"fibsem-uint16": n5src("fibsem-uint16", "em/fibsem-uint16", "em"),
			"fibsem-uint8":  n5src("fibsem-uint8", "em/fibsem-uint8", "em"),
			"mito_seg":      n5src("mito_seg", "labels/mito_seg", "segmentation"),
			"er_seg":        n5src("er_seg", "labels/er_seg", "segmentation"),
			"mito_mesh": {
				Name:        "mito_mesh",
				URL:         container + "/meshes/mito",
				Format:      "neuroglancer_multilod_draco",
				ContentType: "segmentation",
			},
		},
		Views: []catalog.View{
			{Name: "Default view", Sources: []string{"fibsem-uint8"}},
			{Name: "Mitochondria", Sources: []string{"fibsem-uint8", "mito_seg", "mito_mesh"}, Position: &pos},
		},
	}
}

// testDataset returns a dataset whose sources live in one in-memory container:
// fibsem-uint16 is 4x8x8 at 4 nm, mito_seg 2x4x4 at 8 nm, and er_seg is
// listed but has no data.
func testDataset(t *testing.T) *Dataset {
	t.Helper()
	store := storage.NewBucketStore(memblob.OpenBucket(nil), "", container)
	t.Cleanup(func() { store.Close() })
	writeVolume(t, store, "em/fibsem-uint16", []int{4, 8, 8}, []int{2, 4, 4}, 4, 0)
	writeVolume(t, store, "labels/mito_seg", []int{2, 4, 4}, []int{2, 2, 2}, 8, 100)
	return FromManifest("jrc_test", testManifest(), WithRegistry(testRegistry(store, nil)))
}

func testRegistry(store storage.Store, opened *string) *source.Registry {
	return source.NewDefaultRegistry(source.WithStoreOpener(func(ctx context.Context, url string) (storage.Store, error) {
		if opened != nil {
			*opened = url
		}
		return storage.NopCloser(store), nil
	}))
}

func TestDatasetAccessors(t *testing.T) {
	ds := testDataset(t)

	if ds.ID() != "jrc_test" || ds.String() != "jrc_test" || ds.Name() != "jrc_test" {
		t.Errorf("ID/String/Name = %q/%q/%q", ds.ID(), ds.String(), ds.Name())
	}
	if ds.Title() != "Test cell" || ds.Metadata().ID != "jrc_test" {
		t.Errorf("Title() = %q", ds.Title())
	}
	if got := ds.Summary(); got != "<Dataset 'jrc_test' sources: 5, views: 2>" {
		t.Errorf("Summary() = %q", got)
	}
	want := []string{"er_seg", "fibsem-uint16", "fibsem-uint8", "mito_mesh", "mito_seg"}
	if got := ds.SourceNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("SourceNames() = %v", got)
	}
}

func TestView(t *testing.T) {
	ds := testDataset(t)

	tests := []struct {
		name string
		want string
	}{
		{"Mitochondria", "Mitochondria"},
		{"MITO", "Mitochondria"},
		{"d", "Default view"},
		{"", "Default view"},
	}
	for _, tt := range tests {
		v, err := ds.View(tt.name)
		if err != nil {
			t.Errorf("View(%q) error: %v", tt.name, err)
			continue
		}
		if v.Name != tt.want {
			t.Errorf("View(%q) = %q, want %q", tt.name, v.Name, tt.want)
		}
	}

	_, err := ds.View("nucleus")
	if !errors.Is(err, ErrViewNotFound) || cerrors.GetCode(err) != cerrors.ErrCodeViewNotFound {
		t.Errorf("View(nucleus) error = %v", err)
	}
}

func TestReadSource(t *testing.T) {
	ds := testDataset(t)
	ctx := context.Background()

	vol, err := ds.ReadSource(ctx, "fibsem-uint16", 0)
	if err != nil {
		t.Fatalf("ReadSource() error: %v", err)
	}
	defer vol.Close()
	if !reflect.DeepEqual(vol.Shape(), []int{4, 8, 8}) {
		t.Errorf("Shape() = %v", vol.Shape())
	}

	if _, err := ds.ReadSource(ctx, "nope", 0); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("ReadSource(nope) error = %v, want ErrSourceNotFound", err)
	}
	if _, err := ds.ReadSource(ctx, "mito_mesh", 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ReadSource(mesh) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := ds.ReadSource(ctx, "fibsem-uint16", 1); !errors.Is(err, n5.ErrNotArray) {
		t.Errorf("ReadSource(level 1) error = %v, want ErrNotArray", err)
	}
}

func TestLoadViewStack(t *testing.T) {
	ds := testDataset(t)

	// The view centres on x=12 y=12 z=6; an 8 nm cube covers fibsem voxels
	// z 1-2, y 2-4, x 2-4 and mito voxels z 1, y 1-2, x 1-2.
	got, err := ds.LoadView(context.Background(), LoadOptions{Name: "mito", Extent: []float64{8}})
	if err != nil {
		t.Fatalf("LoadView() error: %v", err)
	}
	if !reflect.DeepEqual(got.Dims, []string{"source", "z", "y", "x"}) {
		t.Fatalf("Dims = %v", got.Dims)
	}
	if !reflect.DeepEqual(got.Shape, []int{2, 2, 3, 3}) {
		t.Fatalf("Shape = %v", got.Shape)
	}
	if !reflect.DeepEqual(got.Labels[SourceDim], []string{"fibsem-uint16", "mito_seg"}) {
		t.Errorf("source labels = %v", got.Labels[SourceDim])
	}
	if !reflect.DeepEqual(got.Coords["x"], []float64{8, 12, 16}) {
		t.Errorf("x coords = %v", got.Coords["x"])
	}
	if v := got.At(0, 0, 0, 0); v != 82 {
		t.Errorf("fibsem at crop origin = %g, want 82", v)
	}
	if v := got.At(1, 0, 0, 0); v != 121 {
		t.Errorf("mito at crop origin = %g, want 121", v)
	}
	if v := got.At(1, 1, 2, 2); v != 126 {
		t.Errorf("mito at crop corner = %g, want 126", v)
	}
}

func TestLoadViewOptions(t *testing.T) {
	ds := testDataset(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		opts  LoadOptions
		dims  []string
		shape []int
	}{
		{
			name:  "whole volume",
			opts:  LoadOptions{Sources: []string{"fibsem-uint16"}},
			dims:  []string{"z", "y", "x"},
			shape: []int{4, 8, 8},
		},
		{
			name:  "centre crop",
			opts:  LoadOptions{Sources: []string{"fibsem-uint16"}, Extent: []float64{8}},
			dims:  []string{"z", "y", "x"},
			shape: []int{2, 2, 2},
		},
		{
			name:  "explicit position and xyz extent",
			opts:  LoadOptions{Sources: []string{"fibsem-uint16"}, Position: []float64{0, 0, 0}, Extent: []float64{8, 16, 0}},
			dims:  []string{"z", "y", "x"},
			shape: []int{1, 3, 2},
		},
		{
			name:  "exclude segmentations",
			opts:  LoadOptions{Name: "mito", Exclude: []string{"segmentation"}, Extent: []float64{8}},
			dims:  []string{"z", "y", "x"},
			shape: []int{2, 3, 3},
		},
		{
			name:  "voxel box",
			opts:  LoadOptions{Sources: []string{"fibsem-uint8", "er_seg"}, Box: &geom.Box{Min: []int{0, 1, 2}, Max: []int{1, 3, 99}}},
			dims:  []string{"z", "y", "x"},
			shape: []int{1, 2, 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ds.LoadView(ctx, tt.opts)
			if err != nil {
				t.Fatalf("LoadView() error: %v", err)
			}
			if !reflect.DeepEqual(got.Dims, tt.dims) || !reflect.DeepEqual(got.Shape, tt.shape) {
				t.Errorf("LoadView() dims %v shape %v, want %v %v", got.Dims, got.Shape, tt.dims, tt.shape)
			}
			if got.Name != "fibsem-uint16" {
				t.Errorf("LoadView() name = %q", got.Name)
			}
		})
	}
}

func TestLoadViewErrors(t *testing.T) {
	ds := testDataset(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		opts  LoadOptions
		check func(error) bool
	}{
		{
			name:  "nothing loaded",
			opts:  LoadOptions{Sources: []string{"er_seg", "nope", "mito_mesh"}},
			check: func(err error) bool { return errors.Is(err, ErrNothingLoaded) },
		},
		{
			name:  "no sources",
			opts:  LoadOptions{},
			check: func(err error) bool { return errors.Is(err, ErrNothingLoaded) },
		},
		{
			name:  "unknown view",
			opts:  LoadOptions{Name: "golgi"},
			check: func(err error) bool { return errors.Is(err, ErrViewNotFound) },
		},
		{
			name:  "bad extent",
			opts:  LoadOptions{Sources: []string{"fibsem-uint16"}, Extent: []float64{1, 2}},
			check: func(err error) bool { return cerrors.GetCode(err) == cerrors.ErrCodeInvalidInput },
		},
		{
			name:  "bad position",
			opts:  LoadOptions{Sources: []string{"fibsem-uint16"}, Position: []float64{1}, Extent: []float64{1}},
			check: func(err error) bool { return cerrors.GetCode(err) == cerrors.ErrCodeInvalidInput },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ds.LoadView(ctx, tt.opts)
			if !tt.check(err) {
				t.Errorf("LoadView() error = %v", err)
			}
		})
	}
}

type recordingHooks struct {
	observability.NoopLoadHooks
	mu      sync.Mutex
	skipped []string
	loaded  int
}

func (h *recordingHooks) OnSourceSkipped(_ context.Context, _, src string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skipped = append(h.skipped, src)
}

func (h *recordingHooks) OnLoadComplete(_ context.Context, _ string, loaded int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = loaded
}

func TestLoadViewHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetLoadHooks(hooks)
	t.Cleanup(observability.Reset)

	ds := testDataset(t)
	if _, err := ds.LoadView(context.Background(), LoadOptions{Name: "mito", Extent: []float64{8}}); err != nil {
		t.Fatalf("LoadView() error: %v", err)
	}
	if !reflect.DeepEqual(hooks.skipped, []string{"mito_mesh"}) {
		t.Errorf("skipped = %v, want [mito_mesh]", hooks.skipped)
	}
	if hooks.loaded != 2 {
		t.Errorf("loaded = %d, want 2", hooks.loaded)
	}
}

func TestCropAround(t *testing.T) {
	arr, _ := ndarray.New([]string{"z", "y", "x"}, []int{10, 10, 10})
	arr.SetTransform(geom.Transform{
		Axes:      []string{"z", "y", "x"},
		Scale:     []float64{2, 2, 2},
		Translate: []float64{0, 0, 0},
	})

	got, err := CropAround(arr, []float64{10, 10, 10}, []float64{4})
	if err != nil {
		t.Fatalf("CropAround() error: %v", err)
	}
	if !reflect.DeepEqual(got.Shape, []int{3, 3, 3}) {
		t.Errorf("CropAround() shape = %v", got.Shape)
	}
	if !reflect.DeepEqual(got.Coords["x"], []float64{8, 10, 12}) {
		t.Errorf("CropAround() x = %v", got.Coords["x"])
	}

	for _, bad := range [][2][]float64{
		{{1, 2}, {4}},
		{{1, 2, 3}, {1, 2}},
		{{1, 2, 3}, {-1}},
	} {
		if _, err := CropAround(arr, bad[0], bad[1]); cerrors.GetCode(err) != cerrors.ErrCodeInvalidInput {
			t.Errorf("CropAround(%v, %v) error = %v", bad[0], bad[1], err)
		}
	}
}

func TestSamples(t *testing.T) {
	all := Samples()
	if len(all) != 2 || all[0].Name != "hela_2_roi" || all[1].Name != "hela_cytosol" {
		t.Fatalf("Samples() = %v", all)
	}
	s, err := LookupSample("hela_cytosol")
	if err != nil {
		t.Fatalf("LookupSample() error: %v", err)
	}
	if s.Dataset != "jrc_hela-3" || !reflect.DeepEqual(s.Position, []float64{35026, 1533, 18200}) {
		t.Errorf("hela_cytosol = %+v", s)
	}
	if _, err := LookupSample("yeast"); cerrors.GetCode(err) != cerrors.ErrCodeNotFound {
		t.Errorf("LookupSample(yeast) error = %v", err)
	}
}

func TestLoadSampleBox(t *testing.T) {
	ds := testDataset(t)
	got, err := ds.LoadSample(context.Background(), Sample{
		Name:    "roi",
		Sources: []string{"fibsem-uint16", "mito_seg"},
		Box:     &geom.Box{Min: []int{0, 0, 0}, Max: []int{2, 2, 2}},
	})
	if err != nil {
		t.Fatalf("LoadSample() error: %v", err)
	}
	// The box is applied per source, then mito is resampled onto fibsem.
	if !reflect.DeepEqual(got.Shape, []int{2, 2, 2, 2}) {
		t.Errorf("LoadSample() shape = %v", got.Shape)
	}
}

func TestDatasetURL(t *testing.T) {
	got := DatasetURL("jrc_hela-2", "/em/fibsem-uint16/")
	want := "s3://janelia-cosem-datasets/jrc_hela-2/jrc_hela-2.n5/em/fibsem-uint16"
	if got != want {
		t.Errorf("DatasetURL() = %q, want %q", got, want)
	}
}

func TestReadDataset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewBucketStore(memblob.OpenBucket(nil), "", container)
	defer store.Close()
	writeVolume(t, store, "em/fibsem-uint16", []int{2, 2, 2}, []int{2, 2, 2}, 4, 1)

	var opened string
	vol, err := ReadDataset(ctx, testRegistry(store, &opened), "jrc_test", "em/fibsem-uint16", 0)
	if err != nil {
		t.Fatalf("ReadDataset() error: %v", err)
	}
	defer vol.Close()
	if opened != "s3://janelia-cosem-datasets/jrc_test/jrc_test.n5" {
		t.Errorf("opened %q", opened)
	}

	if _, err := ReadDataset(ctx, nil, "../x", "em", 0); err == nil {
		t.Error("ReadDataset() should reject path traversal in the dataset id")
	}
}

func TestNewFromCatalog(t *testing.T) {
	body, err := json.Marshal(testManifest())
	if err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jrc_test/manifest.json" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer server.Close()

	client := catalog.NewClient(nil, time.Hour,
		catalog.WithBaseURL(server.URL),
		catalog.WithHTTPClient(server.Client()),
	)
	ds, err := New(context.Background(), client, "jrc_test")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if len(ds.Views()) != 2 || len(ds.Sources()) != 5 {
		t.Errorf("New() loaded %d views and %d sources", len(ds.Views()), len(ds.Sources()))
	}

	if _, err := New(context.Background(), client, "jrc_missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("New(missing) error = %v, want ErrNotFound", err)
	}
}
