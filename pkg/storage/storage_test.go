package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestS3ToHTTPS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"s3://janelia-cosem-datasets/jrc_hela-3/jrc_hela-3.n5", "https://janelia-cosem-datasets.s3.amazonaws.com/jrc_hela-3/jrc_hela-3.n5"},
		{"s3://bucket", "https://bucket.s3.amazonaws.com"},
		{"s3://bucket/prefix/", "https://bucket.s3.amazonaws.com/prefix"},
		{"https://example.org/x", "https://example.org/x"},
	}
	for _, tt := range tests {
		if got := S3ToHTTPS(tt.in); got != tt.want {
			t.Errorf("S3ToHTTPS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in, root, path string
	}{
		{
			"s3://janelia-cosem-datasets/jrc_hela-3/jrc_hela-3.n5/em/fibsem-uint16/s0",
			"s3://janelia-cosem-datasets/jrc_hela-3/jrc_hela-3.n5", "em/fibsem-uint16/s0",
		},
		{"file:///data/x.n5", "file:///data/x.n5", ""},
		{"mem://bucket/d.zarr/labels/", "mem://bucket/d.zarr", "labels"},
		{"https://host/a/b/", "https://host/a/b", ""},
	}
	for _, tt := range tests {
		root, path := Split(tt.in)
		if root != tt.root || path != tt.path {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tt.in, root, path, tt.root, tt.path)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("", "/em/", "s0", "", "0/1/2"); got != "em/s0/0/1/2" {
		t.Errorf("Join() = %q", got)
	}
}

func TestBucketStore(t *testing.T) {
	ctx := context.Background()
	s := NewBucketStore(memblob.OpenBucket(nil), "root.n5", "mem://test")
	defer s.Close()

	if err := s.Put(ctx, "em/s0/attributes.json", []byte(`{}`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := s.Get(ctx, "em/s0/attributes.json")
	if err != nil || string(got) != "{}" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if _, err := s.Get(ctx, "em/s0/0/0/0"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Get(missing) error = %v, want ErrNotExist", err)
	}

	sub := s.Sub("em")
	if got, err := sub.Get(ctx, "s0/attributes.json"); err != nil || string(got) != "{}" {
		t.Errorf("Sub().Get() = %q, %v", got, err)
	}
	if sub.URL() != "mem://test/em" {
		t.Errorf("Sub().URL() = %q", sub.URL())
	}
}

func TestOpenBucketMem(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "mem://")
	if err != nil {
		t.Fatalf("Open(mem://) error: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*BucketStore); !ok {
		t.Errorf("Open(mem://) = %T, want *BucketStore", s)
	}
}

func TestOpenSchemes(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "s3://janelia-cosem-datasets/jrc_hela-3")
	if err != nil {
		t.Fatalf("Open(s3) error: %v", err)
	}
	if s.URL() != "https://janelia-cosem-datasets.s3.amazonaws.com/jrc_hela-3" {
		t.Errorf("Open(s3).URL() = %q", s.URL())
	}

	if _, err := Open(ctx, "ftp://example.org/data"); err == nil {
		t.Error("Open(ftp) should fail")
	}
}

func TestHTTPStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.n5/attributes.json":
			w.Write([]byte(`{"n5":"2.0.0"}`))
		case "/data.n5/denied":
			w.WriteHeader(http.StatusForbidden)
		case "/data.n5/teapot":
			w.WriteHeader(http.StatusTeapot)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s := NewHTTPStore(srv.URL+"/data.n5/", srv.Client())

	got, err := s.Get(ctx, "attributes.json")
	if err != nil || string(got) != `{"n5":"2.0.0"}` {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	for _, key := range []string{"missing", "denied"} {
		if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotExist) {
			t.Errorf("Get(%q) error = %v, want ErrNotExist", key, err)
		}
	}
	if _, err := s.Get(ctx, "teapot"); err == nil || errors.Is(err, ErrNotExist) {
		t.Errorf("Get(teapot) error = %v, want a non-ErrNotExist error", err)
	}
}

func TestNopCloser(t *testing.T) {
	ctx := context.Background()
	bucket := NewBucketStore(memblob.OpenBucket(nil), "", "mem://shared")
	defer bucket.Close()
	if err := bucket.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	shared := NopCloser(bucket)
	if err := shared.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got, err := shared.Get(ctx, "k"); err != nil || string(got) != "v" {
		t.Errorf("Get() after NopCloser.Close = %q, %v", got, err)
	}
}
