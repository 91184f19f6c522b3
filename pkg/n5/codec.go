package n5

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnsupportedCodec is returned for compression types with no registered codec.
var ErrUnsupportedCodec = errors.New("unsupported compression")

// Codec compresses and decompresses block payloads.
type Codec interface {
	Decode(src []byte) ([]byte, error)
	Encode(src []byte) ([]byte, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = map[string]func(Compression) Codec{
		"raw":  func(Compression) Codec { return rawCodec{} },
		"gzip": func(c Compression) Codec { return gzipCodec{level: c.Level, zlib: c.UseZlib} },
		"zstd": func(c Compression) Codec { return newZstdCodec(c.Level) },
	}
)

// RegisterCodec makes a codec available under a compression type name,
// replacing any previous registration.
func RegisterCodec(name string, factory func(Compression) Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[name] = factory
}

// Codecs returns the registered compression type names, sorted.
func Codecs() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CodecFor returns the codec configured by c.
func CodecFor(c Compression) (Codec, error) {
	codecsMu.RLock()
	factory, ok := codecs[c.Type]
	codecsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, c.Type)
	}
	return factory(c), nil
}

type rawCodec struct{}

func (rawCodec) Decode(src []byte) ([]byte, error) { return src, nil }
func (rawCodec) Encode(src []byte) ([]byte, error) { return src, nil }

// gzipCodec handles N5 "gzip" compression, which is zlib-framed when
// useZlib is set.
type gzipCodec struct {
	level int
	zlib  bool
}

func (c gzipCodec) Decode(src []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if c.zlib {
		r, err = zlib.NewReader(bytes.NewReader(src))
	} else {
		r, err = gzip.NewReader(bytes.NewReader(src))
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (c gzipCodec) Encode(src []byte) ([]byte, error) {
	level := c.level
	if level == 0 || level < -1 || level > 9 {
		level = gzip.DefaultCompression
	}
	var (
		buf bytes.Buffer
		w   io.WriteCloser
		err error
	)
	if c.zlib {
		w, err = zlib.NewWriterLevel(&buf, level)
	} else {
		w, err = gzip.NewWriterLevel(&buf, level)
	}
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// zstd decoders and encoders are safe for concurrent DecodeAll/EncodeAll
// and costly to build, so one of each is shared.
var (
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil)
	})
)

type zstdCodec struct{ level int }

func newZstdCodec(level int) Codec { return zstdCodec{level: level} }

func (zstdCodec) Decode(src []byte) ([]byte, error) {
	dec, err := zstdDecoder()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(src, nil)
}

func (zstdCodec) Encode(src []byte) ([]byte, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, nil), nil
}
