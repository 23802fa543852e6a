package payload

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
	snappy "github.com/segmentio/kafka-go/compress/snappy/go-xerial-snappy"
)

// Codec names the compression applied to every payload before it is put.
type Codec string

const (
	CodecNone   Codec = "none"
	CodecGzip   Codec = "gzip"
	CodecSnappy Codec = "snappy"
	CodecLZ4    Codec = "lz4"
)

type codecFuncs struct {
	encode func([]byte) ([]byte, error)
	decode func([]byte) ([]byte, error)
}

var codecs = map[Codec]codecFuncs{
	CodecNone: {
		encode: func(b []byte) ([]byte, error) { return b, nil },
		decode: func(b []byte) ([]byte, error) { return b, nil },
	},
	CodecGzip: {
		encode: streamEncoder(func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }),
		decode: streamDecoder(func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }),
	},
	CodecSnappy: {
		encode: func(b []byte) ([]byte, error) { return snappy.Encode(b), nil },
		decode: snappy.Decode,
	},
	CodecLZ4: {
		encode: streamEncoder(func(w io.Writer) io.WriteCloser { return lz4.NewWriter(w) }),
		decode: streamDecoder(func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil }),
	},
}

func streamEncoder(newWriter func(io.Writer) io.WriteCloser) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		w := newWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func streamDecoder(newReader func(io.Reader) (io.Reader, error)) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		r, err := newReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	}
}

func ParseCodec(s string) (Codec, error) {
	c := Codec(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CodecNone, nil
	}
	if _, ok := codecs[c]; !ok {
		return CodecNone, fmt.Errorf("unsupported compression type: %s", s)
	}
	return c, nil
}

func lookup(codec Codec) (codecFuncs, error) {
	if codec == "" {
		codec = CodecNone
	}
	fns, ok := codecs[codec]
	if !ok {
		return codecFuncs{}, fmt.Errorf("unsupported compression type: %s", codec)
	}
	return fns, nil
}

// Compress encodes one payload with codec.
func Compress(data []byte, codec Codec) ([]byte, error) {
	fns, err := lookup(codec)
	if err != nil {
		return nil, err
	}
	return fns.encode(data)
}

// Decompress reverses Compress.
func Decompress(data []byte, codec Codec) ([]byte, error) {
	fns, err := lookup(codec)
	if err != nil {
		return nil, err
	}
	return fns.decode(data)
}

// EncodeBatch compresses every payload of a batch. With CodecNone the
// batch is returned as is.
func EncodeBatch(batch [][]byte, codec Codec) ([][]byte, error) {
	fns, err := lookup(codec)
	if err != nil {
		return nil, err
	}
	if codec == CodecNone || codec == "" {
		return batch, nil
	}

	out := make([][]byte, len(batch))
	for i, p := range batch {
		enc, err := fns.encode(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}
