package script

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// Transport encoding for configuration handoff across a process boundary,
// typically through an environment variable set by the test driver and read
// by the application under test. The payload is the raw document, gzipped
// and base64-encoded with the URL alphabet so it survives shells and env
// blocks unquoted.

// EncodeTransport encodes a raw configuration document into a
// transport-safe string.
func EncodeTransport(doc []byte) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(doc); err != nil {
		return "", fmt.Errorf("compress configuration: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress configuration: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeTransport reverses EncodeTransport and decodes the recovered
// document into a Configuration.
func DecodeTransport(s string) (*Configuration, error) {
	compressed, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode transport string: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress configuration: %w", err)
	}
	doc, err := io.ReadAll(zr)
	if closeErr := zr.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("decompress configuration: %w", err)
	}

	return Decode(doc)
}
