// Package source opens filing files and decodes their character encoding.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/coolbeans/edgarsgml/pkg/sgml"
)

// Lookup resolves an encoding label such as "latin1" or "windows-1252".
// An empty label means UTF-8, which EDGAR's ASCII filings satisfy.
func Lookup(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc, nil
}

type decodedFile struct {
	io.Reader
	file *os.File
}

func (d *decodedFile) Close() error {
	return d.file.Close()
}

// Open opens path and returns a reader producing UTF-8 text.
func Open(path, label string) (io.ReadCloser, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open filing: %w", err)
	}
	if enc == unicode.UTF8 {
		return file, nil
	}
	return &decodedFile{
		Reader: transform.NewReader(file, enc.NewDecoder()),
		file:   file,
	}, nil
}

// Decode opens, decodes and closes path. The path names the input in diagnostics.
func Decode(path, label string, opts ...sgml.Option) (*sgml.Result, error) {
	rc, err := Open(path, label)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	opts = append([]sgml.Option{sgml.WithName(path)}, opts...)
	result, err := sgml.NewDecoder(opts...).Decode(sgml.NewLineReader(rc))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}
