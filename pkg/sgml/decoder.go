package sgml

import (
	"io"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

var leadingMarkers = []string{"<SUBMISSION>", "<SEC-DOCUMENT>"}

// Top-level fields every complete submission carries.
var expectedTopFields = []string{"DOCUMENT", "FILER"}

// Decoder turns submission text into a Record. It keeps no per-decode state
// and may be used from several goroutines.
type Decoder struct {
	logger *zap.Logger
	name   string
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger receiving warnings and errors.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithName sets the input identity used in diagnostics, usually a file path.
func WithName(name string) Option {
	return func(d *Decoder) {
		d.name = name
	}
}

// NewDecoder creates a Decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{logger: zap.NewNop(), name: "<input>"}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result is a decoded submission with the warnings raised while decoding it.
type Result struct {
	Record   *Record
	Warnings []Warning
}

// Decode reads a whole submission from src. On error no record is returned.
func (d *Decoder) Decode(src LineSource) (*Result, error) {
	p := &parser{
		lines:  lineCounter{src: src},
		logger: d.logger,
		source: d.name,
	}

	rec, err := d.decode(p)
	if err != nil {
		d.logger.Error("Error processing input",
			zap.String("source", d.name),
			zap.Error(err),
		)
		return nil, err
	}

	for _, field := range expectedTopFields {
		if !rec.Has(field) {
			p.warn(Warning{Kind: WarnMissingField, Key: field})
		}
	}

	return &Result{Record: rec, Warnings: p.warnings}, nil
}

func (d *Decoder) decode(p *parser) (*Record, error) {
	first, ok, err := p.lines.next()
	if err != nil {
		return nil, err
	}
	if !ok || !lo.SomeBy(leadingMarkers, func(marker string) bool { return strings.HasPrefix(first, marker) }) {
		return nil, p.fail(ErrInvalidLeadingMarker, "", first)
	}

	rec := NewRecord()
	if err := p.parseBlock("SUBMISSION", rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Deserialize decodes a submission from r.
func Deserialize(r io.Reader, opts ...Option) (*Record, error) {
	result, err := NewDecoder(opts...).Decode(NewLineReader(r))
	if err != nil {
		return nil, err
	}
	return result.Record, nil
}
