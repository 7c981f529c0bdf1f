package sgml

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Encode writes rec as a <SUBMISSION> document. Decoding the output yields a
// record equal to rec. Records holding an empty value under a non-flag key,
// as header sections can, fail with ErrEmptyValue.
func Encode(w io.Writer, rec *Record) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.block("SUBMISSION", rec)
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) line(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}

func (e *encoder) block(name string, rec *Record) {
	e.line("<%s>", name)
	for _, key := range rec.keys {
		e.field(key, rec.values[key])
	}
	e.line("</%s>", name)
}

func (e *encoder) field(key string, v Value) {
	switch v := v.(type) {
	case *Record:
		e.block(key, v)
	case Records:
		for _, child := range v {
			e.block(key, child)
		}
	case Strings:
		for _, s := range v {
			e.scalar(key, s)
		}
	case Scalar:
		if key == "TEXT" {
			e.text(string(v))
			return
		}
		e.scalar(key, string(v))
	default:
		if e.err == nil {
			e.err = fmt.Errorf("field %q: unsupported value %T", key, v)
		}
	}
}

func (e *encoder) scalar(key, value string) {
	if value == "" && !isFlagField(key) {
		if e.err == nil {
			e.err = fmt.Errorf("field %q: %w", key, ErrEmptyValue)
		}
		return
	}
	e.line("<%s>%s", key, value)
}

func (e *encoder) text(payload string) {
	e.line("<TEXT>")
	if e.err != nil {
		return
	}
	if payload != "" && !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}
	if _, err := e.w.WriteString(payload); err != nil {
		e.err = err
		return
	}
	e.line(textClose)
}
