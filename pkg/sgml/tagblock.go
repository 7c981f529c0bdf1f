package sgml

import (
	"strings"

	"go.uber.org/zap"
)

const (
	documentClose = "</SEC-DOCUMENT>"
	textClose     = "</TEXT>"
)

// parser holds the state of a single decode.
type parser struct {
	lines    lineCounter
	logger   *zap.Logger
	source   string
	warnings []Warning
}

func (p *parser) fail(err error, key, line string) error {
	return &FormatError{
		Err:  err,
		Line: p.lines.line,
		Key:  key,
		Text: strings.TrimRight(line, "\r\n"),
	}
}

func (p *parser) warn(w Warning) {
	w.Source = p.source
	p.warnings = append(p.warnings, w)
	p.logger.Warn(w.String(),
		zap.String("kind", string(w.Kind)),
		zap.String("key", w.Key),
		zap.String("section", w.Section),
		zap.Int("line", w.Line),
		zap.String("source", w.Source),
	)
}

// parseBlock fills target with the fields of the block opened by name, until
// its close tag, </SEC-DOCUMENT> or end of input.
func (p *parser) parseBlock(name string, target *Record) error {
	closeTag := "</" + name + ">"
	for {
		line, ok, err := p.lines.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if strings.HasPrefix(line, closeTag) || strings.HasPrefix(line, documentClose) {
			return nil
		}
		if !strings.HasPrefix(line, "<") {
			return p.fail(ErrMissingOpenBracket, "", line)
		}
		rawKey, rawValue, found := strings.Cut(line, ">")
		if !found {
			return p.fail(ErrMissingCloseBracket, "", line)
		}
		key := strings.TrimSpace(rawKey[1:])
		value := strings.TrimSpace(rawValue)

		switch {
		case key == "TEXT":
			text, err := p.readText()
			if err != nil {
				return err
			}
			if err := p.attachScalar(target, key, text, line); err != nil {
				return err
			}

		case key == "SEC-HEADER":
			if err := p.parseHeader(target); err != nil {
				return err
			}

		case value == "" && !isFlagField(key):
			child := NewRecord()
			if err := p.attachRecord(target, key, child, line); err != nil {
				return err
			}
			if err := p.parseBlock(key, child); err != nil {
				return err
			}

		default:
			if err := p.attachScalar(target, key, value, line); err != nil {
				return err
			}
		}
	}
}

// readText collects raw lines up to, not including, the </TEXT> line.
func (p *parser) readText() (string, error) {
	var b strings.Builder
	for {
		line, ok, err := p.lines.next()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", p.fail(ErrUnterminatedText, "TEXT", "")
		}
		if strings.HasPrefix(line, textClose) {
			return b.String(), nil
		}
		b.WriteString(line)
	}
}

func (p *parser) attachRecord(target *Record, key string, child *Record, line string) error {
	if IsArrayField(key) {
		if !target.appendRecord(key, child) {
			return p.fail(ErrValueConflict, key, line)
		}
		return nil
	}
	if target.Has(key) {
		return p.fail(ErrDuplicateKey, key, line)
	}
	target.Set(key, child)
	return nil
}

func (p *parser) attachScalar(target *Record, key, value, line string) error {
	if IsArrayField(key) {
		if !target.appendString(key, value) {
			return p.fail(ErrValueConflict, key, line)
		}
		return nil
	}
	if target.Has(key) {
		return p.fail(ErrDuplicateKey, key, line)
	}
	target.Set(key, Scalar(value))
	return nil
}
