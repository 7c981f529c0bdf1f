package sgml

import (
	"strings"
)

const (
	headerClose        = "</SEC-HEADER>"
	acceptanceDatetime = "<ACCEPTANCE-DATETIME>"
	itemInformation    = "ITEM INFORMATION"
)

// headerFrame is one open header section. label is the header phrase that
// opened it and only appears in diagnostics.
type headerFrame struct {
	record *Record
	table  RemapTable
	label  string
}

// parseHeader reads "Key: value" lines up to </SEC-HEADER> into target.
// Sections have no close marker: the first blank line after a section has
// captured a field closes it.
func (p *parser) parseHeader(target *Record) error {
	stack := []headerFrame{{record: target, table: headerKeys}}
	for {
		frame := stack[len(stack)-1]

		line, ok, err := p.lines.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if strings.TrimSpace(line) == "" {
			if frame.record.Len() > 0 && len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if strings.HasPrefix(line, headerClose) {
			return nil
		}
		if strings.HasPrefix(line, acceptanceDatetime) {
			continue
		}

		rawKey, rawValue, found := strings.Cut(line, ":")
		if !found {
			return p.fail(ErrMissingColon, "", line)
		}
		key := strings.TrimSpace(rawKey)
		value := strings.TrimSpace(rawValue)

		entry, known := frame.table[key]
		if !known {
			if key != "" && value != "" && key != itemInformation {
				p.warn(Warning{
					Kind:    WarnUnknownHeaderKey,
					Key:     key,
					Value:   value,
					Section: frame.label,
					Line:    p.lines.line,
				})
			}
			continue
		}

		if entry.IsSection() {
			child := NewRecord()
			if err := p.attachHeaderValue(frame, entry.Name, child, line); err != nil {
				return err
			}
			stack = append(stack, headerFrame{record: child, table: entry.Section, label: key})
			continue
		}
		if err := p.attachHeaderValue(frame, entry.Name, Scalar(value), line); err != nil {
			return err
		}
	}
}

// attachHeaderValue applies the lenient policy: a repeated singleton field is
// reported and overwritten.
func (p *parser) attachHeaderValue(frame headerFrame, name string, v Value, line string) error {
	target := frame.record
	if IsArrayField(name) {
		var appended bool
		switch v := v.(type) {
		case *Record:
			appended = target.appendRecord(name, v)
		case Scalar:
			appended = target.appendString(name, string(v))
		}
		if !appended {
			return p.fail(ErrValueConflict, name, line)
		}
		return nil
	}

	if target.Has(name) {
		p.warn(Warning{
			Kind:    WarnDuplicateHeaderKey,
			Key:     name,
			Section: frame.label,
			Line:    p.lines.line,
		})
	}
	target.Set(name, v)
	return nil
}
