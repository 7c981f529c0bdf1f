package sgml

import (
	"github.com/samber/lo"
)

var arrayFieldNames = []string{
	"ITEMS", "FORMER-COMPANY", "DOCUMENT", "CLASS-CONTRACT", "FORMER-NAME",
	"FILER", "SERIES", "GROUP-MEMBERS", "FILED-FOR", "REPORTING-OWNER",
	"NEW-SERIES", "MERGER", "ITEM", "REFERENCES-429", "TARGET-DATA", "NEW-CLASSES-CONTRACTS",
	"SUBJECT-COMPANY", "RULE",
}

var arrayFields = lo.SliceToMap(arrayFieldNames, func(name string) (string, struct{}) {
	return name, struct{}{}
})

// Empty tags that are flags rather than block openers.
var flagFields = lo.SliceToMap(
	[]string{"ORGANIZATION-NAME", "CONFIRMING-COPY", "PRIVATE-TO-PUBLIC", "CORRECTION", "DELETION"},
	func(name string) (string, struct{}) { return name, struct{}{} },
)

// IsArrayField reports whether name always holds an ordered sequence.
func IsArrayField(name string) bool {
	_, ok := arrayFields[name]
	return ok
}

// ArrayFields lists the sequence-valued field names.
func ArrayFields() []string {
	return append([]string(nil), arrayFieldNames...)
}

func isFlagField(name string) bool {
	_, ok := flagFields[name]
	return ok
}

// RemapEntry maps a SEC-HEADER key phrase to its canonical field name. Entries
// with a Section open a nested block whose keys are looked up in Section.
type RemapEntry struct {
	Name    string
	Section RemapTable
}

// IsSection reports whether the entry opens a nested block.
func (e RemapEntry) IsSection() bool {
	return e.Section != nil
}

// RemapTable maps header key phrases to entries.
type RemapTable map[string]RemapEntry

func rename(name string) RemapEntry {
	return RemapEntry{Name: name}
}

func section(name string, table RemapTable) RemapEntry {
	return RemapEntry{Name: name, Section: table}
}

// headerKeys is read-only after init.
var headerKeys = RemapTable{
	"ACCESSION NUMBER":           rename("ACCESSION-NUMBER"),
	"CONFORMED SUBMISSION TYPE":  rename("TYPE"),
	"PUBLIC DOCUMENT COUNT":      rename("PUBLIC-DOCUMENT-COUNT"),
	"CONFORMED PERIOD OF REPORT": rename("PERIOD"),
	"FILED AS OF DATE":           rename("FILING-DATE"),
	"DATE AS OF CHANGE":          rename("DATE-OF-FILING-DATE-CHANGE"),
	// ITEM INFORMATION is left out: header items are text, tag items are codes.

	"FILER": section("FILER", RemapTable{
		"COMPANY DATA": section("COMPANY-DATA", RemapTable{
			"COMPANY CONFORMED NAME":             rename("CONFORMED-NAME"),
			"CENTRAL INDEX KEY":                  rename("CIK"),
			"STANDARD INDUSTRIAL CLASSIFICATION": rename("ASSIGNED-SIC"),
			"ORGANIZATION NAME":                  rename("ORGANIZATION-NAME"),
			"IRS NUMBER":                         rename("IRS-NUMBER"),
			"STATE OF INCORPORATION":             rename("STATE-OF-INCORPORATION"),
			"FISCAL YEAR END":                    rename("FISCAL-YEAR-END"),
		}),
		"FILING VALUES": section("FILING-VALUES", RemapTable{
			"FORM TYPE":       rename("FORM-TYPE"),
			"SEC ACT":         rename("ACT"),
			"SEC FILE NUMBER": rename("FILE-NUMBER"),
			"FILM NUMBER":     rename("FILM-NUMBER"),
		}),
		"BUSINESS ADDRESS": section("BUSINESS-ADDRESS", RemapTable{
			"STREET 1":       rename("STREET1"),
			"CITY":           rename("CITY"),
			"STATE":          rename("STATE"),
			"ZIP":            rename("ZIP"),
			"BUSINESS PHONE": rename("PHONE"),
		}),
		"MAIL ADDRESS": section("MAIL-ADDRESS", RemapTable{
			"STREET 1": rename("STREET1"),
			"CITY":     rename("CITY"),
			"STATE":    rename("STATE"),
			"ZIP":      rename("ZIP"),
		}),
		"FORMER COMPANY": section("FORMER-COMPANY", RemapTable{
			"FORMER CONFORMED NAME": rename("FORMER-CONFORMED-NAME"),
			"DATE OF NAME CHANGE":   rename("DATE-CHANGED"),
		}),
	}),
}

// HeaderKeys returns a copy of the root SEC-HEADER remap table.
func HeaderKeys() RemapTable {
	return headerKeys.clone()
}

func (t RemapTable) clone() RemapTable {
	if t == nil {
		return nil
	}
	out := make(RemapTable, len(t))
	for phrase, entry := range t {
		out[phrase] = RemapEntry{Name: entry.Name, Section: entry.Section.clone()}
	}
	return out
}
