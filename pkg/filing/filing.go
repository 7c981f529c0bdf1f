// Package filing provides a typed view over decoded EDGAR submissions.
package filing

import (
	"strings"

	"github.com/blevesearch/segment"
	"github.com/samber/lo"

	"github.com/coolbeans/edgarsgml/pkg/sgml"
)

// Submission is the typed form of a decoded submission record.
type Submission struct {
	AccessionNumber        string      `json:"accession_number"`
	Type                   string      `json:"type"`
	PublicDocumentCount    string      `json:"public_document_count,omitempty"`
	Period                 string      `json:"period,omitempty"`
	Items                  []string    `json:"items,omitempty"`
	FilingDate             string      `json:"filing_date,omitempty"`
	DateOfFilingDateChange string      `json:"date_of_filing_date_change,omitempty"`
	Filers                 []*Filer    `json:"filers"`
	Documents              []*Document `json:"documents"`
}

// Filer is one FILER block.
type Filer struct {
	CompanyData     CompanyData      `json:"company_data"`
	FilingValues    FilingValues     `json:"filing_values"`
	BusinessAddress Address          `json:"business_address"`
	MailAddress     Address          `json:"mail_address"`
	FormerCompanies []*FormerCompany `json:"former_companies,omitempty"`
}

// CompanyData identifies the filing entity.
type CompanyData struct {
	ConformedName        string `json:"conformed_name"`
	CIK                  string `json:"cik"`
	AssignedSIC          string `json:"assigned_sic,omitempty"`
	OrganizationName     string `json:"organization_name,omitempty"`
	IRSNumber            string `json:"irs_number,omitempty"`
	StateOfIncorporation string `json:"state_of_incorporation,omitempty"`
	FiscalYearEnd        string `json:"fiscal_year_end,omitempty"`
}

// FilingValues describes how the filer submitted.
type FilingValues struct {
	FormType   string `json:"form_type,omitempty"`
	Act        string `json:"act,omitempty"`
	FileNumber string `json:"file_number,omitempty"`
	FilmNumber string `json:"film_number,omitempty"`
}

// Address is a business or mail address. Phone is only set on business addresses.
type Address struct {
	Street1 string `json:"street1,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// FormerCompany is a previous name of the filer.
type FormerCompany struct {
	FormerConformedName string `json:"former_conformed_name"`
	DateChanged         string `json:"date_changed"`
}

// Document is one DOCUMENT block.
type Document struct {
	Type        string `json:"type"`
	Sequence    string `json:"sequence"`
	Filename    string `json:"filename"`
	Description string `json:"description,omitempty"`
	Text        string `json:"-"`
}

// FromRecord projects rec onto a Submission. Missing fields stay empty.
func FromRecord(rec *sgml.Record) *Submission {
	if rec == nil {
		return &Submission{}
	}
	return &Submission{
		AccessionNumber:        scalar(rec, "ACCESSION-NUMBER"),
		Type:                   scalar(rec, "TYPE"),
		PublicDocumentCount:    scalar(rec, "PUBLIC-DOCUMENT-COUNT"),
		Period:                 scalar(rec, "PERIOD"),
		Items:                  []string(rec.Strings("ITEMS")),
		FilingDate:             scalar(rec, "FILING-DATE"),
		DateOfFilingDateChange: scalar(rec, "DATE-OF-FILING-DATE-CHANGE"),
		Filers:                 lo.Map(rec.Records("FILER"), func(r *sgml.Record, _ int) *Filer { return filerFrom(r) }),
		Documents:              lo.Map(rec.Records("DOCUMENT"), func(r *sgml.Record, _ int) *Document { return documentFrom(r) }),
	}
}

func filerFrom(rec *sgml.Record) *Filer {
	company := nested(rec, "COMPANY-DATA")
	values := nested(rec, "FILING-VALUES")
	return &Filer{
		CompanyData: CompanyData{
			ConformedName:        scalar(company, "CONFORMED-NAME"),
			CIK:                  scalar(company, "CIK"),
			AssignedSIC:          scalar(company, "ASSIGNED-SIC"),
			OrganizationName:     scalar(company, "ORGANIZATION-NAME"),
			IRSNumber:            scalar(company, "IRS-NUMBER"),
			StateOfIncorporation: scalar(company, "STATE-OF-INCORPORATION"),
			FiscalYearEnd:        scalar(company, "FISCAL-YEAR-END"),
		},
		FilingValues: FilingValues{
			FormType:   scalar(values, "FORM-TYPE"),
			Act:        scalar(values, "ACT"),
			FileNumber: scalar(values, "FILE-NUMBER"),
			FilmNumber: scalar(values, "FILM-NUMBER"),
		},
		BusinessAddress: addressFrom(nested(rec, "BUSINESS-ADDRESS")),
		MailAddress:     addressFrom(nested(rec, "MAIL-ADDRESS")),
		FormerCompanies: lo.Map(rec.Records("FORMER-COMPANY"), func(r *sgml.Record, _ int) *FormerCompany {
			return &FormerCompany{
				FormerConformedName: scalar(r, "FORMER-CONFORMED-NAME"),
				DateChanged:         scalar(r, "DATE-CHANGED"),
			}
		}),
	}
}

func addressFrom(rec *sgml.Record) Address {
	return Address{
		Street1: scalar(rec, "STREET1"),
		City:    scalar(rec, "CITY"),
		State:   scalar(rec, "STATE"),
		Zip:     scalar(rec, "ZIP"),
		Phone:   scalar(rec, "PHONE"),
	}
}

func documentFrom(rec *sgml.Record) *Document {
	return &Document{
		Type:        scalar(rec, "TYPE"),
		Sequence:    scalar(rec, "SEQUENCE"),
		Filename:    scalar(rec, "FILENAME"),
		Description: scalar(rec, "DESCRIPTION"),
		Text:        scalar(rec, "TEXT"),
	}
}

func scalar(rec *sgml.Record, key string) string {
	if rec == nil {
		return ""
	}
	s, _ := rec.Scalar(key)
	return s
}

func nested(rec *sgml.Record, key string) *sgml.Record {
	child, _ := rec.Record(key)
	return child
}

// WordCount counts the words, numbers and ideographs in the document text.
func (d *Document) WordCount() int {
	seg := segment.NewWordSegmenter(strings.NewReader(d.Text))
	count := 0
	for seg.Segment() {
		if seg.Type() != segment.None {
			count++
		}
	}
	return count
}

// FilerName returns the first filer's company name, or "".
func (s *Submission) FilerName() string {
	if len(s.Filers) == 0 {
		return ""
	}
	return s.Filers[0].CompanyData.ConformedName
}
