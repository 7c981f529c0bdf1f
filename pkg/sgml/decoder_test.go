package sgml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

// canonicalJSON normalizes a hand-written JSON object through Record so it
// compares byte-for-byte with Record.String.
func canonicalJSON(t *testing.T, src string) string {
	t.Helper()
	rec := NewRecord()
	if err := rec.UnmarshalJSON([]byte(src)); err != nil {
		t.Fatalf("invalid expected JSON: %v", err)
	}
	return rec.String()
}

func decodeString(t *testing.T, input string) (*Result, *observer.ObservedLogs, error) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	dec := NewDecoder(WithLogger(zap.New(core)), WithName("test.txt"))
	result, err := dec.Decode(NewLineReader(strings.NewReader(input)))
	return result, logs, err
}

func mustDecode(t *testing.T, input string) *Result {
	t.Helper()
	result, _, err := decodeString(t, input)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return result
}

func TestDecodeCompanyDataBlock(t *testing.T) {
	input := lines(
		"<SUBMISSION>",
		"<ACCESSION-NUMBER>0000000000-24-000001",
		"<TYPE>10-K",
		"<FILER>",
		"<COMPANY-DATA>",
		"<CONFORMED-NAME>ACME CORP",
		"<CIK>0000000001",
		"</COMPANY-DATA>",
		"</FILER>",
		"</SUBMISSION>",
	)

	result := mustDecode(t, input)

	want := canonicalJSON(t, `{
		"ACCESSION-NUMBER": "0000000000-24-000001",
		"TYPE": "10-K",
		"FILER": [{"COMPANY-DATA": {"CONFORMED-NAME": "ACME CORP", "CIK": "0000000001"}}]
	}`)
	if diff := cmp.Diff(want, result.Record.String()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTextBlockKeepsRawLines(t *testing.T) {
	input := "<SUBMISSION>\r\n" +
		"<DOCUMENT>\r\n" +
		"<TEXT>\r\n" +
		"  first line <b>not a tag</b>\r\n" +
		"second line:\twith colon\r\n" +
		"</TEXT>\r\n" +
		"</DOCUMENT>\r\n" +
		"</SUBMISSION>\r\n"

	result := mustDecode(t, input)

	docs := result.Record.Records("DOCUMENT")
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	text, ok := docs[0].Scalar("TEXT")
	if !ok {
		t.Fatal("TEXT field missing")
	}
	want := "  first line <b>not a tag</b>\r\nsecond line:\twith colon\r\n"
	if text != want {
		t.Errorf("TEXT = %q, want %q", text, want)
	}
}

func TestDecodeHeaderFiledAsOfDate(t *testing.T) {
	input := lines(
		"<SEC-DOCUMENT>0000000000-24-000001.txt : 20240101",
		"<SEC-HEADER>0000000000-24-000001.hdr.sgml : 20240101",
		"FILED AS OF DATE:20240101",
		"</SEC-HEADER>",
		"</SEC-DOCUMENT>",
	)

	result := mustDecode(t, input)

	got, ok := result.Record.Scalar("FILING-DATE")
	if !ok || got != "20240101" {
		t.Errorf("FILING-DATE = %q (present %v), want %q", got, ok, "20240101")
	}
	if diff := cmp.Diff([]string{"FILING-DATE"}, result.Record.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMissingCloseBracket(t *testing.T) {
	input := lines(
		"<SUBMISSION>",
		"<TYPE 10-K",
		"</SUBMISSION>",
	)

	result, _, err := decodeString(t, input)
	if result != nil {
		t.Errorf("expected no result on error, got %v", result.Record)
	}
	if !errors.Is(err, ErrMissingCloseBracket) {
		t.Fatalf("error = %v, want ErrMissingCloseBracket", err)
	}
	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error %T is not a *FormatError", err)
	}
	if formatErr.Line != 2 {
		t.Errorf("Line = %d, want 2", formatErr.Line)
	}
	if formatErr.Text != "<TYPE 10-K" {
		t.Errorf("Text = %q, want %q", formatErr.Text, "<TYPE 10-K")
	}
}

func TestDecodeMissingTopLevelFieldsWarns(t *testing.T) {
	input := lines(
		"<SUBMISSION>",
		"<TYPE>10-K",
		"</SUBMISSION>",
	)

	result, logs, err := decodeString(t, input)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Record == nil {
		t.Fatal("expected a record")
	}

	var missing []string
	for _, w := range result.Warnings {
		if w.Kind == WarnMissingField {
			missing = append(missing, w.Key)
			if w.Source != "test.txt" {
				t.Errorf("warning source = %q, want test.txt", w.Source)
			}
		}
	}
	if diff := cmp.Diff([]string{"DOCUMENT", "FILER"}, missing); diff != "" {
		t.Errorf("missing-field warnings mismatch (-want +got):\n%s", diff)
	}
	if got := logs.FilterField(zap.String("kind", string(WarnMissingField))).Len(); got != 2 {
		t.Errorf("logged %d missing-field warnings, want 2", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
		line  int
	}{
		{
			name:  "empty input",
			input: "",
			want:  ErrInvalidLeadingMarker,
		},
		{
			name:  "unknown leading marker",
			input: lines("<DOCUMENT>", "</DOCUMENT>"),
			want:  ErrInvalidLeadingMarker,
			line:  1,
		},
		{
			name:  "line without open bracket",
			input: lines("<SUBMISSION>", "TYPE>10-K"),
			want:  ErrMissingOpenBracket,
			line:  2,
		},
		{
			name:  "blank line in tag section",
			input: lines("<SUBMISSION>", "<TYPE>10-K", "", "</SUBMISSION>"),
			want:  ErrMissingOpenBracket,
			line:  3,
		},
		{
			name:  "unterminated text",
			input: lines("<SUBMISSION>", "<DOCUMENT>", "<TEXT>", "body"),
			want:  ErrUnterminatedText,
			line:  4,
		},
		{
			name:  "duplicate scalar",
			input: lines("<SUBMISSION>", "<TYPE>10-K", "<TYPE>10-Q", "</SUBMISSION>"),
			want:  ErrDuplicateKey,
			line:  3,
		},
		{
			name: "duplicate nested block",
			input: lines("<SUBMISSION>",
				"<FILER>", "<COMPANY-DATA>", "<CIK>1", "</COMPANY-DATA>",
				"<COMPANY-DATA>", "<CIK>2", "</COMPANY-DATA>", "</FILER>",
				"</SUBMISSION>"),
			want: ErrDuplicateKey,
			line: 6,
		},
		{
			name:  "duplicate text",
			input: lines("<SUBMISSION>", "<TEXT>", "a", "</TEXT>", "<TEXT>", "b", "</TEXT>"),
			want:  ErrDuplicateKey,
			line:  7,
		},
		{
			name:  "array field mixing blocks and values",
			input: lines("<SUBMISSION>", "<ITEMS>5.02", "<ITEMS>", "</ITEMS>"),
			want:  ErrValueConflict,
			line:  3,
		},
		{
			name:  "header line without colon",
			input: lines("<SEC-DOCUMENT>", "<SEC-HEADER>", "ACCESSION NUMBER 0001", "</SEC-HEADER>"),
			want:  ErrMissingColon,
			line:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, logs, err := decodeString(t, tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if result != nil {
				t.Error("expected nil result on error")
			}
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("error %T is not a *FormatError", err)
			}
			if formatErr.Line != tt.line {
				t.Errorf("Line = %d, want %d", formatErr.Line, tt.line)
			}
			if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
				t.Errorf("expected the error to be logged once")
			}
		})
	}
}

func TestDecodeArrayFieldsKeepEncounterOrder(t *testing.T) {
	input := lines(
		"<SUBMISSION>",
		"<ITEMS>2.02",
		"<ITEMS>9.01",
		"<ITEMS>5.02",
		"<DOCUMENT>",
		"<SEQUENCE>1",
		"</DOCUMENT>",
		"<DOCUMENT>",
		"<SEQUENCE>2",
		"</DOCUMENT>",
		"<DOCUMENT>",
		"<SEQUENCE>3",
		"</DOCUMENT>",
		"</SUBMISSION>",
	)

	result := mustDecode(t, input)

	if diff := cmp.Diff(Strings{"2.02", "9.01", "5.02"}, result.Record.Strings("ITEMS")); diff != "" {
		t.Errorf("ITEMS mismatch (-want +got):\n%s", diff)
	}
	var sequences []string
	for _, doc := range result.Record.Records("DOCUMENT") {
		seq, _ := doc.Scalar("SEQUENCE")
		sequences = append(sequences, seq)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, sequences); diff != "" {
		t.Errorf("DOCUMENT order mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSingleArrayOccurrenceIsStillSequence(t *testing.T) {
	result := mustDecode(t, lines("<SUBMISSION>", "<ITEMS>1.01", "</SUBMISSION>"))

	v, ok := result.Record.Get("ITEMS")
	if !ok {
		t.Fatal("ITEMS missing")
	}
	if _, isSeq := v.(Strings); !isSeq {
		t.Errorf("ITEMS is %T, want Strings", v)
	}
}

func TestDecodeFlagFieldsStayScalar(t *testing.T) {
	input := lines(
		"<SUBMISSION>",
		"<CONFIRMING-COPY>",
		"<PRIVATE-TO-PUBLIC>",
		"<CORRECTION>",
		"<DELETION>",
		"<FILER>",
		"<COMPANY-DATA>",
		"<ORGANIZATION-NAME>",
		"<CIK>1",
		"</COMPANY-DATA>",
		"</FILER>",
		"</SUBMISSION>",
	)

	result := mustDecode(t, input)

	want := canonicalJSON(t, `{
		"CONFIRMING-COPY": "",
		"PRIVATE-TO-PUBLIC": "",
		"CORRECTION": "",
		"DELETION": "",
		"FILER": [{"COMPANY-DATA": {"ORGANIZATION-NAME": "", "CIK": "1"}}]
	}`)
	if diff := cmp.Diff(want, result.Record.String()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDocumentCloseEndsNestedBlocks(t *testing.T) {
	input := lines(
		"<SEC-DOCUMENT>",
		"<FILER>",
		"<COMPANY-DATA>",
		"<CIK>1",
		"</SEC-DOCUMENT>",
		"<TYPE>after-company-data",
		"</SEC-DOCUMENT>",
	)

	result := mustDecode(t, input)

	// The first </SEC-DOCUMENT> closes COMPANY-DATA, the next line lands in
	// FILER and the second one closes FILER.
	want := canonicalJSON(t, `{
		"FILER": [{"COMPANY-DATA": {"CIK": "1"}, "TYPE": "after-company-data"}]
	}`)
	if diff := cmp.Diff(want, result.Record.String()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeToleratesMissingCloseAtEOF(t *testing.T) {
	result := mustDecode(t, lines("<SUBMISSION>", "<FILER>", "<COMPANY-DATA>", "<CIK>7"))

	filers := result.Record.Records("FILER")
	if len(filers) != 1 {
		t.Fatalf("got %d filers, want 1", len(filers))
	}
	company, ok := filers[0].Record("COMPANY-DATA")
	if !ok {
		t.Fatal("COMPANY-DATA missing")
	}
	if cik, _ := company.Scalar("CIK"); cik != "7" {
		t.Errorf("CIK = %q, want 7", cik)
	}
}

func TestDecodeTrimsKeysAndValues(t *testing.T) {
	result := mustDecode(t, lines("<SUBMISSION>", "< TYPE >  8-K  ", "</SUBMISSION>"))

	if got, _ := result.Record.Scalar("TYPE"); got != "8-K" {
		t.Errorf("TYPE = %q, want 8-K", got)
	}
}

func TestDecodeFieldSetMatchesInput(t *testing.T) {
	input := lines(
		"<SUBMISSION>",
		"<ACCESSION-NUMBER>1",
		"<TYPE>8-K",
		"<PERIOD>20240101",
		"<FILER>",
		"</FILER>",
		"<DOCUMENT>",
		"</DOCUMENT>",
		"</SUBMISSION>",
	)

	result := mustDecode(t, input)

	want := []string{"ACCESSION-NUMBER", "TYPE", "PERIOD", "FILER", "DOCUMENT"}
	if diff := cmp.Diff(want, result.Record.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestDecodeSampleFiling(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "sample-8k.txt"))
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	defer f.Close()

	expected, err := os.ReadFile(filepath.Join("testdata", "sample-8k.json"))
	if err != nil {
		t.Fatalf("read expected: %v", err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	result, err := NewDecoder(WithLogger(zap.New(core))).Decode(NewLineReader(f))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if diff := cmp.Diff(canonicalJSON(t, string(expected)), result.Record.String()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected log entries: %d", logs.Len())
	}
}

func TestDecoderIsSafeForConcurrentUse(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "acme-10k.nc"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	dec := NewDecoder()

	want, err := dec.Decode(NewLineReader(strings.NewReader(string(data))))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	errs := make(chan error, 8)
	results := make(chan *Record, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := dec.Decode(NewLineReader(strings.NewReader(string(data))))
			if err != nil {
				errs <- err
				return
			}
			results <- res.Record
		}()
	}
	for i := 0; i < 8; i++ {
		select {
		case err := <-errs:
			t.Errorf("concurrent Decode failed: %v", err)
		case got := <-results:
			if !got.Equal(want.Record) {
				t.Errorf("concurrent decode differs:\n got %s\nwant %s", got, want.Record)
			}
		}
	}
}

func TestDeserialize(t *testing.T) {
	rec, err := Deserialize(strings.NewReader(lines("<SUBMISSION>", "<TYPE>8-K", "</SUBMISSION>")))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if got, _ := rec.Scalar("TYPE"); got != "8-K" {
		t.Errorf("TYPE = %q, want 8-K", got)
	}

	if _, err := Deserialize(strings.NewReader("garbage\n")); !errors.Is(err, ErrInvalidLeadingMarker) {
		t.Errorf("error = %v, want ErrInvalidLeadingMarker", err)
	}
}
