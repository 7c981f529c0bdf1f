package sgml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FuzzDecode checks that arbitrary input either decodes or fails with a
// *FormatError, and never panics.
// Run with: go test -fuzz=FuzzDecode -fuzztime=30s ./pkg/sgml/...
func FuzzDecode(f *testing.F) {
	seeds := []string{
		"",
		"<SUBMISSION>\n",
		"<SUBMISSION>\n<TYPE>10-K\n</SUBMISSION>\n",
		"<SUBMISSION>\n<TEXT>\nbody\n",
		"<SUBMISSION>\n<TYPE 10-K\n",
		"<SEC-DOCUMENT>\n<SEC-HEADER>\nFILER:\n\tCOMPANY DATA:\n\t\tCENTRAL INDEX KEY:\t1\n\n\n</SEC-HEADER>\n",
		"<SEC-DOCUMENT>\n<SEC-HEADER>\nno colon here\n",
		"<SUBMISSION>\n<ITEMS>1\n<ITEMS>\n</ITEMS>\n",
		"<SUBMISSION>\n<>\n</>\n",
		strings.Repeat("<SUBMISSION>\n<FILER>\n", 200),
	}
	for _, name := range []string{"acme-10k.nc", "sample-8k.txt"} {
		if data, err := os.ReadFile(filepath.Join("testdata", name)); err == nil {
			seeds = append(seeds, string(data))
		}
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		result, err := NewDecoder().Decode(NewLineReader(strings.NewReader(input)))
		if err != nil {
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("error %T is not a *FormatError: %v", err, err)
			}
			if result != nil {
				t.Fatal("result returned together with an error")
			}
			return
		}
		if result.Record == nil {
			t.Fatal("nil record without error")
		}
		if _, err := result.Record.MarshalJSON(); err != nil {
			t.Fatalf("MarshalJSON failed: %v", err)
		}
	})
}
