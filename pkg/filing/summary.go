package filing

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FormatSummary renders the submission's identity, filers and documents as a table.
func FormatSummary(s *Submission) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Accession:   %s\n", s.AccessionNumber))
	builder.WriteString(fmt.Sprintf("Form type:   %s\n", s.Type))
	if name := s.FilerName(); name != "" {
		builder.WriteString(fmt.Sprintf("Filer:       %s\n", name))
	}
	if s.Period != "" {
		builder.WriteString(fmt.Sprintf("Period:      %s\n", s.Period))
	}
	if s.FilingDate != "" {
		builder.WriteString(fmt.Sprintf("Filed:       %s\n", s.FilingDate))
	}
	if len(s.Items) > 0 {
		builder.WriteString(fmt.Sprintf("Items:       %s\n", strings.Join(s.Items, ", ")))
	}

	builder.WriteString(fmt.Sprintf("\n%-12s %-40s %s\n", "CIK", "FILER", "STATE"))
	builder.WriteString(strings.Repeat("─", 60) + "\n")
	for _, filer := range s.Filers {
		builder.WriteString(fmt.Sprintf("%-12s %-40s %s\n",
			filer.CompanyData.CIK,
			truncate(filer.CompanyData.ConformedName, 40),
			filer.CompanyData.StateOfIncorporation))
	}

	builder.WriteString(fmt.Sprintf("\n%-4s %-12s %-24s %8s %s\n", "SEQ", "TYPE", "FILENAME", "WORDS", "DESCRIPTION"))
	builder.WriteString(strings.Repeat("─", 80) + "\n")
	for _, doc := range s.Documents {
		builder.WriteString(fmt.Sprintf("%-4s %-12s %-24s %8d %s\n",
			doc.Sequence,
			truncate(doc.Type, 12),
			truncate(doc.Filename, 24),
			doc.WordCount(),
			doc.Description))
	}

	builder.WriteString(fmt.Sprintf("\nTotal: %d filers, %d documents\n", len(s.Filers), len(s.Documents)))

	return builder.String()
}

// truncate shortens s to width runes.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width-3]) + "..."
}
