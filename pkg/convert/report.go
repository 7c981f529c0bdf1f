package convert

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Report summarizes a batch conversion.
type Report struct {
	Results   []*FileResult `json:"results"`
	Converted int           `json:"converted"`
	Skipped   int           `json:"skipped"`
	Failures  int           `json:"failed"`
	Warnings  int           `json:"warnings"`
	Duration  time.Duration `json:"duration"`
}

func newReport(results []*FileResult, duration time.Duration) *Report {
	report := &Report{Results: results, Duration: duration}
	for _, result := range results {
		if result.Err != nil && result.Error == "" {
			result.Error = result.Err.Error()
		}
		switch {
		case result.Err != nil:
			report.Failures++
		case result.Skipped:
			report.Skipped++
		default:
			report.Converted++
		}
		report.Warnings += len(result.Warnings)
	}
	return report
}

// Failed returns the results that ended in an error.
func (report *Report) Failed() []*FileResult {
	var failed []*FileResult
	for _, result := range report.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// String formats the report for terminal output.
func (report *Report) String() string {
	var builder strings.Builder

	builder.WriteString("\nConversion Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Converted: %d | Skipped: %d | Failed: %d | Warnings: %d\n",
		report.Converted, report.Skipped, report.Failures, report.Warnings))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, result := range report.Results {
		status := "[OK]"
		switch {
		case result.Err != nil:
			status = "[FAIL]"
		case result.Skipped:
			status = "[SKIP]"
		}

		line := fmt.Sprintf("  %-8s %s", status, result.Input)
		if len(result.Warnings) > 0 {
			line += fmt.Sprintf(" (%d warnings)", len(result.Warnings))
		}
		if result.Err != nil {
			line += fmt.Sprintf(" error: %s", result.Err)
		}
		builder.WriteString(line + "\n")
	}

	builder.WriteString(fmt.Sprintf("\nTotal: %d files in %s\n", len(report.Results), report.Duration.Round(time.Millisecond)))
	return builder.String()
}

// JSON formats the report as indented JSON.
func (report *Report) JSON() string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
