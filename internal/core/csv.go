package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"menu-import-service/internal/domain"
)

// WriteIssuesCSV streams a session's validation errors as CSV, one issue per
// row; file and row point back at the offending cell. The default export
// carries the columns file,row,entity,field,message,value. When warnings are
// included a leading severity column distinguishes the two.
func WriteIssuesCSV(w io.Writer, sess *domain.ImportSession, includeWarnings bool) error {
	cw := csv.NewWriter(w)

	header := []string{"file", "row", "entity", "field", "message", "value"}
	if includeWarnings {
		header = append([]string{"severity"}, header...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := writeIssueRows(cw, "error", includeWarnings, sess.ValidationErrors); err != nil {
		return err
	}
	if includeWarnings {
		if err := writeIssueRows(cw, "warning", true, sess.ValidationWarnings); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeIssueRows(cw *csv.Writer, severity string, withSeverity bool, issues []domain.ValidationIssue) error {
	for _, is := range issues {
		record := []string{
			is.File, strconv.Itoa(is.Row),
			is.Entity, is.Field, is.Message, is.Value,
		}
		if withSeverity {
			record = append([]string{severity}, record...)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}
