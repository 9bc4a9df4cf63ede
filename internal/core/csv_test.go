package core

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menu-import-service/internal/domain"
)

func issuesSession() *domain.ImportSession {
	return &domain.ImportSession{
		ValidationErrors: []domain.ValidationIssue{
			{File: "items.csv", Row: 3, Entity: "item", Field: "name", Message: "name is required"},
		},
		ValidationWarnings: []domain.ValidationIssue{
			{File: "items.csv", Row: 4, Entity: "item", Field: "category_name",
				Message: "category not found in batch or storage; save will fail unless it is created first",
				Value:   "Ghost"},
		},
	}
}

func TestWriteIssuesCSV_ErrorsOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIssuesCSV(&buf, issuesSession(), false))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus one error row")

	assert.Equal(t, []string{"file", "row", "entity", "field", "message", "value"}, rows[0])
	assert.Equal(t, "items.csv", rows[1][0])
	assert.Equal(t, "3", rows[1][1])
	assert.Equal(t, "item", rows[1][2])
	assert.Equal(t, "name", rows[1][3])
}

func TestWriteIssuesCSV_WithWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIssuesCSV(&buf, issuesSession(), true))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"severity", "file", "row", "entity", "field", "message", "value"}, rows[0])
	assert.Equal(t, "error", rows[1][0])
	assert.Equal(t, "warning", rows[2][0])
	assert.Equal(t, "Ghost", rows[2][6])
}

func TestWriteIssuesCSV_NoIssues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIssuesCSV(&buf, &domain.ImportSession{}, true))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
