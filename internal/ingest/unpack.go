// Package ingest turns an uploaded file into the typed record bundle the
// rest of the pipeline works on. It unpacks single CSVs or ZIP archives,
// classifies each file's rows into one of the six entity kinds, and coerces
// raw cells into typed fields. Business validation is deliberately not done
// here; rows that lack a discriminator are skipped and everything else is
// left for the validator, which has full file/row context.
package ingest

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"menu-import-service/internal/domain"
)

// SourceFile is one (filename, text) pair extracted from an upload.
type SourceFile struct {
	Name    string
	Content string
}

// Unpack expands an upload into its CSV files. ZIP archives (detected by
// declared content type or file extension) yield every .csv entry in archive
// order; anything else is treated as a single CSV under its own name.
// A corrupt archive or empty buffer fails the whole upload.
func Unpack(filename, contentType string, data []byte) ([]SourceFile, error) {
	if len(data) == 0 {
		return nil, domain.NewIngestError("empty upload", nil)
	}

	if isZip(filename, contentType) {
		return unpackZip(data)
	}

	return []SourceFile{{Name: filename, Content: string(data)}}, nil
}

func isZip(filename, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "zip") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".zip")
}

func unpackZip(data []byte) ([]SourceFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewIngestError("unreadable zip archive", err)
	}

	var files []SourceFile
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name), ".csv") {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, domain.NewIngestError("cannot open archive entry "+entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, domain.NewIngestError("cannot read archive entry "+entry.Name, err)
		}

		files = append(files, SourceFile{
			Name:    filepath.Base(entry.Name),
			Content: string(content),
		})
	}

	if len(files) == 0 {
		return nil, domain.NewIngestError("archive contains no CSV files", nil)
	}

	return files, nil
}
