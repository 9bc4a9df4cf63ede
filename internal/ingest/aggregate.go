package ingest

import "menu-import-service/internal/domain"

// Aggregate parses every file of a batch and concatenates the typed records
// into one bundle, preserving first-seen order across files. No deduplication
// happens here; duplicate natural keys are surfaced by the validator.
func Aggregate(files []SourceFile) (*domain.ParsedImportData, []string, error) {
	bundle := &domain.ParsedImportData{}
	names := make([]string, 0, len(files))

	for _, file := range files {
		parsed, err := ParseFile(file)
		if err != nil {
			return nil, nil, err
		}
		bundle.Merge(parsed)
		names = append(names, file.Name)
	}

	return bundle, names, nil
}
