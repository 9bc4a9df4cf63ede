package ingest

// classify.go decides which entity kind a CSV file's rows represent.
//
// Classification is an ordered chain of strategies rather than nested
// conditionals, so a new file-naming convention can be added without
// touching the existing ones:
//
//  1. filename hints ("modifier_groups.csv", "items.csv", ...)
//  2. generic layout: a "type" column dispatches each row individually,
//     with a "parent" column carrying the owning entity's natural key
//  3. column-shape heuristics per row, as a last resort
//
// A strategy either supplies a per-row Dispatch or passes to the next one.

import "strings"

// Row is one CSV data row keyed by lowercased, trimmed header names.
type Row struct {
	cells  map[string]string
	header map[string]bool
}

// Get returns the trimmed cell value for a column, or "".
func (r Row) Get(col string) string { return r.cells[col] }

// Has reports whether the column exists in the file's header at all,
// regardless of whether this row's cell is empty.
func (r Row) Has(col string) bool { return r.header[col] }

// Dispatch assigns an entity kind to a single row. ok=false skips the row.
type Dispatch func(row Row) (RowKind, bool)

// RowKind is the classification result for one row. Beyond the six entity
// kinds it distinguishes nothing; unknown rows are skipped by the parser.
type RowKind int

const (
	rowCategory RowKind = iota
	rowItem
	rowItemSize
	rowModifierGroup
	rowModifier
	rowOverride
)

// Strategy is one link in the classification chain.
type Strategy interface {
	Name() string
	// Apply returns a per-row dispatch for the file, or ok=false to pass.
	Apply(filename string, header []string) (Dispatch, bool)
}

// Chain returns the default strategy chain, in priority order.
func Chain() []Strategy {
	return []Strategy{
		filenameStrategy{},
		genericLayoutStrategy{},
		columnShapeStrategy{},
	}
}

// classifyFile runs the chain and returns the first dispatch that claims
// the file. The column-shape fallback always claims, so this never fails.
func classifyFile(filename string, header []string) Dispatch {
	for _, s := range Chain() {
		if dispatch, ok := s.Apply(filename, header); ok {
			return dispatch
		}
	}
	// Unreachable while columnShapeStrategy terminates the chain.
	return func(Row) (RowKind, bool) { return 0, false }
}

// filenameStrategy matches well-known substrings in the filename. The order
// matters: "item_modifier_overrides.csv" contains both "item" and "modifier",
// and "modifier_groups.csv" contains "modifier".
type filenameStrategy struct{}

func (filenameStrategy) Name() string { return "filename" }

func (filenameStrategy) Apply(filename string, _ []string) (Dispatch, bool) {
	name := strings.ToLower(filename)

	constant := func(kind RowKind) Dispatch {
		return func(Row) (RowKind, bool) { return kind, true }
	}

	switch {
	case strings.Contains(name, "override"):
		return constant(rowOverride), true
	case strings.Contains(name, "modifier") && strings.Contains(name, "group"):
		return constant(rowModifierGroup), true
	case strings.Contains(name, "modifier"):
		return constant(rowModifier), true
	case strings.Contains(name, "categor"):
		return constant(rowCategory), true
	case strings.Contains(name, "size"):
		return constant(rowItemSize), true
	case strings.Contains(name, "item"):
		return constant(rowItem), true
	}
	return nil, false
}

// genericLayoutStrategy handles files that mix entity kinds: a "type" column
// names the kind per row and "parent" carries the owning natural key.
type genericLayoutStrategy struct{}

func (genericLayoutStrategy) Name() string { return "generic-layout" }

func (genericLayoutStrategy) Apply(_ string, header []string) (Dispatch, bool) {
	hasType, hasName := false, false
	for _, col := range header {
		switch col {
		case "type":
			hasType = true
		case "name":
			hasName = true
		}
	}
	if !hasType || !hasName {
		return nil, false
	}

	return func(row Row) (RowKind, bool) {
		switch strings.ToUpper(row.Get("type")) {
		case "CATEGORY":
			return rowCategory, true
		case "ITEM":
			return rowItem, true
		case "SIZE":
			return rowItemSize, true
		case "MOD_GROUP":
			return rowModifierGroup, true
		case "MODIFIER":
			return rowModifier, true
		case "OVERRIDE":
			return rowOverride, true
		}
		return 0, false
	}, true
}

// columnShapeStrategy inspects which columns each row actually carries.
// It is inherently ambiguous for name-only rows, which default to category;
// stricter per-file schemas are the way to avoid guessing here.
type columnShapeStrategy struct{}

func (columnShapeStrategy) Name() string { return "column-shape" }

func (columnShapeStrategy) Apply(_ string, _ []string) (Dispatch, bool) {
	return func(row Row) (RowKind, bool) {
		hasGroupRef := row.Get("group_key") != ""
		hasItemRef := row.Get("item_key") != ""

		switch {
		case hasItemRef && hasGroupRef:
			return rowOverride, true
		case hasGroupRef && (row.Has("modifier_key") || coerceInt(row.Get("max_quantity")) > 0):
			return rowModifier, true
		case row.Get("name") != "" && (row.Has("display_type") || row.Has("min_select") || row.Has("max_select")) && (hasGroupRef || row.Has("group_key")):
			return rowModifierGroup, true
		case row.Get("size_code") != "" || (hasItemRef && row.Has("price")):
			return rowItemSize, true
		case row.Has("base_price") || row.Get("category_name") != "" || row.Get("category_id") != "":
			return rowItem, true
		default:
			return rowCategory, true
		}
	}, true
}
