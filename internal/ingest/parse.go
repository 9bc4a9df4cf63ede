package ingest

import (
	"encoding/csv"
	"strings"

	"menu-import-service/internal/domain"
)

// ParseFile parses one CSV file into typed records partitioned by entity
// kind. The header row supplies column names; each data row is classified
// by the strategy chain and coerced into its record type. Rows lacking a
// required discriminator (usually a name) are skipped: structural problems
// belong to the validator. A CSV syntax failure fails the whole file.
func ParseFile(file SourceFile) (*domain.ParsedImportData, error) {
	reader := csv.NewReader(strings.NewReader(file.Content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewIngestError("malformed CSV in "+file.Name, err)
	}
	if len(rows) < 2 {
		// Header only, or empty. Nothing to import, but not an error.
		return &domain.ParsedImportData{}, nil
	}

	header := make([]string, len(rows[0]))
	headerSet := make(map[string]bool, len(rows[0]))
	for i, col := range rows[0] {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		header[i] = col
		headerSet[col] = true
	}

	dispatch := classifyFile(file.Name, header)
	bundle := &domain.ParsedImportData{}

	for i, raw := range rows[1:] {
		row := Row{cells: make(map[string]string, len(header)), header: headerSet}
		for j, col := range header {
			if j < len(raw) {
				row.cells[col] = strings.TrimSpace(raw[j])
			}
		}

		kind, ok := dispatch(row)
		if !ok {
			continue
		}

		// CSV line number: header is line 1.
		prov := domain.Provenance{File: file.Name, Row: i + 2}

		switch kind {
		case rowCategory:
			if rec, ok := buildCategory(row, prov); ok {
				bundle.Categories = append(bundle.Categories, rec)
			}
		case rowItem:
			if rec, ok := buildItem(row, prov); ok {
				bundle.Items = append(bundle.Items, rec)
			}
		case rowItemSize:
			if rec, ok := buildItemSize(row, prov); ok {
				bundle.ItemSizes = append(bundle.ItemSizes, rec)
			}
		case rowModifierGroup:
			if rec, ok := buildModifierGroup(row, prov); ok {
				bundle.ModifierGroups = append(bundle.ModifierGroups, rec)
			}
		case rowModifier:
			if rec, ok := buildModifier(row, prov); ok {
				bundle.Modifiers = append(bundle.Modifiers, rec)
			}
		case rowOverride:
			if rec, ok := buildOverride(row, prov); ok {
				bundle.ItemModifierOverrides = append(bundle.ItemModifierOverrides, rec)
			}
		}
	}

	return bundle, nil
}

// boolOrDefault reads a boolean column, falling back to def when the column
// is absent from the file entirely. Availability flags default to true so a
// minimal CSV produces usable menu entries.
func boolOrDefault(row Row, col string, def bool) bool {
	if !row.Has(col) {
		return def
	}
	return coerceBool(row.Get(col))
}

func buildCategory(row Row, prov domain.Provenance) (domain.CategoryRecord, bool) {
	name := row.Get("name")
	if name == "" {
		return domain.CategoryRecord{}, false
	}
	return domain.CategoryRecord{
		Name:        name,
		Description: row.Get("description"),
		SortOrder:   coerceInt(row.Get("sort_order")),
		IsActive:    boolOrDefault(row, "is_active", true),
		Provenance:  prov,
	}, true
}

func buildItem(row Row, prov domain.Provenance) (domain.ItemRecord, bool) {
	name := row.Get("name")
	if name == "" {
		return domain.ItemRecord{}, false
	}

	key := row.Get("item_key")
	if key == "" {
		key = domain.DeriveKey(name)
	}

	categoryName := row.Get("category_name")
	if categoryName == "" {
		// Generic layout: parent carries the category reference.
		categoryName = row.Get("parent")
	}

	return domain.ItemRecord{
		ItemKey:         key,
		Name:            name,
		Description:     row.Get("description"),
		BasePrice:       coerceFloat(row.Get("base_price")),
		CategoryID:      row.Get("category_id"),
		CategoryName:    categoryName,
		IsSizeable:      coerceBool(row.Get("is_sizeable")),
		IsCustomizable:  coerceBool(row.Get("is_customizable")),
		IsAvailable:     boolOrDefault(row, "is_available", true),
		IsActive:        boolOrDefault(row, "is_active", true),
		SortOrder:       coerceInt(row.Get("sort_order")),
		DefaultSizeCode: row.Get("default_size_code"),
		Provenance:      prov,
	}, true
}

func buildItemSize(row Row, prov domain.Provenance) (domain.ItemSizeRecord, bool) {
	name := row.Get("name")
	if name == "" {
		return domain.ItemSizeRecord{}, false
	}

	itemKey := row.Get("item_key")
	if itemKey == "" {
		itemKey = row.Get("parent")
	}

	code := row.Get("size_code")
	if code == "" {
		code = domain.DeriveKey(name)
	}

	return domain.ItemSizeRecord{
		ItemKey:      itemKey,
		SizeCode:     code,
		Name:         name,
		Price:        coerceFloat(row.Get("price")),
		DisplayOrder: coerceInt(row.Get("display_order")),
		IsActive:     boolOrDefault(row, "is_active", true),
		IsDefault:    coerceBool(row.Get("is_default")),
		Provenance:   prov,
	}, true
}

func buildModifierGroup(row Row, prov domain.Provenance) (domain.ModifierGroupRecord, bool) {
	name := row.Get("name")
	if name == "" {
		return domain.ModifierGroupRecord{}, false
	}

	key := row.Get("group_key")
	if key == "" {
		key = domain.DeriveKey(name)
	}

	displayType := strings.ToUpper(row.Get("display_type"))
	if displayType == "" {
		displayType = domain.DisplayCheckbox
	}

	return domain.ModifierGroupRecord{
		GroupKey:           key,
		Name:               name,
		DisplayType:        displayType,
		MinSelect:          coerceInt(row.Get("min_select")),
		MaxSelect:          coerceInt(row.Get("max_select")),
		AppliesPerQuantity: coerceBool(row.Get("applies_per_quantity")),
		QuantityLevels:     coerceQuantityLevels(row.Get("quantity_levels")),
		PricesBySize:       coercePriceMap(row.Get("prices_by_size")),
		IsActive:           boolOrDefault(row, "is_active", true),
		SortOrder:          coerceInt(row.Get("sort_order")),
		Provenance:         prov,
	}, true
}

func buildModifier(row Row, prov domain.Provenance) (domain.ModifierRecord, bool) {
	name := row.Get("name")
	if name == "" {
		return domain.ModifierRecord{}, false
	}

	groupKey := row.Get("group_key")
	if groupKey == "" {
		groupKey = row.Get("parent")
	}

	key := row.Get("modifier_key")
	if key == "" {
		key = domain.DeriveKey(name)
	}

	return domain.ModifierRecord{
		GroupKey:     groupKey,
		ModifierKey:  key,
		Name:         name,
		IsDefault:    coerceBool(row.Get("is_default")),
		MaxQuantity:  coerceInt(row.Get("max_quantity")),
		DisplayOrder: coerceInt(row.Get("display_order")),
		IsActive:     boolOrDefault(row, "is_active", true),
		Provenance:   prov,
	}, true
}

func buildOverride(row Row, prov domain.Provenance) (domain.ItemModifierOverrideRecord, bool) {
	itemKey := row.Get("item_key")
	groupKey := row.Get("group_key")
	modifierKey := row.Get("modifier_key")
	if itemKey == "" || groupKey == "" || modifierKey == "" {
		return domain.ItemModifierOverrideRecord{}, false
	}

	return domain.ItemModifierOverrideRecord{
		ItemKey:        itemKey,
		GroupKey:       groupKey,
		ModifierKey:    modifierKey,
		MaxQuantity:    optionalInt(row.Get("max_quantity")),
		IsDefault:      optionalBool(row.Get("is_default")),
		PricesBySize:   coercePriceMap(row.Get("prices_by_size")),
		QuantityLevels: coerceQuantityLevels(row.Get("quantity_levels")),
		Provenance:     prov,
	}, true
}
