// Package domain defines the entities moved through the import pipeline:
// the typed records parsed from CSV files, the aggregated bundle, validation
// issues, the rollback log, and the import session with its status machine.
// This package has no storage or HTTP dependencies.
package domain

import "strings"

// EntityKind identifies one of the six record kinds an import batch can carry.
type EntityKind string

const (
	KindCategory      EntityKind = "category"
	KindItem          EntityKind = "item"
	KindItemSize      EntityKind = "item_size"
	KindModifierGroup EntityKind = "modifier_group"
	KindModifier      EntityKind = "modifier"
	KindOverride      EntityKind = "item_modifier_override"
)

// Display types for modifier groups.
const (
	DisplayRadio    = "RADIO"
	DisplayCheckbox = "CHECKBOX"
)

// Provenance records where a parsed record came from, so validation issues
// can point the operator back at the offending file and row.
type Provenance struct {
	File string `json:"file,omitempty"`
	Row  int    `json:"row,omitempty"` // 1-based within the source file
}

// CategoryRecord is a business-scoped menu category reference.
// Categories are never created by the import pipeline, only matched by name.
type CategoryRecord struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
	Provenance
}

// ItemRecord is a menu item addressed by its natural key.
type ItemRecord struct {
	ItemKey         string  `json:"item_key"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	BasePrice       float64 `json:"base_price"`
	CategoryID      string  `json:"category_id,omitempty"`
	CategoryName    string  `json:"category_name,omitempty"`
	IsSizeable      bool    `json:"is_sizeable"`
	IsCustomizable  bool    `json:"is_customizable"`
	IsAvailable     bool    `json:"is_available"`
	IsActive        bool    `json:"is_active"`
	SortOrder       int     `json:"sort_order"`
	DefaultSizeCode string  `json:"default_size_code,omitempty"`
	Provenance
}

// ItemSizeRecord is one size variant of an item, referenced by item_key.
type ItemSizeRecord struct {
	ItemKey      string  `json:"item_key"`
	SizeCode     string  `json:"size_code"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	DisplayOrder int     `json:"display_order"`
	IsActive     bool    `json:"is_active"`
	IsDefault    bool    `json:"is_default"`
	Provenance
}

// QuantityLevel is one selectable quantity step for a modifier group.
type QuantityLevel struct {
	Quantity        int     `json:"quantity"`
	PriceMultiplier float64 `json:"price_multiplier,omitempty"`
	IsDefault       bool    `json:"is_default"`
}

// ModifierGroupRecord is a modifier group addressed by its natural key.
type ModifierGroupRecord struct {
	GroupKey           string             `json:"group_key"`
	Name               string             `json:"name"`
	DisplayType        string             `json:"display_type"`
	MinSelect          int                `json:"min_select"`
	MaxSelect          int                `json:"max_select"`
	AppliesPerQuantity bool               `json:"applies_per_quantity"`
	QuantityLevels     []QuantityLevel    `json:"quantity_levels,omitempty"`
	PricesBySize       map[string]float64 `json:"prices_by_size,omitempty"`
	IsActive           bool               `json:"is_active"`
	SortOrder          int                `json:"sort_order"`
	Provenance
}

// ModifierRecord is one modifier inside a group, referenced by group_key.
type ModifierRecord struct {
	GroupKey     string `json:"group_key"`
	ModifierKey  string `json:"modifier_key"`
	Name         string `json:"name"`
	IsDefault    bool   `json:"is_default"`
	MaxQuantity  int    `json:"max_quantity"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
	Provenance
}

// ItemModifierOverrideRecord overrides modifier behavior for a single item.
// Pointer fields distinguish "not overridden" from explicit zero values.
type ItemModifierOverrideRecord struct {
	ItemKey        string             `json:"item_key"`
	GroupKey       string             `json:"group_key"`
	ModifierKey    string             `json:"modifier_key"`
	MaxQuantity    *int               `json:"max_quantity,omitempty"`
	IsDefault      *bool              `json:"is_default,omitempty"`
	PricesBySize   map[string]float64 `json:"prices_by_size,omitempty"`
	QuantityLevels []QuantityLevel    `json:"quantity_levels,omitempty"`
	Provenance
}

// ParsedImportData is the aggregated bundle of typed records from one upload.
// Every cross-reference is a natural key string until the saver resolves it.
type ParsedImportData struct {
	Categories            []CategoryRecord             `json:"categories"`
	Items                 []ItemRecord                 `json:"items"`
	ItemSizes             []ItemSizeRecord             `json:"itemSizes"`
	ModifierGroups        []ModifierGroupRecord        `json:"modifierGroups"`
	Modifiers             []ModifierRecord             `json:"modifiers"`
	ItemModifierOverrides []ItemModifierOverrideRecord `json:"itemModifierOverrides"`
}

// Merge appends all records from other, preserving first-seen order.
func (p *ParsedImportData) Merge(other *ParsedImportData) {
	p.Categories = append(p.Categories, other.Categories...)
	p.Items = append(p.Items, other.Items...)
	p.ItemSizes = append(p.ItemSizes, other.ItemSizes...)
	p.ModifierGroups = append(p.ModifierGroups, other.ModifierGroups...)
	p.Modifiers = append(p.Modifiers, other.Modifiers...)
	p.ItemModifierOverrides = append(p.ItemModifierOverrides, other.ItemModifierOverrides...)
}

// IsEmpty reports whether the bundle contains no records of any kind.
func (p *ParsedImportData) IsEmpty() bool {
	return len(p.Categories) == 0 && len(p.Items) == 0 && len(p.ItemSizes) == 0 &&
		len(p.ModifierGroups) == 0 && len(p.Modifiers) == 0 && len(p.ItemModifierOverrides) == 0
}

// Counts returns the record count per entity kind, for logging and responses.
func (p *ParsedImportData) Counts() map[EntityKind]int {
	return map[EntityKind]int{
		KindCategory:      len(p.Categories),
		KindItem:          len(p.Items),
		KindItemSize:      len(p.ItemSizes),
		KindModifierGroup: len(p.ModifierGroups),
		KindModifier:      len(p.Modifiers),
		KindOverride:      len(p.ItemModifierOverrides),
	}
}

// DeriveKey builds a natural key from a display name when the CSV did not
// supply one explicitly: lowercased, trimmed, runs of whitespace collapsed
// to single underscores. "Extra  Toppings " -> "extra_toppings".
func DeriveKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
