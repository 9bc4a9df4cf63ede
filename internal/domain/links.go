package domain

import "encoding/json"

// ModifierOverride is a resolved, per-item override of one modifier's
// behavior. References are surrogate ids by the time this type is built.
type ModifierOverride struct {
	ModifierID     string             `json:"modifier_id"`
	MaxQuantity    *int               `json:"max_quantity,omitempty"`
	IsDefault      *bool              `json:"is_default,omitempty"`
	PricesBySize   map[string]float64 `json:"prices_by_size,omitempty"`
	QuantityLevels []QuantityLevel    `json:"quantity_levels,omitempty"`
}

// ItemModifierGroupLink attaches a modifier group to an item, carrying any
// modifier-level overrides the import declared for that item.
type ItemModifierGroupLink struct {
	GroupID   string             `json:"group_id"`
	Overrides []ModifierOverride `json:"overrides,omitempty"`
}

// ItemSnapshot captures the item columns the saver updates in place, so an
// update rollback entry can restore them verbatim.
type ItemSnapshot struct {
	DefaultSizeID  *string         `json:"default_size_id"`
	ModifierGroups json.RawMessage `json:"modifier_groups"`
}
