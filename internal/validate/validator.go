// Package validate checks an aggregated import bundle against business rules
// before anything is persisted. The validator is a pure pass over the bundle:
// it accumulates every issue in one traversal (no early exit) so operators
// see all problems in a single round, and it never mutates storage. Storage
// is only consulted read-only, to warn about name collisions with rows that
// already exist.
package validate

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"menu-import-service/internal/domain"
)

// Lookup is the read-only view of storage the validator needs. Both maps are
// fetched once per pass; no per-record queries.
type Lookup interface {
	// CategoryNamesByBusiness returns existing category name -> id.
	CategoryNamesByBusiness(ctx context.Context, businessID string) (map[string]string, error)
	// ModifierGroupNamesByBusiness returns the set of existing group names.
	ModifierGroupNamesByBusiness(ctx context.Context, businessID string) (map[string]bool, error)
}

// Result holds the ordered outcome of one validation pass.
type Result struct {
	Errors   []domain.ValidationIssue
	Warnings []domain.ValidationIssue
}

// Validator validates import bundles. The zero value is not usable; storage
// lookups are injected so the pass itself stays pure.
type Validator struct {
	lookup Lookup
}

// New creates a Validator backed by the given storage lookup.
func New(lookup Lookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate runs the full pass over the bundle. Issues carry the provenance
// recorded by the parser. The storage lookups are best-effort: if they fail,
// the pass still completes with the collision warnings omitted.
func (v *Validator) Validate(ctx context.Context, bundle *domain.ParsedImportData, businessID string) Result {
	var res Result

	existingCategories := map[string]string{}
	existingGroups := map[string]bool{}
	if v.lookup != nil {
		if m, err := v.lookup.CategoryNamesByBusiness(ctx, businessID); err == nil {
			existingCategories = m
		}
		if m, err := v.lookup.ModifierGroupNamesByBusiness(ctx, businessID); err == nil {
			existingGroups = m
		}
	}

	categoryNames := v.checkCategories(bundle, &res)
	groupKeys := v.checkModifierGroups(bundle, existingGroups, &res)
	modifierKeys := v.checkModifiers(bundle, groupKeys, &res)
	itemKeys := v.checkItems(bundle, categoryNames, existingCategories, &res)
	v.checkItemSizes(bundle, itemKeys, &res)
	v.checkOverrides(bundle, itemKeys, groupKeys, modifierKeys, &res)

	return res
}

// issue appends a validation issue built from a record's provenance.
func issue(list *[]domain.ValidationIssue, prov domain.Provenance, entity domain.EntityKind, field, message, value string) {
	*list = append(*list, domain.ValidationIssue{
		File:    prov.File,
		Row:     prov.Row,
		Entity:  string(entity),
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// collectOzzo flattens an ozzo validation error into per-field issues.
func collectOzzo(list *[]domain.ValidationIssue, prov domain.Provenance, entity domain.EntityKind, err error) {
	if err == nil {
		return
	}
	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			issue(list, prov, entity, field, fieldErr.Error(), "")
		}
		return
	}
	issue(list, prov, entity, "", err.Error(), "")
}

func (v *Validator) checkCategories(bundle *domain.ParsedImportData, res *Result) map[string]bool {
	names := make(map[string]bool, len(bundle.Categories))

	for _, c := range bundle.Categories {
		collectOzzo(&res.Errors, c.Provenance, domain.KindCategory, validation.ValidateStruct(&c,
			validation.Field(&c.Name, validation.Required.Error("name is required")),
		))

		key := strings.ToLower(c.Name)
		if key == "" {
			continue
		}
		if names[key] {
			issue(&res.Errors, c.Provenance, domain.KindCategory, "name",
				"duplicate category name in batch", c.Name)
			continue
		}
		names[key] = true
	}

	return names
}

func (v *Validator) checkModifierGroups(bundle *domain.ParsedImportData, existing map[string]bool, res *Result) map[string]bool {
	keys := make(map[string]bool, len(bundle.ModifierGroups))

	for _, g := range bundle.ModifierGroups {
		collectOzzo(&res.Errors, g.Provenance, domain.KindModifierGroup, validation.ValidateStruct(&g,
			validation.Field(&g.Name, validation.Required.Error("name is required")),
			validation.Field(&g.DisplayType,
				validation.Required.Error("display_type is required"),
				validation.In(domain.DisplayRadio, domain.DisplayCheckbox).Error("display_type must be RADIO or CHECKBOX")),
			validation.Field(&g.MinSelect, validation.Min(0).Error("min_select must not be negative")),
		))

		if g.MaxSelect < g.MinSelect {
			issue(&res.Errors, g.Provenance, domain.KindModifierGroup, "max_select",
				fmt.Sprintf("max_select (%d) must be >= min_select (%d)", g.MaxSelect, g.MinSelect),
				fmt.Sprintf("%d", g.MaxSelect))
		}

		v.checkQuantityLevels(g.QuantityLevels, g.Provenance, domain.KindModifierGroup, res)

		if g.GroupKey != "" {
			if keys[g.GroupKey] {
				issue(&res.Errors, g.Provenance, domain.KindModifierGroup, "group_key",
					"duplicate group_key in batch", g.GroupKey)
			}
			keys[g.GroupKey] = true
		}

		if existing[strings.ToLower(g.Name)] {
			issue(&res.Warnings, g.Provenance, domain.KindModifierGroup, "name",
				"modifier group with this name already exists; its id will be reused", g.Name)
		}
	}

	return keys
}

// checkQuantityLevels enforces at most one default level and unique quantity
// values. Shared by modifier groups and per-item overrides.
func (v *Validator) checkQuantityLevels(levels []domain.QuantityLevel, prov domain.Provenance, entity domain.EntityKind, res *Result) {
	if len(levels) == 0 {
		return
	}

	defaults := 0
	seen := make(map[int]bool, len(levels))
	for _, lvl := range levels {
		if lvl.IsDefault {
			defaults++
		}
		if seen[lvl.Quantity] {
			issue(&res.Errors, prov, entity, "quantity_levels",
				fmt.Sprintf("duplicate quantity value %d", lvl.Quantity), "")
		}
		seen[lvl.Quantity] = true
	}
	if defaults > 1 {
		issue(&res.Errors, prov, entity, "quantity_levels",
			"at most one quantity level may be marked default", "")
	}
}

func (v *Validator) checkModifiers(bundle *domain.ParsedImportData, groupKeys map[string]bool, res *Result) map[string]bool {
	keys := make(map[string]bool, len(bundle.Modifiers))

	for _, m := range bundle.Modifiers {
		collectOzzo(&res.Errors, m.Provenance, domain.KindModifier, validation.ValidateStruct(&m,
			validation.Field(&m.Name, validation.Required.Error("name is required")),
			validation.Field(&m.GroupKey, validation.Required.Error("group_key is required")),
			validation.Field(&m.MaxQuantity, validation.Min(0).Error("max_quantity must not be negative")),
		))

		if m.GroupKey != "" && !groupKeys[m.GroupKey] {
			issue(&res.Errors, m.Provenance, domain.KindModifier, "group_key",
				"referenced modifier group not found in batch", m.GroupKey)
		}

		if m.GroupKey != "" && m.ModifierKey != "" {
			composite := m.GroupKey + "/" + m.ModifierKey
			if keys[composite] {
				issue(&res.Errors, m.Provenance, domain.KindModifier, "modifier_key",
					"duplicate modifier_key within group", m.ModifierKey)
			}
			keys[composite] = true
		}
	}

	return keys
}

func (v *Validator) checkItems(bundle *domain.ParsedImportData, batchCategories map[string]bool, existingCategories map[string]string, res *Result) map[string]bool {
	keys := make(map[string]bool, len(bundle.Items))

	for _, it := range bundle.Items {
		collectOzzo(&res.Errors, it.Provenance, domain.KindItem, validation.ValidateStruct(&it,
			validation.Field(&it.Name, validation.Required.Error("name is required")),
			validation.Field(&it.BasePrice, validation.Min(0.0).Error("base_price must not be negative")),
		))

		if it.ItemKey != "" {
			if keys[it.ItemKey] {
				issue(&res.Errors, it.Provenance, domain.KindItem, "item_key",
					"duplicate item_key in batch", it.ItemKey)
			}
			keys[it.ItemKey] = true
		}

		// Category references are resolved against storage at save time;
		// a name in neither the batch nor storage will abort the commit,
		// so surface it early as a warning.
		if it.CategoryID == "" && it.CategoryName != "" {
			lower := strings.ToLower(it.CategoryName)
			if !batchCategories[lower] {
				if _, ok := existingCategories[lower]; !ok {
					issue(&res.Warnings, it.Provenance, domain.KindItem, "category_name",
						"category not found in batch or storage; save will fail unless it is created first", it.CategoryName)
				}
			}
		}
		if it.CategoryID == "" && it.CategoryName == "" {
			issue(&res.Errors, it.Provenance, domain.KindItem, "category_name",
				"item must reference a category by id or name", "")
		}
	}

	return keys
}

func (v *Validator) checkItemSizes(bundle *domain.ParsedImportData, itemKeys map[string]bool, res *Result) {
	codesPerItem := make(map[string]map[string]bool)
	defaultsPerItem := make(map[string]int)

	for _, sz := range bundle.ItemSizes {
		collectOzzo(&res.Errors, sz.Provenance, domain.KindItemSize, validation.ValidateStruct(&sz,
			validation.Field(&sz.Name, validation.Required.Error("name is required")),
			validation.Field(&sz.SizeCode, validation.Required.Error("size_code is required")),
			validation.Field(&sz.ItemKey, validation.Required.Error("item_key is required")),
			validation.Field(&sz.Price, validation.Min(0.0).Error("price must not be negative")),
		))

		if sz.ItemKey != "" && !itemKeys[sz.ItemKey] {
			issue(&res.Errors, sz.Provenance, domain.KindItemSize, "item_key",
				"referenced item not found in batch", sz.ItemKey)
		}

		if sz.ItemKey != "" && sz.SizeCode != "" {
			if codesPerItem[sz.ItemKey] == nil {
				codesPerItem[sz.ItemKey] = make(map[string]bool)
			}
			if codesPerItem[sz.ItemKey][sz.SizeCode] {
				issue(&res.Errors, sz.Provenance, domain.KindItemSize, "size_code",
					"duplicate size_code for item", sz.SizeCode)
			}
			codesPerItem[sz.ItemKey][sz.SizeCode] = true
		}

		if sz.IsDefault {
			defaultsPerItem[sz.ItemKey]++
			if defaultsPerItem[sz.ItemKey] == 2 {
				issue(&res.Errors, sz.Provenance, domain.KindItemSize, "is_default",
					"item has more than one default size", sz.SizeCode)
			}
		}
	}
}

func (v *Validator) checkOverrides(bundle *domain.ParsedImportData, itemKeys, groupKeys, modifierKeys map[string]bool, res *Result) {
	for _, o := range bundle.ItemModifierOverrides {
		if o.ItemKey == "" || !itemKeys[o.ItemKey] {
			issue(&res.Errors, o.Provenance, domain.KindOverride, "item_key",
				"referenced item not found in batch", o.ItemKey)
		}
		if o.GroupKey == "" || !groupKeys[o.GroupKey] {
			issue(&res.Errors, o.Provenance, domain.KindOverride, "group_key",
				"referenced modifier group not found in batch", o.GroupKey)
		}
		if o.ModifierKey == "" {
			issue(&res.Errors, o.Provenance, domain.KindOverride, "modifier_key",
				"modifier_key is required", "")
		} else if !modifierKeys[o.GroupKey+"/"+o.ModifierKey] {
			issue(&res.Errors, o.Provenance, domain.KindOverride, "modifier_key",
				"referenced modifier not found in batch", o.ModifierKey)
		}
		if o.MaxQuantity != nil && *o.MaxQuantity < 0 {
			issue(&res.Errors, o.Provenance, domain.KindOverride, "max_quantity",
				"max_quantity must not be negative", fmt.Sprintf("%d", *o.MaxQuantity))
		}
		v.checkQuantityLevels(o.QuantityLevels, o.Provenance, domain.KindOverride, res)
	}
}
