package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"menu-import-service/internal/domain"
)

// MenuStore reads and writes the menu entity tables. The saver runs it over
// a transaction; the validator and rollback engine run it over the pool.
type MenuStore struct {
	db DBTX
}

// NewMenuStore creates a menu store over the given connection source.
func NewMenuStore(db DBTX) *MenuStore {
	return &MenuStore{db: db}
}

// WithTx returns a store bound to the given transaction.
func (m *MenuStore) WithTx(tx pgx.Tx) *MenuStore {
	return &MenuStore{db: tx}
}

// CategoryNamesByBusiness returns existing category names (lowercased)
// mapped to their ids. Categories are never created by the import pipeline.
func (m *MenuStore) CategoryNamesByBusiness(ctx context.Context, businessID string) (map[string]string, error) {
	rows, err := m.db.Query(ctx,
		`SELECT id, name FROM menu_categories WHERE business_id = $1`, businessID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names[strings.ToLower(name)] = id
	}
	return names, rows.Err()
}

// ModifierGroupNamesByBusiness returns the set of existing modifier group
// names (lowercased) for collision warnings.
func (m *MenuStore) ModifierGroupNamesByBusiness(ctx context.Context, businessID string) (map[string]bool, error) {
	rows, err := m.db.Query(ctx,
		`SELECT name FROM modifier_groups WHERE business_id = $1`, businessID)
	if err != nil {
		return nil, fmt.Errorf("list modifier groups: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan modifier group: %w", err)
		}
		names[strings.ToLower(name)] = true
	}
	return names, rows.Err()
}

// ModifierGroupIDByName looks up a group by (business_id, name).
func (m *MenuStore) ModifierGroupIDByName(ctx context.Context, businessID, name string) (string, bool, error) {
	var id string
	err := m.db.QueryRow(ctx,
		`SELECT id FROM modifier_groups WHERE business_id = $1 AND lower(name) = lower($2)`,
		businessID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup modifier group %q: %w", name, err)
	}
	return id, true, nil
}

// CreateModifierGroup inserts a group and returns its id.
func (m *MenuStore) CreateModifierGroup(ctx context.Context, businessID string, rec domain.ModifierGroupRecord) (string, error) {
	levels, err := jsonOrNull(rec.QuantityLevels)
	if err != nil {
		return "", err
	}
	prices, err := jsonOrNull(rec.PricesBySize)
	if err != nil {
		return "", err
	}

	var id string
	err = m.db.QueryRow(ctx, `
		INSERT INTO modifier_groups
			(business_id, name, display_type, min_select, max_select,
			 applies_per_quantity, quantity_levels, prices_by_size, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		businessID, rec.Name, rec.DisplayType, rec.MinSelect, rec.MaxSelect,
		rec.AppliesPerQuantity, levels, prices, rec.IsActive, rec.SortOrder,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create modifier group %q: %w", rec.Name, err)
	}
	return id, nil
}

// ModifierIDByName looks up a modifier by (group_id, name).
func (m *MenuStore) ModifierIDByName(ctx context.Context, groupID, name string) (string, bool, error) {
	var id string
	err := m.db.QueryRow(ctx,
		`SELECT id FROM modifiers WHERE group_id = $1 AND lower(name) = lower($2)`,
		groupID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup modifier %q: %w", name, err)
	}
	return id, true, nil
}

// CreateModifier inserts a modifier and returns its id.
func (m *MenuStore) CreateModifier(ctx context.Context, groupID string, rec domain.ModifierRecord) (string, error) {
	var id string
	err := m.db.QueryRow(ctx, `
		INSERT INTO modifiers
			(group_id, name, is_default, max_quantity, display_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		groupID, rec.Name, rec.IsDefault, rec.MaxQuantity, rec.DisplayOrder, rec.IsActive,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create modifier %q: %w", rec.Name, err)
	}
	return id, nil
}

// CreateItem inserts an item and returns its id. An empty categoryID stores
// NULL; the item is uncategorized.
func (m *MenuStore) CreateItem(ctx context.Context, businessID, categoryID string, rec domain.ItemRecord) (string, error) {
	var category any
	if categoryID != "" {
		category = categoryID
	}

	var id string
	err := m.db.QueryRow(ctx, `
		INSERT INTO menu_items
			(business_id, category_id, name, description, base_price,
			 is_sizeable, is_customizable, is_available, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		businessID, category, rec.Name, rec.Description, rec.BasePrice,
		rec.IsSizeable, rec.IsCustomizable, rec.IsAvailable, rec.IsActive, rec.SortOrder,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create item %q: %w", rec.Name, err)
	}
	return id, nil
}

// CreateItemSize inserts a size variant and returns its id.
func (m *MenuStore) CreateItemSize(ctx context.Context, itemID string, rec domain.ItemSizeRecord) (string, error) {
	var id string
	err := m.db.QueryRow(ctx, `
		INSERT INTO item_sizes
			(item_id, size_code, name, price, display_order, is_active, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		itemID, rec.SizeCode, rec.Name, rec.Price, rec.DisplayOrder, rec.IsActive, rec.IsDefault,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create item size %q: %w", rec.SizeCode, err)
	}
	return id, nil
}

// ItemSnapshot captures the item columns the saver updates, for rollback.
func (m *MenuStore) ItemSnapshot(ctx context.Context, itemID string) ([]byte, error) {
	var snap domain.ItemSnapshot
	err := m.db.QueryRow(ctx,
		`SELECT default_size_id, modifier_groups FROM menu_items WHERE id = $1`,
		itemID).Scan(&snap.DefaultSizeID, &snap.ModifierGroups)
	if err != nil {
		return nil, fmt.Errorf("snapshot item %s: %w", itemID, err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal item snapshot: %w", err)
	}
	return data, nil
}

// SetItemDefaultSize back-links an item to its default size.
func (m *MenuStore) SetItemDefaultSize(ctx context.Context, itemID, sizeID string) error {
	_, err := m.db.Exec(ctx,
		`UPDATE menu_items SET default_size_id = $2, updated_at = now() WHERE id = $1`,
		itemID, sizeID)
	if err != nil {
		return fmt.Errorf("set default size for item %s: %w", itemID, err)
	}
	return nil
}

// SetItemModifierGroups replaces an item's resolved modifier-group links.
func (m *MenuStore) SetItemModifierGroups(ctx context.Context, itemID string, links []domain.ItemModifierGroupLink) error {
	data, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("marshal modifier group links: %w", err)
	}
	_, err = m.db.Exec(ctx,
		`UPDATE menu_items SET modifier_groups = $2, updated_at = now() WHERE id = $1`,
		itemID, data)
	if err != nil {
		return fmt.Errorf("set modifier groups for item %s: %w", itemID, err)
	}
	return nil
}

// RestoreItem writes a prior snapshot back verbatim.
func (m *MenuStore) RestoreItem(ctx context.Context, itemID string, previous []byte) error {
	var snap domain.ItemSnapshot
	if err := json.Unmarshal(previous, &snap); err != nil {
		return fmt.Errorf("decode item snapshot: %w", err)
	}

	groups := snap.ModifierGroups
	if len(groups) == 0 {
		groups = json.RawMessage(`[]`)
	}

	_, err := m.db.Exec(ctx,
		`UPDATE menu_items SET default_size_id = $2, modifier_groups = $3, updated_at = now() WHERE id = $1`,
		itemID, snap.DefaultSizeID, []byte(groups))
	if err != nil {
		return fmt.Errorf("restore item %s: %w", itemID, err)
	}
	return nil
}

// DeleteItem removes an item created by a rolled-back import.
func (m *MenuStore) DeleteItem(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "menu_items", id)
}

// DeleteItemSize removes a size created by a rolled-back import.
func (m *MenuStore) DeleteItemSize(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "item_sizes", id)
}

// DeleteModifierGroup removes a group created by a rolled-back import.
func (m *MenuStore) DeleteModifierGroup(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "modifier_groups", id)
}

// DeleteModifier removes a modifier created by a rolled-back import.
func (m *MenuStore) DeleteModifier(ctx context.Context, id string) error {
	return m.deleteByID(ctx, "modifiers", id)
}

func (m *MenuStore) deleteByID(ctx context.Context, table, id string) error {
	_, err := m.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// jsonOrNull marshals v, returning SQL NULL for empty values so optional
// JSONB columns stay NULL instead of holding empty arrays.
func jsonOrNull(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case []domain.QuantityLevel:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]float64:
		if len(val) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return data, nil
}
