package core

// saver.go is the transactional writer: it persists a validated bundle
// across the menu entity tables in strict dependency order, resolving
// natural keys to surrogate ids as it goes and recording one rollback
// entry per created or updated row. It runs inside a single transaction;
// any unresolved reference or constraint violation aborts the whole commit.

import (
	"context"
	"strings"

	"menu-import-service/internal/domain"
)

// MenuWriter is the slice of the menu store the saver and rollback engine
// need. The saver receives a transaction-bound implementation.
type MenuWriter interface {
	CategoryNamesByBusiness(ctx context.Context, businessID string) (map[string]string, error)
	ModifierGroupIDByName(ctx context.Context, businessID, name string) (string, bool, error)
	CreateModifierGroup(ctx context.Context, businessID string, rec domain.ModifierGroupRecord) (string, error)
	ModifierIDByName(ctx context.Context, groupID, name string) (string, bool, error)
	CreateModifier(ctx context.Context, groupID string, rec domain.ModifierRecord) (string, error)
	CreateItem(ctx context.Context, businessID, categoryID string, rec domain.ItemRecord) (string, error)
	CreateItemSize(ctx context.Context, itemID string, rec domain.ItemSizeRecord) (string, error)
	ItemSnapshot(ctx context.Context, itemID string) ([]byte, error)
	SetItemDefaultSize(ctx context.Context, itemID, sizeID string) error
	SetItemModifierGroups(ctx context.Context, itemID string, links []domain.ItemModifierGroupLink) error
	RestoreItem(ctx context.Context, itemID string, previous []byte) error
	DeleteItem(ctx context.Context, id string) error
	DeleteItemSize(ctx context.Context, id string) error
	DeleteModifierGroup(ctx context.Context, id string) error
	DeleteModifier(ctx context.Context, id string) error
}

// saveBundle persists the bundle through menu in dependency order and
// returns the rollback log. The caller owns the transaction; on error the
// returned log must be discarded along with the transaction.
func saveBundle(ctx context.Context, menu MenuWriter, businessID string, bundle *domain.ParsedImportData) ([]domain.RollbackOperation, error) {
	resolver := NewKeyResolver()
	var log []domain.RollbackOperation

	// 1. Modifier groups: reuse by (business, name) or create.
	for _, g := range bundle.ModifierGroups {
		id, found, err := menu.ModifierGroupIDByName(ctx, businessID, g.Name)
		if err != nil {
			return nil, err
		}
		if !found {
			if id, err = menu.CreateModifierGroup(ctx, businessID, g); err != nil {
				return nil, err
			}
			log = append(log, domain.RollbackOperation{
				EntityType: domain.KindModifierGroup, Action: domain.ActionCreate, ID: id,
			})
		}
		resolver.Bind(domain.KindModifierGroup, g.GroupKey, id)
	}

	// 2. Modifiers: resolve the owning group, then reuse or create.
	for _, m := range bundle.Modifiers {
		groupID, err := resolver.MustResolve(domain.KindModifierGroup, m.GroupKey)
		if err != nil {
			return nil, err
		}

		id, found, err := menu.ModifierIDByName(ctx, groupID, m.Name)
		if err != nil {
			return nil, err
		}
		if !found {
			if id, err = menu.CreateModifier(ctx, groupID, m); err != nil {
				return nil, err
			}
			log = append(log, domain.RollbackOperation{
				EntityType: domain.KindModifier, Action: domain.ActionCreate, ID: id,
			})
		}
		resolver.Bind(domain.KindModifier, CompositeModifierKey(m.GroupKey, m.ModifierKey), id)
	}

	// 3. Categories are referenced, never created: one read-only map.
	// A name declared in the batch's categories but absent from storage is
	// tolerated; the item is saved uncategorized instead of aborting.
	categories, err := menu.CategoryNamesByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	batchCategories := make(map[string]bool, len(bundle.Categories))
	for _, c := range bundle.Categories {
		batchCategories[strings.ToLower(c.Name)] = true
	}

	// 4. Items.
	for _, it := range bundle.Items {
		categoryID := it.CategoryID
		if categoryID == "" {
			lower := strings.ToLower(it.CategoryName)
			var ok bool
			if categoryID, ok = categories[lower]; !ok && !batchCategories[lower] {
				return nil, domain.NewResolutionError(domain.KindCategory, it.CategoryName)
			}
		}

		id, err := menu.CreateItem(ctx, businessID, categoryID, it)
		if err != nil {
			return nil, err
		}
		log = append(log, domain.RollbackOperation{
			EntityType: domain.KindItem, Action: domain.ActionCreate, ID: id,
		})
		resolver.Bind(domain.KindItem, it.ItemKey, id)
	}

	// 5. Item sizes, remembering each item's default.
	defaultSizes := make(map[string]string) // item id -> size id
	sizeByItemCode := make(map[string]string)
	for _, sz := range bundle.ItemSizes {
		itemID, err := resolver.MustResolve(domain.KindItem, sz.ItemKey)
		if err != nil {
			return nil, err
		}

		id, err := menu.CreateItemSize(ctx, itemID, sz)
		if err != nil {
			return nil, err
		}
		log = append(log, domain.RollbackOperation{
			EntityType: domain.KindItemSize, Action: domain.ActionCreate, ID: id,
		})

		sizeByItemCode[sz.ItemKey+"/"+sz.SizeCode] = id
		if sz.IsDefault {
			defaultSizes[itemID] = id
		}
	}

	// An item's default_size_code wins over a size row's is_default flag.
	for _, it := range bundle.Items {
		if it.DefaultSizeCode == "" {
			continue
		}
		if sizeID, ok := sizeByItemCode[it.ItemKey+"/"+it.DefaultSizeCode]; ok {
			itemID, _ := resolver.Resolve(domain.KindItem, it.ItemKey)
			defaultSizes[itemID] = sizeID
		}
	}

	// 6. Default-size back-links, each with a prior snapshot.
	for _, it := range bundle.Items {
		itemID, _ := resolver.Resolve(domain.KindItem, it.ItemKey)
		sizeID, ok := defaultSizes[itemID]
		if !ok {
			continue
		}

		snapshot, err := menu.ItemSnapshot(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if err := menu.SetItemDefaultSize(ctx, itemID, sizeID); err != nil {
			return nil, err
		}
		log = append(log, domain.RollbackOperation{
			EntityType: domain.KindItem, Action: domain.ActionUpdate, ID: itemID, PreviousData: snapshot,
		})
	}

	// 7. Item-group links with per-modifier overrides.
	links, err := buildItemLinks(bundle, resolver)
	if err != nil {
		return nil, err
	}
	for _, it := range bundle.Items {
		itemLinks, ok := links[it.ItemKey]
		if !ok {
			continue
		}
		itemID, _ := resolver.Resolve(domain.KindItem, it.ItemKey)

		snapshot, err := menu.ItemSnapshot(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if err := menu.SetItemModifierGroups(ctx, itemID, itemLinks); err != nil {
			return nil, err
		}
		log = append(log, domain.RollbackOperation{
			EntityType: domain.KindItem, Action: domain.ActionUpdate, ID: itemID, PreviousData: snapshot,
		})
	}

	return log, nil
}

// buildItemLinks groups each item's overrides by group_key and resolves all
// group and modifier references. Order follows first appearance in the batch.
func buildItemLinks(bundle *domain.ParsedImportData, resolver *KeyResolver) (map[string][]domain.ItemModifierGroupLink, error) {
	type groupAgg struct {
		groupID   string
		overrides []domain.ModifierOverride
	}

	perItem := make(map[string][]*groupAgg)
	index := make(map[string]*groupAgg) // item_key + "/" + group_key

	for _, o := range bundle.ItemModifierOverrides {
		groupID, err := resolver.MustResolve(domain.KindModifierGroup, o.GroupKey)
		if err != nil {
			return nil, err
		}
		modifierID, err := resolver.MustResolve(domain.KindModifier, CompositeModifierKey(o.GroupKey, o.ModifierKey))
		if err != nil {
			return nil, err
		}

		key := o.ItemKey + "/" + o.GroupKey
		agg, ok := index[key]
		if !ok {
			agg = &groupAgg{groupID: groupID}
			index[key] = agg
			perItem[o.ItemKey] = append(perItem[o.ItemKey], agg)
		}
		agg.overrides = append(agg.overrides, domain.ModifierOverride{
			ModifierID:     modifierID,
			MaxQuantity:    o.MaxQuantity,
			IsDefault:      o.IsDefault,
			PricesBySize:   o.PricesBySize,
			QuantityLevels: o.QuantityLevels,
		})
	}

	links := make(map[string][]domain.ItemModifierGroupLink, len(perItem))
	for itemKey, aggs := range perItem {
		itemLinks := make([]domain.ItemModifierGroupLink, len(aggs))
		for i, agg := range aggs {
			itemLinks[i] = domain.ItemModifierGroupLink{GroupID: agg.groupID, Overrides: agg.overrides}
		}
		links[itemKey] = itemLinks
	}
	return links, nil
}
