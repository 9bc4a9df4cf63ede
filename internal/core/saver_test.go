package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menu-import-service/internal/domain"
)

// fakeMenu is an in-memory MenuWriter tracking every write so tests can
// assert on commit order and rollback effects.
type fakeMenu struct {
	categories map[string]string // lowercased name -> id
	groups     map[string]string // lowercased name -> id
	modifiers  map[string]string // groupID + "/" + lowercased name -> id
	items      map[string]fakeItem
	sizes      map[string]bool
	nextID     int
	writes     []string
}

type fakeItem struct {
	categoryID     string
	defaultSizeID  *string
	modifierGroups []domain.ItemModifierGroupLink
}

func newFakeMenu() *fakeMenu {
	return &fakeMenu{
		categories: map[string]string{},
		groups:     map[string]string{},
		modifiers:  map[string]string{},
		items:      map[string]fakeItem{},
		sizes:      map[string]bool{},
	}
}

func (f *fakeMenu) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeMenu) CategoryNamesByBusiness(context.Context, string) (map[string]string, error) {
	return f.categories, nil
}

func (f *fakeMenu) ModifierGroupIDByName(_ context.Context, _ string, name string) (string, bool, error) {
	id, ok := f.groups[strings.ToLower(name)]
	return id, ok, nil
}

func (f *fakeMenu) CreateModifierGroup(_ context.Context, _ string, rec domain.ModifierGroupRecord) (string, error) {
	id := f.id("grp")
	f.groups[strings.ToLower(rec.Name)] = id
	f.writes = append(f.writes, "create group "+rec.Name)
	return id, nil
}

func (f *fakeMenu) ModifierIDByName(_ context.Context, groupID, name string) (string, bool, error) {
	id, ok := f.modifiers[groupID+"/"+strings.ToLower(name)]
	return id, ok, nil
}

func (f *fakeMenu) CreateModifier(_ context.Context, groupID string, rec domain.ModifierRecord) (string, error) {
	id := f.id("mod")
	f.modifiers[groupID+"/"+strings.ToLower(rec.Name)] = id
	f.writes = append(f.writes, "create modifier "+rec.Name)
	return id, nil
}

func (f *fakeMenu) CreateItem(_ context.Context, _, categoryID string, rec domain.ItemRecord) (string, error) {
	id := f.id("item")
	f.items[id] = fakeItem{categoryID: categoryID}
	f.writes = append(f.writes, "create item "+rec.Name)
	return id, nil
}

func (f *fakeMenu) CreateItemSize(_ context.Context, itemID string, rec domain.ItemSizeRecord) (string, error) {
	id := f.id("size")
	f.sizes[id] = true
	f.writes = append(f.writes, "create size "+rec.SizeCode)
	return id, nil
}

func (f *fakeMenu) ItemSnapshot(_ context.Context, itemID string) ([]byte, error) {
	it, ok := f.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s not found", itemID)
	}
	groups, err := json.Marshal(it.modifierGroups)
	if err != nil {
		return nil, err
	}
	return json.Marshal(domain.ItemSnapshot{DefaultSizeID: it.defaultSizeID, ModifierGroups: groups})
}

func (f *fakeMenu) SetItemDefaultSize(_ context.Context, itemID, sizeID string) error {
	it := f.items[itemID]
	it.defaultSizeID = &sizeID
	f.items[itemID] = it
	f.writes = append(f.writes, "set default size")
	return nil
}

func (f *fakeMenu) SetItemModifierGroups(_ context.Context, itemID string, links []domain.ItemModifierGroupLink) error {
	it := f.items[itemID]
	it.modifierGroups = links
	f.items[itemID] = it
	f.writes = append(f.writes, "set modifier groups")
	return nil
}

func (f *fakeMenu) RestoreItem(_ context.Context, itemID string, previous []byte) error {
	var snap domain.ItemSnapshot
	if err := json.Unmarshal(previous, &snap); err != nil {
		return err
	}
	it := f.items[itemID]
	it.defaultSizeID = snap.DefaultSizeID
	var links []domain.ItemModifierGroupLink
	if len(snap.ModifierGroups) > 0 {
		if err := json.Unmarshal(snap.ModifierGroups, &links); err != nil {
			return err
		}
	}
	it.modifierGroups = links
	f.items[itemID] = it
	f.writes = append(f.writes, "restore item")
	return nil
}

func (f *fakeMenu) DeleteItem(_ context.Context, id string) error {
	delete(f.items, id)
	f.writes = append(f.writes, "delete item")
	return nil
}

func (f *fakeMenu) DeleteItemSize(_ context.Context, id string) error {
	delete(f.sizes, id)
	f.writes = append(f.writes, "delete size")
	return nil
}

func (f *fakeMenu) DeleteModifierGroup(_ context.Context, id string) error {
	for name, gid := range f.groups {
		if gid == id {
			delete(f.groups, name)
		}
	}
	f.writes = append(f.writes, "delete group")
	return nil
}

func (f *fakeMenu) DeleteModifier(_ context.Context, id string) error {
	for name, mid := range f.modifiers {
		if mid == id {
			delete(f.modifiers, name)
		}
	}
	f.writes = append(f.writes, "delete modifier")
	return nil
}

func fullBundle() *domain.ParsedImportData {
	return &domain.ParsedImportData{
		Items: []domain.ItemRecord{{
			ItemKey: "margherita", Name: "Margherita", BasePrice: 9.5,
			CategoryName: "Pizzas", DefaultSizeCode: "LG",
		}},
		ItemSizes: []domain.ItemSizeRecord{
			{ItemKey: "margherita", SizeCode: "MD", Name: "Medium", Price: 10, IsDefault: true},
			{ItemKey: "margherita", SizeCode: "LG", Name: "Large", Price: 12},
		},
		ModifierGroups: []domain.ModifierGroupRecord{{
			GroupKey: "toppings", Name: "Toppings", DisplayType: domain.DisplayCheckbox, MaxSelect: 3,
		}},
		Modifiers: []domain.ModifierRecord{{
			GroupKey: "toppings", ModifierKey: "olives", Name: "Olives",
		}},
		ItemModifierOverrides: []domain.ItemModifierOverrideRecord{{
			ItemKey: "margherita", GroupKey: "toppings", ModifierKey: "olives",
		}},
	}
}

func TestSaveBundle_FullCommit(t *testing.T) {
	menu := newFakeMenu()
	menu.categories["pizzas"] = "cat-1"

	log, err := saveBundle(context.Background(), menu, "biz-1", fullBundle())
	require.NoError(t, err)

	// group, modifier, item, two sizes created; default size + links updated
	creates, updates := 0, 0
	for _, op := range log {
		switch op.Action {
		case domain.ActionCreate:
			creates++
			assert.Empty(t, op.PreviousData, "create entries carry no snapshot")
		case domain.ActionUpdate:
			updates++
			assert.NotEmpty(t, op.PreviousData, "update entries carry a snapshot")
		}
	}
	assert.Equal(t, 5, creates)
	assert.Equal(t, 2, updates)

	// Dependency order: groups before modifiers before items before sizes.
	require.GreaterOrEqual(t, len(menu.writes), 5)
	assert.Equal(t, "create group Toppings", menu.writes[0])
	assert.Equal(t, "create modifier Olives", menu.writes[1])
	assert.Equal(t, "create item Margherita", menu.writes[2])
}

func TestSaveBundle_DefaultSizeCodeWinsOverRowFlag(t *testing.T) {
	menu := newFakeMenu()
	menu.categories["pizzas"] = "cat-1"

	_, err := saveBundle(context.Background(), menu, "biz-1", fullBundle())
	require.NoError(t, err)

	var item fakeItem
	for _, it := range menu.items {
		item = it
	}
	require.NotNil(t, item.defaultSizeID)
	// LG is the second size created after group and modifier: grp-1, mod-2,
	// item-3, size-4 (MD), size-5 (LG).
	assert.Equal(t, "size-5", *item.defaultSizeID)
}

func TestSaveBundle_ReusesExistingGroupsAndModifiers(t *testing.T) {
	menu := newFakeMenu()
	menu.categories["pizzas"] = "cat-1"
	menu.groups["toppings"] = "grp-existing"
	menu.modifiers["grp-existing/olives"] = "mod-existing"

	log, err := saveBundle(context.Background(), menu, "biz-1", fullBundle())
	require.NoError(t, err)

	for _, op := range log {
		if op.Action == domain.ActionCreate {
			assert.NotEqual(t, domain.KindModifierGroup, op.EntityType,
				"existing group must be reused, not recreated")
			assert.NotEqual(t, domain.KindModifier, op.EntityType,
				"existing modifier must be reused, not recreated")
		}
	}

	// Override still resolves against the reused ids.
	var item fakeItem
	for _, it := range menu.items {
		item = it
	}
	require.Len(t, item.modifierGroups, 1)
	assert.Equal(t, "grp-existing", item.modifierGroups[0].GroupID)
	require.Len(t, item.modifierGroups[0].Overrides, 1)
	assert.Equal(t, "mod-existing", item.modifierGroups[0].Overrides[0].ModifierID)
}

func TestSaveBundle_BatchDeclaredCategorySavesUncategorized(t *testing.T) {
	menu := newFakeMenu() // no categories in storage

	bundle := &domain.ParsedImportData{
		Categories: []domain.CategoryRecord{{Name: "Drinks"}},
		Items: []domain.ItemRecord{{
			ItemKey: "cola", Name: "Cola", BasePrice: 2.5, CategoryName: "Drinks",
		}},
	}

	log, err := saveBundle(context.Background(), menu, "biz-1", bundle)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, domain.KindItem, log[0].EntityType)

	var item fakeItem
	for _, it := range menu.items {
		item = it
	}
	assert.Empty(t, item.categoryID, "item must be saved without a category")
}

func TestSaveBundle_BatchDeclaredCategoryReusesStorageMatch(t *testing.T) {
	menu := newFakeMenu()
	menu.categories["drinks"] = "cat-7"

	bundle := &domain.ParsedImportData{
		Categories: []domain.CategoryRecord{{Name: "Drinks"}},
		Items: []domain.ItemRecord{{
			ItemKey: "cola", Name: "Cola", BasePrice: 2.5, CategoryName: "Drinks",
		}},
	}

	_, err := saveBundle(context.Background(), menu, "biz-1", bundle)
	require.NoError(t, err)

	var item fakeItem
	for _, it := range menu.items {
		item = it
	}
	assert.Equal(t, "cat-7", item.categoryID)
}

func TestSaveBundle_UnknownCategoryAborts(t *testing.T) {
	menu := newFakeMenu() // no categories in storage

	_, err := saveBundle(context.Background(), menu, "biz-1", fullBundle())
	require.Error(t, err)

	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, domain.KindCategory, resErr.Entity)
}

func TestSaveBundle_UnresolvedModifierGroupAborts(t *testing.T) {
	menu := newFakeMenu()
	menu.categories["pizzas"] = "cat-1"

	bundle := fullBundle()
	bundle.Modifiers[0].GroupKey = "missing"

	_, err := saveBundle(context.Background(), menu, "biz-1", bundle)
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, domain.KindModifierGroup, resErr.Entity)
}

func TestApplyRollback_InvertsCommit(t *testing.T) {
	menu := newFakeMenu()
	menu.categories["pizzas"] = "cat-1"

	log, err := saveBundle(context.Background(), menu, "biz-1", fullBundle())
	require.NoError(t, err)
	require.NotEmpty(t, menu.items)

	applied := applyRollback(context.Background(), menu, log)
	assert.Equal(t, len(log), applied)

	assert.Empty(t, menu.items, "created items must be deleted")
	assert.Empty(t, menu.sizes, "created sizes must be deleted")
	assert.Empty(t, menu.groups, "created groups must be deleted")
	assert.Empty(t, menu.modifiers, "created modifiers must be deleted")
}

func TestApplyRollback_RestoresUpdatedItems(t *testing.T) {
	menu := newFakeMenu()
	menu.items["item-1"] = fakeItem{}

	snapshot, err := menu.ItemSnapshot(context.Background(), "item-1")
	require.NoError(t, err)

	require.NoError(t, menu.SetItemDefaultSize(context.Background(), "item-1", "size-9"))
	require.NotNil(t, menu.items["item-1"].defaultSizeID)

	ops := []domain.RollbackOperation{{
		EntityType: domain.KindItem, Action: domain.ActionUpdate,
		ID: "item-1", PreviousData: snapshot,
	}}
	applied := applyRollback(context.Background(), menu, ops)
	assert.Equal(t, 1, applied)
	assert.Nil(t, menu.items["item-1"].defaultSizeID)
}

func TestApplyRollback_SkipsBadEntries(t *testing.T) {
	menu := newFakeMenu()
	menu.items["item-1"] = fakeItem{}

	ops := []domain.RollbackOperation{
		{EntityType: domain.KindItem, Action: domain.ActionCreate, ID: "item-1"},
		{EntityType: domain.KindItem, Action: domain.ActionUpdate, ID: "item-2"}, // no snapshot
		{EntityType: "mystery", Action: domain.ActionCreate, ID: "x"},
	}
	applied := applyRollback(context.Background(), menu, ops)

	assert.Equal(t, 1, applied, "only the valid entry applies")
	assert.Empty(t, menu.items)
}

func TestKeyResolver(t *testing.T) {
	r := NewKeyResolver()
	r.Bind(domain.KindItem, "margherita", "item-1")

	id, ok := r.Resolve(domain.KindItem, "margherita")
	assert.True(t, ok)
	assert.Equal(t, "item-1", id)

	_, ok = r.Resolve(domain.KindItem, "ghost")
	assert.False(t, ok)

	_, err := r.MustResolve(domain.KindModifierGroup, "toppings")
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "toppings", resErr.Key)

	assert.Equal(t, "toppings/olives", CompositeModifierKey("toppings", "olives"))
}
