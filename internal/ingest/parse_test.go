package ingest

import (
	"errors"
	"strings"
	"testing"

	"menu-import-service/internal/domain"
)

func TestParseFile_ItemsByFilename(t *testing.T) {
	file := SourceFile{
		Name: "items.csv",
		Content: "item_key,name,base_price,category_name,is_sizeable,default_size_code\n" +
			"margherita,Margherita,9.50,Pizzas,true,MD\n" +
			"pepperoni,Pepperoni,$11.00,Pizzas,true,\n",
	}

	bundle, err := ParseFile(file)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(bundle.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(bundle.Items))
	}

	first := bundle.Items[0]
	if first.ItemKey != "margherita" || first.Name != "Margherita" {
		t.Errorf("first item = %+v", first)
	}
	if first.BasePrice != 9.5 {
		t.Errorf("BasePrice = %v, want 9.5", first.BasePrice)
	}
	if first.CategoryName != "Pizzas" {
		t.Errorf("CategoryName = %q, want Pizzas", first.CategoryName)
	}
	if !first.IsSizeable {
		t.Error("IsSizeable = false, want true")
	}
	if first.DefaultSizeCode != "MD" {
		t.Errorf("DefaultSizeCode = %q, want MD", first.DefaultSizeCode)
	}
	if first.Row != 2 {
		t.Errorf("Row = %d, want 2 (header is line 1)", first.Row)
	}

	// Currency symbols are stripped during coercion.
	if bundle.Items[1].BasePrice != 11 {
		t.Errorf("second BasePrice = %v, want 11", bundle.Items[1].BasePrice)
	}
}

func TestParseFile_DerivesMissingKeys(t *testing.T) {
	file := SourceFile{
		Name:    "modifier_groups.csv",
		Content: "name,display_type,min_select,max_select\nExtra  Toppings,radio,1,3\n",
	}

	bundle, err := ParseFile(file)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(bundle.ModifierGroups) != 1 {
		t.Fatalf("groups = %d, want 1", len(bundle.ModifierGroups))
	}

	g := bundle.ModifierGroups[0]
	if g.GroupKey != "extra_toppings" {
		t.Errorf("GroupKey = %q, want extra_toppings", g.GroupKey)
	}
	if g.DisplayType != domain.DisplayRadio {
		t.Errorf("DisplayType = %q, want RADIO", g.DisplayType)
	}
	if g.MinSelect != 1 || g.MaxSelect != 3 {
		t.Errorf("MinSelect/MaxSelect = %d/%d, want 1/3", g.MinSelect, g.MaxSelect)
	}
}

func TestParseFile_GenericLayout(t *testing.T) {
	file := SourceFile{
		Name: "menu.csv",
		Content: "type,name,parent,base_price,price\n" +
			"CATEGORY,Pizzas,,,\n" +
			"ITEM,Margherita,Pizzas,9.50,\n" +
			"SIZE,Large,margherita,,12.00\n" +
			"MOD_GROUP,Toppings,,,\n" +
			"MODIFIER,Olives,toppings,,\n" +
			"UNKNOWN,Mystery,,,\n",
	}

	bundle, err := ParseFile(file)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if len(bundle.Categories) != 1 {
		t.Errorf("categories = %d, want 1", len(bundle.Categories))
	}
	if len(bundle.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(bundle.Items))
	}
	if bundle.Items[0].CategoryName != "Pizzas" {
		t.Errorf("parent must map to category_name, got %q", bundle.Items[0].CategoryName)
	}
	if len(bundle.ItemSizes) != 1 {
		t.Fatalf("sizes = %d, want 1", len(bundle.ItemSizes))
	}
	if bundle.ItemSizes[0].ItemKey != "margherita" {
		t.Errorf("parent must map to item_key, got %q", bundle.ItemSizes[0].ItemKey)
	}
	if len(bundle.Modifiers) != 1 {
		t.Fatalf("modifiers = %d, want 1", len(bundle.Modifiers))
	}
	if bundle.Modifiers[0].GroupKey != "toppings" {
		t.Errorf("parent must map to group_key, got %q", bundle.Modifiers[0].GroupKey)
	}

	// Unknown type rows are skipped, not errors.
	total := len(bundle.Categories) + len(bundle.Items) + len(bundle.ItemSizes) +
		len(bundle.ModifierGroups) + len(bundle.Modifiers)
	if total != 5 {
		t.Errorf("total records = %d, want 5", total)
	}
}

func TestParseFile_ColumnShapeHeuristics(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, b *domain.ParsedImportData)
	}{
		{
			name:    "item_key plus group_key is an override",
			content: "item_key,group_key,modifier_key,max_quantity\nmargherita,toppings,olives,2\n",
			check: func(t *testing.T, b *domain.ParsedImportData) {
				if len(b.ItemModifierOverrides) != 1 {
					t.Fatalf("overrides = %d, want 1", len(b.ItemModifierOverrides))
				}
				o := b.ItemModifierOverrides[0]
				if o.MaxQuantity == nil || *o.MaxQuantity != 2 {
					t.Errorf("MaxQuantity = %v, want 2", o.MaxQuantity)
				}
			},
		},
		{
			name:    "group_key plus modifier_key is a modifier",
			content: "group_key,modifier_key,name\ntoppings,olives,Olives\n",
			check: func(t *testing.T, b *domain.ParsedImportData) {
				if len(b.Modifiers) != 1 {
					t.Fatalf("modifiers = %d, want 1", len(b.Modifiers))
				}
			},
		},
		{
			name:    "size_code is a size",
			content: "item_key,size_code,name,price\nmargherita,LG,Large,12.00\n",
			check: func(t *testing.T, b *domain.ParsedImportData) {
				if len(b.ItemSizes) != 1 {
					t.Fatalf("sizes = %d, want 1", len(b.ItemSizes))
				}
			},
		},
		{
			name:    "base_price column is an item",
			content: "name,base_price\nMargherita,9.50\n",
			check: func(t *testing.T, b *domain.ParsedImportData) {
				if len(b.Items) != 1 {
					t.Fatalf("items = %d, want 1", len(b.Items))
				}
			},
		},
		{
			name:    "name only defaults to category",
			content: "name,description\nPizzas,Wood-fired\n",
			check: func(t *testing.T, b *domain.ParsedImportData) {
				if len(b.Categories) != 1 {
					t.Fatalf("categories = %d, want 1", len(b.Categories))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := ParseFile(SourceFile{Name: "upload.csv", Content: tt.content})
			if err != nil {
				t.Fatalf("ParseFile() error = %v", err)
			}
			tt.check(t, bundle)
		})
	}
}

func TestParseFile_AvailabilityDefaultsTrueWhenColumnAbsent(t *testing.T) {
	bundle, err := ParseFile(SourceFile{
		Name:    "items.csv",
		Content: "name,base_price\nMargherita,9.50\n",
	})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	it := bundle.Items[0]
	if !it.IsAvailable || !it.IsActive {
		t.Errorf("IsAvailable/IsActive = %v/%v, want true/true", it.IsAvailable, it.IsActive)
	}

	bundle, err = ParseFile(SourceFile{
		Name:    "items.csv",
		Content: "name,base_price,is_available\nMargherita,9.50,false\n",
	})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if bundle.Items[0].IsAvailable {
		t.Error("explicit is_available=false must not default to true")
	}
}

func TestParseFile_SkipsRowsWithoutName(t *testing.T) {
	bundle, err := ParseFile(SourceFile{
		Name:    "items.csv",
		Content: "item_key,name,base_price\nmargherita,Margherita,9.50\nghost,,4.00\n",
	})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(bundle.Items) != 1 {
		t.Errorf("items = %d, want 1 (nameless row skipped)", len(bundle.Items))
	}
}

func TestParseFile_StripsHeaderBOM(t *testing.T) {
	bundle, err := ParseFile(SourceFile{
		Name:    "categories.csv",
		Content: "\ufeffname,description\nPizzas,Wood-fired\n",
	})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(bundle.Categories) != 1 || bundle.Categories[0].Name != "Pizzas" {
		t.Errorf("BOM header must still parse: %+v", bundle.Categories)
	}
}

func TestParseFile_MalformedCSV(t *testing.T) {
	_, err := ParseFile(SourceFile{
		Name:    "items.csv",
		Content: "name,base_price\n\"unterminated,9.50\n",
	})
	if err == nil {
		t.Fatal("ParseFile() expected error for malformed CSV")
	}
	var ingestErr *domain.IngestError
	if !errors.As(err, &ingestErr) {
		t.Errorf("error type = %T, want *domain.IngestError", err)
	}
	if !strings.Contains(err.Error(), "items.csv") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestParseFile_HeaderOnly(t *testing.T) {
	bundle, err := ParseFile(SourceFile{Name: "items.csv", Content: "name,base_price\n"})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if !bundle.IsEmpty() {
		t.Error("header-only file must produce an empty bundle")
	}
}

func TestParseFile_OverrideJSONCells(t *testing.T) {
	content := "item_key,group_key,modifier_key,prices_by_size,quantity_levels\n" +
		`margherita,toppings,olives,"{""SM"":0.50,""LG"":1.00}","[{""quantity"":1,""is_default"":true}]"` + "\n"

	bundle, err := ParseFile(SourceFile{Name: "item_modifier_overrides.csv", Content: content})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(bundle.ItemModifierOverrides) != 1 {
		t.Fatalf("overrides = %d, want 1", len(bundle.ItemModifierOverrides))
	}

	o := bundle.ItemModifierOverrides[0]
	if o.PricesBySize["LG"] != 1.00 {
		t.Errorf("PricesBySize[LG] = %v, want 1.00", o.PricesBySize["LG"])
	}
	if len(o.QuantityLevels) != 1 || !o.QuantityLevels[0].IsDefault {
		t.Errorf("QuantityLevels = %+v", o.QuantityLevels)
	}
}
