package pipeline

import (
	"encoding/json"
	"testing"
)

func TestResolveAliasPriorityOrder(t *testing.T) {
	record := map[string]any{
		"supplier":    "Canonical Co",
		"vendor_name": "Alias Co",
	}
	if got := ResolveAlias(record, "supplier", []string{"vendor_name", "vendor"}); got != "Canonical Co" {
		t.Fatalf("got %q", got)
	}

	delete(record, "supplier")
	if got := ResolveAlias(record, "supplier", []string{"vendor_name", "vendor"}); got != "Alias Co" {
		t.Fatalf("got %q", got)
	}

	delete(record, "vendor_name")
	record["vendor"] = "Last Co"
	if got := ResolveAlias(record, "supplier", []string{"vendor_name", "vendor"}); got != "Last Co" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveAliasAbsentAndNull(t *testing.T) {
	if got := ResolveAlias(map[string]any{}, "supplier", []string{"vendor_name"}); got != "" {
		t.Fatalf("absent: got %q", got)
	}

	// A present-but-null key resolves to empty, it does not fall
	// through to later aliases.
	record := map[string]any{"supplier": nil, "vendor_name": "Fallback Co"}
	if got := ResolveAlias(record, "supplier", []string{"vendor_name"}); got != "" {
		t.Fatalf("null: got %q", got)
	}
}

func TestResolveAliasStringifiesScalars(t *testing.T) {
	record := map[string]any{"ord_qty": json.Number("5"), "unit_cost": 12.5, "sku": "  X1  "}
	if got := ResolveAlias(record, "ord_qty", nil); got != "5" {
		t.Fatalf("qty=%q", got)
	}
	if got := ResolveAlias(record, "unit_cost", nil); got != "12.5" {
		t.Fatalf("cost=%q", got)
	}
	if got := ResolveAlias(record, "sku", nil); got != "X1" {
		t.Fatalf("sku=%q", got)
	}
}

func TestHeaderColumnsCoversAliasTable(t *testing.T) {
	header := HeaderColumns()
	if len(header) != len(Columns) {
		t.Fatalf("len=%d want %d", len(header), len(Columns))
	}

	byName := map[string]Column{}
	for _, col := range Columns {
		byName[col.Name] = col
	}
	for _, col := range Columns {
		if col.MirrorOf == "" {
			continue
		}
		source, ok := byName[col.MirrorOf]
		if !ok {
			t.Fatalf("mirror %q points at unknown column %q", col.Name, col.MirrorOf)
		}
		if source.MirrorOf != "" {
			t.Fatalf("mirror %q chains to another mirror", col.Name)
		}
	}
}
