package pipeline

import "grnflow/internal/util"

// ColumnScope names which side of a resolved document a column is
// sourced from.
type ColumnScope string

const (
	ScopeDocument ColumnScope = "document"
	ScopeItem     ColumnScope = "item"
	// ScopeDerived columns come from the file identity and the clock,
	// never from the payload.
	ScopeDerived ColumnScope = "derived"
)

type Column struct {
	Name    string
	Scope   ColumnScope
	Aliases []string

	// MirrorOf marks a legacy duplicate column kept for older sheet
	// consumers; its value is copied from the named canonical column.
	MirrorOf string
}

// Columns is the canonical schema in sheet order. Alias chains are
// tried left to right; mirrors sit after their canonical source.
var Columns = []Column{
	{Name: "item_description", Scope: ScopeItem, Aliases: []string{"description", "product_description", "product_name"}},
	{Name: "vendor_invoice_number", Scope: ScopeDocument, Aliases: []string{"invoice_number", "invoice_no"}},
	{Name: "rcv_qty", Scope: ScopeItem, Aliases: []string{"received_quantity", "received_qty"}},
	{Name: "grn_date", Scope: ScopeDocument, Aliases: []string{"date", "document_date"}},
	{Name: "source_file", Scope: ScopeDerived},
	{Name: "processed_date", Scope: ScopeDerived},
	{Name: "supplier", Scope: ScopeDocument, Aliases: []string{"vendor_name", "vendor"}},
	{Name: "uom", Scope: ScopeItem, Aliases: []string{"unit_of_measure", "unit"}},
	{Name: "variant_ean", Scope: ScopeItem, Aliases: []string{"ean", "barcode"}},
	{Name: "hsn_code", Scope: ScopeItem, Aliases: []string{"hsn", "tax_code"}},
	{Name: "ord_qty", Scope: ScopeItem, Aliases: []string{"ordered_quantity", "ordered_qty", "quantity", "qty"}},
	{Name: "po_number", Scope: ScopeDocument, Aliases: []string{"purchase_order_number", "po_no"}},
	{Name: "tax_amount", Scope: ScopeItem, Aliases: []string{"tax"}},
	{Name: "shipping_address", Scope: ScopeDocument, Aliases: []string{"delivery_address", "address"}},
	{Name: "sku", Scope: ScopeItem, Aliases: []string{"sku_code", "item_code"}},
	{Name: "unit_cost", Scope: ScopeItem, Aliases: []string{"unit_price", "price_per_unit", "rate"}},
	{Name: "tax_percentage", Scope: ScopeItem, Aliases: []string{"tax_percent", "tax_rate"}},
	{Name: "drive_file_id", Scope: ScopeDerived},
	{Name: "mrp", Scope: ScopeItem, Aliases: []string{"maximum_retail_price", "retail_price"}},
	{Name: "net_value", Scope: ScopeItem, Aliases: []string{"net_amount", "total_amount", "amount"}},
	{Name: "grndate", MirrorOf: "grn_date"},
	{Name: "variant.ean", MirrorOf: "variant_ean"},
	{Name: "ord.qty", MirrorOf: "ord_qty"},
	{Name: "tax amount", MirrorOf: "tax_amount"},
}

// HeaderColumns returns the canonical column names in sheet order.
func HeaderColumns() []string {
	out := make([]string, 0, len(Columns))
	for _, col := range Columns {
		out = append(out, col.Name)
	}
	return out
}

// ResolveAlias looks up a canonical field in an arbitrary-shaped record:
// the canonical name first, then each alias in chain order. The first
// present key wins even when its value is null, which resolves to the
// empty string like an absent field.
func ResolveAlias(record map[string]any, name string, aliases []string) string {
	if value, ok := record[name]; ok {
		return util.CleanValue(value)
	}
	for _, alias := range aliases {
		if value, ok := record[alias]; ok {
			return util.CleanValue(value)
		}
	}
	return ""
}
