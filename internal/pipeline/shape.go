package pipeline

// ResolvedDocument is one extraction payload reduced to its document
// fields and item list. Items may be empty, in which case the
// normalizer emits a single row sourced from the document fields alone.
type ResolvedDocument struct {
	Fields map[string]any
	Items  []map[string]any
}

// itemContainerKeys is the fixed probe order for locating an item list
// inside a document map.
var itemContainerKeys = []string{"items", "product_items", "line_items", "products", "grn_items"}

// ResolveShape classifies an extraction payload. A sequence resolves
// element-wise and concatenates, so page-per-object extractor output
// becomes one document per page. A map either carries an item list
// under one of the known container keys or stands alone as a single-row
// document. Anything else yields nothing.
func ResolveShape(payload any) []ResolvedDocument {
	switch v := payload.(type) {
	case []any:
		out := make([]ResolvedDocument, 0, len(v))
		for _, element := range v {
			out = append(out, ResolveShape(element)...)
		}
		return out
	case map[string]any:
		for _, key := range itemContainerKeys {
			list, ok := v[key].([]any)
			if !ok {
				continue
			}
			items := make([]map[string]any, 0, len(list))
			for _, entry := range list {
				// Non-map entries are dropped, not failed.
				if m, ok := entry.(map[string]any); ok {
					items = append(items, m)
				}
			}
			return []ResolvedDocument{{Fields: v, Items: items}}
		}
		return []ResolvedDocument{{Fields: v}}
	default:
		return nil
	}
}
