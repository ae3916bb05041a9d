package catalog

// Merge deep-merges overlay onto base and returns a new map. Object fields
// merge recursively; arrays and scalars are replaced wholesale. Any key
// present in the overlay wins, even when its value is empty. Neither input
// is mutated.
//
// Fields normalized by union-of-sets (tags, interfaces, mcu, the
// compatibility summary lists) are not special-cased here: the overlay value
// replaces the discovered one, and normalization dedupes and sorts whatever
// the merge produced.
func Merge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, ov := range overlay {
		if bm, ok := out[k].(map[string]any); ok {
			if om, ok := ov.(map[string]any); ok {
				out[k] = Merge(bm, om)
				continue
			}
		}
		out[k] = cloneValue(ov)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
