// Package overlay loads manually curated metadata that is merged on top of
// discovered records, always winning conflicts.
package overlay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcu-pkgs/libmirror/internal/ident"
)

// Load reads the overlay document and normalizes it to a map keyed by
// canonical identifier. An absent file is an empty overlay. A malformed
// overlay is a configuration error: the content is operator-controlled, and
// degrading silently to "no overlay" would hide the mistake.
//
// Three shapes are accepted: an object map keyed by id, an array of records
// each identifying itself via "id" or "owner"/"libname" fields, or an object
// with a "libraries" array in the second shape.
func Load(path string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading overlay: %w", err)
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing overlay %s: %w", path, err)
	}

	switch t := root.(type) {
	case []any:
		return fromArray(t)
	case map[string]any:
		if libs, ok := t["libraries"].([]any); ok {
			return fromArray(libs)
		}
		if _, hasLibraries := t["libraries"]; hasLibraries {
			return nil, fmt.Errorf("overlay %s: \"libraries\" is not an array", path)
		}
		return fromMap(t)
	default:
		return nil, fmt.Errorf("overlay %s: expected object or array, got %T", path, root)
	}
}

func fromMap(m map[string]any) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(m))
	for key, raw := range m {
		id, ok := ident.Normalize(key)
		if !ok {
			return nil, fmt.Errorf("overlay key %q is not a valid owner/name identifier", key)
		}
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("overlay entry %q is not an object", key)
		}
		out[id] = entry
	}
	return out, nil
}

func fromArray(items []any) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(items))
	for i, raw := range items {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("overlay entry %d is not an object", i)
		}
		id, err := entryID(entry)
		if err != nil {
			return nil, fmt.Errorf("overlay entry %d: %w", i, err)
		}
		out[id] = entry
	}
	return out, nil
}

// entryID recovers the identifier from an "id" field or from embedded
// "owner"/"libname" fields.
func entryID(entry map[string]any) (string, error) {
	if raw, ok := entry["id"].(string); ok {
		if id, ok := ident.Normalize(raw); ok {
			return id, nil
		}
		return "", fmt.Errorf("invalid id %q", raw)
	}

	owner, _ := entry["owner"].(string)
	libname, _ := entry["libname"].(string)
	if owner != "" && libname != "" {
		if id, ok := ident.Normalize(owner + "/" + libname); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("no recoverable identifier")
}
