package workflow

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DataPatch is a shallow update of a node payload, keyed by the payload's
// JSON field names (e.g. "temperature", "parameters"). Values replace the
// whole top-level field.
type DataPatch map[string]any

// Keys returns the patch keys in sorted order
func (p DataPatch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyPatch merges patch into a copy of data and returns the result. Keys
// that are not fields of the payload are ignored. A nil value, or one that
// cannot be decoded into its field, yields ErrInvalidPatch; data itself is
// never modified.
func ApplyPatch(data NodeData, patch DataPatch) (NodeData, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil node data", ErrInvalidPatch)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", data.Kind(), err)
	}

	fields := gjson.ParseBytes(raw).Map()
	for _, key := range patch.Keys() {
		if _, ok := fields[key]; !ok {
			continue
		}
		if patch[key] == nil {
			return nil, fmt.Errorf("%w: field %q: nil value", ErrInvalidPatch, key)
		}
		raw, err = sjson.SetBytes(raw, key, patch[key])
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidPatch, key, err)
		}
	}

	updated, err := DecodeNodeData(data.Kind(), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return updated, nil
}
