package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/samber/lo"

	apperrors "kinship/backend/pkg/errors"
)

// entityKeys are stored alongside user properties on every node and edge
// and cannot be written through a properties map.
var entityKeys = []string{"id", "created_at", "updated_at"}

// Bookkeeping keys Neo4j keeps next to user properties. They are rejected
// by every backend so a graph moves between backends unchanged.
var (
	nodeKeys = []string{"label", "id_key", "name_key"}
	edgeKeys = []string{"rel_type"}
)

// FlattenProperties turns an arbitrary JSON-ish map into flat scalar
// properties. Nested maps become "outer_inner" keys, lists of scalars are
// joined with ", ", other lists are JSON-encoded and nil becomes "".
// Integral floats are stored as int64 so every backend round-trips the
// same value.
func FlattenProperties(props map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(props))
	if err := flattenInto(out, "", props); err != nil {
		return nil, err
	}
	if err := rejectReserved(out, entityKeys); err != nil {
		return nil, err
	}
	return out, nil
}

func rejectReserved(props map[string]interface{}, reserved []string) error {
	for k := range props {
		if lo.Contains(reserved, k) {
			return apperrors.NewValidation("properties", fmt.Sprintf("key %q is reserved", k))
		}
	}
	return nil
}

func flattenInto(out map[string]interface{}, prefix string, props map[string]interface{}) error {
	for k, v := range props {
		key := strings.TrimSpace(k)
		if key == "" {
			return apperrors.NewValidation("properties", "property keys must not be empty")
		}
		if prefix != "" {
			key = prefix + "_" + key
		}

		if nested, ok := v.(map[string]interface{}); ok {
			if err := flattenInto(out, key, nested); err != nil {
				return err
			}
			continue
		}
		val, err := flattenValue(v)
		if err != nil {
			return apperrors.NewValidation("properties", fmt.Sprintf("key %q: %v", key, err))
		}
		out[key] = val
	}
	return nil
}

func flattenValue(v interface{}) (interface{}, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := scalar(v); ok {
		return s, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		simple := true
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			s, ok := scalar(item)
			if !ok {
				simple = false
				break
			}
			parts = append(parts, fmt.Sprint(s))
		}
		if simple {
			return strings.Join(parts, ", "), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// scalar normalizes the primitive kinds every backend can store natively
func scalar(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float32:
		return normalizeFloat(float64(x)), true
	case float64:
		return normalizeFloat(x), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
		if f, err := x.Float64(); err == nil {
			return normalizeFloat(f), true
		}
		return x.String(), true
	}
	return nil, false
}

func normalizeFloat(f float64) interface{} {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// mergeProperties overlays update onto base: new keys are added, existing
// keys overwritten, nothing removed. Neither input is modified.
func mergeProperties(base, update map[string]interface{}) map[string]interface{} {
	return lo.Assign(map[string]interface{}{}, base, update)
}

// copyProperties returns a shallow copy, never nil
func copyProperties(props map[string]interface{}) map[string]interface{} {
	return lo.Assign(map[string]interface{}{}, props)
}

// NormalizeNodeInput trims the id and label and flattens properties
func NormalizeNodeInput(in NodeInput) (NodeInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Label = strings.TrimSpace(in.Label)
	if in.ID == "" {
		return in, apperrors.NewValidation("id", "must not be empty")
	}
	props, err := FlattenProperties(in.Properties)
	if err != nil {
		return in, err
	}
	if err := rejectReserved(props, nodeKeys); err != nil {
		return in, err
	}
	in.Properties = props
	return in, nil
}

// NormalizeEdgeInput trims endpoints and type and flattens properties
func NormalizeEdgeInput(in EdgeInput) (EdgeInput, error) {
	in.From = strings.TrimSpace(in.From)
	in.To = strings.TrimSpace(in.To)
	in.Type = strings.TrimSpace(in.Type)
	switch {
	case in.From == "":
		return in, apperrors.NewValidation("from_id", "must not be empty")
	case in.To == "":
		return in, apperrors.NewValidation("to_id", "must not be empty")
	case in.Type == "":
		return in, apperrors.NewValidation("type", "must not be empty")
	}
	props, err := FlattenProperties(in.Properties)
	if err != nil {
		return in, err
	}
	if err := rejectReserved(props, edgeKeys); err != nil {
		return in, err
	}
	in.Properties = props
	return in, nil
}

func encodeProperties(props map[string]interface{}) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeProperties(raw string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var generic map[string]interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	for k, v := range generic {
		if s, ok := scalar(v); ok {
			out[k] = s
		} else {
			out[k] = v
		}
	}
	return out, nil
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})
}
