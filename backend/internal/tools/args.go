package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/graph"
	apperrors "kinship/backend/pkg/errors"
)

// Arguments arrive as decoded JSON, so numbers may be float64 (plain
// json.Unmarshal), json.Number (adapter.ParseArguments) or strings typed
// by a model. These helpers accept all three.

// firstArg returns the first present key among names
func firstArg(args map[string]interface{}, names ...string) (interface{}, string, bool) {
	for _, name := range names {
		if v, ok := args[name]; ok && v != nil {
			return v, name, true
		}
	}
	return nil, names[0], false
}

func stringArg(args map[string]interface{}, names ...string) (string, bool, error) {
	v, name, ok := firstArg(args, names...)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, apperrors.NewValidation(name, "must be a string")
	}
	return s, true, nil
}

func requiredString(args map[string]interface{}, names ...string) (string, error) {
	s, ok, err := stringArg(args, names...)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(s) == "" {
		return "", apperrors.NewValidation(names[0], "is required")
	}
	return s, nil
}

func optionalString(args map[string]interface{}, names ...string) (string, error) {
	s, _, err := stringArg(args, names...)
	return s, err
}

func intArg(args map[string]interface{}, names ...string) (int64, bool, error) {
	v, name, ok := firstArg(args, names...)
	if !ok {
		return 0, false, nil
	}

	invalid := apperrors.NewValidation(name, "must be an integer")
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false, invalid
		}
		return int64(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, invalid
		}
		return i, true, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false, nil
		}
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false, invalid
		}
		return i, true, nil
	default:
		return 0, false, invalid
	}
}

func requiredInt(args map[string]interface{}, names ...string) (int64, error) {
	i, ok, err := intArg(args, names...)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperrors.NewValidation(names[0], "is required")
	}
	return i, nil
}

func optionalInt(args map[string]interface{}, names ...string) (*int64, error) {
	i, ok, err := intArg(args, names...)
	if err != nil || !ok {
		return nil, err
	}
	return &i, nil
}

// requiredSlot reads a slot number. Range checking is left to the store so
// out-of-range slots surface as InvalidSlot rather than a validation error.
func requiredSlot(args map[string]interface{}) (int, error) {
	n, err := requiredInt(args, "fact_number", "slot")
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, apperrors.NewInvalidSlot(int(lo.Clamp(n, math.MinInt32, math.MaxInt32)), constants.FactSlotCount)
	}
	return int(n), nil
}

func mapArg(args map[string]interface{}, names ...string) (map[string]interface{}, error) {
	v, name, ok := firstArg(args, names...)
	if !ok {
		return nil, nil
	}
	m, isMap := v.(map[string]interface{})
	if !isMap {
		return nil, apperrors.NewValidation(name, "must be an object")
	}
	return m, nil
}

// listArg reads an array argument without looking at its entries, so one
// malformed entry can be reported on its own.
func listArg(args map[string]interface{}, name string) ([]interface{}, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	raw, isList := v.([]interface{})
	if !isList {
		return nil, apperrors.NewValidation(name, "must be an array")
	}
	return raw, nil
}

// entryArg asserts that entry i of list name is an object
func entryArg(name string, i int, raw interface{}) (map[string]interface{}, error) {
	m, isMap := raw.(map[string]interface{})
	if !isMap {
		return nil, apperrors.NewValidation(fmt.Sprintf("%s[%d]", name, i), "must be an object")
	}
	return m, nil
}

func nodeInputArg(args map[string]interface{}) (graph.NodeInput, error) {
	id, err := optionalString(args, "id", "node_id")
	if err != nil {
		return graph.NodeInput{}, err
	}
	label, err := optionalString(args, "label")
	if err != nil {
		return graph.NodeInput{}, err
	}
	props, err := mapArg(args, "properties")
	if err != nil {
		return graph.NodeInput{}, err
	}
	return graph.NodeInput{ID: id, Label: label, Properties: props}, nil
}

func edgeInputArg(args map[string]interface{}) (graph.EdgeInput, error) {
	from, err := optionalString(args, "from_id", "from")
	if err != nil {
		return graph.EdgeInput{}, err
	}
	to, err := optionalString(args, "to_id", "to")
	if err != nil {
		return graph.EdgeInput{}, err
	}
	relType, err := optionalString(args, "type", "relationship", "relationship_type")
	if err != nil {
		return graph.EdgeInput{}, err
	}
	props, err := mapArg(args, "properties")
	if err != nil {
		return graph.EdgeInput{}, err
	}
	return graph.EdgeInput{From: from, To: to, Type: relType, Properties: props}, nil
}
