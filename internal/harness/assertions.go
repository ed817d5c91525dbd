package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// matchExpect checks expected against actual (subset semantics) and returns
// one message per mismatching or unknown key, in key order.
func matchExpect(actual State, expected map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []string
	for _, key := range keys {
		actualVal, exists := actual[key]
		if !exists {
			errs = append(errs, fmt.Sprintf("unknown field %q", key))
			continue
		}
		if !valuesEqual(actualVal, expected[key]) {
			errs = append(errs, fmt.Sprintf("%s: expected %v, got %v", key, expected[key], actualVal))
		}
	}
	return errs
}

// valuesEqual compares values after a JSON round trip, so YAML ints match
// Go ints and YAML sequences match typed slices.
func valuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	a, errA := normalize(actual)
	e, errE := normalize(expected)
	if errA != nil || errE != nil {
		return false
	}
	return reflect.DeepEqual(a, e)
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
