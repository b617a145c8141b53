// Package expr defines the rule expression language: a small tagged-variant
// AST exchanged as JSON documents. Conditions are boolean trees over field
// comparisons; actions are ordered lists of decision mutations. The
// evaluator is total and side-effect-free; it never executes source code.
package expr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Comparison operators.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpIn       = "in"
	OpContains = "contains"
)

// Condition is one node of the boolean tree. Exactly one variant field is
// set; a zero Condition is invalid.
type Condition struct {
	Compare *Compare    `json:"compare,omitempty"`
	All     []Condition `json:"all,omitempty"`
	Any     []Condition `json:"any,omitempty"`
	Not     *Condition  `json:"not,omitempty"`
}

// Compare tests one execution-context field against a literal.
type Compare struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// ParseCondition decodes a condition document.
func ParseCondition(raw []byte) (Condition, error) {
	var cond Condition
	if len(raw) == 0 {
		return cond, fmt.Errorf("empty condition document")
	}
	if err := json.Unmarshal(raw, &cond); err != nil {
		return cond, fmt.Errorf("parse condition: %w", err)
	}
	return cond, nil
}

// Eval evaluates the condition against a dotted-path execution context.
func Eval(cond Condition, ctx map[string]any) (bool, error) {
	switch {
	case cond.Compare != nil:
		return evalCompare(*cond.Compare, ctx)
	case len(cond.All) > 0:
		for _, child := range cond.All {
			ok, err := Eval(child, ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case len(cond.Any) > 0:
		for _, child := range cond.Any {
			ok, err := Eval(child, ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case cond.Not != nil:
		ok, err := Eval(*cond.Not, ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		return false, fmt.Errorf("condition node has no variant")
	}
}

func evalCompare(cmp Compare, ctx map[string]any) (bool, error) {
	value, ok := Lookup(ctx, cmp.Field)
	if !ok {
		return false, fmt.Errorf("unknown field %q", cmp.Field)
	}

	switch cmp.Op {
	case OpEq, OpNe:
		equal, err := looseEqual(value, cmp.Value)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", cmp.Field, err)
		}
		if cmp.Op == OpNe {
			return !equal, nil
		}
		return equal, nil
	case OpGt, OpGte, OpLt, OpLte:
		left, err := toNumber(value)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", cmp.Field, err)
		}
		right, err := toNumber(cmp.Value)
		if err != nil {
			return false, fmt.Errorf("field %q comparand: %w", cmp.Field, err)
		}
		switch cmp.Op {
		case OpGt:
			return left > right, nil
		case OpGte:
			return left >= right, nil
		case OpLt:
			return left < right, nil
		default:
			return left <= right, nil
		}
	case OpIn:
		list, ok := cmp.Value.([]any)
		if !ok {
			return false, fmt.Errorf("field %q: in operator needs a list", cmp.Field)
		}
		for _, candidate := range list {
			equal, err := looseEqual(value, candidate)
			if err != nil {
				return false, fmt.Errorf("field %q: %w", cmp.Field, err)
			}
			if equal {
				return true, nil
			}
		}
		return false, nil
	case OpContains:
		haystack, ok := value.(string)
		if !ok {
			return false, fmt.Errorf("field %q: contains operator needs a string field", cmp.Field)
		}
		needle, ok := cmp.Value.(string)
		if !ok {
			return false, fmt.Errorf("field %q: contains operator needs a string comparand", cmp.Field)
		}
		return strings.Contains(haystack, needle), nil
	default:
		return false, fmt.Errorf("unknown operator %q", cmp.Op)
	}
}

// Lookup resolves a dotted path against nested maps.
func Lookup(ctx map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = ctx
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func looseEqual(left, right any) (bool, error) {
	leftNum, leftErr := toNumber(left)
	rightNum, rightErr := toNumber(right)
	if leftErr == nil && rightErr == nil {
		return leftNum == rightNum, nil
	}

	switch l := left.(type) {
	case string:
		r, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare string with %T", right)
		}
		return l == r, nil
	case bool:
		r, ok := right.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare bool with %T", right)
		}
		return l == r, nil
	default:
		return false, fmt.Errorf("unsupported comparison between %T and %T", left, right)
	}
}

func toNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("%T is not numeric", value)
	}
}
