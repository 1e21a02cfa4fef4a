package engine

import (
	"fmt"
	"time"

	"github.com/docuflow/docuflow/pkg/docuflow/domain"
)

// EvaluateCondition interprets a guard expression against the merged field
// map (execution variables over document metadata). It is a pure, data-only
// interpreter: no calls, no code, no defaults. A missing field or a malformed
// node yields domain.ErrEvaluation rather than silently picking a branch.
func EvaluateCondition(cond *domain.Condition, fields map[string]any) (bool, error) {
	if cond == nil {
		return false, fmt.Errorf("%w: nil condition", domain.ErrEvaluation)
	}
	switch cond.Op {
	case domain.OpLiteral:
		b, ok := cond.Value.(bool)
		if !ok {
			return false, fmt.Errorf("%w: literal value %v is not a boolean", domain.ErrEvaluation, cond.Value)
		}
		return b, nil

	case domain.OpAnd:
		if len(cond.Args) < 2 {
			return false, fmt.Errorf("%w: and needs at least two arguments", domain.ErrEvaluation)
		}
		for _, arg := range cond.Args {
			ok, err := EvaluateCondition(arg, fields)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case domain.OpOr:
		if len(cond.Args) < 2 {
			return false, fmt.Errorf("%w: or needs at least two arguments", domain.ErrEvaluation)
		}
		for _, arg := range cond.Args {
			ok, err := EvaluateCondition(arg, fields)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case domain.OpNot:
		if len(cond.Args) != 1 {
			return false, fmt.Errorf("%w: not needs exactly one argument", domain.ErrEvaluation)
		}
		ok, err := EvaluateCondition(cond.Args[0], fields)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case domain.OpEq, domain.OpNe, domain.OpLt, domain.OpLe, domain.OpGt, domain.OpGe:
		return evaluateComparison(cond, fields)

	default:
		return false, fmt.Errorf("%w: unknown op %q", domain.ErrEvaluation, cond.Op)
	}
}

func evaluateComparison(cond *domain.Condition, fields map[string]any) (bool, error) {
	actual, ok := fields[cond.Field]
	if !ok {
		return false, fmt.Errorf("%w: field %q is not present", domain.ErrEvaluation, cond.Field)
	}

	// Equality works across every comparable shape including booleans.
	if cond.Op == domain.OpEq || cond.Op == domain.OpNe {
		eq, err := valuesEqual(actual, cond.Value)
		if err != nil {
			return false, fmt.Errorf("%w: field %q: %v", domain.ErrEvaluation, cond.Field, err)
		}
		if cond.Op == domain.OpNe {
			return !eq, nil
		}
		return eq, nil
	}

	c, err := compareValues(actual, cond.Value)
	if err != nil {
		return false, fmt.Errorf("%w: field %q: %v", domain.ErrEvaluation, cond.Field, err)
	}
	switch cond.Op {
	case domain.OpLt:
		return c < 0, nil
	case domain.OpLe:
		return c <= 0, nil
	case domain.OpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func valuesEqual(a, b any) (bool, error) {
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare boolean with %T", b)
		}
		return ab == bb, nil
	}
	c, err := compareValues(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// compareValues orders two values: both numeric, both time-like, or both
// strings. Anything else is an error.
func compareValues(a, b any) (int, error) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare number with %T", b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}

	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare date with %T", b)
		}
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		}
		return 0, nil
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("values %T and %T are not comparable", a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}
