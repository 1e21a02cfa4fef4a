package domain

import "fmt"

// ConditionOp tags a node of the guard expression tree.
type ConditionOp string

const (
	OpLiteral ConditionOp = "literal" // fixed true/false
	OpEq      ConditionOp = "eq"
	OpNe      ConditionOp = "ne"
	OpLt      ConditionOp = "lt"
	OpLe      ConditionOp = "le"
	OpGt      ConditionOp = "gt"
	OpGe      ConditionOp = "ge"
	OpAnd     ConditionOp = "and"
	OpOr      ConditionOp = "or"
	OpNot     ConditionOp = "not"
)

// Condition is a closed, data-only guard expression. Comparison nodes name a
// context field and a literal value; logical nodes nest conditions in Args.
// There is no way to express a call or a side effect, so definitions are safe
// to author without code review.
type Condition struct {
	Op    ConditionOp  `json:"op"`
	Field string       `json:"field,omitempty"`
	Value any          `json:"value,omitempty"`
	Args  []*Condition `json:"args,omitempty"`
}

// Validate checks the node shape recursively. It does not touch context
// fields; absence of a referenced field is a run-time evaluation error.
func (c *Condition) Validate() error {
	if c == nil {
		return fmt.Errorf("condition is nil")
	}
	switch c.Op {
	case OpLiteral:
		if _, ok := c.Value.(bool); !ok {
			return fmt.Errorf("literal condition needs a boolean value")
		}
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		if c.Field == "" {
			return fmt.Errorf("%s condition needs a field", c.Op)
		}
		if c.Value == nil {
			return fmt.Errorf("%s condition on %q needs a value", c.Op, c.Field)
		}
	case OpAnd, OpOr:
		if len(c.Args) < 2 {
			return fmt.Errorf("%s condition needs at least two arguments", c.Op)
		}
		for _, arg := range c.Args {
			if err := arg.Validate(); err != nil {
				return err
			}
		}
	case OpNot:
		if len(c.Args) != 1 {
			return fmt.Errorf("not condition needs exactly one argument")
		}
		return c.Args[0].Validate()
	default:
		return fmt.Errorf("unknown condition op %q", c.Op)
	}
	return nil
}
