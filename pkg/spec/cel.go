package spec

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/pipeline"
)

// Condition is a compiled CEL expression over the current value.
// Expressions see two variables: value (the item value) and index (the record position).
type Condition struct {
	expr string
	prg  cel.Program
}

// NewEnv creates the CEL environment conditions are compiled in.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("index", cel.DynType),
	)
}

// CompileCondition compiles a boolean CEL expression.
func CompileCondition(env *cel.Env, expr string) (*Condition, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression %q yields %s, want bool", expr, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}
	return &Condition{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (c *Condition) String() string { return c.expr }

// Eval evaluates the condition. A non-boolean result is an error.
func (c *Condition) Eval(value, index any) (bool, error) {
	out, _, err := c.prg.Eval(map[string]any{
		"value": celValue(value),
		"index": celValue(index),
	})
	if err != nil {
		return false, domain.NewValueError("cel", value, fmt.Errorf("%s: %w", c.expr, err))
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, domain.NewValueError("cel", value, fmt.Errorf("%s: result %v is not a bool", c.expr, out.Value()))
	}
	return b, nil
}

type mapper interface {
	Map() map[string]any
}

// celValue turns records into plain maps and lists the CEL type adapter understands.
func celValue(v any) any {
	switch x := v.(type) {
	case mapper:
		return x.Map()
	case pipeline.Elements:
		return x.Elements()
	}
	return v
}
