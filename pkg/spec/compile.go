package spec

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/cel-go/cel"

	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/registry"
)

// ErrUnknownPipeline is returned when apply names a pipeline the file does not define.
var ErrUnknownPipeline = errors.New("unknown pipeline")

// OpFunc builds an item pipeline from the arguments of one op.
type OpFunc func(c *Compiler, args any) (pipeline.ItemPipeline, error)

// CompileOption configures a Compiler.
type CompileOption func(*Compiler)

// WithOp registers an op under name, replacing any built-in op of that name.
func WithOp(name string, fn OpFunc) CompileOption {
	return func(c *Compiler) {
		c.ops[name] = fn
	}
}

// Compiled is a migration ready to run.
type Compiled struct {
	Migration *Migration
	Pipeline  pipeline.Pipeline
	// Tables holds the inline lookup tables, by name.
	Tables map[string]*registry.MapTable
}

// Register adds the inline lookup tables to r.
func (c *Compiled) Register(r *registry.Registry) {
	for name, t := range c.Tables {
		r.Register(name, t)
	}
}

// Compiler turns a Migration into pipelines. It is single use.
type Compiler struct {
	m      *Migration
	ops    map[string]OpFunc
	env    *cel.Env
	tables map[string]*registry.MapTable

	named  map[string]pipeline.ItemPipeline
	active map[string]bool
	path   string
	errs   []error
}

// Compile checks m and builds its pipeline. Every problem found is reported in one
// *AggregateError.
func Compile(m *Migration, opts ...CompileOption) (*Compiled, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	c := &Compiler{
		m:      m,
		ops:    builtinOps(),
		env:    env,
		tables: make(map[string]*registry.MapTable, len(m.Lookups)),
		named:  make(map[string]pipeline.ItemPipeline),
		active: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	for name, entries := range m.Lookups {
		c.tables[name] = registry.Map(entries)
	}
	for _, name := range slices.Sorted(maps.Keys(m.Pipelines)) {
		if _, err := c.pipelineNamed(name); err != nil {
			c.fail("pipelines."+name, "invalid pipeline", err)
		}
	}
	if len(m.Fields) == 0 {
		c.fail("fields", "no steps", nil)
	}
	p := c.steps("fields", m.Fields)

	if len(c.errs) > 0 {
		return nil, &AggregateError{Errors: c.errs}
	}
	return &Compiled{Migration: m, Pipeline: p, Tables: c.tables}, nil
}

// Validate compiles m and discards the result.
func (m *Migration) Validate(opts ...CompileOption) error {
	_, err := Compile(m, opts...)
	return err
}

// Decode decodes op arguments into out.
func (c *Compiler) Decode(args, out any) error {
	return decode(args, out)
}

// Fields compiles a nested list of steps, as used by ops that enter their value.
// A nil list compiles to nil.
func (c *Compiler) Fields(raw any) (pipeline.Pipeline, error) {
	if raw == nil {
		return nil, nil
	}
	var steps []Step
	if err := decode(raw, &steps); err != nil {
		return nil, err
	}
	return c.steps(c.path+".fields", steps), nil
}

// Ops compiles a nested op list into one item pipeline.
func (c *Compiler) Ops(raw any) (pipeline.ItemPipeline, error) {
	var ops []Op
	if err := decode(raw, &ops); err != nil {
		return nil, err
	}
	return pipeline.Chain(c.opList(c.path+".ops", ops)...), nil
}

// Condition compiles a CEL expression over value and index.
func (c *Compiler) Condition(expr string) (*Condition, error) {
	return CompileCondition(c.env, expr)
}

// Table returns an inline lookup table.
func (c *Compiler) Table(name string) (*registry.MapTable, bool) {
	t, ok := c.tables[name]
	return t, ok
}

func (c *Compiler) fail(path, reason string, err error) {
	c.errs = append(c.errs, &ValidationError{Path: path, Reason: reason, Err: err})
}

func (c *Compiler) pipelineNamed(name string) (pipeline.ItemPipeline, error) {
	if p, ok := c.named[name]; ok {
		return p, nil
	}
	ops, ok := c.m.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	if c.active[name] {
		return nil, fmt.Errorf("pipeline %s applies itself", name)
	}
	c.active[name] = true
	defer delete(c.active, name)

	p := pipeline.Chain(c.opList("pipelines."+name, ops)...)
	c.named[name] = p
	return p, nil
}

func (c *Compiler) opList(path string, ops []Op) []pipeline.ItemPipeline {
	out := make([]pipeline.ItemPipeline, 0, len(ops))
	for i, op := range ops {
		if p := c.op(fmt.Sprintf("%s[%d]", path, i), op); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (c *Compiler) op(path string, op Op) pipeline.ItemPipeline {
	fn, ok := c.ops[op.Name]
	if !ok {
		c.fail(path, op.Name, ErrUnknownOp)
		return nil
	}
	saved := c.path
	c.path = path
	defer func() { c.path = saved }()

	p, err := fn(c, op.Args)
	if err != nil {
		c.fail(path, op.Name, err)
		return nil
	}
	return p
}

func (c *Compiler) steps(path string, steps []Step) pipeline.Pipeline {
	fns := make([]pipeline.Pipeline, 0, len(steps))
	for i, s := range steps {
		if fn := c.step(fmt.Sprintf("%s[%d]", path, i), s); fn != nil {
			fns = append(fns, fn)
		}
	}
	return func(rc pipeline.Context) error {
		for _, fn := range fns {
			if err := fn(rc); err != nil {
				return err
			}
		}
		return nil
	}
}

func (c *Compiler) step(path string, s Step) pipeline.Pipeline {
	kinds := 0
	for _, set := range []bool{s.takes(), s.isStatic(), s.Index, s.Self, s.Flush != nil, s.Reset} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		c.fail(path, "exactly one of take, static, index, self, flush and reset is required", nil)
		return nil
	}

	if s.Flush != nil || s.Reset {
		if len(s.Ops) > 0 || s.Put != "" || s.SkipIf != "" || s.StopIf != "" {
			c.fail(path, "flush and reset steps take no ops, put or conditions", nil)
			return nil
		}
		if s.Reset {
			return func(rc pipeline.Context) error {
				rc.Reset()
				return nil
			}
		}
		reset := s.Flush.Reset == nil || *s.Flush.Reset
		return func(rc pipeline.Context) error {
			return rc.Flush(reset)
		}
	}

	ops := c.opList(path+".ops", s.Ops)
	skipIf := c.condition(path+".skip_if", s.SkipIf)
	stopIf := c.condition(path+".stop_if", s.StopIf)
	key := normalizeKey(s.Take)
	takes, static := s.takes(), s.isStatic()

	return func(rc pipeline.Context) error {
		var it *pipeline.Item
		switch {
		case takes:
			it = rc.Take(key)
		case static:
			it = rc.Static(s.Static)
		case s.Self:
			it = rc.Static(rc.Data())
		default:
			it = rc.Index()
		}
		if err := it.Apply(ops...).Err(); err != nil {
			return err
		}
		if stopIf != nil {
			halt, err := stopIf.Eval(it.Value(), rc.Index().Value())
			if err != nil {
				return err
			}
			if halt {
				return rc.Stop()
			}
		}
		if skipIf != nil {
			skip, err := skipIf.Eval(it.Value(), rc.Index().Value())
			if err != nil {
				return err
			}
			if skip {
				return rc.Skip()
			}
		}
		if s.Put != "" {
			it.Put(s.Put)
		}
		return rc.Err()
	}
}

func (c *Compiler) condition(path, expr string) *Condition {
	if expr == "" {
		return nil
	}
	cond, err := c.Condition(expr)
	if err != nil {
		c.fail(path, "invalid expression", err)
		return nil
	}
	return cond
}

// normalizeKey turns integral JSON numbers into positions.
func normalizeKey(k any) any {
	if f, ok := k.(float64); ok && f == float64(int(f)) {
		return int(f)
	}
	return k
}
