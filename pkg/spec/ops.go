package spec

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/sluice/pkg/pipeline"
)

var errArgs = errors.New("invalid arguments")

func builtinOps() map[string]OpFunc {
	return map[string]OpFunc{
		"parse_int":       parseInt,
		"parse_float":     simple((*pipeline.Item).ParseFloat),
		"parse_date":      dateOp((*pipeline.Item).ParseDate),
		"parse_datetime":  dateOp((*pipeline.Item).ParseDateTime),
		"format_date":     dateOp((*pipeline.Item).FormatDate),
		"format_datetime": dateOp((*pipeline.Item).FormatDateTime),
		"parse_bool":      parseBool,
		"format_bool":     formatBool,
		"format_string":   formatString,
		"lookup":          lookup,
		"default":         defaultOp,
		"replace":         replace,
		"replace_regexp":  replaceRegexp,
		"trim":            simple((*pipeline.Item).Trim),
		"split":           split,
		"join":            join,
		"split_kv":        splitKV,
		"join_kv":         joinKV,
		"extract":         extract,
		"compact":         simple((*pipeline.Item).Compact),
		"coalesce":        simple((*pipeline.Item).Coalesce),
		"apply":           apply,
		"filter":          filter,
		"map":             mapOp,
		"parse_json":      enterOp((*pipeline.Item).ParseJSON),
		"parse_yaml":      enterOp((*pipeline.Item).ParseYAML),
		"enter":           enterOp((*pipeline.Item).Enter),
		"match":           match,
		"each":            each,
		"uuid":            newUUID,
		"inspect":         simple((*pipeline.Item).Inspect),
	}
}

// simple adapts an argument-less Item method.
func simple(fn func(*pipeline.Item) *pipeline.Item) OpFunc {
	return func(_ *Compiler, args any) (pipeline.ItemPipeline, error) {
		if args != nil {
			return nil, fmt.Errorf("%w: takes none, got %v", errArgs, args)
		}
		return func(it *pipeline.Item) error {
			fn(it)
			return nil
		}, nil
	}
}

func parseInt(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	base := 10
	if args != nil {
		if err := c.Decode(args, &base); err != nil {
			return nil, err
		}
	}
	return func(it *pipeline.Item) error {
		it.ParseInt(base)
		return nil
	}, nil
}

type dateArgs struct {
	Layout   string `mapstructure:"layout"`
	ZeroDate bool   `mapstructure:"zero_date"`
	Location string `mapstructure:"location"`
}

func dateOp(fn func(*pipeline.Item, string, ...pipeline.DateOption) *pipeline.Item) OpFunc {
	return func(c *Compiler, args any) (pipeline.ItemPipeline, error) {
		var a dateArgs
		switch v := args.(type) {
		case nil:
		case string:
			a.Layout = v
		default:
			if err := c.Decode(args, &a); err != nil {
				return nil, err
			}
		}
		var opts []pipeline.DateOption
		if a.ZeroDate {
			opts = append(opts, pipeline.ZeroDate())
		}
		if a.Location != "" {
			loc, err := time.LoadLocation(a.Location)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pipeline.InLocation(loc))
		}
		return func(it *pipeline.Item) error {
			fn(it, a.Layout, opts...)
			return nil
		}, nil
	}
}

type boolArgs struct {
	True  []any `mapstructure:"true"`
	False []any `mapstructure:"false"`
}

func parseBool(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	if args == nil {
		return func(it *pipeline.Item) error {
			it.ParseBool()
			return nil
		}, nil
	}
	var a boolArgs
	if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	if a.True == nil {
		a.True = pipeline.DefaultTrueValues
	}
	if a.False == nil {
		a.False = pipeline.DefaultFalseValues
	}
	return func(it *pipeline.Item) error {
		it.ParseBoolWith(a.True, a.False)
		return nil
	}, nil
}

type formatBoolArgs struct {
	True  any `mapstructure:"true"`
	False any `mapstructure:"false"`
}

func formatBool(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	a := formatBoolArgs{True: "Yes", False: "No"}
	switch v := args.(type) {
	case nil:
	case []any:
		if len(v) != 2 {
			return nil, fmt.Errorf("%w: want [true, false], got %v", errArgs, v)
		}
		a.True, a.False = v[0], v[1]
	default:
		if err := c.Decode(args, &a); err != nil {
			return nil, err
		}
	}
	return func(it *pipeline.Item) error {
		it.FormatBool(a.True, a.False)
		return nil
	}, nil
}

func formatString(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var template string
	if args != nil {
		if err := c.Decode(args, &template); err != nil {
			return nil, err
		}
	}
	return func(it *pipeline.Item) error {
		it.FormatString(template)
		return nil
	}, nil
}

type lookupArgs struct {
	Table          string `mapstructure:"table"`
	PassIfNotFound bool   `mapstructure:"pass_if_not_found"`
	Warn           *bool  `mapstructure:"warn"`
	Fallback       any    `mapstructure:"fallback"`
}

func lookup(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var a lookupArgs
	if name, ok := args.(string); ok {
		a.Table = name
	} else if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	if a.Table == "" {
		return nil, fmt.Errorf("%w: table is required", errArgs)
	}

	var opts []pipeline.LookupOption
	if a.PassIfNotFound {
		opts = append(opts, pipeline.PassIfNotFound())
	}
	if a.Warn != nil {
		opts = append(opts, pipeline.WarnIfNotFound(*a.Warn))
	}
	if a.Fallback != nil {
		fallback, err := c.Ops(a.Fallback)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.ApplyIfNotFound(fallback))
	}

	if t, ok := c.Table(a.Table); ok {
		return func(it *pipeline.Item) error {
			it.Lookup(t, opts...)
			return nil
		}, nil
	}
	// Not inline: resolved from the engine registry when the record runs.
	return func(it *pipeline.Item) error {
		it.LookupNamed(a.Table, opts...)
		return nil
	}, nil
}

func defaultOp(_ *Compiler, args any) (pipeline.ItemPipeline, error) {
	return func(it *pipeline.Item) error {
		it.Default(args)
		return nil
	}, nil
}

type replaceArgs struct {
	Old     string `mapstructure:"old"`
	New     string `mapstructure:"new"`
	Pattern string `mapstructure:"pattern"`
	With    string `mapstructure:"with"`
}

func replace(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var a replaceArgs
	if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	if a.Old == "" {
		return nil, fmt.Errorf("%w: old is required", errArgs)
	}
	return func(it *pipeline.Item) error {
		it.Replace(a.Old, a.New)
		return nil
	}, nil
}

func replaceRegexp(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var a replaceArgs
	if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	if a.Pattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", errArgs)
	}
	return func(it *pipeline.Item) error {
		it.ReplaceRegexp(a.Pattern, a.With)
		return nil
	}, nil
}

type splitArgs struct {
	Sep    string `mapstructure:"sep"`
	KV     string `mapstructure:"kv"`
	Item   string `mapstructure:"item"`
	Fields any    `mapstructure:"fields"`
}

// body compiles the optional nested steps of structural ops.
func body(c *Compiler, raw any) ([]pipeline.Pipeline, error) {
	p, err := c.Fields(raw)
	if err != nil || p == nil {
		return nil, err
	}
	return []pipeline.Pipeline{p}, nil
}

func split(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var a splitArgs
	if sep, ok := args.(string); ok {
		a.Sep = sep
	} else if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	b, err := body(c, a.Fields)
	if err != nil {
		return nil, err
	}
	return func(it *pipeline.Item) error {
		it.Split(a.Sep, b...)
		return nil
	}, nil
}

func join(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var sep string
	if args != nil {
		if err := c.Decode(args, &sep); err != nil {
			return nil, err
		}
	}
	return func(it *pipeline.Item) error {
		it.Join(sep)
		return nil
	}, nil
}

func kvArgs(c *Compiler, args any) (splitArgs, error) {
	a := splitArgs{Item: "\n"}
	if kv, ok := args.(string); ok {
		a.KV = kv
	} else if err := c.Decode(args, &a); err != nil {
		return a, err
	}
	if a.KV == "" {
		return a, fmt.Errorf("%w: kv is required", errArgs)
	}
	return a, nil
}

func splitKV(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	a, err := kvArgs(c, args)
	if err != nil {
		return nil, err
	}
	b, err := body(c, a.Fields)
	if err != nil {
		return nil, err
	}
	return func(it *pipeline.Item) error {
		it.SplitKV(a.KV, a.Item, b...)
		return nil
	}, nil
}

func joinKV(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	a, err := kvArgs(c, args)
	if err != nil {
		return nil, err
	}
	if a.Fields != nil {
		return nil, fmt.Errorf("%w: join_kv takes no fields", errArgs)
	}
	return func(it *pipeline.Item) error {
		it.JoinKV(a.KV, a.Item)
		return nil
	}, nil
}

func extract(_ *Compiler, args any) (pipeline.ItemPipeline, error) {
	if args == nil {
		return nil, fmt.Errorf("%w: key is required", errArgs)
	}
	key := normalizeKey(args)
	return func(it *pipeline.Item) error {
		it.Extract(key)
		return nil
	}, nil
}

func apply(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var names []string
	if name, ok := args.(string); ok {
		names = []string{name}
	} else if err := c.Decode(args, &names); err != nil {
		return nil, err
	}
	ps := make([]pipeline.ItemPipeline, 0, len(names))
	for _, name := range names {
		p, err := c.pipelineNamed(name)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return func(it *pipeline.Item) error {
		it.Apply(ps...)
		return nil
	}, nil
}

func filter(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	expr, ok := args.(string)
	if !ok {
		return nil, fmt.Errorf("%w: want a CEL expression, got %v", errArgs, args)
	}
	cond, err := c.Condition(expr)
	if err != nil {
		return nil, err
	}
	return func(it *pipeline.Item) error {
		var evalErr error
		it.Filter(func(v any) bool {
			if evalErr != nil {
				return false
			}
			keep, err := cond.Eval(v, nil)
			evalErr = err
			return keep
		})
		return evalErr
	}, nil
}

func mapOp(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	p, err := c.Ops(args)
	if err != nil {
		return nil, err
	}
	return func(it *pipeline.Item) error {
		it.MapItems(p)
		return nil
	}, nil
}

type enterArgs struct {
	Fields any `mapstructure:"fields"`
}

// enterOp adapts the ops that replace the value and enter it, taking either a step list or
// {fields: [...]}.
func enterOp(fn func(*pipeline.Item, ...pipeline.Pipeline) *pipeline.Item) OpFunc {
	return func(c *Compiler, args any) (pipeline.ItemPipeline, error) {
		raw := args
		if _, ok := stringMap(args); ok {
			var a enterArgs
			if err := c.Decode(args, &a); err != nil {
				return nil, err
			}
			raw = a.Fields
		}
		b, err := body(c, raw)
		if err != nil {
			return nil, err
		}
		return func(it *pipeline.Item) error {
			fn(it, b...)
			return nil
		}, nil
	}
}

type matchArgs struct {
	Pattern string `mapstructure:"pattern"`
	Fields  any    `mapstructure:"fields"`
}

func match(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var a matchArgs
	if pattern, ok := args.(string); ok {
		a.Pattern = pattern
	} else if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	if a.Pattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", errArgs)
	}
	b, err := body(c, a.Fields)
	if err != nil {
		return nil, err
	}
	return func(it *pipeline.Item) error {
		it.Match(a.Pattern, b...)
		return nil
	}, nil
}

type eachArgs struct {
	Fields any  `mapstructure:"fields"`
	Flush  bool `mapstructure:"flush"`
	Reset  bool `mapstructure:"reset"`
}

func each(c *Compiler, args any) (pipeline.ItemPipeline, error) {
	var a eachArgs
	if err := c.Decode(args, &a); err != nil {
		return nil, err
	}
	p, err := c.Fields(a.Fields)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: fields are required", errArgs)
	}
	var opts []pipeline.EachOption
	if a.Flush {
		opts = append(opts, pipeline.FlushEach())
	}
	if a.Reset {
		opts = append(opts, pipeline.ResetEach())
	}
	return func(it *pipeline.Item) error {
		it.EachSubrecord(p, opts...)
		return nil
	}, nil
}

// newUUID fills a nil value with a random UUID.
func newUUID(_ *Compiler, args any) (pipeline.ItemPipeline, error) {
	if args != nil {
		return nil, fmt.Errorf("%w: takes none, got %v", errArgs, args)
	}
	return func(it *pipeline.Item) error {
		if it.Value() == nil {
			it.Update(uuid.NewString())
		}
		return nil
	}, nil
}
