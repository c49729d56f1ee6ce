package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/litetable/litetable-access/internal/codec"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/rs/zerolog/log"
)

var ErrCompile = errors.New("filter compile error")

const defaultCacheSize = 256

// Compiler turns query text into filters. Compiled programs are cached per schema and text,
// so a query that is rendered with different parameters is only compiled once.
type Compiler struct {
	programs *lru.Cache[string, cel.Program]
}

type Config struct {
	// CacheSize is the number of compiled programs kept. Zero uses the default.
	CacheSize int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.CacheSize < 0 {
		errGrp = append(errGrp, fmt.Errorf("cache size cannot be negative: %d", c.CacheSize))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Compiler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	size := cfg.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	programs, err := lru.New[string, cel.Program](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}
	return &Compiler{programs: programs}, nil
}

// Compile builds the filter used by scans. Blank text yields a nil filter.
func (c *Compiler) Compile(text string, schema codec.Schema, params map[string]any) (*Filter,
	error) {
	if IsBlank(text) {
		return nil, nil
	}
	src, err := newSource(text, schema, params)
	if err != nil {
		return nil, err
	}
	return c.FromSource(src)
}

// CompileForCount builds the filter used by aggregate counts. On top of the scan predicate
// the row must carry the counting cell, so a filtered count never exceeds the unfiltered one.
func (c *Compiler) CompileForCount(text string, schema codec.Schema, params map[string]any,
	count litetable.Column) (*Filter, error) {
	if IsBlank(text) {
		return nil, nil
	}
	src, err := newSource(text, schema, params)
	if err != nil {
		return nil, err
	}
	src.Require = &count
	return c.FromSource(src)
}

// FromSource rebuilds a filter from its portable form.
func (c *Compiler) FromSource(src Source) (*Filter, error) {
	program, err := c.program(src.Expr, src.Schema)
	if err != nil {
		return nil, err
	}

	params := make(map[string]any, len(src.Params))
	for name, v := range src.Params {
		decoded, err := v.Interface()
		if err != nil {
			return nil, fmt.Errorf("%w: param %s: %v", ErrCompile, name, err)
		}
		params[name] = decoded
	}

	return &Filter{
		source:  src,
		program: program,
		params:  params,
	}, nil
}

func newSource(text string, schema codec.Schema, params map[string]any) (Source, error) {
	src := Source{
		Expr:   strings.TrimSpace(text),
		Schema: schema,
	}
	if len(params) > 0 {
		src.Params = make(map[string]codec.Value, len(params))
		for name, p := range params {
			v, err := codec.ValueOf(p)
			if err != nil {
				return Source{}, fmt.Errorf("%w: param %s: %v", ErrCompile, name, err)
			}
			src.Params[name] = v
		}
	}
	return src, nil
}

func (c *Compiler) program(expr string, schema codec.Schema) (cel.Program, error) {
	key := cacheKey(expr, schema)
	if p, ok := c.programs.Get(key); ok {
		return p, nil
	}

	env, err := newEnv(schema)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q must be a boolean expression, got %s", ErrCompile, expr,
			ast.OutputType())
	}
	p, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, expr, err)
	}

	log.Debug().Str("schema", schema.Name).Msgf("compiled filter %q", expr)
	c.programs.Add(key, p)
	return p, nil
}

func newEnv(schema codec.Schema) (*cel.Env, error) {
	opts := []cel.EnvOption{
		cel.Variable(paramsVariable, cel.MapType(cel.StringType, cel.DynType)),
	}
	for _, col := range schema.Columns {
		if col.Name == paramsVariable {
			return nil, fmt.Errorf("%w: column name %q is reserved", ErrCompile, col.Name)
		}
		typ, err := celType(col.Kind)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cel.Variable(col.Name, typ))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %s: %v", ErrCompile, schema.Name, err)
	}
	return env, nil
}

func celType(kind codec.Kind) (*cel.Type, error) {
	switch kind {
	case codec.KindString:
		return cel.StringType, nil
	case codec.KindInt64:
		return cel.IntType, nil
	case codec.KindFloat64:
		return cel.DoubleType, nil
	case codec.KindBool:
		return cel.BoolType, nil
	case codec.KindBytes:
		return cel.BytesType, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrCompile, kind)
}

func cacheKey(expr string, schema codec.Schema) string {
	var sb strings.Builder
	sb.WriteString(schema.Name)
	for _, c := range schema.Columns {
		sb.WriteString("|")
		sb.WriteString(c.Name)
		sb.WriteString(":")
		sb.WriteString(string(c.Kind))
	}
	sb.WriteString("\x00")
	sb.WriteString(expr)
	return sb.String()
}
