package policy

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"github.com/shopspring/decimal"

	"github.com/roach88/guardrail/internal/graph"
	"github.com/roach88/guardrail/internal/ledger"
)

//go:embed schema.cue
var schemaSource string

//go:embed default.cue
var defaultSource string

// Default returns the built-in policy. It panics if the embedded policy
// does not compile, which only a broken build can cause.
func Default() *Policy {
	p, err := LoadString("default.cue", defaultSource)
	if err != nil {
		panic(fmt.Sprintf("policy: built-in policy: %v", err))
	}
	p.Source = "built-in"
	return p
}

// LoadString compiles CUE source. name is used in error positions.
func LoadString(name, src string) (*Policy, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}
	p, err := compile(ctx, v)
	if err != nil {
		return nil, err
	}
	p.Source = name
	return p, nil
}

// LoadFile reads and compiles a single policy file.
func LoadFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Field: "file", Message: fmt.Sprintf("read policy: %v", err)}
	}
	return LoadString(path, string(data))
}

// LoadDir loads every .cue file in dir as one CUE instance. The files must
// share a package clause, or have none.
func LoadDir(dir string) (*Policy, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("policy directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil || len(files) == 0 {
		return nil, &LoadError{Field: "dir", Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Field: "dir", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("load", inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError("build", err)
	}

	p, err := compile(ctx, v)
	if err != nil {
		return nil, err
	}
	p.Source = dir
	return p, nil
}

// Load picks LoadDir or LoadFile by looking at path. An empty path is the
// built-in policy.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Field: "file", Message: fmt.Sprintf("policy: %v", err)}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// compile unifies v with #Policy and extracts the Go form.
func compile(ctx *cue.Context, v cue.Value) (*Policy, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError("schema", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Policy")).Unify(v)
	if err := unified.Validate(); err != nil {
		return nil, formatCUEError("policy", err)
	}

	p := &Policy{}
	var err error

	if p.TaxonomyPrefix, err = stringAt(unified, "taxonomy.prefix"); err != nil {
		return nil, err
	}
	if p.Industries, err = stringsAt(unified, "taxonomy.industries"); err != nil {
		return nil, err
	}
	if p.Modules, err = stringsAt(unified, "taxonomy.modules"); err != nil {
		return nil, err
	}
	if p.AllowOpaqueOrgIDs, err = boolAt(unified, "isolation.allow_opaque_org_ids"); err != nil {
		return nil, err
	}
	if p.Ledger, err = compileLedger(unified); err != nil {
		return nil, err
	}
	if p.StrictRelationshipTypes, err = boolAt(unified, "relationships.strict"); err != nil {
		return nil, err
	}
	if p.Relationships, err = compileRules(unified); err != nil {
		return nil, err
	}
	if err := graph.ValidateRules(p.Relationships); err != nil {
		return nil, &LoadError{Field: "relationships.types", Message: err.Error()}
	}

	return p, nil
}

func compileLedger(v cue.Value) (ledger.Config, error) {
	cfg := ledger.Config{}
	var err error

	if cfg.GLLineTypes, err = stringsAt(v, "ledger.gl_line_types"); err != nil {
		return cfg, err
	}
	sign, err := stringAt(v, "ledger.sign_convention")
	if err != nil {
		return cfg, err
	}
	cfg.Sign = ledger.SignConvention(sign)

	if cfg.Epsilon, err = decimalOf("ledger.epsilon", lookup(v, "ledger.epsilon")); err != nil {
		return cfg, err
	}

	iter, err := lookup(v, "ledger.currency_epsilon").Fields()
	if err != nil {
		return cfg, formatCUEError("ledger.currency_epsilon", err)
	}
	for iter.Next() {
		if cfg.CurrencyEpsilon == nil {
			cfg.CurrencyEpsilon = make(map[string]decimal.Decimal)
		}
		field := "ledger.currency_epsilon." + iter.Label()
		eps, err := decimalOf(field, iter.Value())
		if err != nil {
			return cfg, err
		}
		cfg.CurrencyEpsilon[iter.Label()] = eps
	}
	return cfg, nil
}

func compileRules(v cue.Value) ([]graph.Rule, error) {
	iter, err := lookup(v, "relationships.types").Fields()
	if err != nil {
		return nil, formatCUEError("relationships.types", err)
	}

	rules := []graph.Rule{}
	for iter.Next() {
		name := iter.Label()
		rv := iter.Value()
		rule := graph.Rule{Type: name}
		if rule.From, err = stringsAt(rv, "from"); err != nil {
			return nil, err
		}
		if rule.To, err = stringsAt(rv, "to"); err != nil {
			return nil, err
		}
		if rule.Hierarchical, err = boolAt(rv, "hierarchical"); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Type < rules[j].Type })
	return rules, nil
}

// lookup resolves a path, taking the default of a disjunction.
func lookup(v cue.Value, path string) cue.Value {
	val := v.LookupPath(cue.ParsePath(path))
	if def, ok := val.Default(); ok {
		return def
	}
	return val
}

func stringAt(v cue.Value, path string) (string, error) {
	s, err := lookup(v, path).String()
	if err != nil {
		return "", formatCUEError(path, err)
	}
	return s, nil
}

func boolAt(v cue.Value, path string) (bool, error) {
	b, err := lookup(v, path).Bool()
	if err != nil {
		return false, formatCUEError(path, err)
	}
	return b, nil
}

func stringsAt(v cue.Value, path string) ([]string, error) {
	list, err := lookup(v, path).List()
	if err != nil {
		return nil, formatCUEError(path, err)
	}
	out := []string{}
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(path, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// decimalOf reads a CUE number without going through float64.
func decimalOf(path string, v cue.Value) (decimal.Decimal, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return decimal.Decimal{}, formatCUEError(path, err)
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return decimal.Decimal{}, &LoadError{Field: path, Message: fmt.Sprintf("not a decimal: %s", raw), Pos: v.Pos()}
	}
	return d, nil
}
