// Package policy evaluates user-supplied CEL expressions against discovered
// resources, dropping anything that matches before topology construction.
package policy

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// Excluder holds compiled exclusion expressions. A resource matching any
// expression is removed from the inventory.
type Excluder struct {
	env      *cel.Env
	programs []cel.Program
	exprs    []string
}

// NewExcluder compiles the expressions against the resource variable set.
// An empty list yields a pass-through excluder.
func NewExcluder(exprs []string) (*Excluder, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("id", decls.String),
			decls.NewVar("kind", decls.String),
			decls.NewVar("region", decls.String),
			decls.NewVar("name", decls.String),
			decls.NewVar("tags", decls.NewMapType(decls.String, decls.String)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	e := &Excluder{env: env, exprs: exprs}
	for _, expr := range exprs {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("exclude expression %q: %w", expr, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("exclude expression %q: %w", expr, err)
		}
		e.programs = append(e.programs, prg)
	}
	return e, nil
}

// Excluded reports whether any expression matches the resource. Evaluation
// errors (e.g. a type mismatch at runtime) are logged and treated as
// non-matches so one bad expression cannot blank the diagram.
func (e *Excluder) Excluded(r *catalog.Resource) bool {
	if len(e.programs) == 0 {
		return false
	}

	tags := r.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	vars := map[string]interface{}{
		"id":     r.ID,
		"kind":   string(r.Kind),
		"region": r.Region,
		"name":   r.Name(),
		"tags":   tags,
	}

	for i, prg := range e.programs {
		out, _, err := prg.Eval(vars)
		if err != nil {
			slog.Error("Exclude expression evaluation failed", "expr", e.exprs[i], "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			return true
		}
	}
	return false
}

// Apply filters a slice of resources, returning the survivors and the number
// removed.
func (e *Excluder) Apply(resources []*catalog.Resource) ([]*catalog.Resource, int) {
	if len(e.programs) == 0 {
		return resources, 0
	}
	out := make([]*catalog.Resource, 0, len(resources))
	removed := 0
	for _, r := range resources {
		if e.Excluded(r) {
			removed++
			continue
		}
		out = append(out, r)
	}
	return out, removed
}

// FilterCatalog rebuilds the catalog without excluded resources. The catalog
// is immutable after merge, so filtering means re-merging the survivors.
// Rule sets are kept; rules attached only to excluded resources simply stop
// producing edges.
func (e *Excluder) FilterCatalog(c *catalog.Catalog) (*catalog.Catalog, int) {
	if len(e.programs) == 0 {
		return c, 0
	}

	byRegion := make(map[string]*catalog.Slice)
	region := func(name string) *catalog.Slice {
		if s, ok := byRegion[name]; ok {
			return s
		}
		s := &catalog.Slice{Region: name}
		byRegion[name] = s
		return s
	}

	removed := 0
	for _, r := range c.Resources() {
		if e.Excluded(r) {
			removed++
			continue
		}
		s := region(r.Region)
		s.Resources = append(s.Resources, *r)
	}
	for _, rs := range c.RuleSets() {
		s := region(rs.Region)
		s.RuleSets = append(s.RuleSets, *rs)
	}

	slices := make([]catalog.Slice, 0, len(byRegion))
	for _, s := range byRegion {
		slices = append(slices, *s)
	}
	return catalog.Merge(slices, c.Metadata()), removed
}
