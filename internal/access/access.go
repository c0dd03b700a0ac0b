// Package access owns the single table of protected routes. Both the page
// level auth gate and the API wrapper's independent session re-check read
// from the same table so the two cannot drift.
//
// The table is built once at startup and never mutated afterwards.
package access

import "strings"

// Protection is the identity requirement for a path.
type Protection int

const (
	// Public paths are served without a session.
	Public Protection = iota
	// RequiresSession paths need a valid, unexpired session.
	RequiresSession
)

// String returns a readable name for logs.
func (p Protection) String() string {
	if p == RequiresSession {
		return "requires_session"
	}
	return "public"
}

// wildcardSuffix marks a pattern that also covers everything below it.
const wildcardSuffix = "/:path*"

// RouteSpec is a declared path pattern and its protection requirement.
type RouteSpec struct {
	// Pattern is an exact path ("/dashboard") or a prefix with a trailing
	// wildcard segment ("/settings/:path*").
	Pattern string

	// Protection is what the pattern requires.
	Protection Protection
}

// matches reports whether path (already normalized) falls under the route spec.
func (s RouteSpec) matches(path string) bool {
	if prefix, ok := strings.CutSuffix(s.Pattern, wildcardSuffix); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == s.Pattern
}

// Table is an immutable set of route specs.
type Table struct {
	specs []RouteSpec
}

// NewTable copies specs into a new table.
func NewTable(specs ...RouteSpec) *Table {
	cp := make([]RouteSpec, len(specs))
	copy(cp, specs)
	return &Table{specs: cp}
}

// entries returns a copy of the table's entries.
func (t *Table) entries() []RouteSpec {
	cp := make([]RouteSpec, len(t.specs))
	copy(cp, t.specs)
	return cp
}

// Lookup returns the first route spec that covers path.
func (t *Table) Lookup(path string) (RouteSpec, bool) {
	path = normalize(path)
	for _, s := range t.specs {
		if s.matches(path) {
			return s, true
		}
	}
	return RouteSpec{}, false
}

// Classify returns the protection for path. Anything the table does not
// cover is Public.
func (t *Table) Classify(path string) Protection {
	if s, ok := t.Lookup(path); ok {
		return s.Protection
	}
	return Public
}

// normalize drops a trailing slash (except on the root) and any query part.
func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}

// defaultTable is the application's protected route table.
var defaultTable = NewTable(
	// Pages.
	RouteSpec{Pattern: "/dashboard", Protection: RequiresSession},
	RouteSpec{Pattern: "/check-in", Protection: RequiresSession},
	RouteSpec{Pattern: "/check-out", Protection: RequiresSession},
	RouteSpec{Pattern: "/inventory", Protection: RequiresSession},
	RouteSpec{Pattern: "/history", Protection: RequiresSession},
	RouteSpec{Pattern: "/settings/:path*", Protection: RequiresSession},

	// API.
	RouteSpec{Pattern: "/api/inventory/:path*", Protection: RequiresSession},
	RouteSpec{Pattern: "/api/history/:path*", Protection: RequiresSession},
)

// Default returns the application's route table.
func Default() *Table {
	return defaultTable
}
