package condition

import "github.com/amirphl/hybrid-trader/internal/sttypes"

// BarEnv adapts an sttypes.EnrichedBar to the Env interface the
// evaluator needs, with no other ambient bindings (spec §4.2: "no
// access to ambient scope").
type BarEnv struct {
	Bar sttypes.EnrichedBar
}

func (e BarEnv) Lookup(name string) (value float64, present bool, known bool) {
	return e.Bar.Field(name)
}

// Identifiers returns every distinct identifier p's condition
// references, in the order first encountered.
func Identifiers(p *Predicate) (names []string) {
	seen := map[string]bool{}
	var walk func(n Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Var:
			if seen[t.Name] {
				return
			}
			seen[t.Name] = true
			names = append(names, t.Name)
		case BinOp:
			walk(t.Left)
			walk(t.Right)
		case UnOp:
			walk(t.Expr)
		}
	}
	walk(p.root)
	return names
}

// KnownIdentifiers validates, at compile time, that every Var in the AST
// resolves to a known EnrichedBar field (spec §8 invariant 4: "the
// compiled predicate references no identifier outside EnrichedBar
// fields"). It walks the tree once using a zero-value EnrichedBar, whose
// Field lookup reports "known" independent of the bar's actual values,
// and returns the distinct unknown identifiers in the order first
// encountered.
func KnownIdentifiers(p *Predicate) (unknown []string) {
	var probe sttypes.EnrichedBar
	seen := map[string]bool{}
	var walk func(n Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Var:
			if seen[t.Name] {
				return
			}
			seen[t.Name] = true
			if _, _, known := probe.Field(t.Name); !known {
				unknown = append(unknown, t.Name)
			}
		case BinOp:
			walk(t.Left)
			walk(t.Right)
		case UnOp:
			walk(t.Expr)
		}
	}
	walk(p.root)
	return unknown
}
