package irproc

import (
	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irinfo"
)

// ColorInterferenceGraph assigns a color to every value in graph,
// preferring the color given by preferred when it doesn't collide with
// an already-colored neighbor, and otherwise taking the lowest color not
// used by any neighbor. Values are visited in ascending number order for
// determinism.
func ColorInterferenceGraph(graph *irinfo.InterferenceGraph, preferred *irinfo.Colors) *irinfo.Colors {
	result := irinfo.NewColors()
	if preferred == nil {
		preferred = irinfo.NewColors()
	}

	for _, value := range graph.Values() {
		neighborColors := map[int]bool{}
		for _, n := range graph.Neighbors(value) {
			if c := result.Color(n); c != irinfo.NoColor {
				neighborColors[c] = true
			}
		}

		if pc := preferred.Color(value); pc != irinfo.NoColor && !neighborColors[pc] {
			result.SetColor(value, pc)
			continue
		}

		for color := 0; ; color++ {
			if !neighborColors[color] {
				result.SetColor(value, color)
				break
			}
		}
	}

	return result
}

// ColorFunc computes the interference graph of fn and colors it with no
// preferred colors.
func ColorFunc(fn *ir.Function) *irinfo.Colors {
	analyzer := irinfo.NewLiveRangeAnalyzer(fn)
	return ColorInterferenceGraph(analyzer.InterferenceGraph(), nil)
}

// RegisterColoringPass computes a color assignment for every function in
// a program. It never mutates the program; results are stored in
// Results, keyed by function number, for callers (e.g. internal/x86) to
// consume.
type RegisterColoringPass struct {
	Results map[int64]*irinfo.Colors
}

// NewRegisterColoringPass returns a pass with an empty results map.
func NewRegisterColoringPass() *RegisterColoringPass {
	return &RegisterColoringPass{Results: map[int64]*irinfo.Colors{}}
}

func (RegisterColoringPass) Name() string { return "Register Coloring" }
func (RegisterColoringPass) Description() string {
	return "greedily colors each function's interference graph"
}
func (p *RegisterColoringPass) Apply(prog *ir.Program) bool {
	for _, fn := range prog.Funcs() {
		p.Results[fn.Number] = ColorFunc(fn)
	}
	return len(p.Results) > 0
}
