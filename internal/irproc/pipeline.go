// Package irproc holds the transformations that turn a checked SSA
// program into a form closer to machine code: phi elimination, register
// coloring, and the pointer-ownership lowering passes.
package irproc

import (
	"fmt"
	"io"

	"github.com/arneph/katara-ir/internal/ir"
)

// Pass is a single transformation applied to an entire program.
type Pass interface {
	Name() string
	Description() string
	Apply(prog *ir.Program) bool
}

// Pipeline runs an ordered sequence of passes over a program.
type Pipeline struct {
	passes []Pass
	log    io.Writer
}

// NewPipeline returns a pipeline that runs passes in the given order.
// Pass log output is discarded unless SetLog is called.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes}
}

// SetLog directs per-pass progress lines to w.
func (p *Pipeline) SetLog(w io.Writer) { p.log = w }

// AddPass appends pass to the end of the pipeline.
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Run applies every pass in order, in place.
func (p *Pipeline) Run(prog *ir.Program) {
	for _, pass := range p.passes {
		changed := pass.Apply(prog)
		if p.log == nil {
			continue
		}
		if changed {
			fmt.Fprintf(p.log, "%s: %s (applied)\n", pass.Name(), pass.Description())
		} else {
			fmt.Fprintf(p.log, "%s: %s (no changes)\n", pass.Name(), pass.Description())
		}
	}
}
