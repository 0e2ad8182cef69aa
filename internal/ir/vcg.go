package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteVCG writes fn's control-flow graph in the VCG graph-description
// format (nodes per block, directed edges per child link), for viewing
// with a VCG-compatible graph tool. Grounded on the original compiler's
// vcg.Graph.ToVCGFormat: one node per block with a quoted, newline-joined
// label, and one directed edge per parent/child pair.
func (fn *Function) WriteVCG(w io.Writer, excludeBlockText bool) error {
	var sb strings.Builder
	title := fmt.Sprintf("@%d", fn.Number)
	if fn.Name != "" {
		title += " " + fn.Name
	}
	sb.WriteString("graph: { title: ")
	sb.WriteString(strconv.Quote(title))
	sb.WriteString("\n")

	for _, b := range fn.Blocks() {
		sb.WriteString("node: {\n")
		fmt.Fprintf(&sb, "title: \"%d\"\n", b.Number)
		label := fmt.Sprintf("block %d", b.Number)
		if b.Name != "" {
			label = b.Name
		}
		if !excludeBlockText {
			if text := blockVCGText(b); text != "" {
				label += "\n" + text
			}
		}
		sb.WriteString("label: ")
		sb.WriteString(strconv.Quote(label))
		sb.WriteString("\n")
		sb.WriteString("}\n")
	}

	for _, b := range fn.Blocks() {
		for _, child := range b.Children() {
			fmt.Fprintf(&sb, "edge: { sourcename: \"%d\" targetname: \"%d\" arrowstyle: solid }\n",
				b.Number, child)
		}
	}

	sb.WriteString("}")

	_, err := io.WriteString(w, sb.String())
	return err
}

// blockVCGText renders a block's instructions the way the printer would,
// without the surrounding function/block header lines.
func blockVCGText(b *Block) string {
	var lines []string
	for _, instr := range b.Instrs() {
		lines = append(lines, PrintInstr(instr))
	}
	return strings.Join(lines, "\n")
}
