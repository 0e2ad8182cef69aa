// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/arneph/katara-ir/internal/debugger"
	"github.com/arneph/katara-ir/internal/interp"
	"github.com/arneph/katara-ir/internal/ir"
	"github.com/arneph/katara-ir/internal/irchecker"
	"github.com/arneph/katara-ir/internal/irparse"
	"github.com/fatih/color"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	cmd, path := os.Args[1], os.Args[2]
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	prog, parseErrs := irparse.Parse(source)
	if len(parseErrs) > 0 {
		reportParseErrors(path, parseErrs)
		os.Exit(1)
	}

	switch cmd {
	case "check":
		runCheck(prog)
	case "print":
		fmt.Print(ir.Print(prog))
	case "run":
		runProgram(prog)
	case "debug":
		debugProgram(prog)
	case "vcg":
		writeVCG(prog)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: katara-ir <check|print|run|debug|vcg> <file.kir>")
}

// writeVCG writes every function's control-flow graph to stdout in VCG
// format, one graph after another.
func writeVCG(prog *ir.Program) {
	for i, fn := range prog.Funcs() {
		if i > 0 {
			fmt.Println()
		}
		if err := fn.WriteVCG(os.Stdout, false); err != nil {
			color.Red("failed to write VCG graph: %s", err)
			os.Exit(1)
		}
		fmt.Println()
	}
}

// reportParseErrors prints every syntactic error found while parsing
// path, in the CLI's red-for-failure style.
func reportParseErrors(path string, errs []irparse.ParseError) {
	for _, e := range errs {
		color.Red("%s:%s: %s", path, e.Pos, e.Msg)
	}
}

// runCheck well-formedness-checks the parsed prog, reporting every issue
// found, or a single green confirmation if there are none.
func runCheck(prog *ir.Program) {
	issues := irchecker.Check(prog)
	if len(issues) == 0 {
		color.Green("ok")
		return
	}
	for _, iss := range issues {
		color.Red("%s", iss.String())
	}
	os.Exit(1)
}

// runProgram checks prog, then interprets its entry function with no
// arguments to completion.
func runProgram(prog *ir.Program) {
	irchecker.MustCheck(prog)

	entry, ok := prog.EntryFunc()
	if !ok {
		color.Red("program has no entry function")
		os.Exit(1)
	}
	if len(entry.Args) != 0 {
		color.Red("entry function takes arguments; the CLI only runs zero-argument entry functions")
		os.Exit(1)
	}

	in := interp.NewInterpreter(prog)
	results, err := runAndRecoverPanic(in, entry)
	if err != nil {
		color.Red("%s", err)
		os.Exit(1)
	}

	for i, r := range results {
		fmt.Printf("result %d: %s\n", i, r)
	}
	color.Green("ok")
}

func runAndRecoverPanic(in *interp.Interpreter, entry *ir.Function) (results []*ir.Constant, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*interp.PanicError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	results = in.Run(entry, nil)
	return results, nil
}

// debugProgram checks prog, then starts an interactive debugger session
// over stdin/stdout, paused at the entry function's first instruction.
func debugProgram(prog *ir.Program) {
	irchecker.MustCheck(prog)

	entry, ok := prog.EntryFunc()
	if !ok {
		color.Red("program has no entry function")
		os.Exit(1)
	}
	if len(entry.Args) != 0 {
		color.Red("entry function takes arguments; the CLI only debugs zero-argument entry functions")
		os.Exit(1)
	}

	dbg := debugger.NewDebugger(prog)
	dbg.Start(entry, nil) // starts paused, at the entry function's first instruction

	repl := debugger.NewREPL(dbg, os.Stdin, os.Stdout, os.Stderr)
	repl.RunLoop()

	if panicErr := dbg.PanicErr(); panicErr != nil {
		color.Red("%s", panicErr)
		os.Exit(1)
	}
}
