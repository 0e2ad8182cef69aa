package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arneph/katara-ir/internal/ir"
	"github.com/fatih/color"
)

// REPL reads commands from in and writes responses to out/errOut,
// driving a Debugger the way original_source/src/cmd/katara-ir/debug.cc
// drives ir_interpreter::Debugger, formatted in kanso-cli's colored
// style (success in green, errors in red).
type REPL struct {
	dbg    *Debugger
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
	prompt string
}

// NewREPL returns a REPL over dbg.
func NewREPL(dbg *Debugger, in io.Reader, out, errOut io.Writer) *REPL {
	return &REPL{
		dbg:    dbg,
		in:     bufio.NewScanner(in),
		out:    out,
		errOut: errOut,
		prompt: "(katara-ir) ",
	}
}

// RunLoop reads and dispatches commands until EOF or a `quit` command.
func (r *REPL) RunLoop() {
	for {
		fmt.Fprint(r.out, r.prompt)
		if !r.in.Scan() {
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "q" {
			return
		}
		r.dispatch(line)
	}
}

func (r *REPL) errf(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(r.errOut, format+"\n", args...)
}

func (r *REPL) okf(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(r.out, format+"\n", args...)
}

func (r *REPL) dispatch(line string) {
	cmd, err := ParseCommand(line)
	if err != nil {
		r.errf("Unknown command.")
		return
	}
	switch {
	case cmd.Run != nil:
		r.handleRun()
	case cmd.Pause != nil:
		r.handlePause()
	case cmd.Step != nil:
		r.handleStep(cmd.Step)
	case cmd.Print != nil:
		r.handlePrint(cmd.Print.Target)
	case cmd.Break != nil:
		id := r.dbg.AddBreakpoint(cmd.Break.FuncNum, cmd.Break.BlockNum)
		r.okf("Breakpoint %d set at @%d{%d}", id, cmd.Break.FuncNum, cmd.Break.BlockNum)
	case cmd.Delete != nil:
		if r.dbg.RemoveBreakpoint(int(cmd.Delete.ID)) {
			r.okf("Breakpoint %d removed", cmd.Delete.ID)
		} else {
			r.errf("Breakpoint %d not found", cmd.Delete.ID)
		}
	case cmd.List != nil:
		r.handleList()
	case cmd.Help != nil:
		r.handleHelp()
	default:
		r.errf("Unknown command.")
	}
}

func (r *REPL) handleRun() {
	if err := r.dbg.Run(); err != nil {
		r.errf("%s.", err)
	}
}

func (r *REPL) handlePause() {
	if err := r.dbg.PauseAndAwait(); err != nil {
		r.errf("%s.", err)
	}
}

func (r *REPL) handleStep(step *StepCommand) {
	var err error
	switch step.Mode {
	case "", "in":
		err = r.dbg.StepIn()
	case "over":
		err = r.dbg.StepOver()
	case "out":
		err = r.dbg.StepOut()
	}
	if err != nil {
		r.errf("%s.", err)
	}
}

func (r *REPL) handleList() {
	bps := r.dbg.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(r.out, "No breakpoints set.")
		return
	}
	for _, bp := range bps {
		fmt.Fprintf(r.out, "%d: @%d{%d} hits: %d\n", bp.ID, bp.FuncNum, bp.BlockNum, bp.HitCount)
	}
}

func (r *REPL) handleHelp() {
	fmt.Fprintln(r.out, `commands:
  run                       resume execution
  pause                     pause a running program
  step [in|over|out]        execute one step
  print location            current block and instruction
  print stackframe          current frame, with bound values
  print stack               the full call stack
  print heap                every live allocation
  print program             the whole program, in canonical form
  print @<func>             one function, in canonical form
  print <frame>             one stack frame, by displayed index
  print %<value>            one computed value's current binding
  print 0x<addr>            one heap allocation
  break <func> <block>      pause on reaching a block's entry
  delete <id>               remove a breakpoint
  list                      list breakpoints
  quit                      exit`)
}

func (r *REPL) handlePrint(t *PrintTarget) {
	state := r.dbg.State()
	if state != StatePaused && state != StateTerminated {
		r.errf("Cannot print when the program is not paused or terminated.")
		return
	}

	switch {
	case t.Location:
		if state == StateTerminated {
			r.errf("Program has terminated.")
			return
		}
		frame := r.dbg.Interpreter().Stack().CurrentFrame()
		fmt.Fprint(r.out, frame.ToDebuggerString())

	case t.Stackframe:
		if state == StateTerminated {
			r.errf("Program has terminated.")
			return
		}
		frame := r.dbg.Interpreter().Stack().CurrentFrame()
		fmt.Fprint(r.out, frame.ToDebuggerString())

	case t.Stack:
		fmt.Fprint(r.out, r.dbg.Interpreter().Stack().ToDebuggerString())

	case t.Heap:
		fmt.Fprint(r.out, r.dbg.Interpreter().Heap().ToDebuggerString())

	case t.Program:
		fmt.Fprint(r.out, ir.Print(r.dbg.Program()))

	case t.Func != "":
		num, err := strconv.ParseInt(strings.TrimPrefix(t.Func, "@"), 10, 64)
		if err != nil {
			r.errf("Invalid function number.")
			return
		}
		fn, ok := r.dbg.Program().Func(num)
		if !ok {
			r.errf("Function does not exist.")
			return
		}
		fmt.Fprintln(r.out, ir.PrintFunc(fn))

	case t.Frame != "":
		displayed, err := strconv.Atoi(strings.Trim(t.Frame, "<>"))
		if err != nil {
			r.errf("Invalid stack frame.")
			return
		}
		frames := r.dbg.Interpreter().Stack().Frames()
		idx := len(frames) - 1 - displayed
		if idx < 0 || idx >= len(frames) {
			r.errf("Stackframe does not exist.")
			return
		}
		fmt.Fprint(r.out, frames[idx].ToDebuggerString())

	case t.Value != "":
		if state == StateTerminated {
			r.errf("Program has terminated.")
			return
		}
		num, err := strconv.ParseInt(strings.TrimPrefix(t.Value, "%"), 10, 64)
		if err != nil {
			r.errf("Invalid value number.")
			return
		}
		frame := r.dbg.Interpreter().Stack().CurrentFrame()
		val, ok := frame.Value(num)
		if !ok {
			r.errf("%%%d has no value.", num)
			return
		}
		fmt.Fprintf(r.out, "%%%d = %s\n", num, val)

	case t.Address != "":
		addr, err := strconv.ParseUint(strings.TrimPrefix(t.Address, "0x"), 16, 64)
		if err != nil {
			r.errf("Invalid address.")
			return
		}
		fmt.Fprint(r.out, r.dbg.Interpreter().Heap().ToDebuggerStringAt(addr))

	default:
		r.errf("Unknown command.")
	}
}
