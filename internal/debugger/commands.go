package debugger

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// commandLexer tokenizes one REPL input line. Grounded on
// kanso-lang-kanso/grammar/lexer.go's lexer.MustStateful usage, reduced
// to a single state since command lines have no nested structure.
var commandLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Hex", `0x[0-9a-fA-F]+`, nil},
		{"ValueRef", `%[0-9]+`, nil},
		{"FuncRef", `@[0-9]+`, nil},
		{"Frame", `<[0-9]+>`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Number", `[0-9]+`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// Command is one parsed REPL line, grounded on
// original_source/src/cmd/katara-ir/debug.cc's run/pause/step/print
// command set.
type Command struct {
	Run    *RunCommand    `  @@`
	Pause  *PauseCommand  `| @@`
	Step   *StepCommand   `| @@`
	Print  *PrintCommand  `| @@`
	Break  *BreakCommand  `| @@`
	Delete *DeleteCommand `| @@`
	List   *ListCommand   `| @@`
	Help   *HelpCommand   `| @@`
	Quit   *QuitCommand   `| @@`
}

type RunCommand struct {
	Keyword string `"run"`
}

type PauseCommand struct {
	Keyword string `"pause"`
}

type StepCommand struct {
	Keyword string `"step"`
	Mode    string `@("in" | "over" | "out")?`
}

// PrintTarget is `print`'s argument: one of a fixed set of keywords, or
// an @func/<frame>/%value/0xaddr reference.
type PrintTarget struct {
	Location   bool   `(  @"location"`
	Stackframe bool   `|  @"stackframe"`
	Stack      bool   `|  @"stack"`
	Heap       bool   `|  @"heap"`
	Program    bool   `|  @"program"`
	Func       string `|  @FuncRef`
	Frame      string `|  @Frame`
	Value      string `|  @ValueRef`
	Address    string `|  @Hex )`
}

type PrintCommand struct {
	Keyword string       `"print"`
	Target  *PrintTarget `@@`
}

type BreakCommand struct {
	Keyword  string `"break"`
	FuncNum  int64  `@Number`
	BlockNum int64  `@Number`
}

type DeleteCommand struct {
	Keyword string `("delete" | "d")`
	ID      int64  `@Number`
}

type ListCommand struct {
	Keyword string `("list" | "breakpoints")`
}

type HelpCommand struct {
	Keyword string `("help" | "h")`
}

type QuitCommand struct {
	Keyword string `("quit" | "q")`
}

var commandParser = participle.MustBuild[Command](
	participle.Lexer(commandLexer),
	participle.Elide("Whitespace"),
)

// ParseCommand parses one REPL input line, after shortcut expansion.
func ParseCommand(line string) (*Command, error) {
	return commandParser.ParseString("", ExpandShortcuts(line))
}

// ExpandShortcuts expands the single-token shortcuts debug.cc defines
// (si/so/su/pl/pf/ps/ph/pp) into their full command form.
func ExpandShortcuts(command string) string {
	switch command {
	case "si":
		return "step in"
	case "so":
		return "step over"
	case "su":
		return "step out"
	case "pl":
		return "print location"
	case "pf":
		return "print stackframe"
	case "ps":
		return "print stack"
	case "ph":
		return "print heap"
	case "pp":
		return "print program"
	default:
		return command
	}
}
