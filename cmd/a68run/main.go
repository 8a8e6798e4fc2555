// cmd/a68run/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"a68core/internal/diagnostics"
	"a68core/internal/eval"
	"a68core/internal/listing"

	"github.com/mattn/go-isatty"
)

const version = "0.1.0"

var buildDate = time.Now().Format("2006-01-02")

// commandAliases mirrors the teacher's short-form dispatch table.
var commandAliases = map[string]string{
	"r": "run",
	"d": "diagnose",
	"l": "listing",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("a68run %s (built %s)\n", version, buildDate)
	case "run":
		if err := runCommand(args[1:]); err != nil {
			log.Fatalf("a68run: %v", err)
		}
	case "diagnose":
		if err := diagnoseCommand(args[1:]); err != nil {
			log.Fatalf("a68run: %v", err)
		}
	case "listing":
		if err := listingCommand(args[1:]); err != nil {
			log.Fatalf("a68run: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "a68run: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("usage: a68run <run|diagnose|listing> [options]")
	fmt.Println()
	fmt.Println("a68run executes a program tree built by an external front end")
	fmt.Println("against the execution core (no lexer/parser is bundled).")
}

// runCommand drives eval.Evaluator.Execute over a program tree supplied
// by an external front end. Since this core has no bundled parser
// (spec.md §1's explicit Non-goal), this entry point is a harness: it
// demonstrates the wiring an embedding front end would perform, rather
// than accepting raw source text itself.
func runCommand(args []string) error {
	colorOut := isatty.IsTerminal(os.Stdout.Fd())

	ev := eval.New(1<<16, 1024, 64<<20)
	root := buildDemoProgram()

	result, err := ev.Execute(root)
	if err != nil {
		printDiagnostics(ev.Sink, colorOut)
		return err
	}
	printDiagnostics(ev.Sink, colorOut)
	fmt.Printf("result: %+v\n", result.V)
	return nil
}

func diagnoseCommand(args []string) error {
	ev := eval.New(1<<16, 1024, 64<<20)
	root := buildDemoProgram()
	_, _ = ev.Execute(root)
	printDiagnostics(ev.Sink, isatty.IsTerminal(os.Stdout.Fd()))
	return nil
}

func listingCommand(args []string) error {
	root := buildDemoProgram()
	l := listing.Build(root)
	for _, info := range l.SortedLines() {
		fmt.Printf("line %4d: level %d..%d  proc %d..%d\n",
			info.Line, info.MinLevel, info.MaxLevel, info.ProcLevelMin, info.ProcLevelMax)
	}
	return nil
}

// printDiagnostics renders the sink's accumulated diagnostics, color-
// coding severities when stdout is a terminal (github.com/mattn/
// go-isatty, named in SPEC_FULL.md's domain stack for exactly this).
func printDiagnostics(sink *diagnostics.Sink, color bool) {
	for _, d := range sink.Diagnostics() {
		if color {
			fmt.Printf("\x1b[1m%s\x1b[0m: %s\n", d.Severity, d.Error())
		} else {
			fmt.Println(d.Error())
		}
	}
	if suppressed, n := sink.Suppressed(); suppressed {
		fmt.Printf("(%d further diagnostics suppressed)\n", n)
	}
}
