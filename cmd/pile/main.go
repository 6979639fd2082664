package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pilelang/pile/pkg/pile/config"
	"github.com/pilelang/pile/pkg/pile/errors"
	"github.com/pilelang/pile/pkg/pile/lexer"
	"github.com/pilelang/pile/pkg/pile/pile"
	"github.com/pilelang/pile/pkg/pile/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.3.1"

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	// Evaluation flags
	evalFlag     = flag.String("e", "", "Evaluate code string")
	evalLongFlag = flag.String("eval", "", "Evaluate code string")
	tokensFlag   = flag.Bool("tokens", false, "Dump the token stream without executing")
	parseFlag    = flag.Bool("parse", false, "Dump the parsed program without executing")
	checkFlag    = flag.Bool("check", false, "Parse and bind without executing")

	// Environment flags
	includeFlag = flag.String("I", "", "Comma-separated extra import search paths")
	configFlag  = flag.String("config", "", "Path to pile.yml")
)

func main() {
	// Check for subcommands first (before flag parsing)
	if len(os.Args) > 1 && os.Args[1] == "watch" {
		watchCommand(os.Args[2:])
		return
	}

	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag || *versionLongFlag {
		fmt.Printf("pile version %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}

	opts := &pile.Options{
		SearchPaths: searchPaths(cfg),
		MaxDepth:    cfg.MaxDepth,
	}

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case *tokensFlag:
		os.Exit(dumpTokens(evalCode, flag.Args()))
	case *parseFlag:
		os.Exit(dumpParse(evalCode, flag.Args()))
	case *checkFlag:
		os.Exit(checkSources(evalCode, flag.Args(), opts.SearchPaths))
	case evalCode != "":
		status, errs := pile.RunSource(evalCode, "<eval>", opts)
		if len(errs) != 0 {
			printErrors("<eval>", evalCode, errs)
		}
		os.Exit(status)
	case len(flag.Args()) > 0:
		filename := flag.Args()[0]
		os.Exit(runFile(filename, opts))
	default:
		repl.Start(os.Stdout, Version, &repl.Options{
			HistoryFile: cfg.HistoryFile,
			MaxDepth:    cfg.MaxDepth,
		})
	}
}

func printHelp() {
	fmt.Printf(`pile - stack language interpreter version %s

Usage:
  pile [options] [file]
  pile -e "code"
  pile watch <file>

Commands:
  watch <file>          Re-run the file whenever it or its directory changes

Display Options:
  -h, --help            Show this help message
  -V, --version         Show version information

Evaluation Options:
  -e, --eval <code>     Evaluate code string
  --tokens              Dump the token stream without executing
  --parse               Dump the parsed program without executing
  --check               Parse and bind without executing

Environment Options:
  -I <paths>            Comma-separated extra import search paths
  --config <file>       Use a specific pile.yml

Examples:
  pile                        Start interactive REPL
  pile script.pile            Execute a pile script
  pile -e "2 10 / println"    Evaluate inline code (outputs: 5)
  pile --tokens script.pile   Show the token stream
  pile --check script.pile    Report lex/parse/bind errors only
  pile -I lib script.pile     Also search ./lib for imports
  pile watch script.pile      Re-run on every change
`, Version)
}

// searchPaths merges configured search paths with the -I flag.
func searchPaths(cfg *config.Config) []string {
	paths := append([]string{}, cfg.SearchPaths...)
	for _, p := range strings.Split(*includeFlag, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// sourceArgs resolves the inputs of a diagnostic mode: inline code, or
// the contents of each named file.
func sourceArgs(evalCode string, files []string) ([]string, []string, int) {
	if evalCode != "" {
		return []string{evalCode}, []string{"<eval>"}, 0
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no input (pass a file or -e code)")
		return nil, nil, 2
	}

	var sources, names []string
	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", filename, err)
			return nil, nil, 2
		}
		sources = append(sources, string(content))
		names = append(names, filename)
	}
	return sources, names, 0
}

func dumpTokens(evalCode string, files []string) int {
	sources, names, status := sourceArgs(evalCode, files)
	if status != 0 {
		return status
	}

	for i, source := range sources {
		for _, tok := range pile.TokenizeSource(source, names[i]) {
			fmt.Printf("%d:%d\t%s\t%q\n", tok.Line, tok.Column, tok.Type, tok.Literal)
			if tok.Type == lexer.ILLEGAL {
				return 1
			}
		}
	}
	return 0
}

func dumpParse(evalCode string, files []string) int {
	sources, names, status := sourceArgs(evalCode, files)
	if status != 0 {
		return status
	}

	for i, source := range sources {
		program, errs := pile.ParseSource(source, names[i])
		if len(errs) != 0 {
			printErrors(names[i], source, errs)
			return 1
		}
		for _, instr := range program.Instructions {
			fmt.Println(instr.String())
		}
	}
	return 0
}

func checkSources(evalCode string, files []string, searchPaths []string) int {
	sources, names, status := sourceArgs(evalCode, files)
	if status != 0 {
		return status
	}

	hasErrors := false
	for i, source := range sources {
		var errs []*errors.PileError
		if names[i] == "<eval>" {
			errs = pile.CheckSource(source, names[i], searchPaths)
		} else {
			errs = pile.CheckFile(names[i], searchPaths)
		}
		if len(errs) != 0 {
			printErrors(names[i], source, errs)
			hasErrors = true
		}
	}
	if hasErrors {
		return 1
	}
	return 0
}

func runFile(filename string, opts *pile.Options) int {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", filename, err)
		return 2
	}

	status, errs := pile.RunFile(filename, opts)
	if len(errs) != 0 {
		printErrors(filename, string(content), errs)
	}
	return status
}

// printErrors prints structured errors with source context. Errors
// from an imported unit load that unit's source for the context lines.
func printErrors(filename, source string, errs []*errors.PileError) {
	for _, err := range errs {
		displaySource := source
		if err.File != "" && err.File != filename {
			if content, readErr := os.ReadFile(err.File); readErr == nil {
				displaySource = string(content)
			} else {
				displaySource = ""
			}
		}

		fmt.Fprintln(os.Stderr, err.PrettyString())
		printSourceContext(strings.Split(displaySource, "\n"), err.Line, err.Column)
	}
}

// printSourceContext prints the source line and error pointer
func printSourceContext(lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := lines[lineNum-1]

	// Calculate how many columns to trim from the left
	trimCount := 0
	for i := 0; i < len(sourceLine); i++ {
		if sourceLine[i] == ' ' {
			trimCount++
		} else if sourceLine[i] == '\t' {
			trimCount += 8
		} else {
			break
		}
	}

	trimmedLine := strings.TrimLeft(sourceLine, " \t")
	fmt.Fprintf(os.Stderr, "    %s\n", trimmedLine)

	if colNum > 0 {
		// Visual column accounting for tabs up to the error position
		visualCol := 0
		for i := 0; i < colNum-1 && i < len(sourceLine); i++ {
			if sourceLine[i] == '\t' {
				visualCol += 8
			} else {
				visualCol++
			}
		}

		adjustedCol := max(visualCol-trimCount, 0)
		pointer := strings.Repeat(" ", adjustedCol) + "^"
		fmt.Fprintf(os.Stderr, "    %s\n", pointer)
	}
}
