package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// options holds the result of parsing the arnmc command line: a
// hand-rolled positional-plus-flag scanner over os.Args rather than the
// standard library's flag package.
type options struct {
	Src         string // Path to source .arnm file.
	ConfigPath  string // Path to an arnm.toml config file, if given.
	DumpTokens  bool
	DumpAST     bool
	CheckOnly   bool
	EmitIR      bool
	EmitLLVM    bool
	EmitAsm     bool
}

const appVersion = "arnmc 0.1"

// ---------------------
// ----- functions -----
// ---------------------

// parseArgs parses os.Args[1:], in the same single positional-source-file-
// plus-flags shape util.ParseArgs uses.
func parseArgs() (options, error) {
	opt := options{}
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "--dump-tokens":
			opt.DumpTokens = true
		case "--dump-ast":
			opt.DumpAST = true
		case "--check":
			opt.CheckOnly = true
		case "--emit-ir":
			opt.EmitIR = true
		case "--emit-llvm":
			opt.EmitLLVM = true
		case "--emit-asm":
			opt.EmitAsm = true
		case "--config":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i])
			}
			if strings.HasPrefix(args[i+1], "-") {
				return opt, fmt.Errorf("expected path to config file, got new flag %s", args[i+1])
			}
			opt.ConfigPath = args[i+1]
			i++
		default:
			if strings.HasPrefix(args[i], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i])
			}
			opt.Src = args[i]
		}
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout, tabwriter-aligned.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "Usage: arnmc [flags] <source.arnm>")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints the compiler version and exits.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "--dump-tokens\tScan the source and print its token stream to stdout, then exit.")
	_, _ = fmt.Fprintln(w, "--dump-ast\tParse the source and print its syntax tree to stdout, then exit.")
	_, _ = fmt.Fprintln(w, "--check\tRun the lexer/parser/analyzer and report diagnostics without generating code.")
	_, _ = fmt.Fprintln(w, "--emit-ir\tPrint the generated internal/ir module to stdout.")
	_, _ = fmt.Fprintln(w, "--emit-llvm\tPrint LLVM textual IR to stdout.")
	_, _ = fmt.Fprintln(w, "--emit-asm\tPrint x86-64 assembly to stdout.")
	_, _ = fmt.Fprintln(w, "--config\tPath to an arnm.toml configuration file.")
	_ = w.Flush()
}
