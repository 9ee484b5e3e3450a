// Command arnmc is the ARNm compiler driver: it reads a source file,
// drives the lexer, parser, semantic analyzer, and IR generator in
// sequence, and emits whichever stage's output the caller asked for. A
// single run(opt) function chains parse -> check -> generate -> emit,
// returning the first stage's failure rather than pressing on.
package main

import (
	"fmt"
	"os"

	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/codegen/llvm"
	"github.com/arnm-lang/arnm/internal/codegen/x86"
	"github.com/arnm-lang/arnm/internal/config"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/irgen"
	"github.com/arnm-lang/arnm/internal/lexer"
	"github.com/arnm-lang/arnm/internal/logx"
	"github.com/arnm-lang/arnm/internal/parser"
	"github.com/arnm-lang/arnm/internal/sema"
	"github.com/arnm-lang/arnm/internal/token"
)

// run executes compiler stages per opt, writing diagnostics to stderr and
// requested stage output to stdout. It returns 0 on success and a
// non-zero exit code on any stage failure.
func run(opt options, cfg *config.Config) int {
	src, err := os.ReadFile(opt.Src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arnmc: could not read %s: %s\n", opt.Src, err)
		return 1
	}
	text := string(src)

	if opt.DumpTokens {
		return dumpTokens(text)
	}

	// CLI flags win, but an arnm.toml can set the driver's default
	// behavior for a project that always wants, say, --check in CI.
	checkOnly := opt.CheckOnly || cfg.Compiler.CheckOnly
	emitIR := opt.EmitIR || cfg.Compiler.EmitIR

	result := parser.Parse(text)
	if opt.DumpAST {
		ast.Dump(os.Stdout, result.Arena, result.Root, 0)
		return 0
	}
	if reportDiagnostics(result.Sink) {
		return 1
	}

	analyzer := sema.New(result.Arena, result.Sink)
	analyzer.Check(result.Root)
	if reportDiagnostics(result.Sink) {
		return 1
	}
	if checkOnly {
		return 0
	}

	mod := irgen.Generate(result.Arena, analyzer.Table(), result.Root)

	switch {
	case emitIR:
		fmt.Println(mod.String())
	case opt.EmitLLVM:
		fmt.Println(llvm.Emit(mod))
	case opt.EmitAsm:
		fmt.Println(x86.Emit(mod))
	default:
		switch cfg.Compiler.TargetArch {
		case "llvm":
			fmt.Println(llvm.Emit(mod))
		default:
			fmt.Println(x86.Emit(mod))
		}
	}
	return 0
}

// dumpTokens scans src and prints its token stream, one token per line,
// stopping after the first EOF token is produced.
func dumpTokens(src string) int {
	lex := lexer.New(src)
	for {
		tok := lex.Next()
		fmt.Println(tok)
		if tok.Kind == token.EOF {
			return 0
		}
	}
}

// reportDiagnostics prints every diagnostic in sink to stderr and
// reports whether any error-severity diagnostic was recorded.
func reportDiagnostics(sink *diag.Sink) bool {
	for _, d := range sink.All() {
		fmt.Fprintln(os.Stderr, d)
	}
	return sink.HadError()
}

func main() {
	opt, err := parseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "arnmc: %s\n", err)
		os.Exit(1)
	}
	if opt.Src == "" {
		printHelp()
		os.Exit(1)
	}

	cfg, err := config.Load(opt.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arnmc: config error: %s\n", err)
		os.Exit(1)
	}
	if opt.ConfigPath == "" {
		if c, err := config.Load("arnm.toml"); err == nil {
			cfg = c
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "arnmc: invalid config: %s\n", err)
		os.Exit(1)
	}
	logx.Init(cfg.Logging.Level, cfg.Logging.Format)

	os.Exit(run(opt, cfg))
}
