// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"venom/internal/errors"
	"venom/internal/ir"
	"venom/internal/ir/passes"
	"venom/internal/venomasm"
)

func main() {
	level := flag.String("O", "0", "optimization level: 0, 1, 2, 3, s")
	trace := flag.Bool("trace", false, "print the optimization level before running the pipeline")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: venom-opt [-O level] [-trace] <file.venom>")
		os.Exit(1)
	}

	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read file: %s", err)
		os.Exit(1)
	}

	opt, err := optLevelFromFlag(*level)
	if err != nil {
		color.Red("%s", err)
		os.Exit(1)
	}

	reporter := errors.NewErrorReporter(path, string(source))

	prog, err := venomasm.Parse(path, string(source))
	if err != nil {
		reportParseError(reporter, err)
		os.Exit(1)
	}

	ctx, err := venomasm.Build(prog)
	if err != nil {
		color.Red("Failed to build IR: %s", err)
		os.Exit(1)
	}

	if *trace {
		color.Cyan("running optimization level %s", *level)
	}
	runPipeline(reporter, opt, ctx)

	fmt.Print(venomasm.Print(ctx))
	color.Green("✅ Optimized %s", path)
}

// runPipeline drives the pass manager, recovering the *errors.CompilerPanic
// it re-raises on a spec violation (missing terminator, normalization
// divergence, unreachable phi edge, ...) and rendering it through the
// reporter instead of letting a raw Go stack trace reach the user.
func runPipeline(reporter *errors.ErrorReporter, opt passes.OptLevel, ctx *ir.Context) {
	defer func() {
		if r := recover(); r != nil {
			cp, ok := r.(*errors.CompilerPanic)
			if !ok {
				panic(r)
			}
			fmt.Print(reporter.FormatPanic(cp))
			os.Exit(1)
		}
	}()
	passes.NewPassManager(opt).Run(ctx)
}

func optLevelFromFlag(level string) (passes.OptLevel, error) {
	switch strings.ToLower(level) {
	case "0":
		return passes.O0, nil
	case "1":
		return passes.O1, nil
	case "2":
		return passes.O2, nil
	case "3":
		return passes.O3, nil
	case "s":
		return passes.Os, nil
	default:
		return passes.O0, fmt.Errorf("unknown optimization level %q", level)
	}
}

// reportParseError renders a participle syntax error through the shared
// ErrorReporter, giving the CLI's parse-error path the same Rust-like
// caret diagnostic as a pass-manager CompilerPanic instead of a
// hand-rolled one-off format.
func reportParseError(reporter *errors.ErrorReporter, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	fmt.Print(reporter.FormatError(errors.CompilerError{
		Level:   errors.Error,
		Message: pe.Message(),
		Position: errors.Position{
			Line:   pos.Line,
			Column: pos.Column,
		},
		Length: 1,
	}))
}
