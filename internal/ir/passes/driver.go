package passes

import (
	"sync"

	"venom/internal/errors"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// Driver sequences a PassManager's global and per-function passes across a
// whole context, optionally compiling independent functions concurrently.
// The function inliner is the only cross-function pass — it mutates
// Context.Functions itself — so it always runs single-threaded, before any
// parallel per-function work starts.
type Driver struct {
	Level OptLevel
}

func NewDriver(level OptLevel) *Driver {
	return &Driver{Level: level}
}

// Compile runs the pipeline sequentially, identical to PassManager.Run.
func (d *Driver) Compile(ctx *ir.Context) {
	NewPassManager(d.Level).Run(ctx)
}

// compileResult carries a function's outcome back from its goroutine,
// including a recovered CompilerPanic so the caller can re-raise it on the
// main goroutine instead of crashing the whole process.
type compileResult struct {
	fnName string
	panic  *errors.CompilerPanic
}

// CompileParallel runs the global passes single-threaded, then compiles
// every remaining function's per-function pass list concurrently, one
// goroutine per function, each with its own private AnalysesCache.
// Functions only share Context-level state through FreshGlobalLabel and
// SetDataSegment, both already synchronized, so no pass needs to know it's
// running concurrently with its siblings.
func (d *Driver) CompileParallel(ctx *ir.Context) {
	for _, gp := range globalPassesFor(d.Level) {
		runGlobalPassGuarded(gp, ctx, map[string]*analysis.AnalysesCache{})
	}

	list := passListFor(d.Level)
	fns := append([]*ir.Function(nil), ctx.Functions...)

	var wg sync.WaitGroup
	results := make(chan compileResult, len(fns))
	for _, fn := range fns {
		wg.Add(1)
		go func(fn *ir.Function) {
			defer wg.Done()
			results <- compileOne(fn, list)
		}(fn)
	}
	wg.Wait()
	close(results)

	for res := range results {
		if res.panic != nil {
			panic(res.panic)
		}
	}
}

func compileOne(fn *ir.Function, list []Pass) (result compileResult) {
	result.fnName = fn.Name
	defer func() {
		if r := recover(); r != nil {
			if cp, ok := r.(*errors.CompilerPanic); ok {
				result.panic = cp
				return
			}
			panic(r)
		}
	}()

	cache := analysis.NewAnalysesCache(fn)
	for _, p := range list {
		runPassGuarded(p, fn, cache)
	}
	return result
}
