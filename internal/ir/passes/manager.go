package passes

import (
	"venom/internal/errors"
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// OptLevel selects one of the fixed pass pipelines below, mirroring the
// optimization-level presets of the reference pipeline this one was built
// against: O0 is lowering-only, O1 through O3 add progressively more
// aggressive cleanup and inlining, Os trades some of O2's throughput passes
// for codesize-specific ones.
type OptLevel int

const (
	O0 OptLevel = iota
	O1
	O2
	O3
	Os
)

// iterative passes re-run themselves to a fixed point internally (their own
// Run loops), so the manager always calls Run exactly once per pipeline
// entry — a pass appearing twice in a list (as SCCP and AssignElimination
// both do) is a deliberate repeat, not evidence the manager should loop.

func passListFor(level OptLevel) []Pass {
	floatAndSSA := []Pass{FloatAllocas{}, SimplifyCFG{}, MakeSSA{}, PhiElimination{}}

	switch level {
	case O0:
		return append(append([]Pass{}, floatAndSSA...),
			RemoveUnusedVars{},
			LowerDload{},
			SingleUseExpansion{},
			DFT{},
			CFGNormalization{},
		)
	case O1:
		return append(append([]Pass{}, floatAndSSA...),
			AlgebraicOptimization{},
			SCCP{RemoveAllocas: false},
			SimplifyCFG{},
			AssignElimination{},
			SCCP{RemoveAllocas: true},
			SimplifyCFG{},
			AssignElimination{},
			AlgebraicOptimization{},
			PhiElimination{},
			AssignElimination{},
			RevertToAssert{},
			SimplifyCFG{},
			LoopInvariantHoisting{},
			RemoveUnusedVars{},
			DeadStoreElimination{Space: analysis.SpaceMemory},
			DeadStoreElimination{Space: analysis.SpaceStorage},
			DeadStoreElimination{Space: analysis.SpaceTransient},
			LowerDload{},
			BranchOptimization{},
			AlgebraicOptimization{},
			RemoveUnusedVars{},
			PhiElimination{},
			AssignElimination{},
			RemoveUnusedVars{},
			SingleUseExpansion{},
			DFT{},
			CFGNormalization{},
		)
	case O2, O3:
		return append(append([]Pass{}, floatAndSSA...),
			AlgebraicOptimization{},
			SCCP{RemoveAllocas: false},
			SimplifyCFG{},
			AssignElimination{},
			Mem2Var{},
			MakeSSA{},
			PhiElimination{},
			SCCP{RemoveAllocas: true},
			SimplifyCFG{},
			AssignElimination{},
			AlgebraicOptimization{},
			LoadElimination{},
			PhiElimination{},
			AssignElimination{},
			SCCP{RemoveAllocas: true},
			AssignElimination{},
			RevertToAssert{},
			SimplifyCFG{},
			LoopInvariantHoisting{},
			MemMerge{},
			RemoveUnusedVars{},
			DeadStoreElimination{Space: analysis.SpaceMemory},
			DeadStoreElimination{Space: analysis.SpaceStorage},
			DeadStoreElimination{Space: analysis.SpaceTransient},
			LowerDload{},
			BranchOptimization{},
			AlgebraicOptimization{},
			RemoveUnusedVars{},
			PhiElimination{},
			AssignElimination{},
			CSE{},
			AssignElimination{},
			RemoveUnusedVars{},
			SingleUseExpansion{},
			DFT{},
			CFGNormalization{},
		)
	case Os:
		return append(append([]Pass{}, floatAndSSA...),
			AlgebraicOptimization{},
			SCCP{RemoveAllocas: false},
			SimplifyCFG{},
			AssignElimination{},
			Mem2Var{},
			MakeSSA{},
			PhiElimination{},
			SCCP{RemoveAllocas: true},
			SimplifyCFG{},
			AssignElimination{},
			AlgebraicOptimization{},
			LoadElimination{},
			PhiElimination{},
			AssignElimination{},
			SCCP{RemoveAllocas: true},
			AssignElimination{},
			RevertToAssert{},
			SimplifyCFG{},
			LoopInvariantHoisting{},
			MemMerge{},
			LowerDload{},
			RemoveUnusedVars{},
			DeadStoreElimination{Space: analysis.SpaceMemory},
			DeadStoreElimination{Space: analysis.SpaceStorage},
			DeadStoreElimination{Space: analysis.SpaceTransient},
			BranchOptimization{},
			AlgebraicOptimization{},
			RemoveUnusedVars{},
			PhiElimination{},
			AssignElimination{},
			CSE{},
			AssignElimination{},
			RemoveUnusedVars{},
			ConcretizeMemLoc{},
			ReduceLiteralsCodesize{},
			SingleUseExpansion{},
			DFT{},
			CFGNormalization{},
		)
	default:
		return passListFor(O0)
	}
}

// globalPassesFor returns the whole-context passes that must run once,
// before any per-function pipeline, because they change which functions
// and call sites exist. Only O3 inlines; lower levels leave call structure
// alone so a single-pass build stays predictable.
func globalPassesFor(level OptLevel) []GlobalPass {
	if level == O3 {
		return []GlobalPass{FunctionInliner{}}
	}
	return nil
}

// PassManager drives a whole ir.Context through the pipeline for a chosen
// OptLevel: global passes first, then each remaining function through its
// own ordered per-function pass list with a fresh AnalysesCache.
type PassManager struct {
	Level OptLevel
}

func NewPassManager(level OptLevel) *PassManager {
	return &PassManager{Level: level}
}

// Run executes the full pipeline over ctx, recovering any CompilerPanic
// raised by a pass to stamp it with the pass name before re-raising — the
// only place in the pipeline that attaches pass attribution, since
// individual passes have no reason to know their own position in the list.
func (m *PassManager) Run(ctx *ir.Context) {
	caches := make(map[string]*analysis.AnalysesCache, len(ctx.Functions))
	for _, fn := range ctx.Functions {
		caches[fn.Name] = analysis.NewAnalysesCache(fn)
	}

	for _, gp := range globalPassesFor(m.Level) {
		runGlobalPassGuarded(gp, ctx, caches)
	}

	list := passListFor(m.Level)
	for _, fn := range ctx.Functions {
		cache, ok := caches[fn.Name]
		if !ok {
			cache = analysis.NewAnalysesCache(fn)
			caches[fn.Name] = cache
		}
		for _, p := range list {
			runPassGuarded(p, fn, cache)
		}
	}
}

func runPassGuarded(p Pass, fn *ir.Function, cache *analysis.AnalysesCache) {
	defer func() {
		if r := recover(); r != nil {
			if cp, ok := r.(*errors.CompilerPanic); ok {
				panic(cp.WithPass(p.Name()))
			}
			panic(r)
		}
	}()
	p.Run(fn, cache)
}

func runGlobalPassGuarded(gp GlobalPass, ctx *ir.Context, caches map[string]*analysis.AnalysesCache) {
	defer func() {
		if r := recover(); r != nil {
			if cp, ok := r.(*errors.CompilerPanic); ok {
				panic(cp.WithPass(gp.Name()))
			}
			panic(r)
		}
	}()
	gp.RunContext(ctx, caches)
}
