package analysis

import "venom/internal/ir"

// Kind identifies one of the analyses an AnalysesCache can hold, used by
// InvalidateAnalysis/ForceAnalysis to address a specific cached result and
// cascade to its declared dependents.
type Kind int

const (
	KindCFG Kind = iota
	KindDominators
	KindLiveness
	KindDFG
	KindLoop
	KindEquivalence
	KindAvailableExpr
	KindMemSSAMemory
	KindMemSSAStorage
	KindMemSSATransient
)

// dependents declares, for each analysis, the set of analyses that must be
// invalidated when it is invalidated (because they were built from it).
var dependents = map[Kind][]Kind{
	KindCFG: {KindDominators, KindLiveness, KindLoop, KindAvailableExpr, KindMemSSAMemory, KindMemSSAStorage, KindMemSSATransient},
	KindDominators: {KindAvailableExpr},
}

// AnalysesCache is a per-function registry of memoized analyses. It is not
// thread-safe and must not be shared across goroutines compiling different
// functions; spec.md's parallel-compilation model gives each function its
// own cache.
type AnalysesCache struct {
	fn *ir.Function

	valid map[Kind]bool

	cfg        *CFG
	dominators *DominatorTree
	liveness   *Liveness
	dfg        *ir.DFG
	loop       *LoopInfo
	equiv      *VarEquivalence
	availExpr  *AvailableExpression
	memSSA     map[Kind]*MemorySSA
}

// NewAnalysesCache creates an empty cache bound to fn.
func NewAnalysesCache(fn *ir.Function) *AnalysesCache {
	return &AnalysesCache{
		fn:     fn,
		valid:  make(map[Kind]bool),
		memSSA: make(map[Kind]*MemorySSA),
	}
}

// RequestCFG runs CFG analysis once and caches it.
func (c *AnalysesCache) RequestCFG() *CFG {
	if !c.valid[KindCFG] {
		c.cfg = BuildCFG(c.fn)
		c.valid[KindCFG] = true
	}
	return c.cfg
}

// RequestDominators runs (or returns cached) dominator-tree analysis.
func (c *AnalysesCache) RequestDominators() *DominatorTree {
	if !c.valid[KindDominators] {
		c.dominators = BuildDominatorTree(c.fn, c.RequestCFG())
		c.valid[KindDominators] = true
	}
	return c.dominators
}

// RequestLiveness runs (or returns cached) liveness analysis.
func (c *AnalysesCache) RequestLiveness() *Liveness {
	if !c.valid[KindLiveness] {
		c.liveness = BuildLiveness(c.fn, c.RequestCFG())
		c.valid[KindLiveness] = true
	}
	return c.liveness
}

// RequestDFG runs (or returns cached) def-use graph construction.
func (c *AnalysesCache) RequestDFG() *ir.DFG {
	if !c.valid[KindDFG] {
		c.dfg = ir.BuildDFG(c.fn)
		c.valid[KindDFG] = true
	}
	return c.dfg
}

// RequestLoop runs (or returns cached) loop detection.
func (c *AnalysesCache) RequestLoop() *LoopInfo {
	if !c.valid[KindLoop] {
		c.loop = DetectLoops(c.fn, c.RequestCFG())
		c.valid[KindLoop] = true
	}
	return c.loop
}

// RequestEquivalence runs (or returns cached) variable-equivalence analysis.
func (c *AnalysesCache) RequestEquivalence() *VarEquivalence {
	if !c.valid[KindEquivalence] {
		c.equiv = BuildVarEquivalence(c.fn)
		c.valid[KindEquivalence] = true
	}
	return c.equiv
}

// RequestAvailableExpression runs (or returns cached) CSE's
// available-expression analysis.
func (c *AnalysesCache) RequestAvailableExpression() *AvailableExpression {
	if !c.valid[KindAvailableExpr] {
		c.availExpr = BuildAvailableExpression(c.fn, c.RequestDominators(), c.RequestCFG())
		c.valid[KindAvailableExpr] = true
	}
	return c.availExpr
}

// RequestMemorySSA runs (or returns cached) memory-SSA for one address space.
func (c *AnalysesCache) RequestMemorySSA(space AddressSpace) *MemorySSA {
	k := memSSAKind(space)
	if !c.valid[k] {
		c.memSSA[k] = BuildMemorySSA(c.fn, c.RequestCFG(), space)
		c.valid[k] = true
	}
	return c.memSSA[k]
}

func memSSAKind(space AddressSpace) Kind {
	switch space {
	case SpaceMemory:
		return KindMemSSAMemory
	case SpaceStorage:
		return KindMemSSAStorage
	default:
		return KindMemSSATransient
	}
}

// InvalidateAnalysis drops the cached result for k and cascades to every
// analysis declared to depend on it.
func (c *AnalysesCache) InvalidateAnalysis(k Kind) {
	if !c.valid[k] {
		return
	}
	c.valid[k] = false
	for _, dep := range dependents[k] {
		c.InvalidateAnalysis(dep)
	}
}

// InvalidateAll drops every cached analysis — used after a mutation whose
// extent a pass doesn't want to reason about precisely (e.g. the inliner,
// which rewrites whole blocks).
func (c *AnalysesCache) InvalidateAll() {
	for k := range c.valid {
		c.valid[k] = false
	}
}

// ForceAnalysis invalidates k and immediately rebuilds it.
func (c *AnalysesCache) ForceAnalysis(k Kind) {
	c.InvalidateAnalysis(k)
	switch k {
	case KindCFG:
		c.RequestCFG()
	case KindDominators:
		c.RequestDominators()
	case KindLiveness:
		c.RequestLiveness()
	case KindDFG:
		c.RequestDFG()
	case KindLoop:
		c.RequestLoop()
	case KindEquivalence:
		c.RequestEquivalence()
	case KindAvailableExpr:
		c.RequestAvailableExpression()
	case KindMemSSAMemory:
		c.RequestMemorySSA(SpaceMemory)
	case KindMemSSAStorage:
		c.RequestMemorySSA(SpaceStorage)
	case KindMemSSATransient:
		c.RequestMemorySSA(SpaceTransient)
	}
}
