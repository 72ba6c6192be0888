// Package passes implements the Venom middle-end's optimization and
// lowering passes plus the pass manager that sequences them per
// optimization level.
package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// Pass is one optimization or lowering transformation over a single
// function. Run requests whatever analyses it needs from cache, mutates
// through upd, invalidates what it touched, and reports whether it changed
// anything (the manager calls Run once per pipeline entry and does not act
// on the result; passes that iterate do so inside their own Run).
type Pass interface {
	Name() string
	Run(fn *ir.Function, cache *analysis.AnalysesCache) bool
}

// updaterFor builds an InstUpdater bound to fn's cached DFG, the only
// analysis InstUpdater itself reads.
func updaterFor(cache *analysis.AnalysesCache) *ir.InstUpdater {
	return ir.NewInstUpdater(cache.RequestDFG())
}

// GlobalPass is a transformation that spans the whole context rather than
// one function — presently only the function inliner, which deletes
// inlined callees and duplicates their blocks into callers. The manager
// runs these before the per-function pipeline so later passes never see a
// call site that's about to disappear.
type GlobalPass interface {
	Name() string
	RunContext(ctx *ir.Context, caches map[string]*analysis.AnalysesCache) bool
}
