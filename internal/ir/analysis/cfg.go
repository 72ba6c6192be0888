// Package analysis implements the Venom middle-end's function-level
// analyses: CFG, dominators, liveness, def-use/data-flow, loop detection,
// variable equivalence, available expressions, memory SSA, and the
// function call graph. Each analysis is read-only once built; InstUpdater
// mutations invalidate them via the AnalysesCache.
package analysis

import "venom/internal/ir"

// CFG derives control-flow edges from every block's terminator and caches
// them on the blocks themselves (BasicBlock.CfgIn/CfgOut) for O(1) access,
// matching how the rest of the analyses expect to read them.
type CFG struct {
	fn *ir.Function
}

// BuildCFG computes cfg_in/cfg_out for every block of fn from its
// terminators' label operands, per spec: B.label appears as an operand of
// A's terminator iff (A,B) is a CFG edge.
func BuildCFG(fn *ir.Function) *CFG {
	for _, b := range fn.Blocks {
		b.CfgIn = ir.NewOrderedSet[string]()
		b.CfgOut = ir.NewOrderedSet[string]()
	}
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, lbl := range term.LabelOperands() {
			succ, ok := fn.GetBlock(lbl.Name)
			if !ok {
				continue
			}
			b.CfgOut.Add(succ.Label)
			succ.CfgIn.Add(b.Label)
		}
	}
	return &CFG{fn: fn}
}

// Successors returns the successor labels of b in CFG-edge order.
func (c *CFG) Successors(b *ir.BasicBlock) []string { return b.CfgOut.Items() }

// Predecessors returns the predecessor labels of b in CFG-edge order.
func (c *CFG) Predecessors(b *ir.BasicBlock) []string { return b.CfgIn.Items() }

// ReversePostorder returns blocks in reverse-postorder from the entry,
// which is the iteration order liveness/dominators/DFT rely on for fast
// convergence. Unreachable blocks are omitted.
func (c *CFG) ReversePostorder() []*ir.BasicBlock {
	visited := make(map[string]bool)
	var post []*ir.BasicBlock
	var dfs func(label string)
	dfs = func(label string) {
		if visited[label] {
			return
		}
		visited[label] = true
		b, ok := c.fn.GetBlock(label)
		if !ok {
			return
		}
		for _, succ := range b.CfgOut.Items() {
			dfs(succ)
		}
		post = append(post, b)
	}
	dfs(c.fn.Entry)
	// reverse
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Reachable reports whether label is reachable from the entry.
func (c *CFG) Reachable(label string) bool {
	for _, b := range c.ReversePostorder() {
		if b.Label == label {
			return true
		}
	}
	return false
}
