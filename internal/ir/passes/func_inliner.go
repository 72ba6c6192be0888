package passes

import (
	"venom/internal/ir"
	"venom/internal/ir/analysis"
)

// FunctionInliner is a GlobalPass: it walks the context's call graph
// bottom-up and inlines every function with exactly one call site (and no
// self-recursion) directly into its caller, then removes the now-dead
// callee. Each inlined call site is replaced by a copy of the callee's
// blocks, spliced in between the caller's pre-call instructions and a
// freshly minted post-call block holding everything that followed the
// call. Inside the copy: `param` becomes `assign` of the matching
// call-site argument, `palloca` becomes `assign` of its own offset
// operand, `ret` becomes `jmp` to the post-call block (first forwarding
// its value into the call's output variable, if the call produced one),
// and every label is prefixed so it can't collide with the caller's own.
type FunctionInliner struct{}

func (FunctionInliner) Name() string { return "function-inliner" }

func (FunctionInliner) RunContext(ctx *ir.Context, caches map[string]*analysis.AnalysesCache) bool {
	changed := false

	for {
		fcg := analysis.BuildFunctionCallGraph(ctx)
		order := fcg.BottomUpOrder(ctx)

		inlinedThisRound := false
		for _, name := range order {
			fn, ok := ctx.GetFunction(name)
			if !ok {
				continue
			}
			sites := fcg.CallSites(fn.Name)
			if len(sites) != 1 {
				continue
			}
			site := sites[0]
			if site.Caller == fn {
				continue
			}

			inlineCallSite(ctx, fn, site)
			ctx.RemoveFunction(fn.Name)
			if c, ok := caches[site.Caller.Name]; ok {
				c.InvalidateAnalysis(analysis.KindCFG)
				c.InvalidateAnalysis(analysis.KindDFG)
			}
			delete(caches, fn.Name)

			changed = true
			inlinedThisRound = true
			break // call graph changed; rebuild before continuing
		}
		if !inlinedThisRound {
			break
		}
	}

	return changed
}

func inlineCallSite(ctx *ir.Context, callee *ir.Function, site *analysis.CallSite) {
	caller := site.Caller
	callInst := site.Inst
	callSiteBB := callInst.Parent

	prefix := ctx.FreshGlobalLabel("inline") + "_"

	callIdx := -1
	for i, inst := range callSiteBB.Instructions {
		if inst == callInst {
			callIdx = i
			break
		}
	}
	if callIdx < 0 {
		return
	}

	postLabel := caller.GetNextLabel(prefix + "post")
	post := ir.NewBasicBlock(postLabel)
	for _, inst := range callSiteBB.Instructions[callIdx+1:] {
		inst.Parent = post
		post.Instructions = append(post.Instructions, inst)
	}
	caller.AddBlock(post)

	args := callInst.Operands
	if len(args) > 0 {
		args = args[1:] // drop the callee-label operand
	}

	calleeCopy := callee.Copy()
	paramIdx := 0
	for _, bb := range calleeCopy.Blocks {
		bb.Label = prefix + bb.Label
		bb.Parent = caller
		for _, inst := range bb.Instructions {
			rewriteInlinedInstruction(inst, args, &paramIdx, callInst, postLabel, prefix)
		}
	}
	for _, bb := range calleeCopy.Blocks {
		caller.AddBlock(bb)
	}

	entryLabel := prefix + calleeCopy.Entry
	callSiteBB.Instructions = append(callSiteBB.Instructions[:callIdx], ir.NewInstruction(ir.OpJmp, ir.Label{Name: entryLabel}))
}

func rewriteInlinedInstruction(inst *ir.Instruction, args []ir.Operand, paramIdx *int, callInst *ir.Instruction, postLabel, prefix string) {
	switch inst.Opcode {
	case ir.OpParam:
		var arg ir.Operand = ir.NewLiteral(0)
		if *paramIdx < len(args) {
			arg = args[*paramIdx]
		}
		*paramIdx++
		inst.Opcode = ir.OpAssign
		inst.Operands = []ir.Operand{arg}
	case ir.OpPAlloca, ir.OpCAlloca:
		if len(inst.Operands) > 0 {
			inst.Opcode = ir.OpAssign
			inst.Operands = inst.Operands[:1]
		}
	case ir.OpRet:
		if callInst.Output != nil && len(inst.Operands) > 0 {
			forward := &ir.Instruction{Opcode: ir.OpAssign, Operands: []ir.Operand{inst.Operands[0]}, Output: callInst.Output, Parent: inst.Parent}
			insertBefore(inst.Parent, inst, forward)
		}
		inst.Opcode = ir.OpJmp
		inst.Operands = []ir.Operand{ir.Label{Name: postLabel}}
	case ir.OpJmp, ir.OpJnz, ir.OpDjmp, ir.OpPhi:
		for i, op := range inst.Operands {
			if lbl, ok := op.(ir.Label); ok {
				inst.Operands[i] = ir.Label{Name: prefix + lbl.Name}
			}
		}
	}
}

func insertBefore(b *ir.BasicBlock, anchor, inst *ir.Instruction) {
	for i, x := range b.Instructions {
		if x == anchor {
			b.Instructions = append(b.Instructions[:i], append([]*ir.Instruction{inst}, b.Instructions[i:]...)...)
			return
		}
	}
}
