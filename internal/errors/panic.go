package errors

import "fmt"

// CompilerPanic is raised when an IR invariant is violated — a missing
// terminator, an analysis that failed to converge, an unreachable phi
// edge, or a failed CFG normalization. It is fatal: passes never recover
// from it themselves. The driver recovers it only at the pass-manager
// boundary, to stamp the currently-running pass name, then re-panics.
type CompilerPanic struct {
	Code      string
	Message   string
	Pass      string
	Function  string
	Block     string
	AstSource string
	ErrorMsg  string
}

func (p *CompilerPanic) Error() string {
	s := "compiler panic"
	if p.Code != "" {
		s += fmt.Sprintf("[%s]", p.Code)
	}
	s += ": " + p.Message
	if p.Pass != "" {
		s += fmt.Sprintf(" (pass=%s", p.Pass)
		if p.Function != "" {
			s += fmt.Sprintf(", function=%s", p.Function)
		}
		if p.Block != "" {
			s += fmt.Sprintf(", block=%s", p.Block)
		}
		s += ")"
	} else if p.Function != "" {
		s += fmt.Sprintf(" (function=%s)", p.Function)
	}
	if p.AstSource != "" {
		s += fmt.Sprintf(" [source: %s]", p.AstSource)
	}
	if p.ErrorMsg != "" {
		s += fmt.Sprintf(" [%s]", p.ErrorMsg)
	}
	return s
}

// WithPass returns a copy of p with Pass set, used by the pass-manager
// driver when it recovers a panic at the pass boundary to attach
// attribution before re-raising.
func (p *CompilerPanic) WithPass(pass string) *CompilerPanic {
	cp := *p
	cp.Pass = pass
	return &cp
}

// UnreachableStack is raised by the downstream stack-machine emitter when
// the DFT schedule cannot be realized as a valid stack layout. The driver
// may respond by running a stack-to-memory demotion pass and retrying.
type UnreachableStack struct {
	Function string
	Block    string
	Message  string
}

func (e *UnreachableStack) Error() string {
	return fmt.Sprintf("unreachable stack layout in function=%s block=%s: %s", e.Function, e.Block, e.Message)
}

// MemoryError is raised when the allocator cannot satisfy a request, or
// when deallocate names an address it never allocated.
type MemoryError struct {
	Code    string
	Message string
}

func (e *MemoryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("memory error[%s]: %s", e.Code, e.Message)
	}
	return "memory error: " + e.Message
}
