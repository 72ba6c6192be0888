package ir

// EffectSet is the reordering-constraint model: a bag of the resource
// domains an instruction touches. Two instructions may be reordered only if
// neither writes a domain the other reads or writes.
type EffectSet struct {
	Memory      bool
	Storage     bool
	Transient   bool
	Balance     bool
	Extcode     bool
	Returndata  bool
	Immutables  bool
	Gas         bool
	MSize       bool
	ControlFlow bool
}

// AllEffects is the conservative top element, used for any opcode the
// closed table doesn't recognize.
func AllEffects() EffectSet {
	return EffectSet{
		Memory: true, Storage: true, Transient: true, Balance: true,
		Extcode: true, Returndata: true, Immutables: true, Gas: true,
		MSize: true, ControlFlow: true,
	}
}

// Empty reports whether the set has no domains set.
func (e EffectSet) Empty() bool {
	return e == EffectSet{}
}

// Intersects reports whether e and o share any domain.
func (e EffectSet) Intersects(o EffectSet) bool {
	return (e.Memory && o.Memory) ||
		(e.Storage && o.Storage) ||
		(e.Transient && o.Transient) ||
		(e.Balance && o.Balance) ||
		(e.Extcode && o.Extcode) ||
		(e.Returndata && o.Returndata) ||
		(e.Immutables && o.Immutables) ||
		(e.Gas && o.Gas) ||
		(e.MSize && o.MSize) ||
		(e.ControlFlow && o.ControlFlow)
}

// Union merges two effect sets.
func (e EffectSet) Union(o EffectSet) EffectSet {
	return EffectSet{
		Memory:      e.Memory || o.Memory,
		Storage:     e.Storage || o.Storage,
		Transient:   e.Transient || o.Transient,
		Balance:     e.Balance || o.Balance,
		Extcode:     e.Extcode || o.Extcode,
		Returndata:  e.Returndata || o.Returndata,
		Immutables:  e.Immutables || o.Immutables,
		Gas:         e.Gas || o.Gas,
		MSize:       e.MSize || o.MSize,
		ControlFlow: e.ControlFlow || o.ControlFlow,
	}
}
