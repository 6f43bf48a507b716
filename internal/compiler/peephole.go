package compiler

import "github.com/otterjs/otter/internal/bytecode"

// Optimize runs the six ordered peephole passes over fn's instruction
// stream to a fixed point (spec.md §4.2): Nop removal, dead-code-after-
// terminator elimination, copy propagation, register coalescing,
// single-instruction rewrites, and two-instruction window rewrites. If any
// pass changed anything, the whole sequence runs again, since later passes
// can expose opportunities for earlier ones.
func Optimize(fn *bytecode.Function) {
	for {
		changed := false
		changed = removeNops(fn) || changed
		changed = trimDeadCode(fn) || changed
		changed = propagateCopies(fn) || changed
		changed = coalesceRegisters(fn) || changed
		changed = rewriteSingle(fn) || changed
		changed = rewritePairs(fn) || changed
		if !changed {
			return
		}
	}
}

// removeNops drops Nop instructions, renumbering jump targets that cross
// the removed indices.
func removeNops(fn *bytecode.Function) bool {
	hasNop := false
	for _, in := range fn.Instructions {
		if in.Op == bytecode.OpNop {
			hasNop = true
			break
		}
	}
	if !hasNop {
		return false
	}
	// remap[i] is the output position an original index i lands on if kept,
	// or the position of the next kept instruction if i itself is a Nop —
	// either way, the right landing spot for a jump targeting i.
	remap := make([]int32, len(fn.Instructions)+1)
	out := make([]bytecode.Instruction, 0, len(fn.Instructions))
	origOf := make([]int, 0, len(fn.Instructions))
	lines := make([]int32, 0, len(fn.Debug.Lines))
	for i, in := range fn.Instructions {
		remap[i] = int32(len(out))
		if in.Op == bytecode.OpNop {
			continue
		}
		out = append(out, in)
		origOf = append(origOf, i)
		if i < len(fn.Debug.Lines) {
			lines = append(lines, fn.Debug.Lines[i])
		}
	}
	remap[len(fn.Instructions)] = int32(len(out))

	for i := range out {
		if !isJump(out[i].Op) {
			continue
		}
		target := origOf[i] + int(out[i].Imm)
		newTarget := remap[clampIdx(target, len(remap)-1)]
		out[i].Imm = newTarget - int32(i)
	}
	fn.Instructions = out
	fn.Debug.Lines = lines
	return true
}

func clampIdx(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

func isJump(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpJump, bytecode.OpJumpIfTrue, bytecode.OpJumpIfFalse,
		bytecode.OpJumpIfNullish, bytecode.OpJumpIfNotNullish,
		bytecode.OpTryStart, bytecode.OpForInNext:
		return true
	}
	return false
}

// trimDeadCode removes unreachable instructions immediately following an
// unconditional terminator within the same basic block (no label can
// target them since the compiler never emits forward-only gaps without a
// jump record).
func trimDeadCode(fn *bytecode.Function) bool {
	jumpTargets := map[int]bool{}
	for i, in := range fn.Instructions {
		if isJump(in.Op) {
			jumpTargets[i+int(in.Imm)] = true
		}
	}
	changed := false
	dead := false
	keep := make([]bool, len(fn.Instructions))
	for i, in := range fn.Instructions {
		if jumpTargets[i] {
			dead = false
		}
		if dead {
			changed = true
			keep[i] = false
		} else {
			keep[i] = true
		}
		if in.Op.IsTerminator() {
			dead = true
		}
	}
	if !changed {
		return false
	}

	remap := make([]int32, len(fn.Instructions)+1)
	out := make([]bytecode.Instruction, 0, len(fn.Instructions))
	origOf := make([]int, 0, len(fn.Instructions))
	lines := make([]int32, 0, len(fn.Debug.Lines))
	for i, in := range fn.Instructions {
		remap[i] = int32(len(out))
		if !keep[i] {
			continue
		}
		out = append(out, in)
		origOf = append(origOf, i)
		if i < len(fn.Debug.Lines) {
			lines = append(lines, fn.Debug.Lines[i])
		}
	}
	remap[len(fn.Instructions)] = int32(len(out))

	for i := range out {
		if !isJump(out[i].Op) {
			continue
		}
		target := origOf[i] + int(out[i].Imm)
		newTarget := remap[clampIdx(target, len(remap)-1)]
		out[i].Imm = newTarget - int32(i)
	}
	fn.Instructions = out
	fn.Debug.Lines = lines
	return true
}

// propagateCopies replaces uses of a register that was just Move'd from
// another register with the original source, within a basic block (reset
// at any IsControlFlow instruction). The Move itself is left in place: no
// pass removes a Move whose destination is merely unused afterwards.
func propagateCopies(fn *bytecode.Function) bool {
	changed := false
	copyOf := map[bytecode.Register]bytecode.Register{}
	for i := range fn.Instructions {
		in := &fn.Instructions[i]
		if src, ok := copyOf[in.Src1]; ok {
			in.Src1 = src
			changed = true
		}
		if usesSrc2(in.Op) {
			if src, ok := copyOf[in.Src2]; ok {
				in.Src2 = src
				changed = true
			}
		}
		if in.Op == bytecode.OpMove {
			copyOf[in.Dst] = resolveCopy(copyOf, in.Src1)
		} else if writesDst(in.Op) {
			delete(copyOf, in.Dst)
		}
		if in.Op.IsControlFlow() {
			copyOf = map[bytecode.Register]bytecode.Register{}
		}
	}
	return changed
}

func resolveCopy(copyOf map[bytecode.Register]bytecode.Register, r bytecode.Register) bytecode.Register {
	if src, ok := copyOf[r]; ok {
		return src
	}
	return r
}

var binaryOps = map[bytecode.Opcode]bool{
	bytecode.OpAdd: true, bytecode.OpSub: true, bytecode.OpMul: true, bytecode.OpDiv: true,
	bytecode.OpMod: true, bytecode.OpPow: true, bytecode.OpBitAnd: true, bytecode.OpBitOr: true,
	bytecode.OpBitXor: true, bytecode.OpShl: true, bytecode.OpShr: true, bytecode.OpUShr: true,
	bytecode.OpEq: true, bytecode.OpNotEq: true, bytecode.OpStrictEq: true, bytecode.OpStrictNotEq: true,
	bytecode.OpLt: true, bytecode.OpLte: true, bytecode.OpGt: true, bytecode.OpGte: true,
}

func usesSrc2(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpGetElem, bytecode.OpSetElem, bytecode.OpSetProp, bytecode.OpSetPropConst:
		return true
	}
	return binaryOps[op]
}

func writesDst(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpSetLocal, bytecode.OpSetGlobal, bytecode.OpSetUpvalue,
		bytecode.OpSetProp, bytecode.OpSetPropConst, bytecode.OpSetElem,
		bytecode.OpJump, bytecode.OpJumpIfTrue, bytecode.OpJumpIfFalse,
		bytecode.OpJumpIfNullish, bytecode.OpJumpIfNotNullish,
		bytecode.OpTryStart, bytecode.OpTryEnd, bytecode.OpThrow,
		bytecode.OpReturn, bytecode.OpReturnUndefined, bytecode.OpDebugger,
		bytecode.OpNop:
		return false
	}
	return true
}

// coalesceRegisters merges a Move's destination into its source when the
// destination is never subsequently redefined before its next use sees
// the source value anyway (a narrow, safe case: an immediately-following
// Move back into the original register is deleted outright).
func coalesceRegisters(fn *bytecode.Function) bool {
	changed := false
	for i := 0; i+1 < len(fn.Instructions); i++ {
		a, b := fn.Instructions[i], fn.Instructions[i+1]
		if a.Op == bytecode.OpMove && b.Op == bytecode.OpMove && b.Src1 == a.Dst && b.Dst == a.Src1 {
			fn.Instructions[i+1] = bytecode.Instruction{Op: bytecode.OpNop, Line: b.Line}
			changed = true
		}
	}
	return changed
}

// rewriteSingle collapses single-instruction patterns: redundant self-moves
// (Dst == Src1) become Nops. A Move whose destination is never read again
// is not removed here.
func rewriteSingle(fn *bytecode.Function) bool {
	changed := false
	for i := range fn.Instructions {
		in := &fn.Instructions[i]
		if in.Op == bytecode.OpMove && in.Dst == in.Src1 {
			*in = bytecode.Instruction{Op: bytecode.OpNop, Line: in.Line}
			changed = true
		}
	}
	return changed
}

// rewritePairs folds a two-instruction window of LoadConst/LoadInt*
// followed immediately by a Move of that same value into a direct load
// into the Move's destination, eliminating the intermediate register.
func rewritePairs(fn *bytecode.Function) bool {
	changed := false
	for i := 0; i+1 < len(fn.Instructions); i++ {
		a, b := fn.Instructions[i], fn.Instructions[i+1]
		if !isLoad(a.Op) || b.Op != bytecode.OpMove || b.Src1 != a.Dst {
			continue
		}
		if usedAfter(fn.Instructions[i+2:], a.Dst) {
			continue
		}
		fn.Instructions[i].Dst = b.Dst
		fn.Instructions[i+1] = bytecode.Instruction{Op: bytecode.OpNop, Line: b.Line}
		changed = true
	}
	return changed
}

func isLoad(op bytecode.Opcode) bool {
	switch op {
	case bytecode.OpLoadUndefined, bytecode.OpLoadNull, bytecode.OpLoadTrue,
		bytecode.OpLoadFalse, bytecode.OpLoadInt8, bytecode.OpLoadInt32, bytecode.OpLoadConst:
		return true
	}
	return false
}

func usedAfter(rest []bytecode.Instruction, r bytecode.Register) bool {
	for _, in := range rest {
		if in.Src1 == r || (usesSrc2(in.Op) && in.Src2 == r) {
			return true
		}
		if in.Op.IsControlFlow() {
			break
		}
	}
	return false
}
