// Package compiler turns an internal/ast.Program into an internal/bytecode
// Module: scope resolution, a free-list register allocator, codegen for
// expressions/statements/functions, and a peephole optimizer pass
// (spec.md §4.1, §4.2).
package compiler

import (
	"github.com/otterjs/otter/internal/ast"
	"github.com/otterjs/otter/internal/bytecode"
	"github.com/otterjs/otter/internal/parser"
)

// Compile parses src and compiles it into a bytecode.Module whose
// Functions[0] is the top-level main (spec.md §6.5).
func Compile(src, sourceURL string) (*bytecode.Module, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		if pe, ok := err.(*parser.Error); ok {
			return nil, &CompileError{Kind: ErrParse, Line: pe.Line, Message: pe.Message}
		}
		return nil, &CompileError{Kind: ErrParse, Message: err.Error()}
	}
	cg := newCodeGen(sourceURL)
	main := cg.newFuncCtx(nil, "main", 0, false)
	cg.push(main)
	for _, stmt := range prog.Body {
		if err := cg.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	cg.emitImplicitReturn()
	cg.pop()
	mod := &bytecode.Module{SourceURL: sourceURL}
	for _, fc := range cg.allFuncs {
		fn := fc.finish()
		Optimize(fn)
		mod.Functions = append(mod.Functions, fn)
	}
	return mod, nil
}

// codeGen owns the stack of function contexts and the global list of all
// functions compiled so far (so that Closure opcodes can reference a
// stable function index once every function is finished).
type codeGen struct {
	sourceURL string
	stack     []*funcCtx
	allFuncs  []*funcCtx
}

func newCodeGen(sourceURL string) *codeGen {
	return &codeGen{sourceURL: sourceURL}
}

func (cg *codeGen) current() *funcCtx { return cg.stack[len(cg.stack)-1] }
func (cg *codeGen) push(fc *funcCtx)  { cg.stack = append(cg.stack, fc) }
func (cg *codeGen) pop()              { cg.stack = cg.stack[:len(cg.stack)-1] }

// funcCtx holds per-function compilation state (spec.md §4.1 "Function
// context").
type funcCtx struct {
	cg         *codeGen
	parent     *funcCtx
	index      int // this function's index in cg.allFuncs, assigned at creation
	name       string
	sourceURL  string
	isArrow    bool
	paramCount uint16

	scopes []map[string]uint16 // block-scope stack: name -> local index
	nextLocal uint16
	numLocals uint16

	freeRegs []bytecode.Register
	nextReg  bytecode.Register
	maxReg   bytecode.Register

	instructions []bytecode.Instruction
	lines        []int32

	constants   []bytecode.Constant
	strConstIdx map[string]uint32
	numConstIdx map[float64]uint32

	upvalues     []bytecode.UpvalueDesc
	upvalueIndex map[string]uint16

	loopStack []*loopCtx
}

type loopCtx struct {
	breaks    []int // instruction indices of Jump placeholders to patch to loop-end
	continues []int // instruction indices of Jump placeholders to patch to loop-update
}

func (cg *codeGen) newFuncCtx(parent *funcCtx, name string, paramCount uint16, isArrow bool) *funcCtx {
	fc := &funcCtx{
		cg: cg, parent: parent, name: name, sourceURL: cg.sourceURL,
		isArrow: isArrow, paramCount: paramCount,
		strConstIdx:  make(map[string]uint32),
		numConstIdx:  make(map[float64]uint32),
		upvalueIndex: make(map[string]uint16),
	}
	fc.scopes = []map[string]uint16{make(map[string]uint16)}
	fc.index = len(cg.allFuncs)
	cg.allFuncs = append(cg.allFuncs, fc)
	return fc
}

func (fc *funcCtx) finish() *bytecode.Function {
	return &bytecode.Function{
		Name:         fc.name,
		Instructions: fc.instructions,
		Constants:    fc.constants,
		NumLocals:    fc.numLocals,
		NumRegisters: fc.maxReg,
		ParamCount:   fc.paramCount,
		IsArrow:      fc.isArrow,
		Upvalues:     fc.upvalues,
		SourceURL:    fc.sourceURL,
		Debug:        &bytecode.DebugTable{Lines: fc.lines},
	}
}

// ---- Register allocation (spec.md §4.1 free-list allocator) ----

func (fc *funcCtx) allocReg() bytecode.Register {
	if n := len(fc.freeRegs); n > 0 {
		r := fc.freeRegs[n-1]
		fc.freeRegs = fc.freeRegs[:n-1]
		return r
	}
	r := fc.nextReg
	fc.nextReg++
	if fc.nextReg > fc.maxReg {
		fc.maxReg = fc.nextReg
	}
	return r
}

func (fc *funcCtx) freeReg(r bytecode.Register) {
	fc.freeRegs = append(fc.freeRegs, r)
}

// allocRegBlock reserves n contiguous registers for call-argument layout
// (Call/CallMethod/Construct read argv starting right after the callee
// register). It bypasses the free-list since contiguity, not reuse, is
// what matters here.
func (fc *funcCtx) allocRegBlock(n int) []bytecode.Register {
	out := make([]bytecode.Register, n)
	for i := 0; i < n; i++ {
		out[i] = fc.nextReg
		fc.nextReg++
	}
	if fc.nextReg > fc.maxReg {
		fc.maxReg = fc.nextReg
	}
	return out
}

func (fc *funcCtx) freeRegBlock(regs []bytecode.Register) {
	for i := len(regs) - 1; i >= 0; i-- {
		fc.freeReg(regs[i])
	}
}

// ---- Scope / local resolution ----

func (fc *funcCtx) pushScope() { fc.scopes = append(fc.scopes, make(map[string]uint16)) }

func (fc *funcCtx) popScope() {
	top := fc.scopes[len(fc.scopes)-1]
	fc.nextLocal -= uint16(len(top))
	fc.scopes = fc.scopes[:len(fc.scopes)-1]
}

func (fc *funcCtx) declareLocal(name string) uint16 {
	idx := fc.nextLocal
	fc.nextLocal++
	if fc.nextLocal > fc.numLocals {
		fc.numLocals = fc.nextLocal
	}
	fc.scopes[len(fc.scopes)-1][name] = idx
	return idx
}

// resolution describes where a variable reference lands.
type resolution struct {
	kind  resKind
	local uint16
	upval uint16
}

type resKind uint8

const (
	resGlobal resKind = iota
	resLocal
	resUpvalue
)

func (fc *funcCtx) resolveLocal(name string) (uint16, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		if idx, ok := fc.scopes[i][name]; ok {
			return idx, true
		}
	}
	return 0, false
}

func (fc *funcCtx) resolve(name string) resolution {
	if idx, ok := fc.resolveLocal(name); ok {
		return resolution{kind: resLocal, local: idx}
	}
	if fc.parent == nil {
		return resolution{kind: resGlobal}
	}
	if idx, ok := fc.upvalueIndex[name]; ok {
		return resolution{kind: resUpvalue, upval: idx}
	}
	parentRes := fc.parent.resolve(name)
	switch parentRes.kind {
	case resLocal:
		idx := uint16(len(fc.upvalues))
		fc.upvalues = append(fc.upvalues, bytecode.UpvalueDesc{FromParentLocal: true, Index: parentRes.local})
		fc.upvalueIndex[name] = idx
		return resolution{kind: resUpvalue, upval: idx}
	case resUpvalue:
		idx := uint16(len(fc.upvalues))
		fc.upvalues = append(fc.upvalues, bytecode.UpvalueDesc{FromParentLocal: false, Index: parentRes.upval})
		fc.upvalueIndex[name] = idx
		return resolution{kind: resUpvalue, upval: idx}
	default:
		return resolution{kind: resGlobal}
	}
}

// ---- Constant pool ----

func (fc *funcCtx) stringConst(s string) uint32 {
	if idx, ok := fc.strConstIdx[s]; ok {
		return idx
	}
	idx := uint32(len(fc.constants))
	fc.constants = append(fc.constants, bytecode.Constant{Kind: bytecode.ConstString, Str: s})
	fc.strConstIdx[s] = idx
	return idx
}

func (fc *funcCtx) numberConst(n float64) uint32 {
	if idx, ok := fc.numConstIdx[n]; ok {
		return idx
	}
	idx := uint32(len(fc.constants))
	fc.constants = append(fc.constants, bytecode.Constant{Kind: bytecode.ConstNumber, Number: n})
	fc.numConstIdx[n] = idx
	return idx
}

// ---- Emission ----

func (fc *funcCtx) emit(in bytecode.Instruction, line int) int {
	in.Line = int32(line)
	idx := len(fc.instructions)
	fc.instructions = append(fc.instructions, in)
	fc.lines = append(fc.lines, int32(line))
	return idx
}

// patchJumpHere back-patches a previously emitted jump instruction's Imm with
// the relative offset to the current instruction index (spec.md §4.1
// "jump sites remember their index and are back-patched").
func (fc *funcCtx) patchJumpHere(jumpIdx int) {
	fc.instructions[jumpIdx].Imm = int32(len(fc.instructions)) - int32(jumpIdx)
}

func (fc *funcCtx) patchJumpTo(jumpIdx, target int) {
	fc.instructions[jumpIdx].Imm = int32(target) - int32(jumpIdx)
}

func (fc *funcCtx) here() int { return len(fc.instructions) }

func (cg *codeGen) emitImplicitReturn() {
	fc := cg.current()
	fc.emit(bytecode.Instruction{Op: bytecode.OpReturnUndefined}, 0)
}

var _ = ast.Node(nil) // ast package referenced by codegen_*.go in this package
