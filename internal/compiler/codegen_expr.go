package compiler

import (
	"github.com/otterjs/otter/internal/ast"
	"github.com/otterjs/otter/internal/bytecode"
)

// compileExpression returns a Register holding the expression's value.
// Ownership transfers to the caller, who must free it (spec.md §4.1
// "Expression codegen contract").
func (cg *codeGen) compileExpression(n ast.Node) (bytecode.Register, error) {
	fc := cg.current()
	line := n.Line()
	switch e := n.(type) {
	case *ast.NumberLit:
		return cg.loadNumber(e.Value, line), nil
	case *ast.StringLit:
		dst := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadConst, Dst: dst, ConstIdx: fc.stringConst(e.Value)}, line)
		return dst, nil
	case *ast.BoolLit:
		dst := fc.allocReg()
		op := bytecode.OpLoadFalse
		if e.Value {
			op = bytecode.OpLoadTrue
		}
		fc.emit(bytecode.Instruction{Op: op, Dst: dst}, line)
		return dst, nil
	case *ast.NullLit:
		dst := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadNull, Dst: dst}, line)
		return dst, nil
	case *ast.UndefinedLit:
		dst := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadUndefined, Dst: dst}, line)
		return dst, nil
	case *ast.Ident:
		return cg.compileIdentRead(e.Name, line)
	case *ast.ArrayLit:
		return cg.compileArrayLit(e)
	case *ast.ObjectLit:
		return cg.compileObjectLit(e)
	case *ast.FuncExpr:
		return cg.compileFuncExpr(e)
	case *ast.UnaryExpr:
		return cg.compileUnary(e)
	case *ast.UpdateExpr:
		return cg.compileUpdate(e)
	case *ast.BinaryExpr:
		return cg.compileBinary(e)
	case *ast.LogicalExpr:
		return cg.compileLogical(e)
	case *ast.ConditionalExpr:
		return cg.compileConditional(e)
	case *ast.AssignExpr:
		return cg.compileAssign(e)
	case *ast.CallExpr:
		return cg.compileCall(e)
	case *ast.NewExpr:
		return cg.compileNew(e)
	case *ast.MemberExpr:
		return cg.compileMemberRead(e)
	case *ast.AwaitExpr:
		return cg.compileAwait(e)
	case *ast.SequenceExpr:
		var last bytecode.Register
		for i, sub := range e.Exprs {
			r, err := cg.compileExpression(sub)
			if err != nil {
				return 0, err
			}
			if i > 0 {
				fc.freeReg(last)
			}
			last = r
		}
		return last, nil
	case *ast.SpreadElement:
		return 0, unsupported(line, "spread expression")
	default:
		return 0, unsupported(line, "expression node %T", n)
	}
}

func (cg *codeGen) loadNumber(v float64, line int) bytecode.Register {
	fc := cg.current()
	dst := fc.allocReg()
	i := int64(v)
	if float64(i) == v && i >= -128 && i <= 127 {
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadInt8, Dst: dst, Imm: int32(i)}, line)
		return dst
	}
	if float64(i) == v && i >= -2147483648 && i <= 2147483647 {
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadInt32, Dst: dst, Imm: int32(i)}, line)
		return dst
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpLoadConst, Dst: dst, ConstIdx: fc.numberConst(v)}, line)
	return dst
}

func (cg *codeGen) compileIdentRead(name string, line int) (bytecode.Register, error) {
	fc := cg.current()
	res := fc.resolve(name)
	dst := fc.allocReg()
	switch res.kind {
	case resLocal:
		fc.emit(bytecode.Instruction{Op: bytecode.OpGetLocal, Dst: dst, Src1: res.local}, line)
	case resUpvalue:
		fc.emit(bytecode.Instruction{Op: bytecode.OpGetUpvalue, Dst: dst, Src1: res.upval}, line)
	default:
		fc.emit(bytecode.Instruction{Op: bytecode.OpGetGlobal, Dst: dst, ConstIdx: fc.stringConst(name)}, line)
	}
	return dst, nil
}

func (cg *codeGen) compileArrayLit(e *ast.ArrayLit) (bytecode.Register, error) {
	fc := cg.current()
	dst := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: bytecode.OpNewArray, Dst: dst, Imm: int32(len(e.Elements))}, e.Line())
	for i, el := range e.Elements {
		if el == nil {
			continue // elision: array already holds `undefined` at this slot
		}
		v, err := cg.compileExpression(el)
		if err != nil {
			return 0, err
		}
		idx := cg.loadNumber(float64(i), e.Line())
		fc.emit(bytecode.Instruction{Op: bytecode.OpSetElem, Dst: v, Src1: dst, Src2: idx}, e.Line())
		fc.freeReg(idx)
		fc.freeReg(v)
	}
	return dst, nil
}

func (cg *codeGen) compileObjectLit(e *ast.ObjectLit) (bytecode.Register, error) {
	fc := cg.current()
	dst := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: bytecode.OpNewObject, Dst: dst}, e.Line())
	for _, prop := range e.Props {
		if prop.Computed {
			return 0, unsupported(e.Line(), "computed property key")
		}
		v, err := cg.compileExpression(prop.Value)
		if err != nil {
			return 0, err
		}
		fc.emit(bytecode.Instruction{Op: bytecode.OpSetPropConst, Src1: dst, Src2: v, ConstIdx: fc.stringConst(prop.Key)}, e.Line())
		fc.freeReg(v)
	}
	return dst, nil
}

func (cg *codeGen) compileFuncExpr(e *ast.FuncExpr) (bytecode.Register, error) {
	parent := cg.current()
	fc := cg.newFuncCtx(parent, e.Name, uint16(len(e.Params)), e.IsArrow)
	cg.push(fc)
	for _, p := range e.Params {
		fc.declareLocal(p)
	}
	for _, stmt := range e.Body.Body {
		if err := cg.compileStatement(stmt); err != nil {
			return 0, err
		}
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpReturnUndefined}, e.Line())
	idx := fc.index
	cg.pop()

	dst := parent.allocReg()
	parent.emit(bytecode.Instruction{Op: bytecode.OpClosure, Dst: dst, ConstIdx: uint32(idx)}, e.Line())
	return dst, nil
}

func (cg *codeGen) compileUnary(e *ast.UnaryExpr) (bytecode.Register, error) {
	fc := cg.current()
	if e.Op == ast.UnTypeof {
		if id, ok := e.Arg.(*ast.Ident); ok {
			// typeof on an unresolved global must not throw ReferenceError.
			res := fc.resolve(id.Name)
			if res.kind == resGlobal {
				arg, err := cg.compileIdentRead(id.Name, e.Line())
				if err != nil {
					return 0, err
				}
				dst := fc.allocReg()
				fc.emit(bytecode.Instruction{Op: bytecode.OpTypeOf, Dst: dst, Src1: arg}, e.Line())
				fc.freeReg(arg)
				return dst, nil
			}
		}
	}
	arg, err := cg.compileExpression(e.Arg)
	if err != nil {
		return 0, err
	}
	dst := fc.allocReg()
	switch e.Op {
	case ast.UnNeg:
		fc.emit(bytecode.Instruction{Op: bytecode.OpNeg, Dst: dst, Src1: arg}, e.Line())
	case ast.UnPlus:
		fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: dst, Src1: arg}, e.Line()) // ToNumber handled at use sites
	case ast.UnNot:
		fc.emit(bytecode.Instruction{Op: bytecode.OpNot, Dst: dst, Src1: arg}, e.Line())
	case ast.UnBitNot:
		fc.emit(bytecode.Instruction{Op: bytecode.OpBitNot, Dst: dst, Src1: arg}, e.Line())
	case ast.UnTypeof:
		fc.emit(bytecode.Instruction{Op: bytecode.OpTypeOf, Dst: dst, Src1: arg}, e.Line())
	case ast.UnVoid:
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadUndefined, Dst: dst}, e.Line())
	default:
		return 0, unsupported(e.Line(), "unary operator %q", e.Op)
	}
	fc.freeReg(arg)
	return dst, nil
}

func (cg *codeGen) compileUpdate(e *ast.UpdateExpr) (bytecode.Register, error) {
	fc := cg.current()
	op := bytecode.OpInc
	if e.Op == "--" {
		op = bytecode.OpDec
	}
	switch target := e.Arg.(type) {
	case *ast.Ident:
		cur, err := cg.compileIdentRead(target.Name, e.Line())
		if err != nil {
			return 0, err
		}
		result := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: op, Dst: result, Src1: cur}, e.Line())
		if err := cg.storeIdent(target.Name, result, e.Line()); err != nil {
			return 0, err
		}
		if e.Prefix {
			fc.freeReg(cur)
			return result, nil
		}
		fc.freeReg(result)
		return cur, nil
	case *ast.MemberExpr:
		objReg, keyConst, keyReg, isComputed, err := cg.compileMemberTarget(target)
		if err != nil {
			return 0, err
		}
		cur := fc.allocReg()
		if isComputed {
			fc.emit(bytecode.Instruction{Op: bytecode.OpGetElem, Dst: cur, Src1: objReg, Src2: keyReg}, e.Line())
		} else {
			fc.emit(bytecode.Instruction{Op: bytecode.OpGetProp, Dst: cur, Src1: objReg, ConstIdx: keyConst}, e.Line())
		}
		result := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: op, Dst: result, Src1: cur}, e.Line())
		if isComputed {
			fc.emit(bytecode.Instruction{Op: bytecode.OpSetElem, Dst: result, Src1: objReg, Src2: keyReg}, e.Line())
			fc.freeReg(keyReg)
		} else {
			fc.emit(bytecode.Instruction{Op: bytecode.OpSetProp, Src1: objReg, Src2: result, ConstIdx: keyConst}, e.Line())
		}
		fc.freeReg(objReg)
		if e.Prefix {
			fc.freeReg(cur)
			return result, nil
		}
		fc.freeReg(result)
		return cur, nil
	default:
		return 0, invalidTarget(e.Line(), "update expression target must be an identifier or member expression")
	}
}

var binOpcodes = map[ast.BinOp]bytecode.Opcode{
	ast.BinAdd: bytecode.OpAdd, ast.BinSub: bytecode.OpSub, ast.BinMul: bytecode.OpMul,
	ast.BinDiv: bytecode.OpDiv, ast.BinMod: bytecode.OpMod, ast.BinPow: bytecode.OpPow,
	ast.BinBitAnd: bytecode.OpBitAnd, ast.BinBitOr: bytecode.OpBitOr, ast.BinBitXor: bytecode.OpBitXor,
	ast.BinShl: bytecode.OpShl, ast.BinShr: bytecode.OpShr, ast.BinUShr: bytecode.OpUShr,
	ast.BinEq: bytecode.OpEq, ast.BinNotEq: bytecode.OpNotEq,
	ast.BinStrictEq: bytecode.OpStrictEq, ast.BinStrictNe: bytecode.OpStrictNotEq,
	ast.BinLt: bytecode.OpLt, ast.BinLte: bytecode.OpLte, ast.BinGt: bytecode.OpGt, ast.BinGte: bytecode.OpGte,
}

func (cg *codeGen) compileBinary(e *ast.BinaryExpr) (bytecode.Register, error) {
	fc := cg.current()
	lhs, err := cg.compileExpression(e.Left)
	if err != nil {
		return 0, err
	}
	rhs, err := cg.compileExpression(e.Right)
	if err != nil {
		return 0, err
	}
	op, ok := binOpcodes[e.Op]
	if !ok {
		return 0, unsupported(e.Line(), "binary operator %q", e.Op)
	}
	dst := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: op, Dst: dst, Src1: lhs, Src2: rhs}, e.Line())
	fc.freeReg(rhs)
	fc.freeReg(lhs)
	return dst, nil
}

// compileLogical lowers short-circuit && / || / ?? into a single
// destination register reused across branches, matching a Move into the
// destination when the branch result lands elsewhere (spec.md §4.1
// "Short-circuit and ternary... when the branch result lands in a
// different register, a Move into the destination precedes the join").
func (cg *codeGen) compileLogical(e *ast.LogicalExpr) (bytecode.Register, error) {
	fc := cg.current()
	dst := fc.allocReg()
	lhs, err := cg.compileExpression(e.Left)
	if err != nil {
		return 0, err
	}
	if lhs != dst {
		fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: dst, Src1: lhs}, e.Line())
	}
	fc.freeReg(lhs)

	var skipOp bytecode.Opcode
	switch e.Op {
	case ast.LogAnd:
		skipOp = bytecode.OpJumpIfFalse
	case ast.LogOr:
		skipOp = bytecode.OpJumpIfTrue
	case ast.LogNullish:
		skipOp = bytecode.OpJumpIfNotNullish
	}
	jmp := fc.emit(bytecode.Instruction{Op: skipOp, Src1: dst}, e.Line())
	rhs, err := cg.compileExpression(e.Right)
	if err != nil {
		return 0, err
	}
	if rhs != dst {
		fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: dst, Src1: rhs}, e.Line())
	}
	fc.freeReg(rhs)
	fc.patchJumpHere(jmp)
	return dst, nil
}

func (cg *codeGen) compileConditional(e *ast.ConditionalExpr) (bytecode.Register, error) {
	fc := cg.current()
	test, err := cg.compileExpression(e.Test)
	if err != nil {
		return 0, err
	}
	dst := fc.allocReg()
	jfalse := fc.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Src1: test}, e.Line())
	fc.freeReg(test)
	cons, err := cg.compileExpression(e.Cons)
	if err != nil {
		return 0, err
	}
	if cons != dst {
		fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: dst, Src1: cons}, e.Line())
	}
	fc.freeReg(cons)
	jend := fc.emit(bytecode.Instruction{Op: bytecode.OpJump}, e.Line())
	fc.patchJumpHere(jfalse)
	alt, err := cg.compileExpression(e.Alt)
	if err != nil {
		return 0, err
	}
	if alt != dst {
		fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: dst, Src1: alt}, e.Line())
	}
	fc.freeReg(alt)
	fc.patchJumpHere(jend)
	return dst, nil
}

// storeIdent writes srcReg into the resolved location of name without
// freeing srcReg.
func (cg *codeGen) storeIdent(name string, srcReg bytecode.Register, line int) error {
	fc := cg.current()
	res := fc.resolve(name)
	switch res.kind {
	case resLocal:
		fc.emit(bytecode.Instruction{Op: bytecode.OpSetLocal, Dst: res.local, Src1: srcReg}, line)
	case resUpvalue:
		fc.emit(bytecode.Instruction{Op: bytecode.OpSetUpvalue, Dst: res.upval, Src1: srcReg}, line)
	default:
		fc.emit(bytecode.Instruction{Op: bytecode.OpSetGlobal, Src1: srcReg, ConstIdx: fc.stringConst(name)}, line)
	}
	return nil
}

// compileMemberTarget evaluates a member expression's object (and, for a
// computed member, its key) without reading the property, for use as an
// assignment/update target.
func (cg *codeGen) compileMemberTarget(m *ast.MemberExpr) (objReg bytecode.Register, keyConst uint32, keyReg bytecode.Register, computed bool, err error) {
	fc := cg.current()
	objReg, err = cg.compileExpression(m.Object)
	if err != nil {
		return
	}
	if m.Computed {
		keyReg, err = cg.compileExpression(m.ComputedProp)
		computed = true
		return
	}
	keyConst = fc.stringConst(m.Property)
	return
}

func (cg *codeGen) compileAssign(e *ast.AssignExpr) (bytecode.Register, error) {
	fc := cg.current()
	op := bytecode.Opcode(0)
	isCompound := e.Op != "="
	if isCompound {
		var ok bool
		op, ok = binOpcodes[compoundToBinary[e.Op]]
		if !ok {
			return 0, unsupported(e.Line(), "compound assignment operator %q", e.Op)
		}
	}

	switch target := e.Target.(type) {
	case *ast.Ident:
		if !isCompound {
			val, err := cg.compileExpression(e.Value)
			if err != nil {
				return 0, err
			}
			if err := cg.storeIdent(target.Name, val, e.Line()); err != nil {
				return 0, err
			}
			return val, nil
		}
		cur, err := cg.compileIdentRead(target.Name, e.Line())
		if err != nil {
			return 0, err
		}
		rhs, err := cg.compileExpression(e.Value)
		if err != nil {
			return 0, err
		}
		result := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: op, Dst: result, Src1: cur, Src2: rhs}, e.Line())
		fc.freeReg(rhs)
		fc.freeReg(cur)
		if err := cg.storeIdent(target.Name, result, e.Line()); err != nil {
			return 0, err
		}
		return result, nil
	case *ast.MemberExpr:
		// Object/key are evaluated exactly once, whether or not this is a
		// compound assignment, so a side-effecting object expression (e.g.
		// a call) isn't observed twice.
		objReg, keyConst, keyReg, computed, err := cg.compileMemberTarget(target)
		if err != nil {
			return 0, err
		}
		var val bytecode.Register
		if !isCompound {
			val, err = cg.compileExpression(e.Value)
			if err != nil {
				return 0, err
			}
		} else {
			cur := fc.allocReg()
			if computed {
				fc.emit(bytecode.Instruction{Op: bytecode.OpGetElem, Dst: cur, Src1: objReg, Src2: keyReg}, e.Line())
			} else {
				fc.emit(bytecode.Instruction{Op: bytecode.OpGetProp, Dst: cur, Src1: objReg, ConstIdx: keyConst}, e.Line())
			}
			rhs, err2 := cg.compileExpression(e.Value)
			if err2 != nil {
				return 0, err2
			}
			val = fc.allocReg()
			fc.emit(bytecode.Instruction{Op: op, Dst: val, Src1: cur, Src2: rhs}, e.Line())
			fc.freeReg(rhs)
			fc.freeReg(cur)
		}
		if computed {
			fc.emit(bytecode.Instruction{Op: bytecode.OpSetElem, Dst: val, Src1: objReg, Src2: keyReg}, e.Line())
			fc.freeReg(keyReg)
		} else {
			fc.emit(bytecode.Instruction{Op: bytecode.OpSetProp, Src1: objReg, Src2: val, ConstIdx: keyConst}, e.Line())
		}
		fc.freeReg(objReg)
		return val, nil
	default:
		return 0, invalidTarget(e.Line(), "invalid assignment target")
	}
}

var compoundToBinary = map[string]ast.BinOp{
	"+=": ast.BinAdd, "-=": ast.BinSub, "*=": ast.BinMul, "/=": ast.BinDiv,
	"%=": ast.BinMod, "**=": ast.BinPow, "&=": ast.BinBitAnd, "|=": ast.BinBitOr,
	"^=": ast.BinBitXor, "<<=": ast.BinShl, ">>=": ast.BinShr,
}

// compileCallLayout evaluates receiver (a callee or, for a method call,
// the object) and args into one contiguous register block — block[0] is
// the receiver, block[1:] the arguments — since Call/CallMethod/Construct
// read argv starting right after the receiver register (spec.md §4.1).
// Evaluating each value before reserving the block would leave the
// receiver wherever the free-list last returned it, not necessarily
// adjacent to the args; instead every value is computed first and then
// moved into its fixed slot.
func (cg *codeGen) compileCallLayout(receiver ast.Node, args []ast.Node) ([]bytecode.Register, error) {
	fc := cg.current()
	for _, a := range args {
		if _, ok := a.(*ast.SpreadElement); ok {
			return nil, unsupported(a.Line(), "spread argument")
		}
	}
	recvVal, err := cg.compileExpression(receiver)
	if err != nil {
		return nil, err
	}
	argVals := make([]bytecode.Register, len(args))
	for i, a := range args {
		v, err := cg.compileExpression(a)
		if err != nil {
			return nil, err
		}
		argVals[i] = v
	}

	block := fc.allocRegBlock(len(args) + 1)
	if recvVal != block[0] {
		fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: block[0], Src1: recvVal}, receiver.Line())
	}
	fc.freeReg(recvVal)
	for i, v := range argVals {
		if v != block[i+1] {
			fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: block[i+1], Src1: v}, args[i].Line())
		}
		fc.freeReg(v)
	}
	return block, nil
}

func (cg *codeGen) compileCall(e *ast.CallExpr) (bytecode.Register, error) {
	fc := cg.current()
	if m, ok := e.Callee.(*ast.MemberExpr); ok && !m.Computed {
		block, err := cg.compileCallLayout(m.Object, e.Args)
		if err != nil {
			return 0, err
		}
		dst := fc.allocReg()
		fc.emit(bytecode.Instruction{Op: bytecode.OpCallMethod, Dst: dst, Src1: block[0], ConstIdx: fc.stringConst(m.Property), Imm: int32(len(e.Args))}, e.Line())
		fc.freeRegBlock(block)
		return dst, nil
	}
	block, err := cg.compileCallLayout(e.Callee, e.Args)
	if err != nil {
		return 0, err
	}
	dst := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: bytecode.OpCall, Dst: dst, Src1: block[0], Imm: int32(len(e.Args))}, e.Line())
	fc.freeRegBlock(block)
	return dst, nil
}

func (cg *codeGen) compileNew(e *ast.NewExpr) (bytecode.Register, error) {
	fc := cg.current()
	block, err := cg.compileCallLayout(e.Callee, e.Args)
	if err != nil {
		return 0, err
	}
	dst := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: bytecode.OpConstruct, Dst: dst, Src1: block[0], Imm: int32(len(e.Args))}, e.Line())
	fc.freeRegBlock(block)
	return dst, nil
}

func (cg *codeGen) compileMemberRead(m *ast.MemberExpr) (bytecode.Register, error) {
	fc := cg.current()
	objReg, err := cg.compileExpression(m.Object)
	if err != nil {
		return 0, err
	}
	dst := fc.allocReg()
	if m.Computed {
		keyReg, err := cg.compileExpression(m.ComputedProp)
		if err != nil {
			return 0, err
		}
		fc.emit(bytecode.Instruction{Op: bytecode.OpGetElem, Dst: dst, Src1: objReg, Src2: keyReg}, m.Line())
		fc.freeReg(keyReg)
	} else {
		fc.emit(bytecode.Instruction{Op: bytecode.OpGetProp, Dst: dst, Src1: objReg, ConstIdx: fc.stringConst(m.Property)}, m.Line())
	}
	fc.freeReg(objReg)
	return dst, nil
}

func (cg *codeGen) compileAwait(e *ast.AwaitExpr) (bytecode.Register, error) {
	fc := cg.current()
	arg, err := cg.compileExpression(e.Arg)
	if err != nil {
		return 0, err
	}
	dst := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: bytecode.OpAwait, Dst: dst, Src1: arg}, e.Line())
	fc.freeReg(arg)
	return dst, nil
}
