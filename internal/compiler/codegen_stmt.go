package compiler

import (
	"github.com/otterjs/otter/internal/ast"
	"github.com/otterjs/otter/internal/bytecode"
)

func (cg *codeGen) compileStatement(n ast.Node) error {
	fc := cg.current()
	line := n.Line()
	switch s := n.(type) {
	case *ast.VarDecl:
		return cg.compileVarDecl(s)
	case *ast.BlockStmt:
		return cg.compileBlock(s)
	case *ast.ExprStmt:
		r, err := cg.compileExpression(s.Expr)
		if err != nil {
			return err
		}
		fc.freeReg(r)
		return nil
	case *ast.IfStmt:
		return cg.compileIf(s)
	case *ast.WhileStmt:
		return cg.compileWhile(s)
	case *ast.ForStmt:
		return cg.compileFor(s)
	case *ast.ForInStmt:
		return cg.compileForIn(s)
	case *ast.ReturnStmt:
		if s.Arg == nil {
			fc.emit(bytecode.Instruction{Op: bytecode.OpReturnUndefined}, line)
			return nil
		}
		r, err := cg.compileExpression(s.Arg)
		if err != nil {
			return err
		}
		fc.emit(bytecode.Instruction{Op: bytecode.OpReturn, Src1: r}, line)
		fc.freeReg(r)
		return nil
	case *ast.BreakStmt:
		return cg.compileBreak(line)
	case *ast.ContinueStmt:
		return cg.compileContinue(line)
	case *ast.ThrowStmt:
		r, err := cg.compileExpression(s.Arg)
		if err != nil {
			return err
		}
		fc.emit(bytecode.Instruction{Op: bytecode.OpThrow, Src1: r}, line)
		fc.freeReg(r)
		return nil
	case *ast.TryStmt:
		return cg.compileTry(s)
	case *ast.FuncDecl:
		return cg.compileFuncDecl(s)
	case *ast.DebuggerStmt:
		fc.emit(bytecode.Instruction{Op: bytecode.OpDebugger}, line)
		return nil
	default:
		// Bare expression node reached via a statement-position fallback
		// (e.g. a parenthesized expression the parser attached directly).
		r, err := cg.compileExpression(n)
		if err != nil {
			return err
		}
		fc.freeReg(r)
		return nil
	}
}

func (cg *codeGen) compileVarDecl(s *ast.VarDecl) error {
	fc := cg.current()
	var val bytecode.Register
	if s.Init != nil {
		r, err := cg.compileExpression(s.Init)
		if err != nil {
			return err
		}
		val = r
	} else {
		val = fc.allocReg()
		fc.emit(bytecode.Instruction{Op: bytecode.OpLoadUndefined, Dst: val}, s.Line())
	}
	idx := fc.declareLocal(s.Name)
	fc.emit(bytecode.Instruction{Op: bytecode.OpSetLocal, Dst: idx, Src1: val}, s.Line())
	fc.freeReg(val)
	return nil
}

func (cg *codeGen) compileBlock(s *ast.BlockStmt) error {
	fc := cg.current()
	fc.pushScope()
	for _, stmt := range s.Body {
		if err := cg.compileStatement(stmt); err != nil {
			fc.popScope()
			return err
		}
	}
	fc.popScope()
	return nil
}

func (cg *codeGen) compileIf(s *ast.IfStmt) error {
	fc := cg.current()
	test, err := cg.compileExpression(s.Test)
	if err != nil {
		return err
	}
	jfalse := fc.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Src1: test}, s.Line())
	fc.freeReg(test)
	if err := cg.compileStatement(s.Cons); err != nil {
		return err
	}
	if s.Alt == nil {
		fc.patchJumpHere(jfalse)
		return nil
	}
	jend := fc.emit(bytecode.Instruction{Op: bytecode.OpJump}, s.Line())
	fc.patchJumpHere(jfalse)
	if err := cg.compileStatement(s.Alt); err != nil {
		return err
	}
	fc.patchJumpHere(jend)
	return nil
}

// compileWhile and compileFor share the break/continue patch protocol: a
// loopCtx is pushed before the body and popped after, with continues
// patched to the loop's update/test point and breaks patched past the end
// (spec.md §4.1 "loop contexts").
func (cg *codeGen) compileWhile(s *ast.WhileStmt) error {
	fc := cg.current()
	testPos := fc.here()
	test, err := cg.compileExpression(s.Test)
	if err != nil {
		return err
	}
	jexit := fc.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Src1: test}, s.Line())
	fc.freeReg(test)

	lc := &loopCtx{}
	fc.loopStack = append(fc.loopStack, lc)
	if err := cg.compileStatement(s.Body); err != nil {
		fc.loopStack = fc.loopStack[:len(fc.loopStack)-1]
		return err
	}
	fc.loopStack = fc.loopStack[:len(fc.loopStack)-1]

	for _, c := range lc.continues {
		fc.patchJumpTo(c, testPos)
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpJump, Imm: int32(testPos) - int32(fc.here())}, s.Line())
	fc.patchJumpHere(jexit)
	for _, b := range lc.breaks {
		fc.patchJumpHere(b)
	}
	return nil
}

func (cg *codeGen) compileFor(s *ast.ForStmt) error {
	fc := cg.current()
	fc.pushScope()
	defer fc.popScope()

	if s.Init != nil {
		if err := cg.compileStatement(s.Init); err != nil {
			return err
		}
	}

	testPos := fc.here()
	var jexit int
	hasTest := s.Test != nil
	if hasTest {
		test, err := cg.compileExpression(s.Test)
		if err != nil {
			return err
		}
		jexit = fc.emit(bytecode.Instruction{Op: bytecode.OpJumpIfFalse, Src1: test}, s.Line())
		fc.freeReg(test)
	}

	lc := &loopCtx{}
	fc.loopStack = append(fc.loopStack, lc)
	bodyErr := cg.compileStatement(s.Body)
	fc.loopStack = fc.loopStack[:len(fc.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	updatePos := fc.here()
	for _, c := range lc.continues {
		fc.patchJumpTo(c, updatePos)
	}
	if s.Update != nil {
		r, err := cg.compileExpression(s.Update)
		if err != nil {
			return err
		}
		fc.freeReg(r)
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpJump, Imm: int32(testPos) - int32(fc.here())}, s.Line())
	if hasTest {
		fc.patchJumpHere(jexit)
	}
	for _, b := range lc.breaks {
		fc.patchJumpHere(b)
	}
	return nil
}

// compileForIn lowers both for-in and for-of to the same ForInNext opcode;
// the VM's iterator state register distinguishes enumerable-key iteration
// from the iterable protocol based on a flag stamped at iterator creation
// (spec.md §3.6 ForInNext, §6.3).
func (cg *codeGen) compileForIn(s *ast.ForInStmt) error {
	fc := cg.current()
	fc.pushScope()
	defer fc.popScope()

	rightReg, err := cg.compileExpression(s.Right)
	if err != nil {
		return err
	}
	iterReg := fc.allocReg()
	fc.emit(bytecode.Instruction{Op: bytecode.OpMove, Dst: iterReg, Src1: rightReg}, s.Line())
	fc.freeReg(rightReg)

	loopStart := fc.here()
	itemReg := fc.allocReg()
	lc := &loopCtx{}
	exitPatch := fc.emit(bytecode.Instruction{Op: bytecode.OpForInNext, Dst: itemReg, Src1: iterReg}, s.Line())

	localIdx := fc.declareLocal(s.Name)
	fc.emit(bytecode.Instruction{Op: bytecode.OpSetLocal, Dst: localIdx, Src1: itemReg}, s.Line())
	fc.freeReg(itemReg)

	fc.loopStack = append(fc.loopStack, lc)
	bodyErr := cg.compileStatement(s.Body)
	fc.loopStack = fc.loopStack[:len(fc.loopStack)-1]
	if bodyErr != nil {
		return bodyErr
	}

	for _, c := range lc.continues {
		fc.patchJumpTo(c, fc.here())
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpJump, Imm: int32(loopStart) - int32(fc.here())}, s.Line())
	fc.patchJumpHere(exitPatch)
	for _, b := range lc.breaks {
		fc.patchJumpHere(b)
	}
	fc.freeReg(iterReg)
	return nil
}

func (cg *codeGen) compileBreak(line int) error {
	fc := cg.current()
	if len(fc.loopStack) == 0 {
		return unsupported(line, "break outside of a loop")
	}
	lc := fc.loopStack[len(fc.loopStack)-1]
	idx := fc.emit(bytecode.Instruction{Op: bytecode.OpJump}, line)
	lc.breaks = append(lc.breaks, idx)
	return nil
}

func (cg *codeGen) compileContinue(line int) error {
	fc := cg.current()
	if len(fc.loopStack) == 0 {
		return unsupported(line, "continue outside of a loop")
	}
	lc := fc.loopStack[len(fc.loopStack)-1]
	idx := fc.emit(bytecode.Instruction{Op: bytecode.OpJump}, line)
	lc.continues = append(lc.continues, idx)
	return nil
}

// compileTry emits TryStart/TryEnd around the protected block. TryStart's
// Dst names the register the VM deposits a caught exception into on
// unwind, and Imm (patched below) is the relative offset to the catch
// handler's first instruction (spec.md §5.4 "exception handling"). The
// register is reserved for the whole protected block so nothing inside it
// can clobber the slot before a throw reaches the handler.
func (cg *codeGen) compileTry(s *ast.TryStmt) error {
	fc := cg.current()
	catchReg := fc.allocReg()
	tryStart := fc.emit(bytecode.Instruction{Op: bytecode.OpTryStart, Dst: catchReg}, s.Line())
	if err := cg.compileBlock(s.Block); err != nil {
		return err
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpTryEnd}, s.Line())
	jend := fc.emit(bytecode.Instruction{Op: bytecode.OpJump}, s.Line())

	fc.patchJumpHere(tryStart)
	if s.HasCatch {
		fc.pushScope()
		if s.CatchParam != "" {
			idx := fc.declareLocal(s.CatchParam)
			fc.emit(bytecode.Instruction{Op: bytecode.OpSetLocal, Dst: idx, Src1: catchReg}, s.Line())
		}
		for _, stmt := range s.CatchBlock.Body {
			if err := cg.compileStatement(stmt); err != nil {
				fc.popScope()
				fc.freeReg(catchReg)
				return err
			}
		}
		fc.popScope()
	}
	fc.freeReg(catchReg)
	fc.patchJumpHere(jend)

	if s.FinallyBlock != nil {
		if err := cg.compileBlock(s.FinallyBlock); err != nil {
			return err
		}
	}
	return nil
}

func (cg *codeGen) compileFuncDecl(s *ast.FuncDecl) error {
	parent := cg.current()
	fc := cg.newFuncCtx(parent, s.Name, uint16(len(s.Params)), s.IsArrow)
	cg.push(fc)
	for _, p := range s.Params {
		fc.declareLocal(p)
	}
	for _, stmt := range s.Body.Body {
		if err := cg.compileStatement(stmt); err != nil {
			return err
		}
	}
	fc.emit(bytecode.Instruction{Op: bytecode.OpReturnUndefined}, s.Line())
	idx := fc.index
	cg.pop()

	dst := parent.allocReg()
	parent.emit(bytecode.Instruction{Op: bytecode.OpClosure, Dst: dst, ConstIdx: uint32(idx)}, s.Line())
	localIdx := parent.declareLocal(s.Name)
	parent.emit(bytecode.Instruction{Op: bytecode.OpSetLocal, Dst: localIdx, Src1: dst}, s.Line())
	parent.freeReg(dst)
	return nil
}
