// Package vm executes bytecode.Module functions against internal/value
// Values: a register-file interpreter with suspend/resume support for
// await (spec.md §5), try/catch unwinding, and closures over locals
// captured as upvalue cells.
package vm

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/otterjs/otter/internal/bytecode"
	"github.com/otterjs/otter/internal/value"
)

// interruptPollInterval is the dispatch-batch size spec.md §5/§6.1 calls
// for: "every N instructions ... polls the interrupt flag", N tunable but
// bounded to a few thousand.
const interruptPollInterval = 256

// ErrInterrupted is returned (wrapped in an ExecResult with Kind
// ResultError) when the dispatch loop observes the interrupt flag set
// mid-run — spec.md §5/§8 scenario 4's "a tight while(true) loop must
// abort within a bounded number of instructions of Interrupt() being
// called", independent of any await/suspension point ever being reached.
var ErrInterrupted = errors.New("vm: execution interrupted")

// Frame is one activation record: a function plus its register file and
// locals (locals and registers are kept separate so a closure's captured
// upvalue cells point at stable addresses independent of a later
// register-allocator reuse).
type Frame struct {
	fn        *bytecode.Function
	registers []value.Value
	locals    []*value.Value
	upvalues  []*value.Value
	pc        int
	tryStack  []tryHandler

	// lastAwaitDst and pendingCallDst remember which register a suspended
	// Await or an in-flight Call should deposit its result into once the
	// dispatch loop (run) resumes this frame or returns from the callee.
	lastAwaitDst   bytecode.Register
	pendingCallDst bytecode.Register
}

type tryHandler struct {
	catchReg    bytecode.Register
	catchTarget int
}

func newFrame(fn *bytecode.Function, upvalues []*value.Value) *Frame {
	f := &Frame{
		fn:        fn,
		registers: make([]value.Value, fn.NumRegisters),
		locals:    make([]*value.Value, fn.NumLocals),
		upvalues:  upvalues,
	}
	for i := range f.locals {
		v := value.Undefined
		f.locals[i] = &v
	}
	return f
}

// ExecResultKind discriminates the three shapes an execution step can end
// in (spec.md §5.2 VmExecutionResult).
type ExecResultKind uint8

const (
	ResultComplete ExecResultKind = iota
	ResultSuspended
	ResultError
)

// ExecResult is returned by Interpreter.RunFunction and .Resume.
type ExecResult struct {
	Kind    ExecResultKind
	Value   value.Value
	Suspend *AsyncContext
	Err     error
}

// AsyncContext captures everything needed to resume a suspended call: the
// frame stack at the point of Await plus the register the resumed value
// (or thrown error) lands in.
type AsyncContext struct {
	frames  []*Frame
	awaited value.Value // the value/promise the suspension is waiting on
}

// Awaited returns the value or promise the suspended call is waiting on,
// for the event loop to subscribe to.
func (a *AsyncContext) Awaited() value.Value { return a.awaited }

// Host is the interpreter's view of the host environment: calling into
// functions (native or closures), property access that may dispatch to
// proxies or accessors, and module resolution for Closure's Function
// lookup. internal/intrinsics implements this for real globals; tests can
// supply a narrower stub.
type Host interface {
	Module() *bytecode.Module
	Call(callee value.Value, this value.Value, args []value.Value) (value.Value, error)
	Construct(callee value.Value, args []value.Value) (value.Value, error)
	GetProp(obj value.Value, key string) (value.Value, error)
	SetProp(obj value.Value, key string, v value.Value) error
	GetElem(obj value.Value, key value.Value) (value.Value, error)
	SetElem(obj value.Value, key value.Value, v value.Value) error
	GetGlobal(name string) (value.Value, error)
	SetGlobal(name string, v value.Value)
	NewObject() value.Value
	NewArray(n int) value.Value
	BinaryOp(op bytecode.Opcode, a, b value.Value) (value.Value, error)
	UnaryOp(op bytecode.Opcode, a value.Value) (value.Value, error)
	ForInNext(iterState value.Value) (item value.Value, done bool, next value.Value, err error)
	ThrowTypeError(format string, args ...any) error
}

// Interpreter runs one call at a time against a Host for global/property
// access and calls into other functions.
type Interpreter struct {
	host Host

	// interrupt is polled every interruptPollInterval steps of the dispatch
	// loop; nil means no flag has been wired (Interrupt is never checked).
	// atomic.Bool so a host watchdog goroutine can set it concurrently with
	// the single JS-executing goroutine reading it (spec.md §6.1).
	interrupt *atomic.Bool
}

func New(host Host) *Interpreter { return &Interpreter{host: host} }

// SetInterruptFlag wires the atomic flag the dispatch loop polls. The
// owning Runtime shares this flag with Interrupt()/clear_interrupt() so
// setting it from any goroutine takes effect within interruptPollInterval
// instructions of the currently executing frame.
func (it *Interpreter) SetInterruptFlag(flag *atomic.Bool) { it.interrupt = flag }

// RunFunction executes fn from its entry instruction with the given
// argument values and (for closures) captured upvalues.
func (it *Interpreter) RunFunction(fn *bytecode.Function, this value.Value, args []value.Value, upvalues []*value.Value) ExecResult {
	frame := newFrame(fn, upvalues)
	for i := 0; i < int(fn.ParamCount) && i < len(args); i++ {
		*frame.locals[i] = args[i]
	}
	return it.run([]*Frame{frame})
}

// Resume continues a suspended call, delivering resumeValue into the
// frame stack's topmost Await destination (or err, thrown from that
// point, if err != nil).
func (it *Interpreter) Resume(ctx *AsyncContext, resumeValue value.Value, err error) ExecResult {
	frames := ctx.frames
	top := frames[len(frames)-1]
	if err != nil {
		return it.unwindAndRun(frames, err)
	}
	// The Await instruction's Dst register receives the resume value; pc
	// was left pointing at the instruction right after Await when we
	// suspended.
	top.registers[top.lastAwaitDst] = resumeValue
	return it.run(frames)
}

// run is the dispatch loop shared by RunFunction and Resume.
func (it *Interpreter) run(frames []*Frame) ExecResult {
	steps := 0
	for len(frames) > 0 {
		steps++
		if it.interrupt != nil && steps%interruptPollInterval == 0 && it.interrupt.Load() {
			return ExecResult{Kind: ResultError, Err: ErrInterrupted}
		}
		frame := frames[len(frames)-1]
		res, action, next := it.step(frame)
		switch action {
		case actionContinue:
			continue
		case actionReturn:
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				return ExecResult{Kind: ResultComplete, Value: res}
			}
			caller := frames[len(frames)-1]
			caller.registers[caller.pendingCallDst] = res
		case actionThrow:
			newFrames, handled := it.unwind(frames, res)
			if !handled {
				return ExecResult{Kind: ResultError, Err: asError(res)}
			}
			frames = newFrames
		case actionSuspend:
			return ExecResult{Kind: ResultSuspended, Suspend: &AsyncContext{frames: frames, awaited: res}}
		case actionCall:
			frames = append(frames, next)
		}
	}
	return ExecResult{Kind: ResultComplete, Value: value.Undefined}
}

type stepAction uint8

const (
	actionContinue stepAction = iota
	actionReturn
	actionThrow
	actionSuspend
	actionCall
)

func asError(v value.Value) error {
	return &ThrownValue{Value: v}
}

// ThrownValue wraps a thrown JS value as a Go error for callers outside
// the VM (spec.md §5.4 "uncaught exceptions surface as errors").
type ThrownValue struct{ Value value.Value }

func (e *ThrownValue) Error() string {
	return fmt.Sprintf("uncaught exception: %s", value.ToStringNoThrow(e.Value))
}

// unwind pops frames looking for a try handler; it returns the (possibly
// shortened) frame stack and whether a handler absorbed the exception.
func (it *Interpreter) unwind(frames []*Frame, errVal value.Value) ([]*Frame, bool) {
	for len(frames) > 0 {
		f := frames[len(frames)-1]
		if n := len(f.tryStack); n > 0 {
			h := f.tryStack[n-1]
			f.tryStack = f.tryStack[:n-1]
			f.registers[h.catchReg] = errVal
			f.pc = h.catchTarget
			return frames, true
		}
		frames = frames[:len(frames)-1]
	}
	return frames, false
}

func (it *Interpreter) unwindAndRun(frames []*Frame, err error) ExecResult {
	var errVal value.Value
	if tv, ok := err.(*ThrownValue); ok {
		errVal = tv.Value
	} else {
		errVal = value.ObjectValue(nil)
	}
	newFrames, handled := it.unwind(frames, errVal)
	if !handled {
		return ExecResult{Kind: ResultError, Err: err}
	}
	return it.run(newFrames)
}

// step decodes and executes exactly one instruction, or a full Call's
// worth of work when the callee is a closure (pushing a new Frame via
// actionCall rather than recursing the Go stack for every user call).
func (it *Interpreter) step(f *Frame) (result value.Value, action stepAction, next *Frame) {
	if f.pc >= len(f.fn.Instructions) {
		return value.Undefined, actionReturn, nil
	}
	in := f.fn.Instructions[f.pc]
	f.pc++

	switch in.Op {
	case bytecode.OpNop, bytecode.OpDebugger:
		return value.Undefined, actionContinue, nil

	case bytecode.OpLoadUndefined:
		f.registers[in.Dst] = value.Undefined
	case bytecode.OpLoadNull:
		f.registers[in.Dst] = value.Null
	case bytecode.OpLoadTrue:
		f.registers[in.Dst] = value.True
	case bytecode.OpLoadFalse:
		f.registers[in.Dst] = value.False
	case bytecode.OpLoadInt8, bytecode.OpLoadInt32:
		f.registers[in.Dst] = value.Int32(in.Imm)
	case bytecode.OpLoadConst:
		c := f.fn.Constants[in.ConstIdx]
		if c.Kind == bytecode.ConstString {
			f.registers[in.Dst] = value.String(value.Intern(c.Str))
		} else {
			f.registers[in.Dst] = value.Number(c.Number)
		}

	case bytecode.OpGetLocal:
		f.registers[in.Dst] = *f.locals[in.Src1]
	case bytecode.OpSetLocal:
		*f.locals[in.Dst] = f.registers[in.Src1]
	case bytecode.OpGetUpvalue:
		f.registers[in.Dst] = *f.upvalues[in.Src1]
	case bytecode.OpSetUpvalue:
		*f.upvalues[in.Dst] = f.registers[in.Src1]
	case bytecode.OpGetGlobal:
		name := f.fn.Constants[in.ConstIdx].Str
		v, err := it.host.GetGlobal(name)
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		f.registers[in.Dst] = v
	case bytecode.OpSetGlobal:
		name := f.fn.Constants[in.ConstIdx].Str
		it.host.SetGlobal(name, f.registers[in.Src1])

	case bytecode.OpMove:
		f.registers[in.Dst] = f.registers[in.Src1]

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpPow,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr,
		bytecode.OpEq, bytecode.OpNotEq, bytecode.OpStrictEq, bytecode.OpStrictNotEq,
		bytecode.OpLt, bytecode.OpLte, bytecode.OpGt, bytecode.OpGte:
		v, err := it.host.BinaryOp(in.Op, f.registers[in.Src1], f.registers[in.Src2])
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		f.registers[in.Dst] = v

	case bytecode.OpNeg, bytecode.OpBitNot, bytecode.OpNot, bytecode.OpTypeOf, bytecode.OpInc, bytecode.OpDec:
		v, err := it.host.UnaryOp(in.Op, f.registers[in.Src1])
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		f.registers[in.Dst] = v

	case bytecode.OpGetProp, bytecode.OpGetPropConst:
		name := f.fn.Constants[in.ConstIdx].Str
		v, err := it.host.GetProp(f.registers[in.Src1], name)
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		f.registers[in.Dst] = v
	case bytecode.OpSetProp, bytecode.OpSetPropConst:
		name := f.fn.Constants[in.ConstIdx].Str
		if err := it.host.SetProp(f.registers[in.Src1], name, f.registers[in.Src2]); err != nil {
			return errValueOf(err), actionThrow, nil
		}
	case bytecode.OpGetElem:
		v, err := it.host.GetElem(f.registers[in.Src1], f.registers[in.Src2])
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		f.registers[in.Dst] = v
	case bytecode.OpSetElem:
		if err := it.host.SetElem(f.registers[in.Src1], f.registers[in.Src2], f.registers[in.Dst]); err != nil {
			return errValueOf(err), actionThrow, nil
		}

	case bytecode.OpNewObject:
		f.registers[in.Dst] = it.host.NewObject()
	case bytecode.OpNewArray:
		f.registers[in.Dst] = it.host.NewArray(int(in.Imm))
	case bytecode.OpClosure:
		fn := it.host.Module().Functions[in.ConstIdx]
		f.registers[in.Dst] = it.makeClosure(f, fn)

	case bytecode.OpJump:
		f.pc += int(in.Imm) - 1
	case bytecode.OpJumpIfTrue:
		if f.registers[in.Src1].ToBoolean() {
			f.pc += int(in.Imm) - 1
		}
	case bytecode.OpJumpIfFalse:
		if !f.registers[in.Src1].ToBoolean() {
			f.pc += int(in.Imm) - 1
		}
	case bytecode.OpJumpIfNullish:
		if f.registers[in.Src1].IsNullish() {
			f.pc += int(in.Imm) - 1
		}
	case bytecode.OpJumpIfNotNullish:
		if !f.registers[in.Src1].IsNullish() {
			f.pc += int(in.Imm) - 1
		}

	case bytecode.OpTryStart:
		f.tryStack = append(f.tryStack, tryHandler{catchReg: in.Dst, catchTarget: f.pc + int(in.Imm) - 1})
	case bytecode.OpTryEnd:
		if n := len(f.tryStack); n > 0 {
			f.tryStack = f.tryStack[:n-1]
		}
	case bytecode.OpThrow:
		return f.registers[in.Src1], actionThrow, nil

	case bytecode.OpForInNext:
		item, done, nextState, err := it.host.ForInNext(f.registers[in.Src1])
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		if done {
			f.pc += int(in.Imm) - 1
			return value.Undefined, actionContinue, nil
		}
		f.registers[in.Src1] = nextState
		f.registers[in.Dst] = item

	case bytecode.OpCall, bytecode.OpCallMethod, bytecode.OpConstruct, bytecode.OpTailCall:
		return it.dispatchCall(f, in)

	case bytecode.OpReturn:
		return f.registers[in.Src1], actionReturn, nil
	case bytecode.OpReturnUndefined:
		return value.Undefined, actionReturn, nil

	case bytecode.OpAwait:
		f.lastAwaitDst = in.Dst
		return f.registers[in.Src1], actionSuspend, nil

	default:
		return errValueOf(fmt.Errorf("unimplemented opcode %s", in.Op)), actionThrow, nil
	}
	return value.Undefined, actionContinue, nil
}

// dispatchCall handles Call/CallMethod/Construct/TailCall. Calls into
// native functions run to completion inline (they cannot themselves
// suspend); calls into closures push a new Frame via actionCall so the
// dispatch loop — not the Go call stack — tracks call depth, which is
// what lets Resume re-enter a deeply nested await correctly.
func (it *Interpreter) dispatchCall(f *Frame, in bytecode.Instruction) (value.Value, stepAction, *Frame) {
	argc := int(in.Imm)
	var callee value.Value
	var this value.Value
	var argv []value.Value

	switch in.Op {
	case bytecode.OpCallMethod:
		this = f.registers[in.Src1]
		name := f.fn.Constants[in.ConstIdx].Str
		m, err := it.host.GetProp(this, name)
		if err != nil {
			return errValueOf(err), actionThrow, nil
		}
		callee = m
		argv = f.collectArgs(in.Src1, argc)
	default:
		callee = f.registers[in.Src1]
		argv = f.collectArgs(in.Src1, argc)
	}

	f.pendingCallDst = in.Dst

	if closureFn, upvalues, ok := it.closureOf(callee); ok && in.Op != bytecode.OpConstruct {
		frame := newFrame(closureFn, upvalues)
		for i := 0; i < int(closureFn.ParamCount) && i < len(argv); i++ {
			*frame.locals[i] = argv[i]
		}
		return value.Undefined, actionCall, frame
	}

	var res value.Value
	var err error
	if in.Op == bytecode.OpConstruct {
		res, err = it.host.Construct(callee, argv)
	} else {
		res, err = it.host.Call(callee, this, argv)
	}
	if err != nil {
		return errValueOf(err), actionThrow, nil
	}
	f.registers[in.Dst] = res
	return value.Undefined, actionContinue, nil
}

func (f *Frame) collectArgs(receiverReg bytecode.Register, argc int) []value.Value {
	if argc == 0 {
		return nil
	}
	argv := make([]value.Value, argc)
	copy(argv, f.registers[int(receiverReg)+1:int(receiverReg)+1+argc])
	return argv
}

// closureOf extracts a user-defined (non-native) function's bytecode and
// upvalue cells from a callable Value, for the frame-push fast path.
func (it *Interpreter) closureOf(callee value.Value) (*bytecode.Function, []*value.Value, bool) {
	if !callee.IsObject() {
		return nil, nil, false
	}
	obj := callee.AsObject()
	if obj == nil || obj.Func == nil || obj.Func.IsNative {
		return nil, nil, false
	}
	fn := it.host.Module().Functions[obj.Func.ModuleFuncIndex]
	return fn, obj.Func.Upvalues, true
}

// makeClosure builds a Function object capturing upvalue cells from the
// defining frame per fn.Upvalues descriptors.
func (it *Interpreter) makeClosure(f *Frame, fn *bytecode.Function) value.Value {
	cells := make([]*value.Value, len(fn.Upvalues))
	for i, d := range fn.Upvalues {
		if d.FromParentLocal {
			cells[i] = f.locals[d.Index]
		} else {
			cells[i] = f.upvalues[d.Index]
		}
	}
	idx := -1
	for i, mfn := range it.host.Module().Functions {
		if mfn == fn {
			idx = i
			break
		}
	}
	obj := value.NewObject(nil)
	obj.Class = value.ClassFunction
	obj.Func = &value.FunctionData{Name: fn.Name, ModuleFuncIndex: idx, Upvalues: cells}
	return value.ObjectValue(obj)
}

func errValueOf(err error) value.Value {
	if tv, ok := err.(*ThrownValue); ok {
		return tv.Value
	}
	return value.String(value.Intern(err.Error()))
}
