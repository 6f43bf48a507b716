package intrinsics

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/otterjs/otter/internal/value"
)

// typedArrayIndex reports whether key parses as a non-negative integer
// with strconv.Atoi (so non-canonical forms such as "01" and "+1" are
// accepted too), the only property shape TypedArray elements respond to (spec.md
// §3.6 typed-array element access bypasses the ordinary property table).
func typedArrayIndex(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// typedArrayGetIndex reads element idx out of o's backing ArrayBuffer
// bytes, or Undefined if idx is out of range (spec.md §3.6: out-of-range
// typed-array reads are Undefined, not a thrown error).
func (r *Runtime) typedArrayGetIndex(o *value.Object, idx int) value.Value {
	taAny, ok := o.GetInternalSlot("typedarray")
	if !ok {
		return value.Undefined
	}
	ta := taAny.(*value.TypedArrayData)
	if idx < 0 || idx >= ta.Length {
		return value.Undefined
	}
	buf := bufferBytes(ta.Buffer)
	off := ta.ByteOffset + idx*ta.Kind.ElementSize()
	return decodeElement(buf, off, ta.Kind)
}

// typedArraySetIndex writes element idx, silently ignoring out-of-range
// writes (spec.md §3.6, matching non-strict-mode array semantics) and
// clamping/truncating the value per the element kind.
func (r *Runtime) typedArraySetIndex(o *value.Object, idx int, v value.Value) {
	taAny, ok := o.GetInternalSlot("typedarray")
	if !ok {
		return
	}
	ta := taAny.(*value.TypedArrayData)
	if idx < 0 || idx >= ta.Length {
		return
	}
	buf := bufferBytes(ta.Buffer)
	off := ta.ByteOffset + idx*ta.Kind.ElementSize()
	encodeElement(buf, off, ta.Kind, r.toNumber(v))
}

func bufferBytes(buf *value.Object) []byte {
	if buf == nil {
		return nil
	}
	dataAny, ok := buf.GetInternalSlot("buffer")
	if !ok {
		return nil
	}
	return dataAny.(*value.ArrayBufferData).Bytes
}

func decodeElement(buf []byte, off int, kind value.TypedArrayKind) value.Value {
	if off < 0 || off+kind.ElementSize() > len(buf) {
		return value.Number(math.NaN())
	}
	switch kind {
	case value.TAInt8:
		return value.Int32(int32(int8(buf[off])))
	case value.TAUint8, value.TAUint8Clamped:
		return value.Int32(int32(buf[off]))
	case value.TAInt16:
		return value.Int32(int32(int16(binary.LittleEndian.Uint16(buf[off:]))))
	case value.TAUint16:
		return value.Int32(int32(binary.LittleEndian.Uint16(buf[off:])))
	case value.TAInt32:
		return value.Int32(int32(binary.LittleEndian.Uint32(buf[off:])))
	case value.TAUint32:
		return value.NumberFromInt64(int64(binary.LittleEndian.Uint32(buf[off:])))
	case value.TAFloat32:
		return value.Number(float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))))
	case value.TAFloat64:
		return value.Number(math.Float64frombits(binary.LittleEndian.Uint64(buf[off:])))
	case value.TABigInt64, value.TABigUint64:
		return value.NumberFromInt64(int64(binary.LittleEndian.Uint64(buf[off:])))
	}
	return value.Undefined
}

func encodeElement(buf []byte, off int, kind value.TypedArrayKind, f float64) {
	if off < 0 || off+kind.ElementSize() > len(buf) {
		return
	}
	switch kind {
	case value.TAInt8:
		buf[off] = byte(int8(int64(f)))
	case value.TAUint8:
		buf[off] = byte(uint8(int64(f)))
	case value.TAUint8Clamped:
		buf[off] = byte(clampUint8(f))
	case value.TAInt16:
		binary.LittleEndian.PutUint16(buf[off:], uint16(int16(int64(f))))
	case value.TAUint16:
		binary.LittleEndian.PutUint16(buf[off:], uint16(int64(f)))
	case value.TAInt32:
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(int64(f))))
	case value.TAUint32:
		binary.LittleEndian.PutUint32(buf[off:], uint32(int64(f)))
	case value.TAFloat32:
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(f)))
	case value.TAFloat64:
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(f))
	case value.TABigInt64, value.TABigUint64:
		binary.LittleEndian.PutUint64(buf[off:], uint64(int64(f)))
	}
}

func clampUint8(f float64) uint8 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 255:
		return 255
	default:
		return uint8(f + 0.5)
	}
}

// typedArrayKinds maps each constructor name to its element kind, driving
// the Int8Array..Float64Array family off one shared installer (spec.md §2
// "ArrayBuffer/DataView/typed arrays baseline intrinsics").
var typedArrayKinds = []struct {
	name string
	kind value.TypedArrayKind
}{
	{"Int8Array", value.TAInt8},
	{"Uint8Array", value.TAUint8},
	{"Uint8ClampedArray", value.TAUint8Clamped},
	{"Int16Array", value.TAInt16},
	{"Uint16Array", value.TAUint16},
	{"Int32Array", value.TAInt32},
	{"Uint32Array", value.TAUint32},
	{"Float32Array", value.TAFloat32},
	{"Float64Array", value.TAFloat64},
}

// installTypedArrayCtors installs ArrayBuffer, DataView, and the
// Int8Array..Float64Array family (spec.md §3.1/§3.6 heap reference
// kinds), wiring value.NewArrayBuffer/NewTypedArray/NewDataView (dead
// carryover before this change) into real constructors and the element
// access path in runtime.go's GetProp/SetProp.
func installTypedArrayCtors(r *Runtime) {
	abProto := r.protos.ArrayBuffer
	abCtor := value.NewNativeFunction(r.protos.Function, "ArrayBuffer", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		n := int(r.toNumber(arg(args, 0)))
		if n < 0 {
			n = 0
		}
		return value.ObjectValue(value.NewArrayBuffer(abProto, n)), nil
	})
	abCtor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(abProto), value.AttrsPermanent))
	byteLengthGetter := value.NewNativeFunction(r.protos.Function, "get byteLength", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		if o == nil {
			return value.NumberFromInt64(0), nil
		}
		return value.NumberFromInt64(int64(len(bufferBytes(o)))), nil
	})
	abProto.DefineOwn(value.StringKey("byteLength"), value.AccessorProperty(byteLengthGetter, nil, value.Attrs{Enumerable: false, Configurable: true}))
	abProto.DefineOwn(value.StringKey("slice"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "slice", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		buf := bufferBytes(o)
		start, end := sliceBounds(args, len(buf))
		out := value.NewArrayBuffer(abProto, end-start)
		copy(bufferBytes(out), buf[start:end])
		return value.ObjectValue(out), nil
	})), value.AttrsBuiltinMethod))
	r.SetGlobal("ArrayBuffer", value.ObjectValue(abCtor))

	dvProto := r.protos.DataView
	dvCtor := value.NewNativeFunction(r.protos.Function, "DataView", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		bufVal := arg(args, 0)
		if !bufVal.IsObject() || bufVal.AsObject() == nil || bufVal.AsObject().Class != value.ClassArrayBuffer {
			return value.Undefined, r.ThrowTypeError("First argument to DataView constructor must be an ArrayBuffer")
		}
		buf := bufVal.AsObject()
		off := int(r.toNumber(arg(args, 1)))
		length := len(bufferBytes(buf)) - off
		if len(args) > 2 {
			length = int(r.toNumber(args[2]))
		}
		return value.ObjectValue(value.NewDataView(dvProto, buf, off, length)), nil
	})
	dvCtor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(dvProto), value.AttrsPermanent))
	dvMethod := func(name string, kind value.TypedArrayKind) {
		dvProto.DefineOwn(value.StringKey("get"+name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "get"+name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			o := thisArray(ctx)
			dvAny, _ := o.GetInternalSlot("dataview")
			dv := dvAny.(*value.DataViewData)
			off := dv.ByteOffset + int(r.toNumber(arg(args, 0)))
			return decodeElement(bufferBytes(dv.Buffer), off, kind), nil
		})), value.AttrsBuiltinMethod))
		dvProto.DefineOwn(value.StringKey("set"+name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "set"+name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			o := thisArray(ctx)
			dvAny, _ := o.GetInternalSlot("dataview")
			dv := dvAny.(*value.DataViewData)
			off := dv.ByteOffset + int(r.toNumber(arg(args, 0)))
			encodeElement(bufferBytes(dv.Buffer), off, kind, r.toNumber(arg(args, 1)))
			return value.Undefined, nil
		})), value.AttrsBuiltinMethod))
	}
	for _, k := range typedArrayKinds {
		dvMethod(k.name[:len(k.name)-len("Array")], k.kind)
	}
	r.SetGlobal("DataView", value.ObjectValue(dvCtor))

	proto := r.protos.TypedArray
	proto.DefineOwn(value.StringKey("fill"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "fill", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		taAny, _ := o.GetInternalSlot("typedarray")
		ta := taAny.(*value.TypedArrayData)
		v := r.toNumber(arg(args, 0))
		for i := 0; i < ta.Length; i++ {
			r.typedArraySetIndex(o, i, value.Number(v))
		}
		return ctx.This, nil
	})), value.AttrsBuiltinMethod))
	lenGetter := value.NewNativeFunction(r.protos.Function, "get length", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		return value.NumberFromInt64(int64(o.Length)), nil
	})
	proto.DefineOwn(value.StringKey("length"), value.AccessorProperty(lenGetter, nil, value.Attrs{Enumerable: false, Configurable: true}))

	for _, k := range typedArrayKinds {
		k := k
		ctor := value.NewNativeFunction(r.protos.Function, k.name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			elemSize := k.kind.ElementSize()
			first := arg(args, 0)
			switch {
			case first.IsNumber():
				n := int(first.AsFloat64())
				buf := value.NewArrayBuffer(abProto, n*elemSize)
				return value.ObjectValue(value.NewTypedArray(proto, buf, k.kind, 0, n)), nil
			case first.IsObject() && first.AsObject() != nil && first.AsObject().Class == value.ClassArrayBuffer:
				buf := first.AsObject()
				off := int(r.toNumber(arg(args, 1)))
				n := (len(bufferBytes(buf)) - off) / elemSize
				if len(args) > 2 {
					n = int(r.toNumber(args[2]))
				}
				return value.ObjectValue(value.NewTypedArray(proto, buf, k.kind, off, n)), nil
			case first.IsObject() && first.AsObject() != nil:
				src := first.AsObject()
				n := int(src.Length)
				buf := value.NewArrayBuffer(abProto, n*elemSize)
				ta := value.NewTypedArray(proto, buf, k.kind, 0, n)
				for i := 0; i < n; i++ {
					v, _ := r.GetElem(first, value.NumberFromInt64(int64(i)))
					r.typedArraySetIndex(ta, i, v)
				}
				return value.ObjectValue(ta), nil
			default:
				return value.ObjectValue(value.NewTypedArray(proto, value.NewArrayBuffer(abProto, 0), k.kind, 0, 0)), nil
			}
		})
		ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
		ctor.DefineOwn(value.StringKey("BYTES_PER_ELEMENT"), value.DataProperty(value.NumberFromInt64(int64(elemSize)), value.AttrsPermanent))
		r.SetGlobal(k.name, value.ObjectValue(ctor))
	}
}
