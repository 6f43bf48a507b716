package value

// TypedArrayKind enumerates the typed-array element formats named in
// spec.md §2 (ArrayBuffer/DataView/typed arrays baseline intrinsics).
type TypedArrayKind uint8

const (
	TAInt8 TypedArrayKind = iota
	TAUint8
	TAUint8Clamped
	TAInt16
	TAUint16
	TAInt32
	TAUint32
	TAFloat32
	TAFloat64
	TABigInt64
	TABigUint64
)

var taElemSize = map[TypedArrayKind]int{
	TAInt8: 1, TAUint8: 1, TAUint8Clamped: 1,
	TAInt16: 2, TAUint16: 2,
	TAInt32: 4, TAUint32: 4, TAFloat32: 4,
	TAFloat64: 8, TABigInt64: 8, TABigUint64: 8,
}

// ElementSize returns the byte width of one element of the given kind.
func (k TypedArrayKind) ElementSize() int { return taElemSize[k] }

// ArrayBufferData is the internal slot payload of a Class==ClassArrayBuffer
// object (spec.md §2 ArrayBuffer).
type ArrayBufferData struct {
	Bytes   []byte
	Resizable bool
}

// NewArrayBuffer allocates an ArrayBuffer object of byteLength bytes.
func NewArrayBuffer(proto *Object, byteLength int) *Object {
	o := NewObject(proto)
	o.Class = ClassArrayBuffer
	o.SetInternalSlot("buffer", &ArrayBufferData{Bytes: make([]byte, byteLength)})
	return o
}

// TypedArrayData is the internal slot payload of a Class==ClassTypedArray
// object: a view over an ArrayBuffer's bytes (spec.md §3.6 "__TypedArrayData__").
type TypedArrayData struct {
	Buffer     *Object // the backing ArrayBuffer
	Kind       TypedArrayKind
	ByteOffset int
	Length     int // element count
}

// NewTypedArray allocates a typed array view over buffer.
func NewTypedArray(proto *Object, buffer *Object, kind TypedArrayKind, byteOffset, length int) *Object {
	o := NewObject(proto)
	o.Class = ClassTypedArray
	o.SetInternalSlot("typedarray", &TypedArrayData{
		Buffer: buffer, Kind: kind, ByteOffset: byteOffset, Length: length,
	})
	o.Length = uint32(length)
	return o
}

// DataViewData is the internal slot payload of a Class==ClassDataView object.
type DataViewData struct {
	Buffer     *Object
	ByteOffset int
	ByteLength int
}

func NewDataView(proto *Object, buffer *Object, byteOffset, byteLength int) *Object {
	o := NewObject(proto)
	o.Class = ClassDataView
	o.SetInternalSlot("dataview", &DataViewData{Buffer: buffer, ByteOffset: byteOffset, ByteLength: byteLength})
	return o
}
