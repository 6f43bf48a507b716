package intrinsics

import "github.com/otterjs/otter/internal/value"

// errorNames are the standard Error subclasses (spec.md §4.3 error
// taxonomy carried over from the teacher's CompileError/RuntimeError split,
// generalized to the full ECMAScript set).
var errorNames = []string{"Error", "TypeError", "RangeError", "SyntaxError", "ReferenceError", "EvalError", "URIError"}

// installErrorCtors installs the Error base class plus its standard
// subclasses, each with its own prototype chained to Error.prototype so
// `instanceof` works across the hierarchy.
func installErrorCtors(r *Runtime) {
	r.protos.Error.DefineOwn(value.StringKey("name"), value.DataProperty(value.String(value.Intern("Error")), value.AttrsBuiltinMethod))
	r.protos.Error.DefineOwn(value.StringKey("message"), value.DataProperty(value.String(value.Intern("")), value.AttrsBuiltinMethod))
	r.protos.Error.DefineOwn(value.StringKey("toString"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		name, _ := r.GetProp(ctx.This, "name")
		msg, _ := r.GetProp(ctx.This, "message")
		n, m := value.ToStringNoThrow(name), value.ToStringNoThrow(msg)
		if m == "" {
			return value.String(value.Intern(n)), nil
		}
		return value.String(value.Intern(n + ": " + m)), nil
	})), value.AttrsBuiltinMethod))

	for _, name := range errorNames {
		proto := r.protos.Error
		if name != "Error" {
			proto = value.NewObject(r.protos.Error)
			proto.DefineOwn(value.StringKey("name"), value.DataProperty(value.String(value.Intern(name)), value.AttrsBuiltinMethod))
		}
		n := name
		p := proto
		ctor := value.NewNativeFunction(r.protos.Function, n, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			this := ctx.This
			if !this.IsObject() || this.AsObject() == nil || this.AsObject().Class != value.ClassError {
				o := value.NewObject(p)
				o.Class = value.ClassError
				this = value.ObjectValue(o)
			}
			msg := ""
			if len(args) > 0 && !args[0].IsUndefined() {
				msg = value.ToStringNoThrow(args[0])
			}
			this.AsObject().DefineOwn(value.StringKey("message"), value.DataProperty(value.String(value.Intern(msg)), value.AttrsBuiltinMethod))
			this.AsObject().DefineOwn(value.StringKey("stack"), value.DataProperty(value.String(value.Intern(n+": "+msg)), value.AttrsBuiltinMethod))
			return this, nil
		})
		ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(p), value.AttrsPermanent))
		p.DefineOwn(value.StringKey("constructor"), value.DataProperty(value.ObjectValue(ctor), value.AttrsConstructorLink))
		r.SetGlobal(n, value.ObjectValue(ctor))
	}
}
