package intrinsics

import (
	"regexp"
	"strings"

	"github.com/otterjs/otter/internal/value"
)

// regexpData is the internal-slot payload backing a Class==ClassRegExp
// object: the compiled Go regexp plus the JS-visible source/flags pair
// (spec.md §2 names RegExp as a required intrinsic without prescribing an
// engine; RE2 via Go's regexp package covers the common subset scripts
// actually exercise — backreferences and lookaround are out of scope,
// same class of limitation as compiling JS generally with Go's stdlib).
type regexpData struct {
	re         *regexp.Regexp
	source     string
	flags      string
	lastIndex  int
	global     bool
	ignoreCase bool
	multiline  bool
}

// translateJSRegexp does a best-effort JS->RE2 syntax rewrite: JS's `\d`,
// `\w`, `\s` and their negations already match RE2 syntax, so only the
// flag-driven prefix (case-insensitivity, multiline, dotAll) needs injecting as
// an RE2 inline flag group.
func translateJSRegexp(source, flags string) (*regexp.Regexp, error) {
	var inline strings.Builder
	if strings.Contains(flags, "i") {
		inline.WriteByte('i')
	}
	if strings.Contains(flags, "m") {
		inline.WriteByte('m')
	}
	if strings.Contains(flags, "s") {
		inline.WriteByte('s')
	}
	pattern := source
	if inline.Len() > 0 {
		pattern = "(?" + inline.String() + ")" + source
	}
	return regexp.Compile(pattern)
}

func newRegExp(r *Runtime, source, flags string) (*value.Object, error) {
	re, err := translateJSRegexp(source, flags)
	if err != nil {
		return nil, err
	}
	o := value.NewObject(r.protos.RegExp)
	o.Class = value.ClassRegExp
	data := &regexpData{
		re: re, source: source, flags: flags,
		global:     strings.Contains(flags, "g"),
		ignoreCase: strings.Contains(flags, "i"),
		multiline:  strings.Contains(flags, "m"),
	}
	o.SetInternalSlot("regexp", data)
	o.DefineOwn(value.StringKey("source"), value.DataProperty(value.String(value.Intern(source)), value.AttrsPermanent))
	o.DefineOwn(value.StringKey("flags"), value.DataProperty(value.String(value.Intern(flags)), value.AttrsPermanent))
	o.DefineOwn(value.StringKey("global"), value.DataProperty(value.Bool(data.global), value.AttrsPermanent))
	o.DefineOwn(value.StringKey("ignoreCase"), value.DataProperty(value.Bool(data.ignoreCase), value.AttrsPermanent))
	o.DefineOwn(value.StringKey("multiline"), value.DataProperty(value.Bool(data.multiline), value.AttrsPermanent))
	o.DefineOwn(value.StringKey("lastIndex"), value.DataProperty(value.NumberFromInt64(0), value.AttrsData))
	return o, nil
}

func regexpOf(o *value.Object) *regexpData {
	v, ok := o.GetInternalSlot("regexp")
	if !ok {
		return nil
	}
	return v.(*regexpData)
}

// installRegExpCtor installs `new RegExp(source, flags)` plus exec/test/
// toString (spec.md §2).
func installRegExpCtor(r *Runtime) {
	proto := r.protos.RegExp
	ctor := value.NewNativeFunction(r.protos.Function, "RegExp", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		first := arg(args, 0)
		if first.IsObject() && first.AsObject() != nil && first.AsObject().Class == value.ClassRegExp {
			d := regexpOf(first.AsObject())
			flags := d.flags
			if len(args) > 1 && !args[1].IsUndefined() {
				flags = value.ToStringNoThrow(args[1])
			}
			o, err := newRegExp(r, d.source, flags)
			if err != nil {
				return value.Undefined, r.ThrowTypeError("Invalid regular expression: %s", err.Error())
			}
			return value.ObjectValue(o), nil
		}
		source := value.ToStringNoThrow(first)
		flags := ""
		if len(args) > 1 {
			flags = value.ToStringNoThrow(args[1])
		}
		o, err := newRegExp(r, source, flags)
		if err != nil {
			return value.Undefined, r.ThrowTypeError("Invalid regular expression: %s", err.Error())
		}
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
	r.SetGlobal("RegExp", value.ObjectValue(ctor))

	method := func(name string, fn value.NativeFunc) {
		proto.DefineOwn(value.StringKey(name), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, name, fn)), value.AttrsBuiltinMethod))
	}

	method("test", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		d := regexpOf(o)
		if d == nil {
			return value.False, nil
		}
		s := value.ToStringNoThrow(arg(args, 0))
		start := 0
		if d.global {
			li, _ := r.GetProp(ctx.This, "lastIndex")
			start = int(li.AsFloat64())
		}
		if start > len(s) {
			start = len(s)
		}
		loc := d.re.FindStringIndex(s[start:])
		if loc == nil {
			if d.global {
				r.SetProp(ctx.This, "lastIndex", value.NumberFromInt64(0))
			}
			return value.False, nil
		}
		if d.global {
			r.SetProp(ctx.This, "lastIndex", value.NumberFromInt64(int64(start+loc[1])))
		}
		return value.True, nil
	})

	method("exec", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		o := thisArray(ctx)
		d := regexpOf(o)
		if d == nil {
			return value.Null, nil
		}
		s := value.ToStringNoThrow(arg(args, 0))
		start := 0
		if d.global {
			li, _ := r.GetProp(ctx.This, "lastIndex")
			start = int(li.AsFloat64())
		}
		if start < 0 || start > len(s) {
			if d.global {
				r.SetProp(ctx.This, "lastIndex", value.NumberFromInt64(0))
			}
			return value.Null, nil
		}
		groups := d.re.FindStringSubmatchIndex(s[start:])
		if groups == nil {
			if d.global {
				r.SetProp(ctx.This, "lastIndex", value.NumberFromInt64(0))
			}
			return value.Null, nil
		}
		if d.global {
			r.SetProp(ctx.This, "lastIndex", value.NumberFromInt64(int64(start+groups[1])))
		}
		n := len(groups) / 2
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			if groups[2*i] < 0 {
				out[i] = value.Undefined
				continue
			}
			out[i] = value.String(value.Intern(s[start+groups[2*i] : start+groups[2*i+1]]))
		}
		result := r.newValueArray(out)
		r.SetProp(result, "index", value.NumberFromInt64(int64(start+groups[0])))
		r.SetProp(result, "input", value.String(value.Intern(s)))
		return result, nil
	})

	method("toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		d := regexpOf(thisArray(ctx))
		if d == nil {
			return value.String(value.Intern("/(?:)/")), nil
		}
		return value.String(value.Intern("/" + d.source + "/" + d.flags)), nil
	})
}
