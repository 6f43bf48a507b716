package intrinsics

import (
	whatwgurl "github.com/nlnwa/whatwg-url/url"

	"github.com/otterjs/otter/internal/value"
)

// urlSlot stores the parsed *whatwgurl.Url backing a URL instance
// (spec.md §2 names URL/URLSearchParams as a required baseline intrinsic;
// the DOMAIN STACK wires nlnwa/whatwg-url here for spec-conformant
// parsing instead of hand-rolling RFC 3986 splitting).
const urlSlot = "url"

var urlParser = whatwgurl.NewParser(whatwgurl.WithLaxHostParsing())

// installURLCtor installs `new URL(input, base?)` with the WHATWG
// accessor surface (href/protocol/host/hostname/port/pathname/search/hash).
func installURLCtor(r *Runtime) {
	proto := r.protos.URL
	ctor := value.NewNativeFunction(r.protos.Function, "URL", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if ctx.NewTarget == nil {
			return value.Undefined, r.ThrowTypeError("Constructor URL requires 'new'")
		}
		input := value.ToStringNoThrow(arg(args, 0))
		var (
			parsed *whatwgurl.Url
			err    error
		)
		if len(args) > 1 && !args[1].IsUndefined() {
			base := value.ToStringNoThrow(args[1])
			parsed, err = urlParser.Parse(input, whatwgurl.WithBaseURL(base))
		} else {
			parsed, err = urlParser.Parse(input)
		}
		if err != nil {
			return value.Undefined, r.ThrowTypeError("Invalid URL: %s", err.Error())
		}
		o := value.NewObject(proto)
		o.SetInternalSlot(urlSlot, parsed)
		return value.ObjectValue(o), nil
	})
	ctor.DefineOwn(value.StringKey("prototype"), value.DataProperty(value.ObjectValue(proto), value.AttrsPermanent))
	ctor.DefineOwn(value.StringKey("canParse"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "canParse", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		_, err := urlParser.Parse(value.ToStringNoThrow(arg(args, 0)))
		return value.Bool(err == nil), nil
	})), value.AttrsBuiltinMethod))
	r.SetGlobal("URL", value.ObjectValue(ctor))

	accessor := func(name string, get func(*whatwgurl.Url) string) {
		getter := value.NewNativeFunction(r.protos.Function, "get "+name, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			u := urlOf(thisArray(ctx))
			if u == nil {
				return value.String(value.Intern("")), nil
			}
			return value.String(value.Intern(get(u))), nil
		})
		proto.DefineOwn(value.StringKey(name), value.AccessorProperty(getter, nil, value.Attrs{Enumerable: false, Configurable: true}))
	}
	accessor("href", func(u *whatwgurl.Url) string { return u.Href(false) })
	accessor("protocol", func(u *whatwgurl.Url) string { return u.Protocol() })
	accessor("host", func(u *whatwgurl.Url) string { return u.Host() })
	accessor("hostname", func(u *whatwgurl.Url) string { return u.Hostname() })
	accessor("port", func(u *whatwgurl.Url) string { return u.Port() })
	accessor("pathname", func(u *whatwgurl.Url) string { return u.Pathname() })
	accessor("search", func(u *whatwgurl.Url) string { return u.Search() })
	accessor("hash", func(u *whatwgurl.Url) string { return u.Hash() })
	accessor("origin", func(u *whatwgurl.Url) string { return u.Origin().String() })

	proto.DefineOwn(value.StringKey("toString"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "toString", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		u := urlOf(thisArray(ctx))
		if u == nil {
			return value.String(value.Intern("")), nil
		}
		return value.String(value.Intern(u.Href(false))), nil
	})), value.AttrsBuiltinMethod))
}

func urlOf(o *value.Object) *whatwgurl.Url {
	if o == nil {
		return nil
	}
	v, ok := o.GetInternalSlot(urlSlot)
	if !ok {
		return nil
	}
	return v.(*whatwgurl.Url)
}
