package intrinsics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/otterjs/otter/internal/value"
	"github.com/otterjs/otter/internal/vm"
)

// installJSON installs JSON.stringify/JSON.parse (spec.md §3.5). stringify
// walks Values directly; parse builds Values from a small hand-rolled
// recursive-descent reader since the JSON text space is fixed and does not
// warrant pulling in a generic parser dependency (no suitable library in
// the example pack specializes in JSON-to-this-VM's-Value-model decoding).
func installJSON(r *Runtime) {
	j := value.NewObject(r.protos.Object)
	j.DefineOwn(value.StringKey("stringify"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "stringify", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 || args[0].IsUndefined() {
			return value.Undefined, nil
		}
		indent := ""
		if len(args) > 2 {
			if args[2].IsNumber() {
				indent = strings.Repeat(" ", int(args[2].AsFloat64()))
			} else if args[2].IsString() {
				indent = args[2].AsString().Value()
			}
		}
		var sb strings.Builder
		ok, err := r.jsonStringify(&sb, args[0], indent, "")
		if err != nil {
			return value.Undefined, err
		}
		if !ok {
			return value.Undefined, nil
		}
		return value.String(value.Intern(sb.String())), nil
	})), value.AttrsBuiltinMethod))

	j.DefineOwn(value.StringKey("parse"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "parse", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 || !args[0].IsString() {
			return value.Undefined, r.newSyntaxErrorResult("JSON.parse requires a string argument")
		}
		p := &jsonParser{r: r, s: args[0].AsString().Value()}
		p.skipWS()
		v, err := p.parseValue()
		if err != nil {
			return value.Undefined, err
		}
		p.skipWS()
		if p.pos != len(p.s) {
			return value.Undefined, r.newSyntaxErrorResult("Unexpected non-whitespace character after JSON")
		}
		return v, nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("JSON", value.ObjectValue(j))
}

func (r *Runtime) newSyntaxErrorResult(msg string) error {
	return &vm.ThrownValue{Value: r.newError("SyntaxError", msg)}
}

// jsonStringify writes v's JSON text into sb. The bool return reports
// whether v serializes at all (functions/undefined/symbols at the top
// level produce no output, per JSON.stringify semantics).
func (r *Runtime) jsonStringify(sb *strings.Builder, v value.Value, indent, cur string) (bool, error) {
	switch v.Kind() {
	case value.KindUndefined, value.KindSymbol:
		return false, nil
	case value.KindNull:
		sb.WriteString("null")
		return true, nil
	case value.KindBool:
		if v.AsBool() {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
		return true, nil
	case value.KindInt32, value.KindNumber:
		f := v.AsFloat64()
		if f != f || f > 1e308*10 || f < -1e308*10 {
			sb.WriteString("null")
		} else {
			sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		return true, nil
	case value.KindString:
		writeJSONString(sb, v.AsString().Value())
		return true, nil
	case value.KindBigInt:
		return false, r.ThrowTypeError("Do not know how to serialize a BigInt")
	case value.KindObject:
		o := v.AsObject()
		if o == nil {
			sb.WriteString("null")
			return true, nil
		}
		if o.Class == value.ClassFunction {
			return false, nil
		}
		next := cur + indent
		nl, sp := "", ""
		if indent != "" {
			nl = "\n"
			sp = " "
		}
		if o.IsArray {
			sb.WriteString("[")
			for i := uint32(0); i < o.Length; i++ {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(nl + next)
				el, _ := o.GetOwn(value.IndexKey(i))
				var ev value.Value
				if el != nil {
					ev = el.Value
				}
				ok, err := r.jsonStringify(sb, ev, indent, next)
				if err != nil {
					return false, err
				}
				if !ok {
					sb.WriteString("null")
				}
			}
			if o.Length > 0 {
				sb.WriteString(nl + cur)
			}
			sb.WriteString("]")
			return true, nil
		}
		type kv struct {
			key string
			val value.Value
		}
		var entries []kv
		for _, k := range o.OwnKeys() {
			if k.Kind == value.KeySymbol {
				continue
			}
			d, ok := o.GetOwn(k)
			if !ok || !d.Attrs.Enumerable {
				continue
			}
			name := k.Str
			if k.Kind == value.KeyIndex {
				name = fmt.Sprintf("%d", k.Idx)
			}
			entries = append(entries, kv{name, d.Value})
		}
		sb.WriteString("{")
		wrote := false
		for _, e := range entries {
			var tmp strings.Builder
			ok, err := r.jsonStringify(&tmp, e.val, indent, next)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if wrote {
				sb.WriteString(",")
			}
			sb.WriteString(nl + next)
			writeJSONString(sb, e.key)
			sb.WriteString(":" + sp)
			sb.WriteString(tmp.String())
			wrote = true
		}
		if wrote {
			sb.WriteString(nl + cur)
		}
		sb.WriteString("}")
		return true, nil
	}
	return false, nil
}

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}

type jsonParser struct {
	r   *Runtime
	s   string
	pos int
}

func (p *jsonParser) skipWS() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (value.Value, error) {
	if p.pos >= len(p.s) {
		return value.Undefined, p.r.newSyntaxErrorResult("Unexpected end of JSON input")
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return value.Undefined, err
		}
		return value.String(value.Intern(s)), nil
	case c == 't' && strings.HasPrefix(p.s[p.pos:], "true"):
		p.pos += 4
		return value.True, nil
	case c == 'f' && strings.HasPrefix(p.s[p.pos:], "false"):
		p.pos += 5
		return value.False, nil
	case c == 'n' && strings.HasPrefix(p.s[p.pos:], "null"):
		p.pos += 4
		return value.Null, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return value.Undefined, p.r.newSyntaxErrorResult(fmt.Sprintf("Unexpected token %c in JSON", c))
	}
}

func (p *jsonParser) parseObject() (value.Value, error) {
	p.pos++ // {
	o := value.NewObject(p.r.protos.Object)
	p.skipWS()
	if p.pos < len(p.s) && p.s[p.pos] == '}' {
		p.pos++
		return value.ObjectValue(o), nil
	}
	for {
		p.skipWS()
		key, err := p.parseString()
		if err != nil {
			return value.Undefined, err
		}
		p.skipWS()
		if p.pos >= len(p.s) || p.s[p.pos] != ':' {
			return value.Undefined, p.r.newSyntaxErrorResult("Expected ':' in JSON object")
		}
		p.pos++
		p.skipWS()
		v, err := p.parseValue()
		if err != nil {
			return value.Undefined, err
		}
		o.DefineOwn(value.StringKey(key), value.DataProperty(v, value.AttrsData))
		p.skipWS()
		if p.pos >= len(p.s) {
			return value.Undefined, p.r.newSyntaxErrorResult("Unexpected end of JSON input")
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return value.ObjectValue(o), nil
		}
		return value.Undefined, p.r.newSyntaxErrorResult("Expected ',' or '}' in JSON object")
	}
}

func (p *jsonParser) parseArray() (value.Value, error) {
	p.pos++ // [
	var items []value.Value
	p.skipWS()
	if p.pos < len(p.s) && p.s[p.pos] == ']' {
		p.pos++
		return value.ObjectValue(value.NewArray(p.r.protos.Array, 0)), nil
	}
	for {
		p.skipWS()
		v, err := p.parseValue()
		if err != nil {
			return value.Undefined, err
		}
		items = append(items, v)
		p.skipWS()
		if p.pos >= len(p.s) {
			return value.Undefined, p.r.newSyntaxErrorResult("Unexpected end of JSON input")
		}
		if p.s[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.s[p.pos] == ']' {
			p.pos++
			arr := value.NewArray(p.r.protos.Array, len(items))
			for i, it := range items {
				arr.DefineOwn(value.IndexKey(uint32(i)), value.DataProperty(it, value.AttrsData))
			}
			return value.ObjectValue(arr), nil
		}
		return value.Undefined, p.r.newSyntaxErrorResult("Expected ',' or ']' in JSON array")
	}
}

func (p *jsonParser) parseString() (string, error) {
	if p.pos >= len(p.s) || p.s[p.pos] != '"' {
		return "", p.r.newSyntaxErrorResult("Expected string in JSON")
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '"' {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.s) {
				break
			}
			switch p.s[p.pos] {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				if p.pos+4 < len(p.s) {
					n, err := strconv.ParseInt(p.s[p.pos+1:p.pos+5], 16, 32)
					if err == nil {
						sb.WriteRune(rune(n))
						p.pos += 4
					}
				}
			}
			p.pos++
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", p.r.newSyntaxErrorResult("Unterminated string in JSON")
}

func (p *jsonParser) parseNumber() (value.Value, error) {
	start := p.pos
	if p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.s) && p.s[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.s) && (p.s[p.pos] == 'e' || p.s[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.s) && (p.s[p.pos] == '+' || p.s[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.s) && isDigit(p.s[p.pos]) {
			p.pos++
		}
	}
	f, err := strconv.ParseFloat(p.s[start:p.pos], 64)
	if err != nil {
		return value.Undefined, p.r.newSyntaxErrorResult("Invalid number in JSON")
	}
	return value.Number(f), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
