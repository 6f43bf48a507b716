package intrinsics

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/otterjs/otter/internal/value"
)

// consoleSink is the shape of a console output receiver (level, formatted
// line). Nothing installs one: writeConsoleLine prints straight to
// os.Stdout, or os.Stderr for warn/error, and output cannot be redirected
// per invocation (spec.md §4.3 "console").
type consoleSink func(level string, line string)

var consoleLevels = []string{"log", "info", "warn", "error", "debug"}

// installConsole installs globalThis.console with the level methods plus
// time/timeEnd/count/group/assert/table, matching the method surface the
// teacher's console.go JS polyfill exposes, but implemented as native Go
// functions operating directly on Values instead of round-tripping through
// an evaluated JS shim.
func installConsole(r *Runtime) {
	colorize := isatty.IsTerminal(os.Stdout.Fd())
	con := value.NewObject(r.protos.Object)
	timers := map[string]float64{}
	counters := map[string]int{}

	for _, lvl := range consoleLevels {
		level := lvl
		con.DefineOwn(value.StringKey(level), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, level, func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
			r.writeConsoleLine(level, r.formatArgs(args), colorize)
			return value.Undefined, nil
		})), value.AttrsBuiltinMethod))
	}

	con.DefineOwn(value.StringKey("time"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "time", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		timers[labelArg(args)] = r.nowMillis()
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("timeEnd"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "timeEnd", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		l := labelArg(args)
		start, ok := timers[l]
		if !ok {
			r.writeConsoleLine("warn", fmt.Sprintf("Timer %q does not exist", l), colorize)
			return value.Undefined, nil
		}
		delete(timers, l)
		r.writeConsoleLine("log", fmt.Sprintf("%s: %.3fms", l, r.nowMillis()-start), colorize)
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("count"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "count", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		l := labelArg(args)
		counters[l]++
		r.writeConsoleLine("log", fmt.Sprintf("%s: %d", l, counters[l]), colorize)
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("countReset"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "countReset", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		counters[labelArg(args)] = 0
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("assert"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "assert", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) == 0 || !args[0].ToBoolean() {
			msg := "Assertion failed"
			if rest := r.formatArgs(argsAfter(args, 1)); rest != "" {
				msg += ": " + rest
			}
			r.writeConsoleLine("error", msg, colorize)
		}
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("group"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "group", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		if len(args) > 0 {
			r.writeConsoleLine("log", r.formatArgs(args), colorize)
		}
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("groupEnd"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "groupEnd", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	con.DefineOwn(value.StringKey("table"), value.DataProperty(value.ObjectValue(value.NewNativeFunction(r.protos.Function, "table", func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		r.writeConsoleLine("log", r.formatArgs(args), colorize)
		return value.Undefined, nil
	})), value.AttrsBuiltinMethod))

	r.SetGlobal("console", value.ObjectValue(con))
}

func labelArg(args []value.Value) string {
	if len(args) == 0 || args[0].IsUndefined() {
		return "default"
	}
	return value.ToStringNoThrow(args[0])
}

func argsAfter(args []value.Value, n int) []value.Value {
	if len(args) <= n {
		return nil
	}
	return args[n:]
}

func (r *Runtime) formatArgs(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = r.inspect(a)
	}
	return strings.Join(parts, " ")
}

// inspect renders a value the way console.log displays it: strings print
// bare, everything else uses the same coercion as String(x) with objects
// shown as a terse inline summary instead of "[object Object]".
func (r *Runtime) inspect(v value.Value) string {
	if v.IsString() {
		return v.AsString().Value()
	}
	if v.IsObject() {
		o := v.AsObject()
		if o == nil {
			return "null"
		}
		if o.IsArray {
			parts := make([]string, o.Length)
			for i := uint32(0); i < o.Length; i++ {
				if d, ok := o.GetOwn(value.IndexKey(i)); ok {
					parts[i] = r.inspect(d.Value)
				}
			}
			return "[ " + strings.Join(parts, ", ") + " ]"
		}
		if o.Class == value.ClassFunction {
			return fmt.Sprintf("[Function: %s]", o.Func.Name)
		}
		if o.Class == value.ClassError {
			name, _ := r.GetProp(v, "name")
			msg, _ := r.GetProp(v, "message")
			return fmt.Sprintf("%s: %s", value.ToStringNoThrow(name), value.ToStringNoThrow(msg))
		}
		var parts []string
		for _, k := range o.OwnKeys() {
			if k.Kind != value.KeyString {
				continue
			}
			d, ok := o.GetOwn(k)
			if !ok || !d.Attrs.Enumerable {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k.Str, r.inspect(d.Value)))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	return value.ToStringNoThrow(v)
}

func (r *Runtime) writeConsoleLine(level, line string, colorize bool) {
	out := os.Stdout
	prefix := ""
	if colorize {
		switch level {
		case "error":
			prefix, line = "\x1b[31m", line+"\x1b[0m"
		case "warn":
			prefix, line = "\x1b[33m", line+"\x1b[0m"
		case "debug":
			prefix, line = "\x1b[90m", line+"\x1b[0m"
		}
	}
	if level == "error" || level == "warn" {
		out = os.Stderr
	}
	fmt.Fprintln(out, prefix+line)
}

// nowMillis gives console.time a monotonic-ish clock without reaching for
// wall time at compile/codegen time; the event loop's own clock backs
// performance.now() for script-visible timing (internal/eventloop).
func (r *Runtime) nowMillis() float64 {
	if r.clock != nil {
		return r.clock()
	}
	return 0
}
