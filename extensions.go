package otter

import (
	"context"
	"fmt"

	"github.com/otterjs/otter/internal/extension"
	"github.com/otterjs/otter/internal/value"
)

// registry holds every Extension registered against this Runtime before
// first eval (spec.md §4.7 "Registration"). Stored on Runtime rather than
// Engine since capability checks are per-Runtime (each pooled Runtime can
// in principle carry a different Capabilities bundle, §5 "shared-resource
// policy").
func (r *Runtime) extensionRegistry() *extension.Registry {
	if r.extensions == nil {
		r.extensions = extension.NewRegistry()
	}
	return r.extensions
}

// RegisterExtension installs ext's ops as globals and evaluates its JS
// setup preamble (spec.md §4.7: "Extension{name, ops, js, state_initializer}").
// Each op is capability-gated per OpDecl.Capability before Sync/Async/
// Native ever runs, regardless of ABI kind.
func (r *Runtime) RegisterExtension(ext *extension.Extension) error {
	r.extensionRegistry().Register(ext)
	for _, op := range ext.Ops {
		native := r.bindOp(ext, op)
		r.rt.SetGlobal(op.Name, r.rt.NewNativeFunction(op.Name, native))
	}
	if ext.JS != "" {
		if _, err := r.Eval(context.Background(), ext.JS, "extension:"+ext.Name); err != nil {
			return fmt.Errorf("otter: evaluating extension %q setup: %w", ext.Name, err)
		}
	}
	return nil
}

// capabilityOK maps an OpDecl.Capability category (spec.md §4.7's gating
// categories: "read", "write", "env", "net", "spawn") to the matching
// Capabilities predicate. A category this Runtime doesn't recognize is
// denied, not ignored — an extension author who misspells a category name
// should get PermissionDenied, not silent passthrough.
func (r *Runtime) capabilityOK(category string, subject string) bool {
	switch category {
	case "":
		return true
	case "read":
		return r.caps.CanRead(subject)
	case "write":
		return r.caps.CanWrite(subject)
	case "env":
		return r.caps.CanEnv(subject)
	case "net":
		return r.caps.CanNet(subject)
	case "spawn":
		return r.caps.CanSpawn(subject)
	default:
		return false
	}
}

// bindOp wraps one OpDecl as a value.NativeFunc: marshal JS args to the
// JSON ABI, capability-gate, dispatch to Sync/Async/Native, marshal the
// result back (spec.md §4.7's three ABI shapes).
func (r *Runtime) bindOp(ext *extension.Extension, op extension.OpDecl) value.NativeFunc {
	return func(ctx *value.NativeContext, args []value.Value) (value.Value, error) {
		subject := ""
		if len(args) > 0 && args[0].IsString() {
			subject = args[0].AsString().Value()
		}
		if !r.capabilityOK(op.Capability, subject) {
			return value.Undefined, &PermissionDeniedError{Capability: op.Capability, Op: ext.Name + "." + op.Name}
		}

		jsonArgs := make([]any, len(args))
		for i, a := range args {
			jv, err := extension.ToJSON(r.rt, a)
			if err != nil {
				return value.Undefined, err
			}
			jsonArgs[i] = jv
		}

		switch op.Kind {
		case extension.OpSync:
			result, err := op.Sync(jsonArgs)
			if err != nil {
				return value.Undefined, err
			}
			return extension.FromJSON(r.rt, result)

		case extension.OpAsync:
			promise, resolve, reject := r.rt.NewPromise()
			r.loop.AddPendingAsyncOp()
			ch := op.Async(jsonArgs)
			go func() {
				res := <-ch
				r.loop.EnqueueJob(func() {
					defer r.loop.RemovePendingAsyncOp()
					if res.Err != nil {
						reject(r.rt.NewError("Error", res.Err.Error()))
						return
					}
					v, err := extension.FromJSON(r.rt, res.Value)
					if err != nil {
						reject(r.rt.NewError("Error", err.Error()))
						return
					}
					resolve(v)
				})
			}()
			return promise, nil

		case extension.OpNative:
			anyArgs := make([]any, len(args))
			for i, a := range args {
				anyArgs[i] = a
			}
			result, err := op.Native(anyArgs)
			if err != nil {
				return value.Undefined, err
			}
			if v, ok := result.(value.Value); ok {
				return v, nil
			}
			return value.Undefined, nil

		default:
			return value.Undefined, fmt.Errorf("otter: extension op %q has no ABI bound", op.Name)
		}
	}
}
