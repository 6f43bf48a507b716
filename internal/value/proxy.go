package value

// ProxyTrap names the 13 ES proxy traps a handler object may implement
// (spec.md §3.5, §4.8).
type ProxyTrap string

const (
	TrapGet                     ProxyTrap = "get"
	TrapSet                     ProxyTrap = "set"
	TrapHas                     ProxyTrap = "has"
	TrapDeleteProperty          ProxyTrap = "deleteProperty"
	TrapOwnKeys                 ProxyTrap = "ownKeys"
	TrapGetOwnPropertyDescriptor ProxyTrap = "getOwnPropertyDescriptor"
	TrapDefineProperty          ProxyTrap = "defineProperty"
	TrapGetPrototypeOf          ProxyTrap = "getPrototypeOf"
	TrapSetPrototypeOf          ProxyTrap = "setPrototypeOf"
	TrapIsExtensible            ProxyTrap = "isExtensible"
	TrapPreventExtensions       ProxyTrap = "preventExtensions"
	TrapApply                   ProxyTrap = "apply"
	TrapConstruct               ProxyTrap = "construct"
)

// NewProxy allocates a proxy object over target with the given handler.
func NewProxy(target, handler *Object) *Object {
	revoked := false
	o := &Object{
		Class:        ClassProxy,
		Extensible:   true,
		ProxyTarget:  target,
		ProxyHandler: handler,
		ProxyRevoked: &revoked,
		Internal:     make(map[string]any),
	}
	return o
}

// IsRevoked reports whether a proxy has been revoked.
func (o *Object) IsRevoked() bool {
	return o.ProxyRevoked != nil && *o.ProxyRevoked
}

// Revoke marks a proxy as permanently revoked; subsequent trap dispatch
// must fail with a type error (spec.md §3.5).
func (o *Object) Revoke() {
	if o.ProxyRevoked != nil {
		*o.ProxyRevoked = true
	}
}

// Trap looks up a handler function for the given trap name, returning
// (nil, false) when the handler omits it (callers fall back to the
// default path operating on the target, per spec.md §4.8).
func (o *Object) Trap(name ProxyTrap) (*Object, bool) {
	if o.ProxyHandler == nil {
		return nil, false
	}
	d, _, ok := o.ProxyHandler.Lookup(StringKey(string(name)))
	if !ok || d.Kind != DescData || !d.Value.IsObject() {
		return nil, false
	}
	fn := d.Value.AsObject()
	if fn.Class != ClassFunction {
		return nil, false
	}
	return fn, true
}
