package pcktsim

// HookPos names a point of the simulation at which hooks are invoked
type HookPos struct {
	Name string
}

var (
	// HookPosBeforeEvent triggers before the scheduler executes an event
	HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

	// HookPosAfterEvent triggers after the scheduler executed an event
	HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

	// HookPosHop triggers when a packet is put on a link; Detail is a HopRecord
	HookPosHop = &HookPos{Name: "Hop"}

	// HookPosDelivered triggers when a packet is processed at its destination;
	// Detail is a Delivery
	HookPosDelivered = &HookPos{Name: "Delivered"}

	// HookPosDrop triggers when a packet is lost; Detail is a Drop
	HookPosDrop = &HookPos{Name: "Drop"}

	// HookPosTopologyChange triggers when a node or link is failed or recovered;
	// Item is the *TopologyChange
	HookPosTopologyChange = &HookPos{Name: "TopologyChange"}
)

// HookCtx holds what a hook is told about the site that invoked it
type HookCtx struct {
	Now    Time
	Pos    *HookPos
	Item   any
	Detail any
}

// Hook is a short piece of program invoked by a hookable object
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a function to the Hook interface
type HookFunc func(ctx HookCtx)

func (f HookFunc) Func(ctx HookCtx) { f(ctx) }

// Hookable is an object that accepts hooks
type Hookable interface {
	AcceptHook(hook Hook)
}

// HookableBase provides the hook bookkeeping for hookable types
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase is a constructor
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook registers a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the registered hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
