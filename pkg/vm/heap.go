package vm

import (
	"github.com/mortie/gilia/internal/bitset"
	"github.com/mortie/gilia/pkg/value"
)

// heap is the VM's value arena: a dense table of value.Value indexed by
// value.ID, with a bitset tracking which ids are currently live. It is
// not exported — callers go through the VM's Value/Alloc methods
// so GC bookkeeping stays centralized.
type heap struct {
	values []value.Value
	live   bitset.Set

	// constPrefix is one past the highest id allocated during VM init
	// (the none singleton, interned const atoms, built-in CFUNCTIONs).
	// Sweep never walks below it.
	constPrefix value.ID
}

func newHeap() *heap {
	h := &heap{}
	id := h.alloc(value.None())
	if id != value.NoneID {
		panic("vm: none must allocate at id 0")
	}
	return h
}

// alloc installs v at a freshly allocated id and returns it.
func (h *heap) alloc(v value.Value) value.ID {
	id := value.ID(h.live.AllocateNext())
	for int(id) >= len(h.values) {
		h.values = append(h.values, value.Value{})
	}
	h.values[id] = v
	return id
}

// gcMargin schedules a collection once an id comes within this many
// slots of needing the backing array to grow, rather than waiting
// until it actually must.
const gcMargin = 16

// needsGC reports whether the next allocation is approaching the
// table's current capacity closely enough that a collection should run
// first.
func (h *heap) needsGC() bool {
	return len(h.values)+gcMargin >= cap(h.values)
}

// get returns a pointer to the value at id. Callers must not retain the
// pointer across any call that may allocate — any previously held
// *Value pointer is invalidated after an allocation; re-fetch with get
// after such a call.
func (h *heap) get(id value.ID) *value.Value {
	return &h.values[id]
}

// isLive reports whether id currently holds a reachable value.
func (h *heap) isLive(id value.ID) bool {
	return h.live.Get(uint64(id))
}

// free releases id's payload and clears its liveness bit. It never frees
// below constPrefix.
func (h *heap) free(id value.ID) {
	if id < h.constPrefix {
		return
	}
	h.values[id] = value.Value{}
	h.live.Unset(uint64(id))
}

// markConstPrefix freezes the current allocation high-water mark as the
// boundary sweep will never cross. Called once, after VM init finishes
// allocating the none singleton, built-in atoms, and built-in
// CFUNCTIONs.
func (h *heap) markConstPrefix() {
	h.constPrefix = value.ID(len(h.values))
}
