package renderer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"golang.org/x/exp/slices"
)

// TrackedObject describes one registered native object.
type TrackedObject struct {
	Label uuid.UUID
	Op    string
	Kind  driver.ObjectKind
	seq   uint64
}

func (t TrackedObject) String() string {
	return fmt.Sprintf("%s from %s [%s]", t.Kind, t.Op, t.Label)
}

/**
 * @brief Set of native objects created by the renderer, released in bulk at teardown.
 * When disabled, Register only remembers the object so that a later Release
 * stays legal after tracking is switched on; it is not counted or reported.
 */
type Registry struct {
	mu      sync.Mutex
	enabled bool
	seq     uint64
	objects map[driver.Object]TrackedObject
	// created while tracking was off
	untracked map[driver.Object]struct{}
}

func NewRegistry(enabled bool) *Registry {
	return &Registry{
		enabled:   enabled,
		objects:   make(map[driver.Object]TrackedObject),
		untracked: make(map[driver.Object]struct{}),
	}
}

func (r *Registry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

func (r *Registry) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Register tracks obj, created by op.
func (r *Registry) Register(obj driver.Object, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		r.untracked[obj] = struct{}{}
		return
	}
	if _, dup := r.objects[obj]; dup {
		core.Fatalf("Registry.Register", "%s from %s registered twice", obj.Kind(), op)
	}
	r.seq++
	r.objects[obj] = TrackedObject{Label: uuid.New(), Op: op, Kind: obj.Kind(), seq: r.seq}
}

// Release drops the native reference and forgets obj. Releasing an object
// that was never registered aborts while tracking is enabled.
func (r *Registry) Release(obj driver.Object) {
	r.mu.Lock()
	_, tracked := r.objects[obj]
	if tracked {
		delete(r.objects, obj)
	}
	_, known := r.untracked[obj]
	if known {
		delete(r.untracked, obj)
	}
	enabled := r.enabled
	r.mu.Unlock()

	if !tracked && !known && enabled {
		core.Fatalf("Registry.Release", "%s was never registered", obj.Kind())
	}
	obj.Release()
}

func (r *Registry) ReleaseUntracked(obj driver.Object) {
	obj.Release()
}

// ReleaseAll force releases every tracked object, newest first, and logs each
// one as a leak. It returns how many objects were released. Objects created
// while tracking was off are forgotten, not released.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	type entry struct {
		obj  driver.Object
		info TrackedObject
	}
	leaked := make([]entry, 0, len(r.objects))
	for obj, info := range r.objects {
		leaked = append(leaked, entry{obj, info})
	}
	r.objects = make(map[driver.Object]TrackedObject)
	r.untracked = make(map[driver.Object]struct{})
	r.mu.Unlock()

	slices.SortFunc(leaked, func(a, b entry) int {
		switch {
		case a.info.seq > b.info.seq:
			return -1
		case a.info.seq < b.info.seq:
			return 1
		}
		return 0
	})
	for _, e := range leaked {
		core.LogWarn("releasing leaked %s", e.info)
		e.obj.Release()
	}
	return len(leaked)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

func (r *Registry) Tracked(obj driver.Object) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[obj]
	return ok
}

// Report lists the tracked objects in creation order. Safe to call from any goroutine.
func (r *Registry) Report() []TrackedObject {
	r.mu.Lock()
	out := make([]TrackedObject, 0, len(r.objects))
	for _, info := range r.objects {
		out = append(out, info)
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b TrackedObject) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}
