package plugin

import (
	"fmt"
	"reflect"
	"sync"
)

// ResourceRegistry is a heterogeneous container keyed by Go type. Plugins
// insert shared resources during Build; later plugins read them.
type ResourceRegistry struct {
	mu    sync.RWMutex
	items map[reflect.Type]interface{}
}

func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{items: make(map[reflect.Type]interface{})}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Insert stores v under its static type T, replacing any previous value.
func Insert[T any](r *ResourceRegistry, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[typeKey[T]()] = v
}

// Get returns the resource stored under T.
func Get[T any](r *ResourceRegistry) (T, bool) {
	v, err := Lookup[T](r)
	return v, err == nil
}

// Lookup returns the resource stored under T, failing with
// ErrResourceNotFound or ErrResourceTypeMismatch.
func Lookup[T any](r *ResourceRegistry) (T, error) {
	var zero T
	key := typeKey[T]()

	r.mu.RLock()
	raw, ok := r.items[key]
	r.mu.RUnlock()

	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrResourceNotFound, key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stored %T under %s", ErrResourceTypeMismatch, raw, key)
	}
	return v, nil
}

// MustGet is Lookup for resources whose absence is a programming error.
func MustGet[T any](r *ResourceRegistry) T {
	v, err := Lookup[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// Contains reports whether a resource of type T is present.
func Contains[T any](r *ResourceRegistry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[typeKey[T]()]
	return ok
}

// Remove deletes and returns the resource stored under T.
func Remove[T any](r *ResourceRegistry) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := typeKey[T]()
	raw, ok := r.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	delete(r.items, key)
	v, ok := raw.(T)
	return v, ok
}

// Len returns the number of stored resources.
func (r *ResourceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Types lists the stored resource types.
func (r *ResourceRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for t := range r.items {
		out = append(out, t.String())
	}
	return out
}
