package network

import "github.com/pywr-go/pywr-core-go/pywrerr"

// nameKey addresses an entity by its name plus an optional sub-name.
type nameKey struct {
	name    string
	subName string
	hasSub  bool
}

func key(name string, subName *string) nameKey {
	if subName == nil {
		return nameKey{name: name}
	}
	return nameKey{name: name, subName: *subName, hasSub: true}
}

// registry is an append-only arena: add assigns the next dense integer
// index and never reuses one. Entities are addressed by handle, not by
// name, once minted; the name index exists only for lookup at build time.
type registry[T any] struct {
	items  []T
	byName map[nameKey]int
	kind   string // for error messages, e.g. "node", "aggregated node"
}

func newRegistry[T any](kind string) *registry[T] {
	return &registry[T]{byName: make(map[nameKey]int), kind: kind}
}

func (r *registry[T]) add(name string, subName *string, item T) (int, error) {
	k := key(name, subName)
	if _, exists := r.byName[k]; exists {
		return 0, pywrerr.New(pywrerr.DuplicateName, name, "duplicate "+r.kind+" name")
	}
	idx := len(r.items)
	r.items = append(r.items, item)
	r.byName[k] = idx
	return idx, nil
}

func (r *registry[T]) get(idx int) (T, error) {
	var zero T
	if idx < 0 || idx >= len(r.items) {
		return zero, pywrerr.New(pywrerr.NotFound, "", "invalid "+r.kind+" index")
	}
	return r.items[idx], nil
}

func (r *registry[T]) set(idx int, item T) error {
	if idx < 0 || idx >= len(r.items) {
		return pywrerr.New(pywrerr.NotFound, "", "invalid "+r.kind+" index")
	}
	r.items[idx] = item
	return nil
}

func (r *registry[T]) indexByName(name string, subName *string) (int, error) {
	idx, ok := r.byName[key(name, subName)]
	if !ok {
		return 0, pywrerr.New(pywrerr.NotFound, name, "unknown "+r.kind)
	}
	return idx, nil
}

func (r *registry[T]) len() int { return len(r.items) }
