package toolchain

import (
	"sync"

	"github.com/google/uuid"
)

// ID is the stable identifier of a registered profile. Unlike menu indices,
// IDs survive removals and are persisted with the registry.
type ID string

// NewID generates a fresh identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// Short returns the first 8 characters for display.
func (id ID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Entry is one registry row as shown to the user.
// Index is 1-based and only valid until the next mutation.
type Entry struct {
	Index   int
	ID      ID
	Profile Profile
}

type record struct {
	id      ID
	profile Profile
}

// Registry is the ordered, duplicate-free set of known toolchain profiles.
// Insertion order is registration order and is never rearranged.
// All methods are safe for concurrent use; a removal and the index shift it
// causes happen under one lock.
type Registry struct {
	mu      sync.Mutex
	records []record
	newID   func() ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{newID: NewID}
}

// Register appends p unless an equal profile is already present, in which
// case the existing ID is returned and created is false.
func (r *Registry) Register(p Profile) (id ID, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.profile == p {
			return rec.id, false
		}
	}

	id = r.newID()
	r.records = append(r.records, record{id: id, profile: p})
	return id, true
}

// restore appends an entry with a known ID; used when loading from disk.
// Duplicate profiles or IDs are dropped.
func (r *Registry) restore(id ID, p Profile) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.id == id || rec.profile == p {
			return false
		}
	}
	r.records = append(r.records, record{id: id, profile: p})
	return true
}

// List returns a snapshot of every entry with its current 1-based index.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, len(r.records))
	for i, rec := range r.records {
		entries[i] = Entry{Index: i + 1, ID: rec.id, Profile: rec.profile}
	}
	return entries
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// At returns the entry at a 1-based index.
func (r *Registry) At(index int) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 1 || index > len(r.records) {
		return Entry{}, &NotFoundError{Kind: IndexOutOfRange, Index: index, Size: len(r.records)}
	}
	rec := r.records[index-1]
	return Entry{Index: index, ID: rec.id, Profile: rec.profile}, nil
}

// Get returns the profile registered under id.
func (r *Registry) Get(id ID) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.id == id {
			return rec.profile, nil
		}
	}
	return Profile{}, &NotFoundError{Kind: UnknownID, ID: id}
}

// IndexOf returns the current 1-based index of id.
func (r *Registry) IndexOf(id ID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.records {
		if rec.id == id {
			return i + 1, true
		}
	}
	return 0, false
}

// Find returns the ID of the profile equal to p.
func (r *Registry) Find(p Profile) (ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.profile == p {
			return rec.id, nil
		}
	}
	return "", &NotFoundError{Kind: NoMatch, Profile: p}
}

// Remove deletes the entry at a 1-based index. Every later entry moves
// down by one, so callers must re-fetch List afterwards.
func (r *Registry) Remove(index int) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 1 || index > len(r.records) {
		return Entry{}, &NotFoundError{Kind: IndexOutOfRange, Index: index, Size: len(r.records)}
	}
	rec := r.records[index-1]
	r.records = append(r.records[:index-1], r.records[index:]...)
	return Entry{Index: index, ID: rec.id, Profile: rec.profile}, nil
}

// Insert puts an entry back at a 1-based index, clamped to the registry
// bounds. It is a no-op when id or p is already registered.
func (r *Registry) Insert(index int, id ID, p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.id == id || rec.profile == p {
			return
		}
	}
	i := min(max(index-1, 0), len(r.records))
	r.records = append(r.records, record{})
	copy(r.records[i+1:], r.records[i:])
	r.records[i] = record{id: id, profile: p}
}

// RemoveID deletes the entry registered under id.
func (r *Registry) RemoveID(id ID) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.records {
		if rec.id == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return rec.profile, nil
		}
	}
	return Profile{}, &NotFoundError{Kind: UnknownID, ID: id}
}
