package toolchain

// Resolver maps a user's selection onto exactly one registered profile.
//
// Selection is always by explicit registry position or by the full tuple.
// Partial requests (e.g. only a compiler and a distro) are never widened to
// a best guess: two Ubuntu/APT profiles that differ only in compiler version
// would make any such guess ambiguous.
type Resolver struct {
	registry *Registry
}

// NewResolver returns a resolver over the given registry.
func NewResolver(r *Registry) *Resolver {
	return &Resolver{registry: r}
}

// Resolve returns the profile at a 1-based index of the current ordering.
// Indices outside [1, Len()] yield a *NotFoundError of kind IndexOutOfRange.
func (r *Resolver) Resolve(index int) (Profile, error) {
	entry, err := r.registry.At(index)
	if err != nil {
		return Profile{}, err
	}
	return entry.Profile, nil
}

// ResolveID translates a 1-based index into the entry's stable ID.
func (r *Resolver) ResolveID(index int) (ID, error) {
	entry, err := r.registry.At(index)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Find returns the ID of the profile equal to q. An incomplete q never
// matches and yields a *NotFoundError of kind NoMatch.
func (r *Resolver) Find(q Profile) (ID, error) {
	if !q.IsComplete() {
		return "", &NotFoundError{Kind: NoMatch, Profile: q}
	}
	return r.registry.Find(q)
}
