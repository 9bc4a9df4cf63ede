package core

import "menu-import-service/internal/domain"

// KeyResolver maps natural keys to surrogate ids, one table per entity kind,
// built incrementally as the saver walks the dependency order. Modifiers use
// a composite key since modifier_key is only unique within its group.
type KeyResolver struct {
	tables map[domain.EntityKind]map[string]string
}

// NewKeyResolver creates an empty resolver.
func NewKeyResolver() *KeyResolver {
	return &KeyResolver{tables: make(map[domain.EntityKind]map[string]string)}
}

// Bind records the id for a natural key of the given kind.
func (r *KeyResolver) Bind(kind domain.EntityKind, key, id string) {
	table := r.tables[kind]
	if table == nil {
		table = make(map[string]string)
		r.tables[kind] = table
	}
	table[key] = id
}

// Resolve returns the id bound to a natural key, if any.
func (r *KeyResolver) Resolve(kind domain.EntityKind, key string) (string, bool) {
	id, ok := r.tables[kind][key]
	return id, ok
}

// MustResolve resolves a key or returns the ResolutionError that aborts
// the surrounding transaction.
func (r *KeyResolver) MustResolve(kind domain.EntityKind, key string) (string, error) {
	if id, ok := r.Resolve(kind, key); ok {
		return id, nil
	}
	return "", domain.NewResolutionError(kind, key)
}

// CompositeModifierKey builds the resolver key for a modifier, scoped by its
// owning group's natural key.
func CompositeModifierKey(groupKey, modifierKey string) string {
	return groupKey + "/" + modifierKey
}
