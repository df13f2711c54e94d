package knowledge

// Store exposes the knowledge base in definition order.
type Store interface {
	List() []Entry
	FindByID(id string) (Entry, bool)
}

// MemoryStore implements Store with an immutable in-memory slice.
type MemoryStore struct {
	items []Entry
}

// NewMemoryStore returns a MemoryStore holding a private copy of items.
func NewMemoryStore(items []Entry) *MemoryStore {
	copied := make([]Entry, len(items))
	for i, item := range items {
		item.Keywords = append([]string(nil), item.Keywords...)
		copied[i] = item
	}
	return &MemoryStore{items: copied}
}

// List returns the entries in definition order.
func (s *MemoryStore) List() []Entry {
	out := make([]Entry, len(s.items))
	for i, item := range s.items {
		item.Keywords = append([]string(nil), item.Keywords...)
		out[i] = item
	}
	return out
}

// FindByID looks up an entry by identifier.
func (s *MemoryStore) FindByID(id string) (Entry, bool) {
	for _, item := range s.items {
		if item.ID == id {
			item.Keywords = append([]string(nil), item.Keywords...)
			return item, true
		}
	}
	return Entry{}, false
}
