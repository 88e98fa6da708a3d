package params

import "context"

// MemoryStore is a Store test double that keeps the table in memory.
type MemoryStore struct {
	// Saved holds the last saved table.
	Saved Values

	// HasSaved reports whether Save has been called (or seeded).
	HasSaved bool

	// Saves counts successful Save calls.
	Saves int

	// LoadError, if set, will be returned by Load.
	LoadError error

	// SaveError, if set, will be returned by Save.
	SaveError error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the last saved table.
func (m *MemoryStore) Load(_ context.Context) (Values, bool, error) {
	if m.LoadError != nil {
		return Values{}, false, m.LoadError
	}
	return m.Saved, m.HasSaved, nil
}

// Save records the table.
func (m *MemoryStore) Save(_ context.Context, vals Values) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Saved = vals
	m.HasSaved = true
	m.Saves++
	return nil
}
