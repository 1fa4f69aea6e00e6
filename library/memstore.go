package library

import "sync"

// MemoryStore keeps snapshots in process. Everything it hands out is a copy.
type MemoryStore struct {
	mu       sync.Mutex
	items    []*Item
	accounts []*Account
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) LoadItems() ([]*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyItems(m.items), nil
}

func (m *MemoryStore) SaveItems(items []*Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = copyItems(items)
	return nil
}

func (m *MemoryStore) LoadAccounts() ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyAccounts(m.accounts), nil
}

func (m *MemoryStore) SaveAccounts(accounts []*Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = copyAccounts(accounts)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copyItems(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		c := *it
		out = append(out, &c)
	}
	return out
}

func copyAccounts(accounts []*Account) []*Account {
	out := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.clone())
	}
	return out
}
