package library

import (
	"github.com/pkg/errors"
)

// Store persists whole-collection snapshots of items and accounts.
// A store that has never been written loads as empty collections.
type Store interface {
	LoadItems() ([]*Item, error)
	SaveItems(items []*Item) error
	LoadAccounts() ([]*Account, error)
	SaveAccounts(accounts []*Account) error
	Close() error
}

// Store kinds accepted by OpenStore.
const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
	StoreMemory = "memory"
)

// OpenStore opens the store of the given kind. path is the database file for
// sqlite and the data directory for json; memory ignores it.
func OpenStore(kind, path string) (Store, error) {
	switch kind {
	case StoreSQLite, "":
		return NewDatabase(path)
	case StoreJSON:
		return NewFileStore(path)
	case StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown store kind %q", kind)
	}
}
