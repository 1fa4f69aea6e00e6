package library

import (
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	itemsFile    = "items.json"
	accountsFile = "accounts.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore keeps items and accounts as two JSON documents in a directory.
type FileStore struct {
	dir string
}

// NewFileStore uses dir for its documents, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) LoadItems() ([]*Item, error) {
	items := []*Item{}
	if err := f.read(itemsFile, &items); err != nil {
		return nil, errors.Wrap(err, "load items")
	}
	return items, nil
}

func (f *FileStore) SaveItems(items []*Item) error {
	return errors.Wrap(f.write(itemsFile, items), "save items")
}

func (f *FileStore) LoadAccounts() ([]*Account, error) {
	accounts := []*Account{}
	if err := f.read(accountsFile, &accounts); err != nil {
		return nil, errors.Wrap(err, "load accounts")
	}
	for _, a := range accounts {
		if a.Loans == nil {
			a.Loans = []Loan{}
		}
	}
	return accounts, nil
}

func (f *FileStore) SaveAccounts(accounts []*Account) error {
	return errors.Wrap(f.write(accountsFile, accounts), "save accounts")
}

func (f *FileStore) Close() error { return nil }

// read leaves v untouched when the document does not exist yet.
func (f *FileStore) read(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// write replaces the document atomically via a temp file in the same directory.
func (f *FileStore) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(f.dir, name))
}
