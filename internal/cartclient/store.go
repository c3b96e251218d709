package cartclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// Item is one held cart line. Local ids are productId or productId-variantId;
// remote ids are the server's cart item ids.
type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (it Item) Total() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// State is what a Store persists between runs.
type State struct {
	Token string `json:"token,omitempty"`
	Items []Item `json:"items"`
	// MergeID is kept while local items are unchanged so a failed sign-in
	// merge can be retried without double counting.
	MergeID string `json:"mergeId,omitempty"`
}

type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps the state in one JSON document.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (State, error) {
	var st State
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if len(b) == 0 {
		return st, nil
	}
	err = json.Unmarshal(b, &st)
	return st, err
}

// Save writes through a temp file so a crash never leaves a torn document.
func (f FileStore) Save(st State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

// MemStore holds state in memory.
type MemStore struct {
	State State
}

func (m *MemStore) Load() (State, error) { return m.State, nil }
func (m *MemStore) Save(st State) error  { m.State = st; return nil }
