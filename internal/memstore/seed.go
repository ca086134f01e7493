package memstore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ariefcatur/marketplace-orders/internal/access"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
)

// Seed is the JSON document accepted by LoadSeedFile.
type Seed struct {
	Users    []access.Actor   `json:"users"`
	Products []orders.Product `json:"products"`
}

// Apply loads seed into the store. Nothing is stored if any product is invalid.
func (s *Store) Apply(seed Seed) error {
	for _, p := range seed.Products {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, u := range seed.Users {
		s.PutUser(u)
	}
	for _, p := range seed.Products {
		s.PutProduct(p)
	}
	return nil
}

func LoadSeedFile(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return Seed{}, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return seed, nil
}
