package memstore

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/catalog"
)

// Products is a concurrency-safe [catalog.Store].
type Products struct {
	mu   sync.RWMutex
	byID map[string]catalog.Product
	seq  int
	err  error
}

// NewProducts returns an empty store.
func NewProducts() *Products {
	return &Products{byID: map[string]catalog.Product{}}
}

// FailWith makes every subsequent call return err. Nil restores normal behavior.
func (s *Products) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Insert stores a copy of p and assigns its id.
func (s *Products) Insert(_ context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	s.seq++
	p.ID = "p" + strconv.Itoa(s.seq)
	s.byID[p.ID] = clone(*p)
	return nil
}

// Get returns a copy of the product with the given id.
func (s *Products) Get(_ context.Context, id string) (*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	p, ok := s.byID[id]
	if !ok {
		return nil, sellerhub.ErrProductNotFound
	}
	out := clone(p)
	return &out, nil
}

// ListBySeller returns the seller's products, newest first.
func (s *Products) ListBySeller(_ context.Context, sellerID string) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []catalog.Product
	for _, p := range s.byID {
		if p.SellerID == sellerID {
			out = append(out, clone(p))
		}
	}
	slices.SortFunc(out, func(a, b catalog.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareSeq(b.ID, a.ID)
	})
	return out, nil
}

// Update replaces an existing product.
func (s *Products) Update(_ context.Context, p *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}

	if _, ok := s.byID[p.ID]; !ok {
		return sellerhub.ErrProductNotFound
	}
	s.byID[p.ID] = clone(*p)
	return nil
}

func clone(p catalog.Product) catalog.Product {
	p.PhotoURLs = slices.Clone(p.PhotoURLs)
	return p
}

// compareSeq orders "p<n>" ids numerically so inserts within the same
// instant still list newest first.
func compareSeq(a, b string) int {
	na, _ := strconv.Atoi(a[1:])
	nb, _ := strconv.Atoi(b[1:])
	return na - nb
}
