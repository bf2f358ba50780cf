package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"listing-importer/models"
)

var ErrClosed = errors.New("storage: connection closed")

// MemoryStore keeps owners and listings in process memory. Connections
// share the store's data, so consecutive runs see earlier imports. It backs
// dry runs.
type MemoryStore struct {
	mu       sync.Mutex
	owners   map[string]*models.Owner
	listings []*models.Listing
	closes   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{owners: make(map[string]*models.Owner)}
}

func (s *MemoryStore) Connect(ctx context.Context, _ string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryConn{store: s}, nil
}

// Owners returns the number of stored owners.
func (s *MemoryStore) Owners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners)
}

// Listings returns a copy of the stored listings in insertion order.
func (s *MemoryStore) Listings() []*models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Listing(nil), s.listings...)
}

// Closes counts how many connections have been closed.
func (s *MemoryStore) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type memoryConn struct {
	store  *MemoryStore
	closed bool
}

func (c *memoryConn) FindOwnerByEmail(_ context.Context, email string) (*models.Owner, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	o, ok := c.store.owners[email]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (c *memoryConn) InsertOwner(_ context.Context, owner *models.Owner) (uuid.UUID, bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.closed {
		return uuid.Nil, false, ErrClosed
	}
	if existing, ok := c.store.owners[owner.Email]; ok {
		return existing.ID, false, nil
	}
	cp := *owner
	c.store.owners[owner.Email] = &cp
	return owner.ID, true, nil
}

func (c *memoryConn) InsertListing(_ context.Context, listing *models.Listing) (uuid.UUID, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.closed {
		return uuid.Nil, ErrClosed
	}
	if _, ok := c.findOwnerByID(listing.OwnerID); !ok {
		return uuid.Nil, errors.New("storage: listing references unknown owner")
	}
	cp := *listing
	c.store.listings = append(c.store.listings, &cp)
	return listing.ID, nil
}

func (c *memoryConn) findOwnerByID(id uuid.UUID) (*models.Owner, bool) {
	for _, o := range c.store.owners {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (c *memoryConn) Close() error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.store.closes++
	return nil
}
