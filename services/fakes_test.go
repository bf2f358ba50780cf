package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"listing-importer/models"
	"listing-importer/storage"
)

var errStoreDown = errors.New("store down")

// faultyStore wraps a MemoryStore and injects failures.
type faultyStore struct {
	mem        *storage.MemoryStore
	connectErr error
	connects   int
	conn       *faultyConn
}

func newFaultyStore() *faultyStore {
	return &faultyStore{mem: storage.NewMemoryStore()}
}

func (s *faultyStore) Connect(ctx context.Context, dsn string) (storage.Conn, error) {
	s.connects++
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	inner, err := s.mem.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if s.conn == nil {
		s.conn = &faultyConn{}
	}
	s.conn.Conn = inner
	return s.conn, nil
}

type faultyConn struct {
	storage.Conn
	findErr     error
	failListing func(*models.Listing) error
	closes      int
}

func (c *faultyConn) FindOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	if c.findErr != nil {
		return nil, c.findErr
	}
	return c.Conn.FindOwnerByEmail(ctx, email)
}

func (c *faultyConn) InsertListing(ctx context.Context, l *models.Listing) (uuid.UUID, error) {
	if c.failListing != nil {
		if err := c.failListing(l); err != nil {
			return uuid.Nil, err
		}
	}
	return c.Conn.InsertListing(ctx, l)
}

func (c *faultyConn) Close() error {
	c.closes++
	return c.Conn.Close()
}

// memoryRejects collects rejected lines.
type memoryRejects struct {
	lines   []int
	reasons []string
}

func (r *memoryRejects) WriteReject(line int, reason, _ string) error {
	r.lines = append(r.lines, line)
	r.reasons = append(r.reasons, reason)
	return nil
}
