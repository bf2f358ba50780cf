package storage

import (
	"context"

	"github.com/google/uuid"

	"listing-importer/models"
)

// Store opens connections to a storage backend.
type Store interface {
	Connect(ctx context.Context, dsn string) (Conn, error)
}

// Conn is an open connection. It is used by one goroutine at a time and
// closed exactly once.
type Conn interface {
	// FindOwnerByEmail returns nil, nil when no owner has the email.
	FindOwnerByEmail(ctx context.Context, email string) (*models.Owner, error)
	// InsertOwner stores owner unless its email already exists. It returns
	// the stored owner's id and whether this call created it.
	InsertOwner(ctx context.Context, owner *models.Owner) (uuid.UUID, bool, error)
	InsertListing(ctx context.Context, listing *models.Listing) (uuid.UUID, error)
	Close() error
}

// RejectSink receives lines that could not be imported.
type RejectSink interface {
	WriteReject(line int, reason, record string) error
}
