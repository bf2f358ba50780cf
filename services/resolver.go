package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"listing-importer/models"
	"listing-importer/storage"
	"listing-importer/utils"
)

// Resolution identifies the owner a listing will reference.
type Resolution struct {
	OwnerID uuid.UUID
	Created bool
}

// OwnerResolver finds the owner with a profile's email or creates one with
// a placeholder credential. The first profile seen for an email wins; later
// profiles with the same email do not update it.
type OwnerResolver struct {
	hasher   *utils.CredentialHasher
	password string
	logger   *utils.Logger
}

// NewOwnerResolver creates a resolver that gives new owners the bcrypt hash
// of password peppered with the run's salt.
func NewOwnerResolver(hasher *utils.CredentialHasher, password string, logger *utils.Logger) *OwnerResolver {
	return &OwnerResolver{hasher: hasher, password: password, logger: logger}
}

func (r *OwnerResolver) Resolve(ctx context.Context, conn storage.Conn, profile models.OwnerProfile, salt string) (Resolution, error) {
	existing, err := conn.FindOwnerByEmail(ctx, profile.Email)
	if err != nil {
		return Resolution{}, fmt.Errorf("find owner %s: %w", profile.Email, err)
	}
	if existing != nil {
		r.logger.Debug("[resolver] Reusing owner %s for %s", existing.ID, profile.Email)
		return Resolution{OwnerID: existing.ID}, nil
	}

	hash, err := r.hasher.Hash(r.password, salt)
	if err != nil {
		return Resolution{}, err
	}

	owner := &models.Owner{
		ID:           uuid.New(),
		OwnerProfile: profile,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	id, created, err := conn.InsertOwner(ctx, owner)
	if err != nil {
		return Resolution{}, fmt.Errorf("create owner %s: %w", profile.Email, err)
	}
	if created {
		r.logger.Debug("[resolver] Created owner %s for %s", id, profile.Email)
	}
	return Resolution{OwnerID: id, Created: created}, nil
}
