package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"listing-importer/models"
	"listing-importer/utils"
)

// PostgresStore connects to PostgreSQL, retrying the initial ping.
type PostgresStore struct {
	retry utils.RetryConfig
}

// NewPostgresStore returns a store that pings up to attempts times with
// exponential back-off starting at delay.
func NewPostgresStore(attempts int, delay time.Duration, logger *utils.Logger) *PostgresStore {
	return &PostgresStore{retry: utils.RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   delay,
		Logger:      logger,
	}}
}

// Connect opens a connection, waits for the server to answer and makes
// sure the schema exists.
func (s *PostgresStore) Connect(ctx context.Context, dsn string) (Conn, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	// One record is in flight at a time.
	db.SetMaxOpenConns(1)

	if err := s.retry.Do(ctx, "postgres: ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}

	conn := &postgresConn{db: db}
	if err := conn.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return conn, nil
}

type postgresConn struct {
	db *sql.DB
}

func (c *postgresConn) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS owners (
			id            UUID         PRIMARY KEY,
			name          VARCHAR(15)  NOT NULL,
			email         TEXT         UNIQUE NOT NULL,
			avatar        TEXT         NOT NULL DEFAULT '',
			owner_type    VARCHAR(16)  NOT NULL,
			password_hash TEXT         NOT NULL,
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS listings (
			id            UUID          PRIMARY KEY,
			owner_id      UUID          NOT NULL REFERENCES owners(id),
			name          VARCHAR(100)  NOT NULL,
			description   VARCHAR(1024) NOT NULL,
			city          TEXT          NOT NULL,
			preview_photo TEXT          NOT NULL,
			photos        TEXT[]        NOT NULL,
			is_premium    BOOLEAN       NOT NULL DEFAULT FALSE,
			listing_type  VARCHAR(16)   NOT NULL,
			rooms         SMALLINT      NOT NULL,
			guests        SMALLINT      NOT NULL,
			price         NUMERIC(10,2) NOT NULL,
			features      TEXT[]        NOT NULL,
			latitude      DOUBLE PRECISION NOT NULL,
			longitude     DOUBLE PRECISION NOT NULL,
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
		CREATE INDEX IF NOT EXISTS idx_listings_city  ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	`)
	return err
}

func (c *postgresConn) FindOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	o := &models.Owner{}
	var ownerType string
	err := c.db.QueryRowContext(ctx, `
		SELECT id, name, email, avatar, owner_type, password_hash, created_at
		FROM owners
		WHERE email = $1
	`, email).Scan(&o.ID, &o.Name, &o.Email, &o.Avatar, &ownerType, &o.PasswordHash, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find owner: %w", err)
	}
	o.Type = models.OwnerType(ownerType)
	return o, nil
}

func (c *postgresConn) InsertOwner(ctx context.Context, owner *models.Owner) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO owners (id, name, email, avatar, owner_type, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`, owner.ID, owner.Name, owner.Email, owner.Avatar, string(owner.Type),
		owner.PasswordHash, owner.CreatedAt).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("postgres: insert owner: %w", describe(err))
	}

	// Another writer got there first.
	existing, err := c.FindOwnerByEmail(ctx, owner.Email)
	if err != nil {
		return uuid.Nil, false, err
	}
	if existing == nil {
		return uuid.Nil, false, fmt.Errorf("postgres: owner %s vanished after conflict", owner.Email)
	}
	return existing.ID, false, nil
}

func (c *postgresConn) InsertListing(ctx context.Context, l *models.Listing) (uuid.UUID, error) {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO listings (
			id, owner_id, name, description, city, preview_photo, photos, is_premium,
			listing_type, rooms, guests, price, features, latitude, longitude, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, l.ID, l.OwnerID, l.Name, l.Description, l.City, l.PreviewPhoto, pq.Array(l.Photos),
		l.Premium, string(l.Type), l.Rooms, l.Guests, l.Price, pq.Array(l.FeatureStrings()),
		l.Location.Latitude, l.Location.Longitude, l.CreatedAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("postgres: insert listing: %w", describe(err))
	}
	return l.ID, nil
}

func (c *postgresConn) Close() error {
	return c.db.Close()
}

// describe adds the constraint name to server-side errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		return fmt.Errorf("%s (constraint %s): %w", pqErr.Code.Name(), pqErr.Constraint, err)
	}
	return err
}
