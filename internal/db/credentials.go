package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetSendCredential returns the stored send address and encrypted secret for
// a tenant, or ("", nil, nil) when none is stored. Satisfies
// credentials.Store.
func (db *DB) GetSendCredential(ctx context.Context, ownerID uuid.UUID) (string, []byte, error) {
	var email string
	var encSecret []byte
	err := db.pool.QueryRow(ctx,
		`SELECT send_email, send_secret_enc FROM tenant_credentials WHERE owner_id = $1`,
		ownerID,
	).Scan(&email, &encSecret)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("failed to get send credential: %w", err)
	}
	return email, encSecret, nil
}

// GetGenerationKey returns the encrypted generation API key for a tenant, or
// (nil, nil) when none is stored.
func (db *DB) GetGenerationKey(ctx context.Context, ownerID uuid.UUID) ([]byte, error) {
	var enc []byte
	err := db.pool.QueryRow(ctx,
		`SELECT generation_key_enc FROM tenant_credentials WHERE owner_id = $1`,
		ownerID,
	).Scan(&enc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generation key: %w", err)
	}
	return enc, nil
}

// UpsertTenantCredentials stores encrypted credentials for a tenant. Nil
// blobs clear the corresponding column.
func (db *DB) UpsertTenantCredentials(ctx context.Context, ownerID uuid.UUID, sendEmail string, encSecret, encGenKey []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tenant_credentials (owner_id, send_email, send_secret_enc, generation_key_enc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id) DO UPDATE
		 SET send_email = $2, send_secret_enc = $3, generation_key_enc = $4, updated_at = NOW()`,
		ownerID, sendEmail, encSecret, encGenKey,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant credentials: %w", err)
	}
	return nil
}
