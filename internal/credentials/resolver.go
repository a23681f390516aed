package credentials

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SendCredential holds decrypted mail-send credentials for one account.
type SendCredential struct {
	Email  string
	Secret string
	Host   string
	Port   int
}

// System reports whether the credential is the shared system account rather
// than a tenant's own.
func (c SendCredential) System() bool {
	return c.Email == ""
}

// Store is the persistence contract for encrypted tenant credentials.
// Implementations return nil blobs (no error) when a tenant has no record.
type Store interface {
	// GetSendCredential returns the stored send address and the encrypted
	// secret for a tenant, or ("", nil, nil) when none is stored.
	GetSendCredential(ctx context.Context, ownerID uuid.UUID) (email string, encSecret []byte, err error)
	// GetGenerationKey returns the encrypted generation API key for a
	// tenant, or (nil, nil) when none is stored.
	GetGenerationKey(ctx context.Context, ownerID uuid.UUID) ([]byte, error)
}

// Resolver resolves per-tenant credentials, decrypting stored secrets and
// falling back to the configured system account.
type Resolver struct {
	store    Store
	cipher   *Cipher
	fallback SendCredential
}

// NewResolver creates a Resolver. fallback is the system send account used
// for tenants without stored credentials; its Host/Port also apply to tenant
// credentials, which store only address and secret.
func NewResolver(store Store, cipher *Cipher, fallback SendCredential) *Resolver {
	return &Resolver{
		store:    store,
		cipher:   cipher,
		fallback: fallback,
	}
}

// SendCredential returns the tenant's decrypted send credentials, or the
// system fallback when the tenant has none stored.
func (r *Resolver) SendCredential(ctx context.Context, ownerID uuid.UUID) (SendCredential, error) {
	email, encSecret, err := r.store.GetSendCredential(ctx, ownerID)
	if err != nil {
		return SendCredential{}, fmt.Errorf("failed to load send credential: %w", err)
	}
	if email == "" || len(encSecret) == 0 {
		if r.fallback.Email == "" {
			return SendCredential{}, fmt.Errorf("no send credential for tenant %s and no system fallback configured", ownerID)
		}
		return r.fallback, nil
	}

	secret, err := r.cipher.Decrypt(encSecret)
	if err != nil {
		return SendCredential{}, fmt.Errorf("failed to decrypt send credential for tenant %s: %w", ownerID, err)
	}

	return SendCredential{
		Email:  email,
		Secret: string(secret),
		Host:   r.fallback.Host,
		Port:   r.fallback.Port,
	}, nil
}

// GenerationKey returns the tenant's decrypted generation API key. The second
// return is false when the tenant has no personal key; callers fall back to
// the process-wide shared key.
func (r *Resolver) GenerationKey(ctx context.Context, ownerID uuid.UUID) (string, bool, error) {
	enc, err := r.store.GetGenerationKey(ctx, ownerID)
	if err != nil {
		return "", false, fmt.Errorf("failed to load generation key: %w", err)
	}
	if len(enc) == 0 {
		return "", false, nil
	}

	key, err := r.cipher.Decrypt(enc)
	if err != nil {
		return "", false, fmt.Errorf("failed to decrypt generation key for tenant %s: %w", ownerID, err)
	}
	return string(key), true, nil
}
