package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// API key errors
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
	ErrAPIKeyRevoked  = errors.New("API key revoked")
	ErrAPIKeyInvalid  = errors.New("invalid API key")
)

const apiKeySecretBytes = 32

// APIKey grants programmatic read access to a user's transaction data. Only
// the bcrypt hash of the secret is stored; the full key is shown once at
// creation.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Name       string     `json:"name"`
	SecretHash string     `json:"-"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Revoked reports whether the key has been revoked.
func (k *APIKey) Revoked() bool {
	return k.RevokedAt != nil
}

// APIKeyRepository defines storage operations for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, id string) (*APIKey, error)
	ListByUserID(ctx context.Context, userID string) ([]*APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string, at time.Time) error
}

// GenerateAPIKey mints a new key for the user. The returned plaintext has
// the form "<keyID>.<secret>" and is the only time the secret is available;
// the stored record carries its bcrypt hash.
func GenerateAPIKey(userID, name string) (*APIKey, string, error) {
	secretBytes := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash secret: %w", err)
	}

	key := &APIKey{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		SecretHash: string(hash),
	}
	return key, key.ID + "." + secret, nil
}

// SplitAPIKey separates a plaintext key into key ID and secret.
func SplitAPIKey(plaintext string) (keyID, secret string, err error) {
	parts := strings.SplitN(plaintext, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrAPIKeyInvalid
	}
	return parts[0], parts[1], nil
}

// VerifyAPIKey checks a plaintext key against the stored record and returns
// the owning key when it matches.
func VerifyAPIKey(ctx context.Context, repo APIKeyRepository, plaintext string) (*APIKey, error) {
	keyID, secret, err := SplitAPIKey(plaintext)
	if err != nil {
		return nil, err
	}

	key, err := repo.GetByID(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up API key: %w", err)
	}
	if key == nil {
		return nil, ErrAPIKeyNotFound
	}
	if key.Revoked() {
		return nil, ErrAPIKeyRevoked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return nil, ErrAPIKeyInvalid
	}
	return key, nil
}
