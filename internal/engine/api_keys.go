package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"caseflow/internal/domain"
	"caseflow/internal/repo"
)

const apiKeyPrefix = "cf_"

// CreateAPIKey issues a new key for ownerID. The plaintext is returned once;
// only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, ownerID, name string) (string, domain.APIKey, error) {
	if err := requireOwner(ownerID); err != nil {
		return "", domain.APIKey{}, err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.APIKey{}, fmt.Errorf("generate api key: %w", err)
	}
	plain := apiKeyPrefix + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        e.newID(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: e.now(),
	}
	err := e.withTx(ctx, "create api key", func(tx *sql.Tx) error {
		return e.Repo.InsertAPIKey(ctx, tx, key)
	})
	if err != nil {
		return "", domain.APIKey{}, err
	}
	e.logger().Info("api key created", zap.String("owner_id", ownerID), zap.String("key_id", key.ID))
	return plain, key, nil
}

func (e Engine) ListAPIKeys(ctx context.Context, ownerID string) ([]domain.APIKey, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	keys, err := e.Repo.ListAPIKeys(ctx, ownerID)
	if err != nil {
		return nil, classify("list api keys", err)
	}
	return keys, nil
}

func (e Engine) RevokeAPIKey(ctx context.Context, ownerID, keyID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := e.Repo.DeleteAPIKey(ctx, ownerID, keyID); err != nil {
		return classify("revoke api key", notFound(err, "api key", keyID))
	}
	return nil
}
