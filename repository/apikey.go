package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/Iqra-23/intrusion-backend/models"
)

type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, userID uuid.UUID) (*models.APIKey, error) {
	apiKey := &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		APIKey:    generateAPIKey(),
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	query := `INSERT INTO api_keys (id, user_id, api_key, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, apiKey.ID, apiKey.UserID, apiKey.APIKey, apiKey.IsActive, apiKey.CreatedAt)
	if err != nil {
		return nil, err
	}
	return apiKey, nil
}

// ValidateKey returns the owning user ID and whether the key is active.
func (r *APIKeyRepository) ValidateKey(ctx context.Context, key string) (uuid.UUID, bool, error) {
	var userID uuid.UUID
	var isActive bool
	query := `SELECT user_id, is_active FROM api_keys WHERE api_key = $1`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&userID, &isActive)
	if err != nil {
		return uuid.Nil, false, err
	}
	return userID, isActive, nil
}

func (r *APIKeyRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE api_keys SET is_active = false WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func generateAPIKey() string {
	b := make([]byte, 32)
	rand.Read(b)
	return "sk_" + hex.EncodeToString(b)
}
