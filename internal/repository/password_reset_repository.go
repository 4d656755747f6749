package repository

import (
	"context"
	"fmt"

	"smart-reader/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// PasswordResetRepository keeps at most one pending reset per user.
type PasswordResetRepository interface {
	Save(ctx context.Context, reset *domain.PasswordReset) error
	Get(ctx context.Context, userID string) (*domain.PasswordReset, error)
	Delete(ctx context.Context, userID string) error
}

type passwordResetRepository struct {
	client *kivik.Client
	dbName string
}

func NewPasswordResetRepository(client *kivik.Client, dbName string) PasswordResetRepository {
	return &passwordResetRepository{
		client: client,
		dbName: dbName,
	}
}

func passwordResetDocID(userID string) string {
	return fmt.Sprintf("password_reset:%s", userID)
}

func (r *passwordResetRepository) Save(ctx context.Context, reset *domain.PasswordReset) error {
	db := r.client.DB(r.dbName)
	docID := passwordResetDocID(reset.UserID)

	var rawDoc map[string]interface{}
	if err := db.Get(ctx, docID).ScanDoc(&rawDoc); err == nil {
		rawDoc["token_hash"] = reset.TokenHash
		rawDoc["expires_at"] = reset.ExpiresAt
		rawDoc["created_at"] = reset.CreatedAt

		if _, err := db.Put(ctx, docID, rawDoc); err != nil {
			return fmt.Errorf("failed to update password reset: %w", err)
		}
		return nil
	}

	doc := map[string]interface{}{
		"doc_type":   "password_reset",
		"user_id":    reset.UserID,
		"token_hash": reset.TokenHash,
		"expires_at": reset.ExpiresAt,
		"created_at": reset.CreatedAt,
	}
	if _, err := db.Put(ctx, docID, doc); err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}
	return nil
}

func (r *passwordResetRepository) Get(ctx context.Context, userID string) (*domain.PasswordReset, error) {
	db := r.client.DB(r.dbName)

	var reset domain.PasswordReset
	if err := db.Get(ctx, passwordResetDocID(userID)).ScanDoc(&reset); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil, ErrResetNotFound
		}
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}
	return &reset, nil
}

func (r *passwordResetRepository) Delete(ctx context.Context, userID string) error {
	db := r.client.DB(r.dbName)
	docID := passwordResetDocID(userID)

	var doc struct {
		Rev string `json:"_rev"`
	}
	if err := db.Get(ctx, docID).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == 404 {
			return nil
		}
		return fmt.Errorf("failed to get password reset for delete: %w", err)
	}

	if _, err := db.Delete(ctx, docID, doc.Rev); err != nil {
		return fmt.Errorf("failed to delete password reset: %w", err)
	}
	return nil
}
