package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"franchise-ledger-backend/internal/domain"
	"franchise-ledger-backend/internal/repository"
)

type contactResolver struct {
	db *sql.DB
}

func NewContactResolver(db *sql.DB) repository.ContactResolver {
	return &contactResolver{db: db}
}

func (r *contactResolver) FranchiseeContact(ctx context.Context, franchiseeID int32) (string, string, error) {
	query := `SELECT email, name FROM franchisees WHERE id = $1`

	var email, name string
	err := r.db.QueryRowContext(ctx, query, franchiseeID).Scan(&email, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", domain.ErrAccountNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve franchisee contact: %w", err)
	}
	return email, name, nil
}
