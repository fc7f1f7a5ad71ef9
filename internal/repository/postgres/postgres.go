package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/repository"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
	repository.ProviderRepository
	repository.OrganizationRepository
	repository.JoinRequestRepository
	repository.InvitationRepository
	repository.NotificationRepository
	repository.PremiseRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		ProviderRepository:     NewProviderRepository(db),
		OrganizationRepository: NewOrganizationRepository(db),
		JoinRequestRepository:  NewJoinRequestRepository(db),
		InvitationRepository:   NewInvitationRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		PremiseRepository:      NewPremiseRepository(db),
	}
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	logger.DatabaseCall("MIGRATE", "schema.sql")
	_, err := s.db.ExecContext(ctx, schema)
	logger.DatabaseResult("MIGRATE", 0, err)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// notFound converts sql.ErrNoRows into domain.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}
