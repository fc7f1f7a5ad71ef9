package postgres

import (
	"context"
	"database/sql"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/repository"

	"github.com/google/uuid"
)

const invitationColumns = `id, host_id, host_name, host_apartment, visitor_phone, visitor_id, visitor_name,
	visitor_avatar, visit_date, status, access_code, type, created_on, updated_on`

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) repository.InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now()
	query := `INSERT INTO invitations (id, host_id, host_name, host_apartment, visitor_phone, visitor_id, visitor_name,
	          visitor_avatar, visit_date, status, access_code, type, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`
	_, err := r.db.ExecContext(ctx, query, inv.ID, inv.HostID, inv.HostName, inv.HostApartment, inv.VisitorPhone,
		inv.VisitorID, inv.VisitorName, inv.VisitorAvatar, inv.VisitDate, inv.Status, inv.AccessCode, inv.Type, now)
	if err != nil {
		return err
	}
	inv.CreatedOn = now.Format(time.RFC3339)
	inv.UpdatedOn = inv.CreatedOn
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "invitation")
	}
	return inv, nil
}

func (r *invitationRepository) FindRedeemable(ctx context.Context, code string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
	          WHERE access_code = $1 AND status IN ($2, $3) ORDER BY created_on LIMIT 1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, code, domain.InvitationStatusActive, domain.InvitationStatusApproved))
	if err != nil {
		return nil, notFound(err, "invitation")
	}
	return inv, nil
}

func (r *invitationRepository) FindPendingKnock(ctx context.Context, hostID, visitorID int32, apartment string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
	          WHERE host_id = $1 AND visitor_id = $2 AND host_apartment = $3 AND type = $4 AND status = $5
	          ORDER BY created_on LIMIT 1`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, hostID, visitorID, apartment,
		domain.InvitationTypeKnock, domain.InvitationStatusPending))
	if err != nil {
		return nil, notFound(err, "invitation")
	}
	return inv, nil
}

func (r *invitationRepository) Update(ctx context.Context, inv *domain.Invitation) error {
	now := time.Now()
	query := `UPDATE invitations SET status = $1, access_code = $2, updated_on = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, inv.Status, inv.AccessCode, now, inv.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound(sql.ErrNoRows, "invitation")
	}
	inv.UpdatedOn = now.Format(time.RFC3339)
	return nil
}

func (r *invitationRepository) ListByHost(ctx context.Context, hostID int32) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE host_id = $1 ORDER BY created_on DESC`
	return r.list(ctx, query, hostID)
}

func (r *invitationRepository) ListAll(ctx context.Context) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations ORDER BY created_on DESC`
	return r.list(ctx, query)
}

func (r *invitationRepository) ListOpenBefore(ctx context.Context, visitDate string) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
	          WHERE visit_date < $1 AND status IN ($2, $3, $4) ORDER BY created_on`
	return r.list(ctx, query, visitDate, domain.InvitationStatusActive, domain.InvitationStatusApproved, domain.InvitationStatusPending)
}

func (r *invitationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, *inv)
	}
	return invs, rows.Err()
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var visitorID sql.NullInt32
	var visitDate, createdOn, updatedOn time.Time
	err := row.Scan(&inv.ID, &inv.HostID, &inv.HostName, &inv.HostApartment, &inv.VisitorPhone, &visitorID,
		&inv.VisitorName, &inv.VisitorAvatar, &visitDate, &inv.Status, &inv.AccessCode, &inv.Type, &createdOn, &updatedOn)
	if err != nil {
		return nil, err
	}
	if visitorID.Valid {
		id := visitorID.Int32
		inv.VisitorID = &id
	}
	inv.VisitDate = visitDate.Format(domain.VisitDateLayout)
	inv.CreatedOn = createdOn.Format(time.RFC3339)
	inv.UpdatedOn = updatedOn.Format(time.RFC3339)
	return inv, nil
}
