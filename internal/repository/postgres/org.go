package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/repository"
)

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) repository.OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	logger.EnterMethod("organizationRepository.Create", "name", o.Name)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("organizationRepository.Create", err, "reason", "begin tx")
		return err
	}
	defer tx.Rollback()

	o.AccountType = domain.AccountTypeOrganization
	o.ProfileType = domain.ProfileTypeGroup
	now := time.Now()
	query := `INSERT INTO providers (name, phone, phone_key, service, category, location, avatar_url,
	          cover_image_url, rating, is_verified, is_online, account_type, profile_type, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	logger.DatabaseCall("INSERT", "providers", "name", o.Name)
	err = tx.QueryRowContext(ctx, query, o.Name, o.Phone, domain.NormalizePhone(o.Phone), o.Service, o.Category,
		o.Location, o.AvatarURL, o.CoverImageURL, o.Rating, o.IsVerified, o.IsOnline, o.AccountType,
		o.ProfileType, now).Scan(&o.ID)
	logger.DatabaseResult("INSERT", 1, err, "orgID", o.ID)
	if err != nil {
		logger.ExitMethodWithError("organizationRepository.Create", err)
		return err
	}

	leaders := `INSERT INTO org_leaders (org_id, chairperson_phone, secretary_phone, treasurer_phone)
	            VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, leaders, o.ID, o.Leaders.Chairperson, o.Leaders.Secretary, o.Leaders.Treasurer); err != nil {
		logger.ExitMethodWithError("organizationRepository.Create", err, "reason", "insert leaders")
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("organizationRepository.Create", err, "reason", "commit")
		return err
	}
	o.CreatedOn = now.Format("2006-01-02")
	logger.ExitMethod("organizationRepository.Create", "orgID", o.ID)
	return nil
}

const orgColumns = `p.id, p.name, p.phone, p.whatsapp, p.email, p.service, p.category, p.location, p.avatar_url,
	p.cover_image_url, p.rating, p.distance_km, p.hourly_rate, p.rate_type, p.currency, p.is_verified, p.is_online,
	p.account_type, p.profile_type, p.push_token, p.created_on,
	l.chairperson_phone, l.secretary_phone, l.treasurer_phone`

func (r *organizationRepository) GetByID(ctx context.Context, id int32) (*domain.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM providers p JOIN org_leaders l ON l.org_id = p.id WHERE p.id = $1`
	o, err := scanOrganization(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "organization")
	}
	members, err := r.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Members = members
	return o, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM providers p JOIN org_leaders l ON l.org_id = p.id ORDER BY p.id`
	return r.queryOrganizations(ctx, query)
}

func (r *organizationRepository) ListByLeaderPhone(ctx context.Context, phone string) ([]domain.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM providers p JOIN org_leaders l ON l.org_id = p.id
	          WHERE RIGHT(regexp_replace(l.chairperson_phone, '\D', '', 'g'), 9) = $1
	             OR RIGHT(regexp_replace(l.secretary_phone, '\D', '', 'g'), 9) = $1
	             OR RIGHT(regexp_replace(l.treasurer_phone, '\D', '', 'g'), 9) = $1
	          ORDER BY p.id`
	return r.queryOrganizations(ctx, query, domain.NormalizePhone(phone))
}

func (r *organizationRepository) AddMember(ctx context.Context, orgID int32, m domain.Member) error {
	query := `INSERT INTO org_members (org_id, provider_id, name, avatar_url, rating, distance_km, hourly_rate,
	          rate_type, phone, whatsapp, is_online, joined_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          ON CONFLICT (org_id, provider_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, orgID, m.ID, m.Name, m.AvatarURL, m.Rating, m.DistanceKm, m.HourlyRate,
		m.RateType, m.Phone, m.WhatsApp, m.IsOnline, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add member %d to org %d: %w", m.ID, orgID, err)
	}
	return nil
}

func (r *organizationRepository) queryOrganizations(ctx context.Context, query string, args ...any) ([]domain.Organization, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

func (r *organizationRepository) listMembers(ctx context.Context, orgID int32) ([]domain.Member, error) {
	query := `SELECT provider_id, name, avatar_url, rating, distance_km, hourly_rate, rate_type, phone, whatsapp, is_online
	          FROM org_members WHERE org_id = $1 ORDER BY joined_on`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.AvatarURL, &m.Rating, &m.DistanceKm, &m.HourlyRate, &m.RateType,
			&m.Phone, &m.WhatsApp, &m.IsOnline); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanOrganization(row rowScanner) (*domain.Organization, error) {
	o := &domain.Organization{}
	var createdOn time.Time
	err := row.Scan(&o.ID, &o.Name, &o.Phone, &o.WhatsApp, &o.Email, &o.Service, &o.Category, &o.Location,
		&o.AvatarURL, &o.CoverImageURL, &o.Rating, &o.DistanceKm, &o.HourlyRate, &o.RateType, &o.Currency,
		&o.IsVerified, &o.IsOnline, &o.AccountType, &o.ProfileType, &o.PushToken, &createdOn,
		&o.Leaders.Chairperson, &o.Leaders.Secretary, &o.Leaders.Treasurer)
	if err != nil {
		return nil, err
	}
	o.CreatedOn = createdOn.Format("2006-01-02")
	return o, nil
}
