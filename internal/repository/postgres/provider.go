package postgres

import (
	"context"
	"database/sql"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/repository"
)

const providerColumns = `id, name, phone, whatsapp, email, service, category, location, avatar_url,
	cover_image_url, rating, distance_km, hourly_rate, rate_type, currency, is_verified, is_online,
	account_type, profile_type, push_token, created_on`

type providerRepository struct {
	db *sql.DB
}

func NewProviderRepository(db *sql.DB) repository.ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, p *domain.Provider) error {
	query := `INSERT INTO providers (name, phone, phone_key, whatsapp, email, service, category, location,
	          avatar_url, cover_image_url, rating, distance_km, hourly_rate, rate_type, currency, is_verified,
	          is_online, account_type, profile_type, push_token, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	          RETURNING id`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query, p.Name, p.Phone, domain.NormalizePhone(p.Phone), p.WhatsApp, p.Email,
		p.Service, p.Category, p.Location, p.AvatarURL, p.CoverImageURL, p.Rating, p.DistanceKm, p.HourlyRate,
		p.RateType, p.Currency, p.IsVerified, p.IsOnline, p.AccountType, p.ProfileType, p.PushToken, now).Scan(&p.ID)
	if err != nil {
		return err
	}
	p.CreatedOn = now.Format("2006-01-02")
	return nil
}

func (r *providerRepository) GetByID(ctx context.Context, id int32) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`
	p, err := scanProvider(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "provider")
	}
	return p, nil
}

func (r *providerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE phone_key = $1 ORDER BY id LIMIT 1`
	p, err := scanProvider(r.db.QueryRowContext(ctx, query, domain.NormalizePhone(phone)))
	if err != nil {
		return nil, notFound(err, "provider")
	}
	return p, nil
}

func (r *providerRepository) Update(ctx context.Context, p *domain.Provider) error {
	query := `UPDATE providers SET name = $1, phone = $2, phone_key = $3, whatsapp = $4, email = $5,
	          avatar_url = $6, cover_image_url = $7, is_verified = $8, is_online = $9, push_token = $10
	          WHERE id = $11`
	_, err := r.db.ExecContext(ctx, query, p.Name, p.Phone, domain.NormalizePhone(p.Phone), p.WhatsApp, p.Email,
		p.AvatarURL, p.CoverImageURL, p.IsVerified, p.IsOnline, p.PushToken, p.ID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*domain.Provider, error) {
	p := &domain.Provider{}
	var createdOn time.Time
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.WhatsApp, &p.Email, &p.Service, &p.Category, &p.Location,
		&p.AvatarURL, &p.CoverImageURL, &p.Rating, &p.DistanceKm, &p.HourlyRate, &p.RateType, &p.Currency,
		&p.IsVerified, &p.IsOnline, &p.AccountType, &p.ProfileType, &p.PushToken, &createdOn)
	if err != nil {
		return nil, err
	}
	p.CreatedOn = createdOn.Format("2006-01-02")
	return p, nil
}
