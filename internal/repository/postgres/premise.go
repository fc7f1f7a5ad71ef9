package postgres

import (
	"context"
	"database/sql"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type premiseRepository struct {
	db *sql.DB
}

func NewPremiseRepository(db *sql.DB) repository.PremiseRepository {
	return &premiseRepository{db: db}
}

func (r *premiseRepository) Create(ctx context.Context, p *domain.Premise) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `INSERT INTO premises (id, name, superhost_id, created_on) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.SuperhostID, now); err != nil {
		return err
	}
	for _, host := range p.Hosts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO premise_hosts (premise_id, host_id) VALUES ($1, $2)`, p.ID, host); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	p.CreatedOn = now.Format(time.RFC3339)
	return nil
}

func (r *premiseRepository) ListBySuperhost(ctx context.Context, superhostID int32) ([]domain.Premise, error) {
	query := `SELECT p.id, p.name, p.superhost_id, p.created_on, COALESCE(array_agg(h.host_id) FILTER (WHERE h.host_id IS NOT NULL), '{}')
	          FROM premises p LEFT JOIN premise_hosts h ON h.premise_id = p.id
	          WHERE p.superhost_id = $1 GROUP BY p.id ORDER BY p.created_on`
	rows, err := r.db.QueryContext(ctx, query, superhostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var premises []domain.Premise
	for rows.Next() {
		var p domain.Premise
		var createdOn time.Time
		var hosts pq.Int32Array
		if err := rows.Scan(&p.ID, &p.Name, &p.SuperhostID, &createdOn, &hosts); err != nil {
			return nil, err
		}
		p.CreatedOn = createdOn.Format(time.RFC3339)
		p.Hosts = []int32(hosts)
		premises = append(premises, p)
	}
	return premises, rows.Err()
}
