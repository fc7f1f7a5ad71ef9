package postgres

import (
	"context"
	"database/sql"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/repository"

	"github.com/lib/pq"
)

const joinRequestColumns = `id, org_id, user_id, user_name, user_phone, status, created_on, decided_on`

type joinRequestRepository struct {
	db *sql.DB
}

func NewJoinRequestRepository(db *sql.DB) repository.JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) Create(ctx context.Context, req *domain.JoinRequest) error {
	query := `INSERT INTO join_requests (org_id, user_id, user_name, user_phone, status, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query, req.OrgID, req.UserID, req.UserName, req.UserPhone, req.Status, now).Scan(&req.ID)
	if err != nil {
		return err
	}
	req.CreatedOn = now.Format(time.RFC3339)
	return nil
}

func (r *joinRequestRepository) GetByID(ctx context.Context, id int32) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *joinRequestRepository) GetLatest(ctx context.Context, orgID, userID int32) (*domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE org_id = $1 AND user_id = $2
	          ORDER BY id DESC LIMIT 1`
	return r.getOne(ctx, query, orgID, userID)
}

// Update persists the status and records any votes not yet stored. Votes are never
// removed, and the (request, leader) key keeps a leader in at most one set.
func (r *joinRequestRepository) Update(ctx context.Context, req *domain.JoinRequest) error {
	logger.EnterMethod("joinRequestRepository.Update", "id", req.ID, "status", req.Status)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("joinRequestRepository.Update", err)
		return err
	}
	defer tx.Rollback()

	var decidedOn *time.Time
	if req.IsTerminal() {
		now := time.Now()
		decidedOn = &now
	}
	logger.DatabaseCall("UPDATE", "join_requests", "id", req.ID)
	res, err := tx.ExecContext(ctx, `UPDATE join_requests SET status = $1, decided_on = COALESCE(decided_on, $2) WHERE id = $3`,
		req.Status, decidedOn, req.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	affected, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", affected, nil)

	vote := `INSERT INTO join_request_votes (join_request_id, leader_phone, decision) VALUES ($1, $2, $3)
	         ON CONFLICT (join_request_id, leader_phone) DO NOTHING`
	for _, phone := range req.Approvals.Sorted() {
		if _, err := tx.ExecContext(ctx, vote, req.ID, phone, domain.VoteApprove); err != nil {
			logger.ExitMethodWithError("joinRequestRepository.Update", err, "reason", "insert approval")
			return err
		}
	}
	for _, phone := range req.Rejections.Sorted() {
		if _, err := tx.ExecContext(ctx, vote, req.ID, phone, domain.VoteReject); err != nil {
			logger.ExitMethodWithError("joinRequestRepository.Update", err, "reason", "insert rejection")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("joinRequestRepository.Update", err, "reason", "commit")
		return err
	}
	if decidedOn != nil && req.DecidedOn == nil {
		s := decidedOn.Format(time.RFC3339)
		req.DecidedOn = &s
	}
	logger.ExitMethod("joinRequestRepository.Update", "id", req.ID)
	return nil
}

func (r *joinRequestRepository) ListByOrg(ctx context.Context, orgID int32) ([]domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE org_id = $1 ORDER BY id`
	return r.list(ctx, query, orgID)
}

func (r *joinRequestRepository) ListPending(ctx context.Context) ([]domain.JoinRequest, error) {
	query := `SELECT ` + joinRequestColumns + ` FROM join_requests WHERE status = $1 ORDER BY id`
	return r.list(ctx, query, domain.JoinRequestStatusPending)
}

func (r *joinRequestRepository) getOne(ctx context.Context, query string, args ...any) (*domain.JoinRequest, error) {
	req, err := scanJoinRequest(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "join request")
	}
	byID := map[int32]*domain.JoinRequest{req.ID: req}
	if err := r.loadVotes(ctx, byID); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *joinRequestRepository) list(ctx context.Context, query string, args ...any) ([]domain.JoinRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var reqs []*domain.JoinRequest
	for rows.Next() {
		req, err := scanJoinRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		reqs = append(reqs, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := make(map[int32]*domain.JoinRequest, len(reqs))
	for _, req := range reqs {
		byID[req.ID] = req
	}
	if err := r.loadVotes(ctx, byID); err != nil {
		return nil, err
	}

	out := make([]domain.JoinRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, *req)
	}
	return out, nil
}

func (r *joinRequestRepository) loadVotes(ctx context.Context, byID map[int32]*domain.JoinRequest) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, int64(id))
	}
	query := `SELECT join_request_id, leader_phone, decision FROM join_request_votes WHERE join_request_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int32
		var phone string
		var decision domain.VoteDecision
		if err := rows.Scan(&id, &phone, &decision); err != nil {
			return err
		}
		req, ok := byID[id]
		if !ok {
			continue
		}
		if decision == domain.VoteReject {
			req.Rejections[phone] = struct{}{}
		} else {
			req.Approvals[phone] = struct{}{}
		}
	}
	return rows.Err()
}

func scanJoinRequest(row rowScanner) (*domain.JoinRequest, error) {
	req := &domain.JoinRequest{Approvals: domain.PhoneSet{}, Rejections: domain.PhoneSet{}}
	var createdOn time.Time
	var decidedOn sql.NullTime
	if err := row.Scan(&req.ID, &req.OrgID, &req.UserID, &req.UserName, &req.UserPhone, &req.Status, &createdOn, &decidedOn); err != nil {
		return nil, err
	}
	req.CreatedOn = createdOn.Format(time.RFC3339)
	if decidedOn.Valid {
		s := decidedOn.Time.Format(time.RFC3339)
		req.DecidedOn = &s
	}
	return req, nil
}
