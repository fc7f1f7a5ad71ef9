package postgres_test

import (
	"context"
	"testing"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var joinRequestCols = []string{"id", "org_id", "user_id", "user_name", "user_phone", "status", "created_on", "decided_on"}

func TestJoinRequestRepository_GetByID_LoadsVotes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewJoinRequestRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM join_requests WHERE id").
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(joinRequestCols).
			AddRow(11, 7, 42, "Otieno", "0722000042", "pending", time.Now(), nil))
	mock.ExpectQuery("SELECT join_request_id, leader_phone, decision FROM join_request_votes").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"join_request_id", "leader_phone", "decision"}).
			AddRow(11, "712000001", "approve").
			AddRow(11, "712000002", "approve"))

	req, err := repo.GetByID(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, domain.JoinRequestStatusPending, req.Status)
	assert.Len(t, req.Approvals, 2)
	assert.Empty(t, req.Rejections)
	assert.Nil(t, req.DecidedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewJoinRequestRepository(db)
	req := &domain.JoinRequest{
		ID:         11,
		Status:     domain.JoinRequestStatusRejected,
		Approvals:  domain.PhoneSet{"712000001": {}},
		Rejections: domain.PhoneSet{"712000003": {}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE join_requests SET status").
		WithArgs(string(domain.JoinRequestStatusRejected), sqlmock.AnyArg(), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO join_request_votes").
		WithArgs(int64(11), "712000001", string(domain.VoteApprove)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO join_request_votes").
		WithArgs(int64(11), "712000003", string(domain.VoteReject)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), req))
	assert.NotNil(t, req.DecidedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepository_Update_RollsBackOnVoteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewJoinRequestRepository(db)
	req := &domain.JoinRequest{
		ID:         11,
		Status:     domain.JoinRequestStatusPending,
		Approvals:  domain.PhoneSet{"712000001": {}},
		Rejections: domain.PhoneSet{},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE join_requests SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO join_request_votes").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Update(context.Background(), req), assert.AnError)
	assert.Nil(t, req.DecidedOn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
