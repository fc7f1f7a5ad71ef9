package service_test

import (
	"context"
	"testing"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	p := f.provider(t, "Amina", "0733000001")

	_, err := f.auth.Login(ctx, "0799999999")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	res, err := f.auth.Login(ctx, "+254 733 000 001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.Provider.ID)
	assert.Empty(t, res.Roles)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
}

func TestAuthService_Roles(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	admin := f.provider(t, "Admin", "0723119356")
	host := f.provider(t, "Superhost", "0733000002")

	res, err := f.auth.Login(ctx, admin.Phone)
	require.NoError(t, err)
	assert.Equal(t, []string{security.RoleSuperAdmin}, res.Roles)

	superhost, err := f.premises.IsSuperhost(ctx, host.ID)
	require.NoError(t, err)
	assert.False(t, superhost)

	premise, err := f.premises.RegisterPremise(ctx, "  Kilimani Heights ", host.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kilimani Heights", premise.Name)
	assert.Equal(t, []int32{host.ID}, premise.Hosts)

	res, err = f.auth.Login(ctx, host.Phone)
	require.NoError(t, err)
	assert.Equal(t, []string{security.RoleSuperhost}, res.Roles)
}

func TestAuthService_SignupAndRefresh(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()

	res, err := f.auth.Signup(ctx, &domain.Provider{Name: "Juma", Phone: "0744000001"})
	require.NoError(t, err)
	assert.NotZero(t, res.Provider.ID)
	assert.Equal(t, domain.AccountTypeIndividual, res.Provider.AccountType)

	_, err = f.auth.Signup(ctx, &domain.Provider{Name: "Juma Again", Phone: "+254744000001"})
	assert.ErrorIs(t, err, service.ErrPhoneTaken)
	_, err = f.auth.Signup(ctx, &domain.Provider{Phone: "0744000002"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	access, refresh, err := f.auth.RefreshToken(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	_, _, err = f.auth.RefreshToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, security.ErrWrongTokenType)
	_, _, err = f.auth.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	require.NoError(t, f.auth.RegisterDevice(ctx, res.Provider.ID, "fcm-token"))
	p, err := f.store.Providers().GetByID(ctx, res.Provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "fcm-token", p.PushToken)
}

func TestPremiseService_RegisterValidation(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()

	_, err := f.premises.RegisterPremise(ctx, " ", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.premises.RegisterPremise(ctx, "Tower", 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationService_InboxPaging(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	visitor := f.provider(t, "Juma", "0744000001")

	for _, apt := range []string{"A1", "A2", "A3"} {
		_, err := f.gatepass.CreateKnock(ctx, host.ID, apt, visitor.ID, visitor.Phone, "2026-10-20")
		require.NoError(t, err)
	}

	page, total, err := f.inbox.GetInbox(ctx, host.ID, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	require.Len(t, page, 2)
	assert.Contains(t, page[0].Message, "A3")

	page, _, err = f.inbox.GetInbox(ctx, host.ID, "", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, page[0].IsRead)

	require.NoError(t, f.inbox.MarkAsRead(ctx, host.ID, page[0].ID))
	assert.ErrorIs(t, f.inbox.MarkAsRead(ctx, visitor.ID, page[0].ID), domain.ErrNotFound)

	page, _, err = f.inbox.GetInbox(ctx, host.ID, "", 2, 2)
	require.NoError(t, err)
	assert.True(t, page[0].IsRead)
}
