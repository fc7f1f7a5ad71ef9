package service_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// sequence returns a generator that hands out codes in order and repeats the last one.
func sequence(codes ...string) service.CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[min(i, len(codes)-1)]
		i++
		return c, nil
	}
}

func TestGatePassService_InviteRedeemOnce(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")

	inv, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusActive, inv.Status)
	assert.Equal(t, domain.InvitationTypeInvite, inv.Type)
	assert.Equal(t, "Amina", inv.HostName)
	assert.Regexp(t, sixDigits, inv.AccessCode)

	used, err := f.gatepass.Redeem(ctx, inv.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, used.ID)
	assert.Equal(t, domain.InvitationStatusUsed, used.Status)

	_, err = f.gatepass.Redeem(ctx, inv.AccessCode)
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	_, err = f.gatepass.Redeem(ctx, "000000")
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)
}

func TestGatePassService_CreateInviteValidation(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	nameless := f.provider(t, "", "0733000002")

	_, err := f.gatepass.CreateInvite(ctx, 404, "0744000001", "2026-10-20")
	assert.ErrorIs(t, err, domain.ErrHostNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.gatepass.CreateInvite(ctx, nameless.ID, "0744000001", "2026-10-20")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.gatepass.CreateInvite(ctx, host.ID, "", "2026-10-20")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "20/10/2026")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGatePassService_KnockApproveThenRedeem(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	visitor := f.provider(t, "Juma", "0744000001")

	knock, err := f.gatepass.CreateKnock(ctx, host.ID, "B4", visitor.ID, visitor.Phone, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusPending, knock.Status)
	assert.Equal(t, domain.PendingAccessCode, knock.AccessCode)
	assert.Equal(t, "Juma", knock.VisitorName)

	_, err = f.gatepass.Redeem(ctx, domain.PendingAccessCode)
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	notes, _, err := f.inbox.GetInbox(ctx, host.ID, host.Phone, 1, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.KnockAction(knock.ID), notes[0].Attributes)

	approved, err := f.gatepass.DecideKnock(ctx, knock.ID, domain.KnockApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusApproved, approved.Status)
	assert.Regexp(t, sixDigits, approved.AccessCode)

	again, err := f.gatepass.DecideKnock(ctx, knock.ID, domain.KnockDeny)
	assert.ErrorIs(t, err, domain.ErrStaleDecision)
	assert.Equal(t, domain.InvitationStatusApproved, again.Status)

	used, err := f.gatepass.Redeem(ctx, approved.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusUsed, used.Status)
}

func TestGatePassService_KnockDeny(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	visitor := f.provider(t, "Juma", "0744000001")

	knock, err := f.gatepass.CreateKnock(ctx, host.ID, "B4", visitor.ID, visitor.Phone, "2026-10-20")
	require.NoError(t, err)

	denied, err := f.gatepass.DecideKnock(ctx, knock.ID, domain.KnockDeny)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusDenied, denied.Status)
	assert.Equal(t, domain.PendingAccessCode, denied.AccessCode)

	_, err = f.gatepass.CreateKnock(ctx, host.ID, "B4", 404, "0700000000", "2026-10-20")
	assert.ErrorIs(t, err, domain.ErrVisitorNotFound)
}

func TestGatePassService_DuplicateKnock(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	visitor := f.provider(t, "Juma", "0744000001")

	first, err := f.gatepass.CreateKnock(ctx, host.ID, "B4", visitor.ID, visitor.Phone, "2026-10-20")
	require.NoError(t, err)

	second, err := f.gatepass.CreateKnock(ctx, host.ID, "B4", visitor.ID, visitor.Phone, "2026-10-20")
	assert.ErrorIs(t, err, domain.ErrDuplicatePendingRequest)
	assert.Equal(t, first.ID, second.ID)

	other, err := f.gatepass.CreateKnock(ctx, host.ID, "C1", visitor.ID, visitor.Phone, "2026-10-20")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	all, err := f.gatepass.InvitationsForHost(ctx, host.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGatePassService_Cancel(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")

	inv, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "2026-10-20")
	require.NoError(t, err)

	canceled, err := f.gatepass.CancelInvite(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusCanceled, canceled.Status)

	_, err = f.gatepass.Redeem(ctx, inv.AccessCode)
	assert.ErrorIs(t, err, domain.ErrCodeInvalid)

	_, err = f.gatepass.CancelInvite(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrStaleDecision)

	_, err = f.gatepass.CancelInvite(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGatePassService_CodeCollisionRetry(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{Codes: sequence("111111", "111111", "222222")})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")

	a, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "2026-10-20")
	require.NoError(t, err)
	b, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000002", "2026-10-20")
	require.NoError(t, err)

	assert.Equal(t, "111111", a.AccessCode)
	assert.Equal(t, "222222", b.AccessCode)
}

func TestGatePassService_CodeReusableAfterUse(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{Codes: sequence("333333")})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")

	a, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "2026-10-20")
	require.NoError(t, err)
	_, err = f.gatepass.Redeem(ctx, a.AccessCode)
	require.NoError(t, err)

	b, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000002", "2026-10-21")
	require.NoError(t, err)
	assert.Equal(t, "333333", b.AccessCode)

	used, err := f.gatepass.Redeem(ctx, "333333")
	require.NoError(t, err)
	assert.Equal(t, b.ID, used.ID)
}

func TestGatePassService_CodeSpaceExhausted(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{Codes: sequence("444444"), CodeAttempts: 3})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")

	_, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "2026-10-20")
	require.NoError(t, err)

	_, err = f.gatepass.CreateInvite(ctx, host.ID, "0744000002", "2026-10-20")
	assert.ErrorIs(t, err, service.ErrCodeSpaceExhausted)
}

func TestGatePassService_ConcurrentRedeem(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")

	inv, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000001", "2026-10-20")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var admitted, rejected atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gatepass.Redeem(ctx, inv.AccessCode)
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, domain.ErrCodeInvalid):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(19), rejected.Load())
}

func TestGatePassService_ExpireInvitations(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	visitor := f.provider(t, "Juma", "0744000001")

	past, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000009", "2026-10-01")
	require.NoError(t, err)
	usedPast, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000008", "2026-10-01")
	require.NoError(t, err)
	_, err = f.gatepass.Redeem(ctx, usedPast.AccessCode)
	require.NoError(t, err)
	knock, err := f.gatepass.CreateKnock(ctx, host.ID, "B4", visitor.ID, visitor.Phone, "2026-10-16")
	require.NoError(t, err)
	today, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000007", "2026-10-17")
	require.NoError(t, err)

	asOf := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	n, err := f.gatepass.ExpireInvitations(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]domain.InvitationStatus{
		past.ID:     domain.InvitationStatusExpired,
		usedPast.ID: domain.InvitationStatusUsed,
		knock.ID:    domain.InvitationStatusExpired,
		today.ID:    domain.InvitationStatusActive,
	} {
		got, err := f.gatepass.GetInvitation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id)
	}

	n, err = f.gatepass.ExpireInvitations(ctx, asOf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGatePassService_HostView(t *testing.T) {
	f := newFixture(t, service.GatePassOptions{})
	ctx := context.Background()
	host := f.provider(t, "Amina", "0733000001")
	visitor := f.provider(t, "Juma", "0744000001")

	active, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000002", "2026-10-20")
	require.NoError(t, err)
	canceled, err := f.gatepass.CreateInvite(ctx, host.ID, "0744000003", "2026-10-20")
	require.NoError(t, err)
	_, err = f.gatepass.CancelInvite(ctx, canceled.ID)
	require.NoError(t, err)
	knock, err := f.gatepass.CreateKnock(ctx, host.ID, "B4", visitor.ID, visitor.Phone, "2026-10-20")
	require.NoError(t, err)

	view, err := f.gatepass.HostView(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, view.PendingKnocks, 1)
	assert.Equal(t, knock.ID, view.PendingKnocks[0].ID)
	require.Len(t, view.ActivePasses, 1)
	assert.Equal(t, active.ID, view.ActivePasses[0].ID)
	require.Len(t, view.History, 1)
	assert.Equal(t, canceled.ID, view.History[0].ID)

	all, err := f.gatepass.AllInvitations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRandomAccessCode(t *testing.T) {
	for range 1000 {
		code, err := service.RandomAccessCode()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}
}
