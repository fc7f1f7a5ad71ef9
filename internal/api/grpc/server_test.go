package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"nikosoko-backend/internal/api/grpc/interceptor"
	"nikosoko-backend/internal/events"
	"nikosoko-backend/internal/lock"
	"nikosoko-backend/internal/repository/memory"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const adminPhone = "0723119356"

type testServer struct {
	conn   *grpc.ClientConn
	tokens security.TokenManager
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	tokens := security.NewTokenManager("grpc-test-secret-grpc-test-secret", time.Hour, time.Hour)
	locker := lock.NewKeyedMutex()
	inbox := service.NewInbox(store.Notifications(), nil)
	premises := service.NewPremiseService(store.Premises(), store.Providers())

	s := grpc.NewServer(grpc.UnaryInterceptor(interceptor.NewAuthInterceptor(tokens).Unary()))
	Register(s,
		NewAuthHandler(service.NewAuthService(store.Providers(), premises, tokens, []string{adminPhone})),
		NewMembershipHandler(
			service.NewOrganizationService(store.Organizations()),
			service.NewMembershipService(store.Organizations(), store.Providers(), store.JoinRequests(), inbox, locker, events.Noop{}, nil),
		),
		NewGatePassHandler(
			service.NewGatePassService(store.Invitations(), store.Providers(), inbox, locker, events.Noop{}, nil, service.GatePassOptions{}),
			premises,
		),
		NewInboxHandler(service.NewNotificationService(store.Notifications())),
	)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testServer{conn: conn, tokens: tokens}
}

func (ts *testServer) call(t *testing.T, token, method string, in map[string]any) (map[string]any, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	require.NoError(t, err)
	ctx := context.Background()
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	out := new(structpb.Struct)
	if err := ts.conn.Invoke(ctx, "/"+Package+"."+method, req, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (ts *testServer) signup(t *testing.T, name, phone string) (int32, string) {
	t.Helper()
	out, err := ts.call(t, "", "AuthService/Signup", map[string]any{"name": name, "phone": phone})
	require.NoError(t, err)
	provider := out["provider"].(map[string]any)
	return int32(provider["id"].(float64)), out["access_token"].(string)
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err), err.Error())
}

func TestAuthService_LoginAndGuards(t *testing.T) {
	ts := startServer(t)

	_, err := ts.call(t, "", "AuthService/Login", map[string]any{"phone": "0700000000"})
	assertCode(t, err, codes.Unauthenticated)

	ts.signup(t, "Amina", "0733000001")
	out, err := ts.call(t, "", "AuthService/Login", map[string]any{"phone": "+254733000001"})
	require.NoError(t, err)
	access := out["access_token"].(string)
	refresh := out["refresh_token"].(string)

	_, err = ts.call(t, "", "GatePassService/GetHostView", nil)
	assertCode(t, err, codes.Unauthenticated)

	_, err = ts.call(t, refresh, "GatePassService/GetHostView", nil)
	assertCode(t, err, codes.PermissionDenied)

	_, err = ts.call(t, access, "AuthService/RefreshToken", map[string]any{"refresh_token": refresh})
	assertCode(t, err, codes.PermissionDenied)

	out, err = ts.call(t, refresh, "AuthService/RefreshToken", map[string]any{"refresh_token": refresh})
	require.NoError(t, err)
	assert.NotEmpty(t, out["access_token"])
}

func TestMembershipService_VoteFlow(t *testing.T) {
	ts := startServer(t)
	_, admin := ts.signup(t, "Admin", adminPhone)
	_, chair := ts.signup(t, "Chair", "0712000001")
	_, secretary := ts.signup(t, "Secretary", "0712000002")
	_, treasurer := ts.signup(t, "Treasurer", "0712000003")
	riderID, rider := ts.signup(t, "Rider", "0722000001")

	org := map[string]any{
		"name": "Umoja Sacco",
		"leaders": map[string]any{
			"chairperson": "0712000001", "secretary": "0712000002", "treasurer": "0712000003",
		},
	}
	_, err := ts.call(t, rider, "MembershipService/CreateOrganization", org)
	assertCode(t, err, codes.PermissionDenied)

	out, err := ts.call(t, admin, "MembershipService/CreateOrganization", org)
	require.NoError(t, err)
	orgID := out["organization"].(map[string]any)["id"].(float64)

	out, err = ts.call(t, rider, "MembershipService/SubmitJoinRequest", map[string]any{"organization_id": orgID})
	require.NoError(t, err)
	assert.Nil(t, out["notice"])

	out, err = ts.call(t, rider, "MembershipService/SubmitJoinRequest", map[string]any{"organization_id": orgID})
	require.NoError(t, err)
	assert.Equal(t, "a pending request already exists", out["notice"])

	_, err = ts.call(t, rider, "MembershipService/ListPendingRequests", map[string]any{"organization_id": orgID})
	assertCode(t, err, codes.PermissionDenied)

	out, err = ts.call(t, chair, "MembershipService/ListPendingRequests", map[string]any{"organization_id": orgID})
	require.NoError(t, err)
	assert.Len(t, out["join_requests"], 1)

	vote := map[string]any{"organization_id": orgID, "requester_id": riderID, "decision": "approve"}
	_, err = ts.call(t, rider, "MembershipService/CastLeaderVote", vote)
	assertCode(t, err, codes.PermissionDenied)

	for _, leader := range []string{chair, secretary} {
		out, err = ts.call(t, leader, "MembershipService/CastLeaderVote", vote)
		require.NoError(t, err)
		assert.Equal(t, "pending", out["join_request"].(map[string]any)["status"])
	}
	out, err = ts.call(t, chair, "MembershipService/CastLeaderVote", vote)
	require.NoError(t, err)
	assert.Equal(t, "leader has already voted on this request", out["notice"])

	out, err = ts.call(t, treasurer, "MembershipService/CastLeaderVote", vote)
	require.NoError(t, err)
	assert.Equal(t, "approved", out["join_request"].(map[string]any)["status"])

	out, err = ts.call(t, chair, "MembershipService/GetVoteSummary", map[string]any{"organization_id": orgID, "requester_id": riderID})
	require.NoError(t, err)
	summary := out["summary"].(map[string]any)
	assert.Equal(t, float64(3), summary["approvals"])
	assert.Equal(t, true, summary["has_voted"])

	out, err = ts.call(t, "", "MembershipService/GetOrganization", map[string]any{"organization_id": orgID})
	require.NoError(t, err)
	assert.Len(t, out["organization"].(map[string]any)["members"], 1)
}

func TestGatePassService_InviteKnockRedeem(t *testing.T) {
	ts := startServer(t)
	hostID, host := ts.signup(t, "Amina", "0733000001")
	_, visitor := ts.signup(t, "Juma", "0744000001")
	guard, err := ts.tokens.GenerateDeviceToken("gate-1", []string{security.RoleGuard}, time.Hour)
	require.NoError(t, err)

	out, err := ts.call(t, host, "GatePassService/CreateInvite", map[string]any{
		"visitor_phone": "0755000001", "visit_date": "2026-10-20",
	})
	require.NoError(t, err)
	code := out["invitation"].(map[string]any)["access_code"].(string)

	_, err = ts.call(t, host, "GatePassService/Redeem", map[string]any{"access_code": code})
	assertCode(t, err, codes.PermissionDenied)

	out, err = ts.call(t, guard, "GatePassService/Redeem", map[string]any{"access_code": code})
	require.NoError(t, err)
	assert.Equal(t, "Used", out["invitation"].(map[string]any)["status"])

	_, err = ts.call(t, guard, "GatePassService/Redeem", map[string]any{"access_code": code})
	assertCode(t, err, codes.InvalidArgument)

	out, err = ts.call(t, visitor, "GatePassService/CreateKnock", map[string]any{
		"host_id": hostID, "host_apartment": "B4", "visit_date": "2026-10-20",
	})
	require.NoError(t, err)
	knock := out["invitation"].(map[string]any)
	assert.Equal(t, "0744000001", knock["visitor_phone"])

	decide := map[string]any{"invitation_id": knock["id"], "decision": "approve"}
	_, err = ts.call(t, visitor, "GatePassService/DecideKnock", decide)
	assertCode(t, err, codes.PermissionDenied)

	out, err = ts.call(t, host, "GatePassService/DecideKnock", decide)
	require.NoError(t, err)
	assert.Equal(t, "Approved", out["invitation"].(map[string]any)["status"])

	out, err = ts.call(t, visitor, "GatePassService/GetInvitation", map[string]any{"invitation_id": knock["id"]})
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, out["invitation"].(map[string]any)["access_code"])

	out, err = ts.call(t, host, "GatePassService/GetHostView", nil)
	require.NoError(t, err)
	view := out["view"].(map[string]any)
	assert.Len(t, view["active_passes"], 1)
	assert.Len(t, view["history"], 1)

	out, err = ts.call(t, host, "InboxService/GetNotifications", map[string]any{"page": 1, "page_size": 10})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["total_count"])
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{service.ErrCodeSpaceExhausted, codes.ResourceExhausted},
		{service.ErrPhoneTaken, codes.AlreadyExists},
		{security.ErrExpiredToken, codes.Unauthenticated},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{status.Error(codes.Aborted, "kept"), codes.Aborted},
		{assert.AnError, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}
