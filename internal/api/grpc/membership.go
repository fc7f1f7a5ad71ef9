package grpc

import (
	"context"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type MembershipHandler struct {
	orgSvc        service.OrganizationService
	membershipSvc service.MembershipService
}

func NewMembershipHandler(orgSvc service.OrganizationService, membershipSvc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{orgSvc: orgSvc, membershipSvc: membershipSvc}
}

func (h *MembershipHandler) ServiceName() string { return "MembershipService" }

func (h *MembershipHandler) Methods() map[string]UnaryMethod {
	return map[string]UnaryMethod{
		"CreateOrganization":   h.CreateOrganization,
		"GetOrganization":      h.GetOrganization,
		"ListOrganizations":    h.ListOrganizations,
		"ListLedOrganizations": h.ListLedOrganizations,
		"SubmitJoinRequest":    h.SubmitJoinRequest,
		"CastLeaderVote":       h.CastLeaderVote,
		"ListPendingRequests":  h.ListPendingRequests,
		"ListJoinRequests":     h.ListJoinRequests,
		"GetVoteSummary":       h.GetVoteSummary,
	}
}

type orgRef struct {
	OrganizationID int32 `json:"organization_id"`
	RequesterID    int32 `json:"requester_id"`
}

func (h *MembershipHandler) CreateOrganization(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in domain.Organization
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	in.ID = 0
	in.Members = nil
	err := h.orgSvc.CreateOrganization(ctx, &in)
	return respond("organization", &in, err)
}

func (h *MembershipHandler) GetOrganization(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orgRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	org, err := h.orgSvc.GetOrganization(ctx, in.OrganizationID)
	return respond("organization", org, err)
}

func (h *MembershipHandler) ListOrganizations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	orgs, err := h.orgSvc.ListOrganizations(ctx)
	return respond("organizations", orgs, err)
}

func (h *MembershipHandler) ListLedOrganizations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	phone, err := GetPhoneFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := h.orgSvc.ListLedBy(ctx, phone)
	return respond("organizations", orgs, err)
}

func (h *MembershipHandler) SubmitJoinRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in orgRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	jr, err := h.membershipSvc.SubmitJoinRequest(ctx, in.OrganizationID, userID)
	return respond("join_request", jr, err)
}

// CastLeaderVote votes as the leader whose phone is on the caller's token.
func (h *MembershipHandler) CastLeaderVote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	phone, err := GetPhoneFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		orgRef
		Decision string `json:"decision"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	decision, err := domain.ParseVoteDecision(in.Decision)
	if err != nil {
		return nil, toStatus(err)
	}
	jr, err := h.membershipSvc.CastLeaderVote(ctx, in.OrganizationID, in.RequesterID, phone, decision)
	return respond("join_request", jr, err)
}

func (h *MembershipHandler) ListPendingRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orgRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if err := h.ensureLeader(ctx, in.OrganizationID); err != nil {
		return nil, err
	}
	reqs, err := h.membershipSvc.PendingRequestsFor(ctx, in.OrganizationID)
	return respond("join_requests", reqs, err)
}

func (h *MembershipHandler) ListJoinRequests(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in orgRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if err := h.ensureLeader(ctx, in.OrganizationID); err != nil {
		return nil, err
	}
	reqs, err := h.membershipSvc.ListJoinRequests(ctx, in.OrganizationID)
	return respond("join_requests", reqs, err)
}

func (h *MembershipHandler) GetVoteSummary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	phone, err := GetPhoneFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in orgRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	summary, err := h.membershipSvc.VoteSummary(ctx, in.OrganizationID, in.RequesterID, phone)
	return respond("summary", summary, err)
}

// ensureLeader admits the organization's leaders and superadmins.
func (h *MembershipHandler) ensureLeader(ctx context.Context, orgID int32) error {
	if HasRole(ctx, security.RoleSuperAdmin) {
		return nil
	}
	phone, err := GetPhoneFromContext(ctx)
	if err != nil {
		return err
	}
	org, err := h.orgSvc.GetOrganization(ctx, orgID)
	if err != nil {
		return toStatus(err)
	}
	if _, ok := org.Leaders.RoleOf(phone); !ok {
		return status.Error(codes.PermissionDenied, domain.ErrNotLeader.Error())
	}
	return nil
}
