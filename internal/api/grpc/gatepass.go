package grpc

import (
	"context"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GatePassHandler struct {
	gatePassSvc service.GatePassService
	premiseSvc  service.PremiseService
}

func NewGatePassHandler(gatePassSvc service.GatePassService, premiseSvc service.PremiseService) *GatePassHandler {
	return &GatePassHandler{gatePassSvc: gatePassSvc, premiseSvc: premiseSvc}
}

func (h *GatePassHandler) ServiceName() string { return "GatePassService" }

func (h *GatePassHandler) Methods() map[string]UnaryMethod {
	return map[string]UnaryMethod{
		"CreateInvite":        h.CreateInvite,
		"CreateKnock":         h.CreateKnock,
		"DecideKnock":         h.DecideKnock,
		"CancelInvite":        h.CancelInvite,
		"Redeem":              h.Redeem,
		"GetInvitation":       h.GetInvitation,
		"ListHostInvitations": h.ListHostInvitations,
		"ListAllInvitations":  h.ListAllInvitations,
		"GetHostView":         h.GetHostView,
		"RegisterPremise":     h.RegisterPremise,
	}
}

type invitationRef struct {
	InvitationID string `json:"invitation_id"`
}

func (h *GatePassHandler) CreateInvite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	hostID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		VisitorPhone string `json:"visitor_phone"`
		VisitDate    string `json:"visit_date"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	inv, err := h.gatePassSvc.CreateInvite(ctx, hostID, in.VisitorPhone, in.VisitDate)
	return respond("invitation", inv, err)
}

// CreateKnock knocks as the caller. The visitor phone defaults to the caller's.
func (h *GatePassHandler) CreateKnock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	visitorID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		HostID        int32  `json:"host_id"`
		HostApartment string `json:"host_apartment"`
		VisitorPhone  string `json:"visitor_phone"`
		VisitDate     string `json:"visit_date"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if in.VisitorPhone == "" {
		in.VisitorPhone, _ = GetPhoneFromContext(ctx)
	}
	if in.VisitDate == "" {
		in.VisitDate = time.Now().Format(domain.VisitDateLayout)
	}
	inv, err := h.gatePassSvc.CreateKnock(ctx, in.HostID, in.HostApartment, visitorID, in.VisitorPhone, in.VisitDate)
	return respond("invitation", inv, err)
}

func (h *GatePassHandler) DecideKnock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		invitationRef
		Decision string `json:"decision"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	decision, err := domain.ParseKnockDecision(in.Decision)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := h.ensureHost(ctx, in.InvitationID); err != nil {
		return nil, err
	}
	inv, err := h.gatePassSvc.DecideKnock(ctx, in.InvitationID, decision)
	return respond("invitation", inv, err)
}

func (h *GatePassHandler) CancelInvite(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in invitationRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if err := h.ensureHost(ctx, in.InvitationID); err != nil {
		return nil, err
	}
	inv, err := h.gatePassSvc.CancelInvite(ctx, in.InvitationID)
	return respond("invitation", inv, err)
}

func (h *GatePassHandler) Redeem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		AccessCode string `json:"access_code"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	inv, err := h.gatePassSvc.Redeem(ctx, in.AccessCode)
	return respond("invitation", inv, err)
}

func (h *GatePassHandler) GetInvitation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in invitationRef
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	inv, err := h.gatePassSvc.GetInvitation(ctx, in.InvitationID)
	if err != nil {
		return nil, toStatus(err)
	}
	isVisitor := inv.VisitorID != nil && *inv.VisitorID == userID
	if inv.HostID != userID && !isVisitor && !HasRole(ctx, security.RoleSuperhost, security.RoleSuperAdmin) {
		return nil, status.Error(codes.PermissionDenied, "not a party to this invitation")
	}
	return respond("invitation", inv, nil)
}

func (h *GatePassHandler) ListHostInvitations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	hostID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	invs, err := h.gatePassSvc.InvitationsForHost(ctx, hostID)
	return respond("invitations", invs, err)
}

func (h *GatePassHandler) ListAllInvitations(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	invs, err := h.gatePassSvc.AllInvitations(ctx)
	return respond("invitations", invs, err)
}

func (h *GatePassHandler) GetHostView(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	hostID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	view, err := h.gatePassSvc.HostView(ctx, hostID)
	return respond("view", view, err)
}

func (h *GatePassHandler) RegisterPremise(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Name        string `json:"name"`
		SuperhostID int32  `json:"superhost_id"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	p, err := h.premiseSvc.RegisterPremise(ctx, in.Name, in.SuperhostID)
	return respond("premise", p, err)
}

// ensureHost admits only the host who owns the invitation.
func (h *GatePassHandler) ensureHost(ctx context.Context, invitationID string) error {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return err
	}
	inv, err := h.gatePassSvc.GetInvitation(ctx, invitationID)
	if err != nil {
		return toStatus(err)
	}
	if inv.HostID != userID {
		return status.Error(codes.PermissionDenied, "only the host can act on this invitation")
	}
	return nil
}
