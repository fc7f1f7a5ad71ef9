package service

import (
	"context"
	"time"

	"nikosoko-backend/internal/domain"
)

type AuthService interface {
	Login(ctx context.Context, phone string) (*LoginResult, error)
	Signup(ctx context.Context, p *domain.Provider) (*LoginResult, error)
	RefreshToken(ctx context.Context, refresh string) (string, string, error)
	RegisterDevice(ctx context.Context, userID int32, pushToken string) error
	RolesFor(ctx context.Context, p *domain.Provider) ([]string, error)
}

type OrganizationService interface {
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganization(ctx context.Context, id int32) (*domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)
	ListLedBy(ctx context.Context, leaderPhone string) ([]domain.Organization, error)
}

type MembershipService interface {
	SubmitJoinRequest(ctx context.Context, orgID, requesterID int32) (*domain.JoinRequest, error)
	CastLeaderVote(ctx context.Context, orgID, requesterID int32, leaderPhone string, decision domain.VoteDecision) (*domain.JoinRequest, error)
	PendingRequestsFor(ctx context.Context, orgID int32) ([]domain.JoinRequest, error)
	ListJoinRequests(ctx context.Context, orgID int32) ([]domain.JoinRequest, error)
	VoteSummary(ctx context.Context, orgID, requesterID int32, leaderPhone string) (domain.VoteSummary, error)
	RemindPendingVoters(ctx context.Context) (int, error)
}

type GatePassService interface {
	CreateInvite(ctx context.Context, hostID int32, visitorPhone, visitDate string) (*domain.Invitation, error)
	CreateKnock(ctx context.Context, hostID int32, hostApartment string, visitorID int32, visitorPhone, visitDate string) (*domain.Invitation, error)
	DecideKnock(ctx context.Context, invitationID string, decision domain.KnockDecision) (*domain.Invitation, error)
	CancelInvite(ctx context.Context, invitationID string) (*domain.Invitation, error)
	Redeem(ctx context.Context, accessCode string) (*domain.Invitation, error)
	GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error)
	InvitationsForHost(ctx context.Context, hostID int32) ([]domain.Invitation, error)
	AllInvitations(ctx context.Context) ([]domain.Invitation, error)
	HostView(ctx context.Context, hostID int32) (domain.HostView, error)
	ExpireInvitations(ctx context.Context, asOf time.Time) (int, error)
}

type PremiseService interface {
	RegisterPremise(ctx context.Context, name string, superhostID int32) (*domain.Premise, error)
	IsSuperhost(ctx context.Context, providerID int32) (bool, error)
}

type NotificationService interface {
	GetInbox(ctx context.Context, userID int32, phone string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

// Notifier delivers a stored inbox notification over an out-of-band channel. recipient
// is nil when the notification is addressed to a phone with no provider profile.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, recipient *domain.Provider, note *domain.Notification) error
}

// Inbox records a notification and fans it out. It never fails the calling operation.
type Inbox interface {
	Deliver(ctx context.Context, recipient *domain.Provider, note *domain.Notification)
}
