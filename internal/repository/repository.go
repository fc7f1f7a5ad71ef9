package repository

import (
	"context"
	"nikosoko-backend/internal/domain"
)

// Implementations return an error wrapping domain.ErrNotFound when a lookup by key misses.

type ProviderRepository interface {
	Create(ctx context.Context, p *domain.Provider) error
	GetByID(ctx context.Context, id int32) (*domain.Provider, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Provider, error)
	Update(ctx context.Context, p *domain.Provider) error
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id int32) (*domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	ListByLeaderPhone(ctx context.Context, phone string) ([]domain.Organization, error)
	AddMember(ctx context.Context, orgID int32, member domain.Member) error
}

type JoinRequestRepository interface {
	Create(ctx context.Context, req *domain.JoinRequest) error
	GetByID(ctx context.Context, id int32) (*domain.JoinRequest, error)
	// GetLatest returns the most recent request of a user to an organization.
	GetLatest(ctx context.Context, orgID, userID int32) (*domain.JoinRequest, error)
	Update(ctx context.Context, req *domain.JoinRequest) error
	// ListByOrg returns requests in submission order.
	ListByOrg(ctx context.Context, orgID int32) ([]domain.JoinRequest, error)
	ListPending(ctx context.Context) ([]domain.JoinRequest, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	// FindRedeemable returns the Active or Approved invitation carrying code.
	FindRedeemable(ctx context.Context, code string) (*domain.Invitation, error)
	FindPendingKnock(ctx context.Context, hostID, visitorID int32, apartment string) (*domain.Invitation, error)
	Update(ctx context.Context, inv *domain.Invitation) error
	ListByHost(ctx context.Context, hostID int32) ([]domain.Invitation, error)
	ListAll(ctx context.Context) ([]domain.Invitation, error)
	ListOpenBefore(ctx context.Context, visitDate string) ([]domain.Invitation, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, phone string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

type PremiseRepository interface {
	Create(ctx context.Context, p *domain.Premise) error
	ListBySuperhost(ctx context.Context, superhostID int32) ([]domain.Premise, error)
}
