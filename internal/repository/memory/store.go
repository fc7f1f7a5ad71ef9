// Package memory holds process-local implementations of the repository interfaces.
// They back the "memory" storage type and the service tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/repository"

	"github.com/google/uuid"
)

// Store keeps every collection in one guarded structure. Values handed out are copies,
// so callers mutate them and write back through Update like they would with a database.
type Store struct {
	mu sync.RWMutex

	providers     map[int32]domain.Provider
	leaders       map[int32]domain.Leaders
	members       map[int32][]domain.Member
	joinRequests  []domain.JoinRequest
	invitations   []domain.Invitation
	notifications []domain.Notification
	premises      []domain.Premise

	nextID int32
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		providers: make(map[int32]domain.Provider),
		leaders:   make(map[int32]domain.Leaders),
		members:   make(map[int32][]domain.Member),
		now:       time.Now,
	}
}

func (s *Store) Providers() repository.ProviderRepository         { return providerRepo{s} }
func (s *Store) Organizations() repository.OrganizationRepository { return orgRepo{s} }
func (s *Store) JoinRequests() repository.JoinRequestRepository   { return joinRequestRepo{s} }
func (s *Store) Invitations() repository.InvitationRepository     { return invitationRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Premises() repository.PremiseRepository           { return premiseRepo{s} }

func (s *Store) id() int32 {
	s.nextID++
	return s.nextID
}

func missing(what string, key any) error {
	return fmt.Errorf("%s %v: %w", what, key, domain.ErrNotFound)
}

func cloneJoinRequest(r domain.JoinRequest) domain.JoinRequest {
	r.Approvals = maps.Clone(r.Approvals)
	r.Rejections = maps.Clone(r.Rejections)
	if r.Approvals == nil {
		r.Approvals = domain.PhoneSet{}
	}
	if r.Rejections == nil {
		r.Rejections = domain.PhoneSet{}
	}
	return r
}

type providerRepo struct{ s *Store }

func (r providerRepo) Create(_ context.Context, p *domain.Provider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	p.CreatedOn = r.s.now().Format("2006-01-02")
	r.s.providers[p.ID] = *p
	return nil
}

func (r providerRepo) GetByID(_ context.Context, id int32) (*domain.Provider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.providers[id]
	if !ok {
		return nil, missing("provider", id)
	}
	return &p, nil
}

func (r providerRepo) GetByPhone(_ context.Context, phone string) (*domain.Provider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range slices.Sorted(maps.Keys(r.s.providers)) {
		p := r.s.providers[id]
		if domain.SamePhone(p.Phone, phone) {
			return &p, nil
		}
	}
	return nil, missing("provider with phone", phone)
}

func (r providerRepo) Update(_ context.Context, p *domain.Provider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.providers[p.ID]; !ok {
		return missing("provider", p.ID)
	}
	r.s.providers[p.ID] = *p
	return nil
}

type orgRepo struct{ s *Store }

func (r orgRepo) Create(_ context.Context, o *domain.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = r.s.id()
	o.AccountType = domain.AccountTypeOrganization
	o.ProfileType = domain.ProfileTypeGroup
	o.CreatedOn = r.s.now().Format("2006-01-02")
	r.s.providers[o.ID] = o.Provider
	r.s.leaders[o.ID] = o.Leaders
	r.s.members[o.ID] = slices.Clone(o.Members)
	return nil
}

func (r orgRepo) GetByID(_ context.Context, id int32) (*domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.org(id)
	if !ok {
		return nil, missing("organization", id)
	}
	return o, nil
}

func (r orgRepo) List(_ context.Context) ([]domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var orgs []domain.Organization
	for _, id := range slices.Sorted(maps.Keys(r.s.leaders)) {
		o, _ := r.s.org(id)
		orgs = append(orgs, *o)
	}
	return orgs, nil
}

func (r orgRepo) ListByLeaderPhone(_ context.Context, phone string) ([]domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var orgs []domain.Organization
	for _, id := range slices.Sorted(maps.Keys(r.s.leaders)) {
		if _, ok := r.s.leaders[id].RoleOf(phone); ok {
			o, _ := r.s.org(id)
			orgs = append(orgs, *o)
		}
	}
	return orgs, nil
}

func (r orgRepo) AddMember(_ context.Context, orgID int32, m domain.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.leaders[orgID]; !ok {
		return missing("organization", orgID)
	}
	for _, existing := range r.s.members[orgID] {
		if existing.ID == m.ID {
			return nil
		}
	}
	r.s.members[orgID] = append(r.s.members[orgID], m)
	return nil
}

// org must be called with mu held.
func (s *Store) org(id int32) (*domain.Organization, bool) {
	leaders, ok := s.leaders[id]
	if !ok {
		return nil, false
	}
	return &domain.Organization{
		Provider: s.providers[id],
		Leaders:  leaders,
		Members:  slices.Clone(s.members[id]),
	}, true
}

type joinRequestRepo struct{ s *Store }

func (r joinRequestRepo) Create(_ context.Context, req *domain.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = r.s.id()
	req.CreatedOn = r.s.now().Format(time.RFC3339)
	r.s.joinRequests = append(r.s.joinRequests, cloneJoinRequest(*req))
	return nil
}

func (r joinRequestRepo) GetByID(_ context.Context, id int32) (*domain.JoinRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, req := range r.s.joinRequests {
		if req.ID == id {
			c := cloneJoinRequest(req)
			return &c, nil
		}
	}
	return nil, missing("join request", id)
}

func (r joinRequestRepo) GetLatest(_ context.Context, orgID, userID int32) (*domain.JoinRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.joinRequests) - 1; i >= 0; i-- {
		req := r.s.joinRequests[i]
		if req.OrgID == orgID && req.UserID == userID {
			c := cloneJoinRequest(req)
			return &c, nil
		}
	}
	return nil, missing("join request for user", userID)
}

func (r joinRequestRepo) Update(_ context.Context, req *domain.JoinRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.joinRequests {
		if r.s.joinRequests[i].ID == req.ID {
			if req.IsTerminal() && req.DecidedOn == nil {
				now := r.s.now().Format(time.RFC3339)
				req.DecidedOn = &now
			}
			r.s.joinRequests[i] = cloneJoinRequest(*req)
			return nil
		}
	}
	return missing("join request", req.ID)
}

func (r joinRequestRepo) ListByOrg(_ context.Context, orgID int32) ([]domain.JoinRequest, error) {
	return r.filter(func(req domain.JoinRequest) bool { return req.OrgID == orgID }), nil
}

func (r joinRequestRepo) ListPending(_ context.Context) ([]domain.JoinRequest, error) {
	return r.filter(func(req domain.JoinRequest) bool { return req.Status == domain.JoinRequestStatusPending }), nil
}

func (r joinRequestRepo) filter(keep func(domain.JoinRequest) bool) []domain.JoinRequest {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.JoinRequest
	for _, req := range r.s.joinRequests {
		if keep(req) {
			out = append(out, cloneJoinRequest(req))
		}
	}
	return out
}

type invitationRepo struct{ s *Store }

func (r invitationRepo) Create(_ context.Context, inv *domain.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	inv.CreatedOn = r.s.now().Format(time.RFC3339)
	inv.UpdatedOn = inv.CreatedOn
	// newest first, like the listing order
	r.s.invitations = slices.Insert(r.s.invitations, 0, *inv)
	return nil
}

func (r invitationRepo) GetByID(_ context.Context, id string) (*domain.Invitation, error) {
	return r.find(func(inv domain.Invitation) bool { return inv.ID == id }, "invitation", id)
}

func (r invitationRepo) FindRedeemable(_ context.Context, code string) (*domain.Invitation, error) {
	return r.find(func(inv domain.Invitation) bool {
		return inv.IsRedeemable() && inv.AccessCode == code
	}, "invitation with code", code)
}

func (r invitationRepo) FindPendingKnock(_ context.Context, hostID, visitorID int32, apartment string) (*domain.Invitation, error) {
	return r.find(func(inv domain.Invitation) bool {
		return inv.Type == domain.InvitationTypeKnock && inv.Status == domain.InvitationStatusPending &&
			inv.HostID == hostID && inv.VisitorID != nil && *inv.VisitorID == visitorID && inv.HostApartment == apartment
	}, "pending knock for visitor", visitorID)
}

func (r invitationRepo) find(match func(domain.Invitation) bool, what string, key any) (*domain.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, inv := range r.s.invitations {
		if match(inv) {
			return &inv, nil
		}
	}
	return nil, missing(what, key)
}

func (r invitationRepo) Update(_ context.Context, inv *domain.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.invitations {
		if r.s.invitations[i].ID == inv.ID {
			inv.UpdatedOn = r.s.now().Format(time.RFC3339)
			r.s.invitations[i] = *inv
			return nil
		}
	}
	return missing("invitation", inv.ID)
}

func (r invitationRepo) ListByHost(_ context.Context, hostID int32) ([]domain.Invitation, error) {
	return r.filter(func(inv domain.Invitation) bool { return inv.HostID == hostID }), nil
}

func (r invitationRepo) ListAll(_ context.Context) ([]domain.Invitation, error) {
	return r.filter(func(domain.Invitation) bool { return true }), nil
}

func (r invitationRepo) ListOpenBefore(_ context.Context, visitDate string) ([]domain.Invitation, error) {
	return r.filter(func(inv domain.Invitation) bool {
		return !inv.IsTerminal() && inv.VisitDate < visitDate
	}), nil
}

func (r invitationRepo) filter(keep func(domain.Invitation) bool) []domain.Invitation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Invitation
	for _, inv := range r.s.invitations {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	return out
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.id()
	n.CreatedOn = r.s.now().Format(time.RFC3339)
	c := *n
	c.RecipientPhone = domain.NormalizePhone(n.RecipientPhone)
	c.Attributes = maps.Clone(n.Attributes)
	r.s.notifications = slices.Insert(r.s.notifications, 0, c)
	return nil
}

func (r notificationRepo) List(_ context.Context, userID int32, phone string, limit, offset int32) ([]domain.Notification, int32, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []domain.Notification
	for _, n := range r.s.notifications {
		if (userID != 0 && n.UserID == userID) || (n.RecipientPhone != "" && domain.SamePhone(n.RecipientPhone, phone)) {
			matched = append(matched, n)
		}
	}
	total := int32(len(matched))
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return slices.Clone(matched[offset:end]), total, nil
}

func (r notificationRepo) MarkAsRead(_ context.Context, id, userID int32) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification %w or access denied", domain.ErrNotFound)
}

type premiseRepo struct{ s *Store }

func (r premiseRepo) Create(_ context.Context, p *domain.Premise) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedOn = r.s.now().Format(time.RFC3339)
	c := *p
	c.Hosts = slices.Clone(p.Hosts)
	r.s.premises = append(r.s.premises, c)
	return nil
}

func (r premiseRepo) ListBySuperhost(_ context.Context, superhostID int32) ([]domain.Premise, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Premise
	for _, p := range r.s.premises {
		if p.SuperhostID == superhostID {
			p.Hosts = slices.Clone(p.Hosts)
			out = append(out, p)
		}
	}
	return out, nil
}
