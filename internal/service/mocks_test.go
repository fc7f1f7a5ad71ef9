package service_test

import (
	"context"
	"sync"
	"testing"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/lock"
	"nikosoko-backend/internal/metrics"
	"nikosoko-backend/internal/repository/memory"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockNotifier) Notify(ctx context.Context, recipient *domain.Provider, note *domain.Notification) error {
	args := m.Called(ctx, recipient, note)
	return args.Error(0)
}

type published struct {
	Subject string
	Payload any
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject, payload})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	notifier   *MockNotifier
	events     *recordingPublisher
	metrics    *metrics.Metrics
	orgs       service.OrganizationService
	membership service.MembershipService
	gatepass   service.GatePassService
	premises   service.PremiseService
	inbox      service.NotificationService
	auth       service.AuthService
}

func newFixture(t *testing.T, opts service.GatePassOptions) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := new(MockNotifier)
	notifier.On("Name").Return("push").Maybe()
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	pub := &recordingPublisher{}
	m := metrics.New()
	locker := lock.NewKeyedMutex()
	inbox := service.NewInbox(store.Notifications(), m, notifier)
	premises := service.NewPremiseService(store.Premises(), store.Providers())

	return &fixture{
		store:      store,
		notifier:   notifier,
		events:     pub,
		metrics:    m,
		orgs:       service.NewOrganizationService(store.Organizations()),
		membership: service.NewMembershipService(store.Organizations(), store.Providers(), store.JoinRequests(), inbox, locker, pub, m),
		gatepass:   service.NewGatePassService(store.Invitations(), store.Providers(), inbox, locker, pub, m, opts),
		premises:   premises,
		inbox:      service.NewNotificationService(store.Notifications()),
		auth: service.NewAuthService(store.Providers(), premises,
			security.NewTokenManager("test-secret", 0, 0), []string{"+254723119356"}),
	}
}

func (f *fixture) provider(t *testing.T, name, phone string) *domain.Provider {
	t.Helper()
	p := &domain.Provider{Name: name, Phone: phone, AccountType: domain.AccountTypeIndividual}
	require.NoError(t, f.store.Providers().Create(context.Background(), p))
	return p
}

const (
	chairPhone     = "0712000001"
	secretaryPhone = "0712000002"
	treasurerPhone = "0712000003"
)

func (f *fixture) sacco(t *testing.T) *domain.Organization {
	t.Helper()
	org := &domain.Organization{
		Provider: domain.Provider{
			Name:          "Umoja Boda Sacco",
			Phone:         "0700100100",
			CoverImageURL: "https://img.example/umoja.png",
		},
		Leaders: domain.Leaders{
			Chairperson: chairPhone,
			Secretary:   secretaryPhone,
			Treasurer:   treasurerPhone,
		},
	}
	require.NoError(t, f.orgs.CreateOrganization(context.Background(), org))
	return org
}
