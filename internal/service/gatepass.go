package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/events"
	"nikosoko-backend/internal/lock"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/metrics"
	"nikosoko-backend/internal/repository"
)

const accessCodeLockKey = "access-codes"

func invitationLockKey(id string) string { return "invitation:" + id }
func codeLockKey(code string) string      { return "code:" + code }
func knockLockKey(hostID, visitorID int32) string {
	return fmt.Sprintf("knock:%d:%d", hostID, visitorID)
}

type GatePassOptions struct {
	// CodeAttempts bounds access code draws per issuance. Zero means DefaultCodeAttempts.
	CodeAttempts int
	// Codes overrides the access code source. Nil means RandomAccessCode.
	Codes CodeGenerator
}

type gatePassService struct {
	invRepo      repository.InvitationRepository
	providerRepo repository.ProviderRepository
	inbox        Inbox
	locker       lock.Locker
	events       events.Publisher
	metrics      *metrics.Metrics
	codes        CodeGenerator
	codeAttempts int
}

func NewGatePassService(
	invRepo repository.InvitationRepository,
	providerRepo repository.ProviderRepository,
	inbox Inbox,
	locker lock.Locker,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts GatePassOptions,
) GatePassService {
	s := &gatePassService{
		invRepo:      invRepo,
		providerRepo: providerRepo,
		inbox:        inbox,
		locker:       locker,
		events:       publisher,
		metrics:      m,
		codes:        opts.Codes,
		codeAttempts: opts.CodeAttempts,
	}
	if s.codes == nil {
		s.codes = RandomAccessCode
	}
	if s.codeAttempts <= 0 {
		s.codeAttempts = DefaultCodeAttempts
	}
	return s
}

// InvitationEvent is published on the gate pass subjects. The access code is never
// part of it.
type InvitationEvent struct {
	InvitationID string                  `json:"invitation_id"`
	HostID       int32                   `json:"host_id"`
	Type         domain.InvitationType   `json:"type"`
	Status       domain.InvitationStatus `json:"status"`
	VisitDate    string                  `json:"visit_date"`
}

func newInvitationEvent(inv *domain.Invitation) InvitationEvent {
	return InvitationEvent{
		InvitationID: inv.ID,
		HostID:       inv.HostID,
		Type:         inv.Type,
		Status:       inv.Status,
		VisitDate:    inv.VisitDate,
	}
}

func validateVisit(visitorPhone, visitDate string) error {
	if domain.NormalizePhone(visitorPhone) == "" {
		return fmt.Errorf("%w: visitor phone is required", domain.ErrInvalidArgument)
	}
	if _, err := time.Parse(domain.VisitDateLayout, visitDate); err != nil {
		return fmt.Errorf("%w: visit date must be YYYY-MM-DD", domain.ErrInvalidArgument)
	}
	return nil
}

// issueCode allocates a fresh access code under the issuance lock and hands it to
// store, which must persist it before the lock is released.
func (s *gatePassService) issueCode(ctx context.Context, store func(code string) error) error {
	unlock, err := s.locker.Lock(ctx, accessCodeLockKey)
	if err != nil {
		return err
	}
	defer unlock()

	code, err := allocateCode(ctx, s.invRepo, s.codes, s.codeAttempts)
	if err != nil {
		return err
	}
	return store(code)
}

func (s *gatePassService) CreateInvite(ctx context.Context, hostID int32, visitorPhone, visitDate string) (*domain.Invitation, error) {
	logger.EnterMethod("gatePassService.CreateInvite", "hostID", hostID, "visitDate", visitDate)

	if err := validateVisit(visitorPhone, visitDate); err != nil {
		logger.ExitMethodWithError("gatePassService.CreateInvite", err)
		return nil, err
	}
	host, err := s.providerRepo.GetByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrHostNotFound
		}
		logger.ExitMethodWithError("gatePassService.CreateInvite", err)
		return nil, err
	}
	if !host.ProfileComplete() {
		err := fmt.Errorf("%w: host profile needs a name and phone", domain.ErrInvalidArgument)
		logger.ExitMethodWithError("gatePassService.CreateInvite", err)
		return nil, err
	}

	var inv *domain.Invitation
	err = s.issueCode(ctx, func(code string) error {
		inv = domain.NewInvite(host, visitorPhone, visitDate, code)
		return s.invRepo.Create(ctx, inv)
	})
	if err != nil {
		logger.ExitMethodWithError("gatePassService.CreateInvite", err)
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}
	s.metrics.InvitationCreated(string(inv.Type))

	visitor, _ := s.providerRepo.GetByPhone(ctx, visitorPhone)
	s.inbox.Deliver(ctx, visitor, &domain.Notification{
		RecipientPhone: visitorPhone,
		From:           host.Name,
		Title:          "Gate Pass Issued",
		Message:        fmt.Sprintf("%s invited you for %s. Your gate code is %s.", host.Name, visitDate, inv.AccessCode),
	})
	publish(ctx, s.events, events.SubjectInvitationIssued, newInvitationEvent(inv))

	logger.ExitMethod("gatePassService.CreateInvite", "invitationID", inv.ID)
	return inv, nil
}

// CreateKnock records a visitor asking to be let in. While a knock from the same
// visitor to the same host and apartment is pending, that knock is returned with
// domain.ErrDuplicatePendingRequest.
func (s *gatePassService) CreateKnock(ctx context.Context, hostID int32, hostApartment string, visitorID int32, visitorPhone, visitDate string) (*domain.Invitation, error) {
	logger.EnterMethod("gatePassService.CreateKnock", "hostID", hostID, "visitorID", visitorID, "visitDate", visitDate)

	if err := validateVisit(visitorPhone, visitDate); err != nil {
		logger.ExitMethodWithError("gatePassService.CreateKnock", err)
		return nil, err
	}
	visitor, err := s.providerRepo.GetByID(ctx, visitorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrVisitorNotFound
		}
		logger.ExitMethodWithError("gatePassService.CreateKnock", err)
		return nil, err
	}
	host, err := s.providerRepo.GetByID(ctx, hostID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrHostNotFound
		}
		logger.ExitMethodWithError("gatePassService.CreateKnock", err)
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, knockLockKey(hostID, visitorID))
	if err != nil {
		logger.ExitMethodWithError("gatePassService.CreateKnock", err)
		return nil, err
	}
	defer unlock()

	existing, err := s.invRepo.FindPendingKnock(ctx, hostID, visitorID, hostApartment)
	switch {
	case err == nil:
		logger.ExitMethod("gatePassService.CreateKnock", "invitationID", existing.ID, "duplicate", true)
		return existing, domain.ErrDuplicatePendingRequest
	case !errors.Is(err, domain.ErrNotFound):
		logger.ExitMethodWithError("gatePassService.CreateKnock", err)
		return nil, fmt.Errorf("failed to check pending knocks: %w", err)
	}

	inv := domain.NewKnock(host.ID, host.Name, hostApartment, visitor, visitorPhone, visitDate)
	if err := s.invRepo.Create(ctx, inv); err != nil {
		logger.ExitMethodWithError("gatePassService.CreateKnock", err)
		return nil, fmt.Errorf("failed to create knock: %w", err)
	}
	s.metrics.InvitationCreated(string(inv.Type))

	s.inbox.Deliver(ctx, host, &domain.Notification{
		From:       visitor.Name,
		Title:      "Visitor at the Gate",
		Message:    fmt.Sprintf("%s is requesting to visit apartment %s on %s.", visitor.Name, hostApartment, visitDate),
		Attributes: domain.KnockAction(inv.ID),
	})
	s.inbox.Deliver(ctx, visitor, &domain.Notification{
		Title:   "Request Sent!",
		Message: fmt.Sprintf("Your request to visit %s at apartment %s has been sent.", host.Name, hostApartment),
	})
	publish(ctx, s.events, events.SubjectInvitationIssued, newInvitationEvent(inv))

	logger.ExitMethod("gatePassService.CreateKnock", "invitationID", inv.ID)
	return inv, nil
}

func (s *gatePassService) DecideKnock(ctx context.Context, invitationID string, decision domain.KnockDecision) (*domain.Invitation, error) {
	logger.EnterMethod("gatePassService.DecideKnock", "invitationID", invitationID, "decision", decision)

	unlock, err := s.locker.Lock(ctx, invitationLockKey(invitationID))
	if err != nil {
		logger.ExitMethodWithError("gatePassService.DecideKnock", err)
		return nil, err
	}
	defer unlock()

	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		logger.ExitMethodWithError("gatePassService.DecideKnock", err)
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv.Type != domain.InvitationTypeKnock || inv.Status != domain.InvitationStatusPending {
		logger.ExitMethod("gatePassService.DecideKnock", "invitationID", inv.ID, "stale", true)
		return inv, domain.ErrStaleDecision
	}

	switch decision {
	case domain.KnockApprove:
		err = s.issueCode(ctx, func(code string) error {
			if err := inv.Decide(decision, code); err != nil {
				return err
			}
			return s.invRepo.Update(ctx, inv)
		})
	case domain.KnockDeny:
		if err = inv.Decide(decision, ""); err == nil {
			err = s.invRepo.Update(ctx, inv)
		}
	default:
		err = fmt.Errorf("%w: unknown knock decision %q", domain.ErrInvalidArgument, decision)
	}
	if err != nil {
		logger.ExitMethodWithError("gatePassService.DecideKnock", err)
		return nil, err
	}
	s.metrics.KnockDecision(string(decision))

	if inv.Status == domain.InvitationStatusApproved {
		var visitor *domain.Provider
		if inv.VisitorID != nil {
			visitor, _ = s.providerRepo.GetByID(ctx, *inv.VisitorID)
		}
		s.inbox.Deliver(ctx, visitor, &domain.Notification{
			RecipientPhone: inv.VisitorPhone,
			From:           inv.HostName,
			Title:          "Knock Approved",
			Message:        fmt.Sprintf("%s let you in for %s. Your gate code is %s.", inv.HostName, inv.VisitDate, inv.AccessCode),
		})
	}
	publish(ctx, s.events, events.SubjectKnockDecided, newInvitationEvent(inv))

	logger.ExitMethod("gatePassService.DecideKnock", "invitationID", inv.ID, "status", inv.Status)
	return inv, nil
}

func (s *gatePassService) CancelInvite(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	logger.EnterMethod("gatePassService.CancelInvite", "invitationID", invitationID)

	unlock, err := s.locker.Lock(ctx, invitationLockKey(invitationID))
	if err != nil {
		logger.ExitMethodWithError("gatePassService.CancelInvite", err)
		return nil, err
	}
	defer unlock()

	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		logger.ExitMethodWithError("gatePassService.CancelInvite", err)
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if err := inv.Cancel(); err != nil {
		logger.ExitMethod("gatePassService.CancelInvite", "invitationID", inv.ID, "stale", true)
		return inv, err
	}
	if err := s.invRepo.Update(ctx, inv); err != nil {
		logger.ExitMethodWithError("gatePassService.CancelInvite", err)
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}
	publish(ctx, s.events, events.SubjectInvitationClosed, newInvitationEvent(inv))

	logger.ExitMethod("gatePassService.CancelInvite", "invitationID", inv.ID)
	return inv, nil
}

// Redeem admits the visitor holding accessCode and consumes the pass. Unknown, used,
// cancelled, denied, expired and pending codes all fail with domain.ErrCodeInvalid.
func (s *gatePassService) Redeem(ctx context.Context, accessCode string) (*domain.Invitation, error) {
	logger.EnterMethod("gatePassService.Redeem")

	if accessCode == "" || accessCode == domain.PendingAccessCode {
		s.metrics.Redemption("invalid")
		logger.ExitMethodWithError("gatePassService.Redeem", domain.ErrCodeInvalid)
		return nil, domain.ErrCodeInvalid
	}

	unlockCode, err := s.locker.Lock(ctx, codeLockKey(accessCode))
	if err != nil {
		logger.ExitMethodWithError("gatePassService.Redeem", err)
		return nil, err
	}
	defer unlockCode()

	found, err := s.invRepo.FindRedeemable(ctx, accessCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Redemption("invalid")
			logger.ExitMethodWithError("gatePassService.Redeem", domain.ErrCodeInvalid)
			return nil, domain.ErrCodeInvalid
		}
		logger.ExitMethodWithError("gatePassService.Redeem", err)
		return nil, fmt.Errorf("failed to look up access code: %w", err)
	}

	unlockInv, err := s.locker.Lock(ctx, invitationLockKey(found.ID))
	if err != nil {
		logger.ExitMethodWithError("gatePassService.Redeem", err)
		return nil, err
	}
	defer unlockInv()

	// Re-read under the invitation lock; a cancel may have won the race.
	inv, err := s.invRepo.GetByID(ctx, found.ID)
	if err != nil {
		logger.ExitMethodWithError("gatePassService.Redeem", err)
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if err := inv.Redeem(accessCode); err != nil {
		s.metrics.Redemption("invalid")
		logger.ExitMethodWithError("gatePassService.Redeem", err)
		return nil, err
	}
	if err := s.invRepo.Update(ctx, inv); err != nil {
		logger.ExitMethodWithError("gatePassService.Redeem", err)
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}
	s.metrics.Redemption("used")

	host, _ := s.providerRepo.GetByID(ctx, inv.HostID)
	s.inbox.Deliver(ctx, host, &domain.Notification{
		Title:   "Visitor Arrived",
		Message: fmt.Sprintf("Your visitor %s has been checked in at the gate.", visitorLabel(inv)),
	})
	publish(ctx, s.events, events.SubjectInvitationUsed, newInvitationEvent(inv))

	logger.ExitMethod("gatePassService.Redeem", "invitationID", inv.ID)
	return inv, nil
}

func visitorLabel(inv *domain.Invitation) string {
	if inv.VisitorName != "" {
		return inv.VisitorName
	}
	return inv.VisitorPhone
}

func (s *gatePassService) GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	return s.invRepo.GetByID(ctx, invitationID)
}

func (s *gatePassService) InvitationsForHost(ctx context.Context, hostID int32) ([]domain.Invitation, error) {
	return s.invRepo.ListByHost(ctx, hostID)
}

func (s *gatePassService) AllInvitations(ctx context.Context) ([]domain.Invitation, error) {
	return s.invRepo.ListAll(ctx)
}

func (s *gatePassService) HostView(ctx context.Context, hostID int32) (domain.HostView, error) {
	invs, err := s.invRepo.ListByHost(ctx, hostID)
	if err != nil {
		return domain.HostView{}, err
	}
	return domain.BuildHostView(invs), nil
}

// ExpireInvitations moves every non-terminal invitation whose visit date is before
// asOf's date to Expired and returns how many changed.
func (s *gatePassService) ExpireInvitations(ctx context.Context, asOf time.Time) (int, error) {
	logger.EnterMethod("gatePassService.ExpireInvitations", "asOf", asOf.Format(domain.VisitDateLayout))

	candidates, err := s.invRepo.ListOpenBefore(ctx, asOf.Format(domain.VisitDateLayout))
	if err != nil {
		logger.ExitMethodWithError("gatePassService.ExpireInvitations", err)
		return 0, fmt.Errorf("failed to list open invitations: %w", err)
	}

	expired := 0
	for _, c := range candidates {
		ok, err := s.expireOne(ctx, c.ID, asOf)
		if err != nil {
			logger.Error("Failed to expire invitation", "invitationID", c.ID, "error", err)
			continue
		}
		if ok {
			expired++
		}
	}
	s.metrics.Expired(expired)

	logger.ExitMethod("gatePassService.ExpireInvitations", "candidates", len(candidates), "expired", expired)
	return expired, nil
}

func (s *gatePassService) expireOne(ctx context.Context, id string, asOf time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, invitationLockKey(id))
	if err != nil {
		return false, err
	}
	defer unlock()

	inv, err := s.invRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !inv.ExpireIfPast(asOf) {
		return false, nil
	}
	if err := s.invRepo.Update(ctx, inv); err != nil {
		return false, err
	}
	publish(ctx, s.events, events.SubjectInvitationClosed, newInvitationEvent(inv))
	return true, nil
}
