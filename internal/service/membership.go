package service

import (
	"context"
	"errors"
	"fmt"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/events"
	"nikosoko-backend/internal/lock"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/metrics"
	"nikosoko-backend/internal/repository"
)

type membershipService struct {
	orgRepo      repository.OrganizationRepository
	providerRepo repository.ProviderRepository
	reqRepo      repository.JoinRequestRepository
	inbox        Inbox
	locker       lock.Locker
	events       events.Publisher
	metrics      *metrics.Metrics
}

func NewMembershipService(
	orgRepo repository.OrganizationRepository,
	providerRepo repository.ProviderRepository,
	reqRepo repository.JoinRequestRepository,
	inbox Inbox,
	locker lock.Locker,
	publisher events.Publisher,
	m *metrics.Metrics,
) MembershipService {
	return &membershipService{
		orgRepo:      orgRepo,
		providerRepo: providerRepo,
		reqRepo:      reqRepo,
		inbox:        inbox,
		locker:       locker,
		events:       publisher,
		metrics:      m,
	}
}

func orgLockKey(orgID int32) string {
	return fmt.Sprintf("org:%d", orgID)
}

// JoinRequestEvent is published on the membership subjects.
type JoinRequestEvent struct {
	OrganizationID int32                    `json:"organization_id"`
	RequesterID    int32                    `json:"requester_id"`
	RequestID      int32                    `json:"request_id"`
	Status         domain.JoinRequestStatus `json:"status"`
	Approvals      int                      `json:"approvals"`
	LeaderPhone    string                   `json:"leader_phone,omitempty"`
	Decision       domain.VoteDecision      `json:"decision,omitempty"`
}

func newJoinRequestEvent(req *domain.JoinRequest) JoinRequestEvent {
	return JoinRequestEvent{
		OrganizationID: req.OrgID,
		RequesterID:    req.UserID,
		RequestID:      req.ID,
		Status:         req.Status,
		Approvals:      len(req.Approvals),
	}
}

// SubmitJoinRequest files a pending request for requesterID to join orgID and asks each
// leader for a vote. When a pending request already exists it is returned together with
// domain.ErrDuplicatePendingRequest and nothing is stored.
func (s *membershipService) SubmitJoinRequest(ctx context.Context, orgID, requesterID int32) (*domain.JoinRequest, error) {
	logger.EnterMethod("membershipService.SubmitJoinRequest", "orgID", orgID, "requesterID", requesterID)

	unlock, err := s.locker.Lock(ctx, orgLockKey(orgID))
	if err != nil {
		logger.ExitMethodWithError("membershipService.SubmitJoinRequest", err)
		return nil, err
	}
	defer unlock()

	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.SubmitJoinRequest", err)
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	requester, err := s.providerRepo.GetByID(ctx, requesterID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.SubmitJoinRequest", err)
		return nil, fmt.Errorf("failed to get requester: %w", err)
	}

	latest, err := s.reqRepo.GetLatest(ctx, orgID, requesterID)
	switch {
	case err == nil && latest.Status == domain.JoinRequestStatusPending:
		s.metrics.JoinRequest("duplicate")
		s.inbox.Deliver(ctx, requester, &domain.Notification{
			Title:   "Request Already Sent",
			Message: "You already have a pending request to join this group.",
		})
		logger.ExitMethod("membershipService.SubmitJoinRequest", "requestID", latest.ID, "duplicate", true)
		return latest, domain.ErrDuplicatePendingRequest
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		logger.ExitMethodWithError("membershipService.SubmitJoinRequest", err)
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}

	req := domain.NewJoinRequest(orgID, requester)
	if err := s.reqRepo.Create(ctx, req); err != nil {
		logger.ExitMethodWithError("membershipService.SubmitJoinRequest", err)
		return nil, fmt.Errorf("failed to create join request: %w", err)
	}
	s.metrics.JoinRequest("created")

	s.inbox.Deliver(ctx, requester, &domain.Notification{
		Title:   "Request Sent",
		Message: "Your request to join has been sent to the SACCO leadership for approval.",
	})
	for _, phone := range org.Leaders.Phones() {
		s.inbox.Deliver(ctx, s.lookupByPhone(ctx, phone), &domain.Notification{
			RecipientPhone: phone,
			From:           requester.Name,
			Title:          "New Join Request",
			Message:        fmt.Sprintf("%s has requested to join %s.", requester.Name, org.Name),
			Attributes:     domain.JoinRequestAction(orgID, requesterID),
		})
	}
	publish(ctx, s.events, events.SubjectJoinRequested, newJoinRequestEvent(req))

	logger.ExitMethod("membershipService.SubmitJoinRequest", "requestID", req.ID)
	return req, nil
}

// CastLeaderVote records a leader's vote on the requester's latest join request. A
// rejection decides the request at once; the third approval admits the requester.
// Votes on decided requests and repeat votes return the request unchanged along with
// domain.ErrStaleVote or domain.ErrAlreadyVoted.
func (s *membershipService) CastLeaderVote(ctx context.Context, orgID, requesterID int32, leaderPhone string, decision domain.VoteDecision) (*domain.JoinRequest, error) {
	logger.EnterMethod("membershipService.CastLeaderVote", "orgID", orgID, "requesterID", requesterID, "decision", decision, "leader", logger.MaskPhone(leaderPhone))

	unlock, err := s.locker.Lock(ctx, orgLockKey(orgID))
	if err != nil {
		logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
		return nil, err
	}
	defer unlock()

	org, err := s.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if _, ok := org.Leaders.RoleOf(leaderPhone); !ok {
		s.metrics.Vote(string(decision), "not_leader")
		logger.ExitMethodWithError("membershipService.CastLeaderVote", domain.ErrNotLeader)
		return nil, domain.ErrNotLeader
	}
	req, err := s.reqRepo.GetLatest(ctx, orgID, requesterID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}

	approved, err := req.ApplyVote(leaderPhone, decision)
	switch {
	case errors.Is(err, domain.ErrStaleVote):
		s.metrics.Vote(string(decision), "stale")
		logger.ExitMethod("membershipService.CastLeaderVote", "requestID", req.ID, "stale", true)
		return req, err
	case errors.Is(err, domain.ErrAlreadyVoted):
		s.metrics.Vote(string(decision), "already_voted")
		logger.ExitMethod("membershipService.CastLeaderVote", "requestID", req.ID, "alreadyVoted", true)
		return req, err
	case err != nil:
		logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
		return nil, err
	}

	var requester *domain.Provider
	if req.IsTerminal() {
		requester, err = s.providerRepo.GetByID(ctx, requesterID)
		if err != nil {
			logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
			return nil, fmt.Errorf("failed to get requester: %w", err)
		}
	}
	// Admission runs before the request is marked approved so a failed write can be
	// retried by the same leader. AddMember ignores an existing member.
	if approved {
		if err := s.admit(ctx, org, requester); err != nil {
			logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
			return nil, err
		}
	}
	if err := s.reqRepo.Update(ctx, req); err != nil {
		logger.ExitMethodWithError("membershipService.CastLeaderVote", err)
		return nil, fmt.Errorf("failed to update join request: %w", err)
	}
	s.metrics.Vote(string(decision), "recorded")

	ev := newJoinRequestEvent(req)
	ev.LeaderPhone = domain.NormalizePhone(leaderPhone)
	ev.Decision = decision
	publish(ctx, s.events, events.SubjectJoinVoted, ev)

	switch req.Status {
	case domain.JoinRequestStatusApproved:
		s.inbox.Deliver(ctx, requester, &domain.Notification{
			Title:   "Member Approved",
			Message: fmt.Sprintf("%s is now a member of %s.", requester.Name, org.Name),
		})
		publish(ctx, s.events, events.SubjectJoinDecided, ev)
	case domain.JoinRequestStatusRejected:
		s.inbox.Deliver(ctx, requester, &domain.Notification{
			Title:   "Member Rejected",
			Message: fmt.Sprintf("%s's request was rejected.", requester.Name),
		})
		publish(ctx, s.events, events.SubjectJoinDecided, ev)
	}

	logger.ExitMethod("membershipService.CastLeaderVote", "requestID", req.ID, "status", req.Status)
	return req, nil
}

func (s *membershipService) admit(ctx context.Context, org *domain.Organization, requester *domain.Provider) error {
	if err := s.orgRepo.AddMember(ctx, org.ID, domain.NewMemberSnapshot(requester)); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	requester.IsVerified = true
	requester.CoverImageURL = org.CoverImageURL
	if err := s.providerRepo.Update(ctx, requester); err != nil {
		return fmt.Errorf("failed to verify member: %w", err)
	}
	return nil
}

func (s *membershipService) PendingRequestsFor(ctx context.Context, orgID int32) ([]domain.JoinRequest, error) {
	reqs, err := s.reqRepo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var pending []domain.JoinRequest
	for _, r := range reqs {
		if r.Status == domain.JoinRequestStatusPending {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (s *membershipService) ListJoinRequests(ctx context.Context, orgID int32) ([]domain.JoinRequest, error) {
	return s.reqRepo.ListByOrg(ctx, orgID)
}

func (s *membershipService) VoteSummary(ctx context.Context, orgID, requesterID int32, leaderPhone string) (domain.VoteSummary, error) {
	req, err := s.reqRepo.GetLatest(ctx, orgID, requesterID)
	if err != nil {
		return domain.VoteSummary{}, err
	}
	return req.SummaryFor(leaderPhone), nil
}

// RemindPendingVoters sends another action notification to every leader who has not
// voted on a pending request. It returns the number of reminders sent.
func (s *membershipService) RemindPendingVoters(ctx context.Context) (int, error) {
	logger.EnterMethod("membershipService.RemindPendingVoters")

	pending, err := s.reqRepo.ListPending(ctx)
	if err != nil {
		logger.ExitMethodWithError("membershipService.RemindPendingVoters", err)
		return 0, fmt.Errorf("failed to list pending join requests: %w", err)
	}

	orgs := make(map[int32]*domain.Organization)
	sent := 0
	for _, req := range pending {
		org, ok := orgs[req.OrgID]
		if !ok {
			org, err = s.orgRepo.GetByID(ctx, req.OrgID)
			if err != nil {
				logger.Warn("Skipping reminders for missing organization", "orgID", req.OrgID, "error", err)
				continue
			}
			orgs[req.OrgID] = org
		}
		for _, phone := range org.Leaders.Phones() {
			if _, voted := req.VoteOf(phone); voted {
				continue
			}
			s.inbox.Deliver(ctx, s.lookupByPhone(ctx, phone), &domain.Notification{
				RecipientPhone: phone,
				Title:          "Vote Reminder",
				Message: fmt.Sprintf("%s is still waiting to join %s (%d/%d approvals).",
					req.UserName, org.Name, len(req.Approvals), domain.LeadershipSize),
				Attributes: domain.JoinRequestAction(req.OrgID, req.UserID),
			})
			sent++
		}
	}

	logger.ExitMethod("membershipService.RemindPendingVoters", "pending", len(pending), "sent", sent)
	return sent, nil
}

// lookupByPhone resolves the provider profile behind a phone number, or nil when the
// number has none.
func (s *membershipService) lookupByPhone(ctx context.Context, phone string) *domain.Provider {
	p, err := s.providerRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil
	}
	return p
}
