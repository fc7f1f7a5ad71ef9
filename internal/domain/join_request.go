package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

type JoinRequestStatus string

const (
	JoinRequestStatusPending  JoinRequestStatus = "pending"
	JoinRequestStatusApproved JoinRequestStatus = "approved"
	JoinRequestStatusRejected JoinRequestStatus = "rejected"
)

type VoteDecision string

const (
	VoteApprove VoteDecision = "approve"
	VoteReject  VoteDecision = "reject"
)

func ParseVoteDecision(s string) (VoteDecision, error) {
	switch s {
	case "approve", "approved":
		return VoteApprove, nil
	case "reject", "rejected", "deny":
		return VoteReject, nil
	}
	return "", fmt.Errorf("%w: unknown vote decision %q", ErrInvalidArgument, s)
}

// PhoneSet is a set of normalized phone numbers. It serializes as a sorted JSON array.
type PhoneSet map[string]struct{}

func (s PhoneSet) Has(phone string) bool {
	_, ok := s[NormalizePhone(phone)]
	return ok
}

func (s PhoneSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

func (s PhoneSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *PhoneSet) UnmarshalJSON(data []byte) error {
	var phones []string
	if err := json.Unmarshal(data, &phones); err != nil {
		return err
	}
	*s = make(PhoneSet, len(phones))
	for _, p := range phones {
		(*s)[NormalizePhone(p)] = struct{}{}
	}
	return nil
}

type JoinRequest struct {
	ID         int32             `json:"id"`
	OrgID      int32             `json:"org_id"`
	UserID     int32             `json:"user_id"`
	UserName   string            `json:"user_name"`
	UserPhone  string            `json:"user_phone"`
	Status     JoinRequestStatus `json:"status"`
	Approvals  PhoneSet          `json:"approvals"`
	Rejections PhoneSet          `json:"rejections"`
	CreatedOn  string            `json:"created_on"`
	DecidedOn  *string           `json:"decided_on,omitempty"`
}

func NewJoinRequest(orgID int32, requester *Provider) *JoinRequest {
	return &JoinRequest{
		OrgID:      orgID,
		UserID:     requester.ID,
		UserName:   requester.Name,
		UserPhone:  requester.Phone,
		Status:     JoinRequestStatusPending,
		Approvals:  PhoneSet{},
		Rejections: PhoneSet{},
	}
}

func (r *JoinRequest) IsTerminal() bool {
	return r.Status == JoinRequestStatusApproved || r.Status == JoinRequestStatusRejected
}

// VoteOf returns the recorded vote of a leader.
func (r *JoinRequest) VoteOf(leaderPhone string) (VoteDecision, bool) {
	switch {
	case r.Approvals.Has(leaderPhone):
		return VoteApprove, true
	case r.Rejections.Has(leaderPhone):
		return VoteReject, true
	}
	return "", false
}

// ApplyVote records a leader's vote and finalizes the request when the vote decides it.
// A single rejection rejects the request; LeadershipSize approvals approve it. The
// returned bool is true when this vote moved the request to approved.
func (r *JoinRequest) ApplyVote(leaderPhone string, decision VoteDecision) (bool, error) {
	if r.IsTerminal() {
		return false, ErrStaleVote
	}
	phone := NormalizePhone(leaderPhone)
	if phone == "" {
		return false, fmt.Errorf("%w: leader phone is required", ErrInvalidArgument)
	}
	if _, voted := r.VoteOf(phone); voted {
		return false, ErrAlreadyVoted
	}
	if r.Approvals == nil {
		r.Approvals = PhoneSet{}
	}
	if r.Rejections == nil {
		r.Rejections = PhoneSet{}
	}

	approved := false
	switch decision {
	case VoteReject:
		r.Rejections[phone] = struct{}{}
		r.Status = JoinRequestStatusRejected
	case VoteApprove:
		r.Approvals[phone] = struct{}{}
		if len(r.Approvals) >= LeadershipSize {
			r.Status = JoinRequestStatusApproved
			approved = true
		}
	default:
		return false, fmt.Errorf("%w: unknown vote decision %q", ErrInvalidArgument, decision)
	}
	return approved, r.checkVotes()
}

// checkVotes enforces that no leader appears in both vote sets.
func (r *JoinRequest) checkVotes() error {
	for p := range r.Approvals {
		if _, ok := r.Rejections[p]; ok {
			return fmt.Errorf("join request %d: phone %s both approved and rejected", r.ID, p)
		}
	}
	return nil
}

// VoteSummary describes a join request from one leader's point of view.
type VoteSummary struct {
	Status    JoinRequestStatus `json:"status"`
	Approvals int               `json:"approvals"`
	Needed    int               `json:"needed"`
	HasVoted  bool              `json:"has_voted"`
	MyVote    VoteDecision      `json:"my_vote,omitempty"`
}

func (r *JoinRequest) SummaryFor(leaderPhone string) VoteSummary {
	vote, voted := r.VoteOf(leaderPhone)
	return VoteSummary{
		Status:    r.Status,
		Approvals: len(r.Approvals),
		Needed:    LeadershipSize,
		HasVoted:  voted,
		MyVote:    vote,
	}
}
