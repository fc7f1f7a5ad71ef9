package domain

import (
	"fmt"
	"time"
)

type InvitationStatus string

const (
	InvitationStatusActive   InvitationStatus = "Active"
	InvitationStatusCanceled InvitationStatus = "Canceled"
	InvitationStatusUsed     InvitationStatus = "Used"
	InvitationStatusPending  InvitationStatus = "Pending"
	InvitationStatusApproved InvitationStatus = "Approved"
	InvitationStatusDenied   InvitationStatus = "Denied"
	InvitationStatusExpired  InvitationStatus = "Expired"
)

type InvitationType string

const (
	InvitationTypeInvite InvitationType = "Invite"
	InvitationTypeKnock  InvitationType = "Knock"
)

// PendingAccessCode is the placeholder code carried by a knock until a host approves it.
const PendingAccessCode = "PENDING"

// VisitDateLayout is the format of Invitation.VisitDate.
const VisitDateLayout = "2006-01-02"

type KnockDecision string

const (
	KnockApprove KnockDecision = "approve"
	KnockDeny    KnockDecision = "deny"
)

func ParseKnockDecision(s string) (KnockDecision, error) {
	switch s {
	case "approve", "Approved":
		return KnockApprove, nil
	case "deny", "Denied":
		return KnockDeny, nil
	}
	return "", fmt.Errorf("%w: unknown knock decision %q", ErrInvalidArgument, s)
}

type Invitation struct {
	ID            string           `json:"id"`
	HostID        int32            `json:"host_id"`
	HostName      string           `json:"host_name"`
	HostApartment string           `json:"host_apartment,omitempty"`
	VisitorPhone  string           `json:"visitor_phone"`
	VisitorID     *int32           `json:"visitor_id,omitempty"`
	VisitorName   string           `json:"visitor_name,omitempty"`
	VisitorAvatar string           `json:"visitor_avatar,omitempty"`
	VisitDate     string           `json:"visit_date"`
	Status        InvitationStatus `json:"status"`
	AccessCode    string           `json:"access_code"`
	Type          InvitationType   `json:"type"`
	CreatedOn     string           `json:"created_on"`
	UpdatedOn     string           `json:"updated_on"`
}

func NewInvite(host *Provider, visitorPhone, visitDate, code string) *Invitation {
	return &Invitation{
		HostID:       host.ID,
		HostName:     host.Name,
		VisitorPhone: visitorPhone,
		VisitDate:    visitDate,
		Status:       InvitationStatusActive,
		AccessCode:   code,
		Type:         InvitationTypeInvite,
	}
}

func NewKnock(hostID int32, hostName, apartment string, visitor *Provider, visitorPhone, visitDate string) *Invitation {
	id := visitor.ID
	return &Invitation{
		HostID:        hostID,
		HostName:      hostName,
		HostApartment: apartment,
		VisitorPhone:  visitorPhone,
		VisitorID:     &id,
		VisitorName:   visitor.Name,
		VisitorAvatar: visitor.AvatarURL,
		VisitDate:     visitDate,
		Status:        InvitationStatusPending,
		AccessCode:    PendingAccessCode,
		Type:          InvitationTypeKnock,
	}
}

func (i *Invitation) IsTerminal() bool {
	switch i.Status {
	case InvitationStatusUsed, InvitationStatusCanceled, InvitationStatusDenied, InvitationStatusExpired:
		return true
	}
	return false
}

// IsRedeemable reports whether a scan of the access code would admit the visitor.
func (i *Invitation) IsRedeemable() bool {
	return (i.Status == InvitationStatusActive || i.Status == InvitationStatusApproved) &&
		i.AccessCode != PendingAccessCode
}

// Decide applies a host's decision on a pending knock. Approval requires the freshly
// generated access code.
func (i *Invitation) Decide(decision KnockDecision, code string) error {
	if i.Type != InvitationTypeKnock || i.Status != InvitationStatusPending {
		return ErrStaleDecision
	}
	switch decision {
	case KnockApprove:
		i.Status = InvitationStatusApproved
		i.AccessCode = code
	case KnockDeny:
		i.Status = InvitationStatusDenied
	default:
		return fmt.Errorf("%w: unknown knock decision %q", ErrInvalidArgument, decision)
	}
	return nil
}

func (i *Invitation) Cancel() error {
	if i.Status != InvitationStatusActive {
		return ErrStaleDecision
	}
	i.Status = InvitationStatusCanceled
	return nil
}

// Redeem consumes the invitation. Every failure is reported as ErrCodeInvalid.
func (i *Invitation) Redeem(code string) error {
	if !i.IsRedeemable() || i.AccessCode != code {
		return ErrCodeInvalid
	}
	i.Status = InvitationStatusUsed
	return nil
}

// ExpireIfPast moves a non-terminal invitation whose visit date lies before asOf's date
// to Expired. It reports whether the status changed.
func (i *Invitation) ExpireIfPast(asOf time.Time) bool {
	if i.IsTerminal() {
		return false
	}
	visit, err := time.Parse(VisitDateLayout, i.VisitDate)
	if err != nil {
		return false
	}
	today, _ := time.Parse(VisitDateLayout, asOf.Format(VisitDateLayout))
	if !visit.Before(today) {
		return false
	}
	i.Status = InvitationStatusExpired
	return true
}

// HostView groups a host's invitations the way the gate pass screen lists them.
type HostView struct {
	PendingKnocks []Invitation `json:"pending_knocks"`
	ActivePasses  []Invitation `json:"active_passes"`
	History       []Invitation `json:"history"`
}

func BuildHostView(invs []Invitation) HostView {
	var v HostView
	for _, inv := range invs {
		switch {
		case inv.Type == InvitationTypeKnock && inv.Status == InvitationStatusPending:
			v.PendingKnocks = append(v.PendingKnocks, inv)
		case inv.Status == InvitationStatusActive || inv.Status == InvitationStatusApproved:
			v.ActivePasses = append(v.ActivePasses, inv)
		case inv.IsTerminal():
			v.History = append(v.History, inv)
		}
	}
	return v
}
