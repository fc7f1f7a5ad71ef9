package domain

import "strconv"

type ActionType string

const (
	ActionSaccoJoinRequest ActionType = "saccoJoinRequest"
	ActionKnockRequest     ActionType = "knockRequest"
)

// Attribute keys carried in Notification.Attributes.
const (
	AttrActionType     = "type"
	AttrOrganizationID = "organization_id"
	AttrRequesterID    = "requester_id"
	AttrInvitationID   = "invitation_id"
)

type Notification struct {
	ID             int32             `json:"id"`
	UserID         int32             `json:"user_id"`
	RecipientPhone string            `json:"recipient_phone,omitempty"`
	From           string            `json:"from"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	IsRead         bool              `json:"is_read"`
	Attributes     map[string]string `json:"attributes"`
	CreatedOn      string            `json:"created_on"`
}

// JoinRequestAction returns the attributes that let a leader vote straight from the inbox.
func JoinRequestAction(orgID, requesterID int32) map[string]string {
	return map[string]string{
		AttrActionType:     string(ActionSaccoJoinRequest),
		AttrOrganizationID: strconv.Itoa(int(orgID)),
		AttrRequesterID:    strconv.Itoa(int(requesterID)),
	}
}

func KnockAction(invitationID string) map[string]string {
	return map[string]string{
		AttrActionType:   string(ActionKnockRequest),
		AttrInvitationID: invitationID,
	}
}

func (n *Notification) Action() ActionType {
	return ActionType(n.Attributes[AttrActionType])
}
