package domain

// LeadershipSize is the fixed number of leaders of an organization. It is also the
// number of approvals needed to admit a member.
const LeadershipSize = 3

type LeaderRole string

const (
	LeaderRoleChairperson LeaderRole = "chairperson"
	LeaderRoleSecretary   LeaderRole = "secretary"
	LeaderRoleTreasurer   LeaderRole = "treasurer"
)

type Leaders struct {
	Chairperson string `json:"chairperson"`
	Secretary   string `json:"secretary"`
	Treasurer   string `json:"treasurer"`
}

func (l Leaders) Phones() []string {
	return []string{l.Chairperson, l.Secretary, l.Treasurer}
}

// RoleOf returns the role held by the given phone number, if any.
func (l Leaders) RoleOf(phone string) (LeaderRole, bool) {
	switch {
	case SamePhone(phone, l.Chairperson):
		return LeaderRoleChairperson, true
	case SamePhone(phone, l.Secretary):
		return LeaderRoleSecretary, true
	case SamePhone(phone, l.Treasurer):
		return LeaderRoleTreasurer, true
	}
	return "", false
}

// Validate checks that all three seats are filled by distinct numbers.
func (l Leaders) Validate() error {
	seen := make(map[string]struct{}, LeadershipSize)
	for _, p := range l.Phones() {
		n := NormalizePhone(p)
		if n == "" {
			return ErrInvalidArgument
		}
		if _, dup := seen[n]; dup {
			return ErrInvalidArgument
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Member is a point-in-time copy of a provider's public attributes taken when the
// provider was admitted to an organization.
type Member struct {
	ID         int32   `json:"id"`
	Name       string  `json:"name"`
	AvatarURL  string  `json:"avatar_url"`
	Rating     float64 `json:"rating"`
	DistanceKm float64 `json:"distance_km"`
	HourlyRate int32   `json:"hourly_rate"`
	RateType   string  `json:"rate_type"`
	Phone      string  `json:"phone"`
	WhatsApp   string  `json:"whatsapp,omitempty"`
	IsOnline   bool    `json:"is_online"`
}

func NewMemberSnapshot(p *Provider) Member {
	return Member{
		ID:         p.ID,
		Name:       p.Name,
		AvatarURL:  p.AvatarURL,
		Rating:     p.Rating,
		DistanceKm: p.DistanceKm,
		HourlyRate: p.HourlyRate,
		RateType:   p.RateType,
		Phone:      p.Phone,
		WhatsApp:   p.WhatsApp,
		IsOnline:   p.IsOnline,
	}
}

type Organization struct {
	Provider
	Leaders Leaders  `json:"leaders"`
	Members []Member `json:"members,omitempty"`
}

func (o *Organization) HasMember(providerID int32) bool {
	for _, m := range o.Members {
		if m.ID == providerID {
			return true
		}
	}
	return false
}
