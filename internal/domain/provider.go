package domain

type AccountType string

const (
	AccountTypeIndividual   AccountType = "individual"
	AccountTypeOrganization AccountType = "organization"
)

type ProfileType string

const (
	ProfileTypeIndividual ProfileType = "individual"
	ProfileTypeGroup      ProfileType = "group"
)

type Provider struct {
	ID            int32       `json:"id"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	WhatsApp      string      `json:"whatsapp,omitempty"`
	Email         string      `json:"email,omitempty"`
	Service       string      `json:"service"`
	Category      string      `json:"category"`
	Location      string      `json:"location"`
	AvatarURL     string      `json:"avatar_url"`
	CoverImageURL string      `json:"cover_image_url"`
	Rating        float64     `json:"rating"`
	DistanceKm    float64     `json:"distance_km"`
	HourlyRate    int32       `json:"hourly_rate"`
	RateType      string      `json:"rate_type"`
	Currency      string      `json:"currency"`
	IsVerified    bool        `json:"is_verified"`
	IsOnline      bool        `json:"is_online"`
	AccountType   AccountType `json:"account_type"`
	ProfileType   ProfileType `json:"profile_type"`
	PushToken     string      `json:"-"`
	CreatedOn     string      `json:"created_on"`
}

// ProfileComplete reports whether the provider can act as a gate pass host.
func (p *Provider) ProfileComplete() bool {
	return p.Name != "" && p.Phone != ""
}
