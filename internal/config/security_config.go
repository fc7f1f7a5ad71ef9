// config/security_config.go
package config

import "nikosoko-backend/internal/security"

type SecurityLevel int

const (
	SecurityPublic  SecurityLevel = iota // No authentication
	SecurityRefresh                      // Refresh token required
	SecurityAccess                       // Access token required
)

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// AuthService - Public
	"/nikosoko.api.v1.AuthService/Login":  SecurityPublic,
	"/nikosoko.api.v1.AuthService/Signup": SecurityPublic,

	// AuthService - Refresh Protected
	"/nikosoko.api.v1.AuthService/RefreshToken": SecurityRefresh,

	// AuthService - Access Protected
	"/nikosoko.api.v1.AuthService/RegisterDevice": SecurityAccess,

	// MembershipService - Public
	"/nikosoko.api.v1.MembershipService/ListOrganizations": SecurityPublic,
	"/nikosoko.api.v1.MembershipService/GetOrganization":   SecurityPublic,

	// MembershipService - Access Protected
	"/nikosoko.api.v1.MembershipService/CreateOrganization":   SecurityAccess,
	"/nikosoko.api.v1.MembershipService/ListLedOrganizations": SecurityAccess,
	"/nikosoko.api.v1.MembershipService/SubmitJoinRequest":    SecurityAccess,
	"/nikosoko.api.v1.MembershipService/CastLeaderVote":       SecurityAccess,
	"/nikosoko.api.v1.MembershipService/ListPendingRequests":  SecurityAccess,
	"/nikosoko.api.v1.MembershipService/ListJoinRequests":     SecurityAccess,
	"/nikosoko.api.v1.MembershipService/GetVoteSummary":       SecurityAccess,

	// GatePassService - All Access Protected
	"/nikosoko.api.v1.GatePassService/CreateInvite":        SecurityAccess,
	"/nikosoko.api.v1.GatePassService/CreateKnock":         SecurityAccess,
	"/nikosoko.api.v1.GatePassService/DecideKnock":         SecurityAccess,
	"/nikosoko.api.v1.GatePassService/CancelInvite":        SecurityAccess,
	"/nikosoko.api.v1.GatePassService/Redeem":              SecurityAccess,
	"/nikosoko.api.v1.GatePassService/GetInvitation":       SecurityAccess,
	"/nikosoko.api.v1.GatePassService/ListHostInvitations": SecurityAccess,
	"/nikosoko.api.v1.GatePassService/ListAllInvitations":  SecurityAccess,
	"/nikosoko.api.v1.GatePassService/GetHostView":         SecurityAccess,
	"/nikosoko.api.v1.GatePassService/RegisterPremise":     SecurityAccess,

	// InboxService - Access Protected
	"/nikosoko.api.v1.InboxService/GetNotifications":     SecurityAccess,
	"/nikosoko.api.v1.InboxService/MarkNotificationRead": SecurityAccess,
}

// EndpointRoles lists methods restricted to callers holding one of the given roles.
var EndpointRoles = map[string][]string{
	"/nikosoko.api.v1.MembershipService/CreateOrganization": {security.RoleSuperAdmin},
	"/nikosoko.api.v1.GatePassService/RegisterPremise":      {security.RoleSuperAdmin},
	"/nikosoko.api.v1.GatePassService/ListAllInvitations":   {security.RoleSuperhost, security.RoleSuperAdmin},
	"/nikosoko.api.v1.GatePassService/Redeem":               {security.RoleGuard, security.RoleSuperhost, security.RoleSuperAdmin},
	"POST /api/v1/gate/scan":                                {security.RoleGuard, security.RoleSuperhost, security.RoleSuperAdmin},
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}

// RequiredRoles returns the roles allowed to call method, or nil when any caller may.
func RequiredRoles(method string) []string {
	return EndpointRoles[method]
}
