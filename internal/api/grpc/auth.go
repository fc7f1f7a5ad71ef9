package grpc

import (
	"context"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/service"

	"google.golang.org/protobuf/types/known/structpb"
)

type AuthHandler struct {
	authSvc service.AuthService
}

func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

func (h *AuthHandler) ServiceName() string { return "AuthService" }

func (h *AuthHandler) Methods() map[string]UnaryMethod {
	return map[string]UnaryMethod{
		"Login":          h.Login,
		"Signup":         h.Signup,
		"RefreshToken":   h.RefreshToken,
		"RegisterDevice": h.RegisterDevice,
	}
}

type loginResponse struct {
	Provider     *domain.Provider `json:"provider"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Roles        []string         `json:"roles"`
}

func newLoginResponse(res *service.LoginResult) loginResponse {
	return loginResponse{
		Provider:     res.Provider,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Roles:        res.Roles,
	}
}

func (h *AuthHandler) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Phone string `json:"phone"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	res, err := h.authSvc.Login(ctx, in.Phone)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(newLoginResponse(res))
}

func (h *AuthHandler) Signup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in domain.Provider
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	// profile flags are earned, not claimed
	in.ID = 0
	in.IsVerified = false
	in.AccountType = domain.AccountTypeIndividual

	res, err := h.authSvc.Signup(ctx, &in)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(newLoginResponse(res))
}

func (h *AuthHandler) RefreshToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	access, refresh, err := h.authSvc.RefreshToken(ctx, in.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]string{"access_token": access, "refresh_token": refresh})
}

func (h *AuthHandler) RegisterDevice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var in struct {
		PushToken string `json:"push_token"`
	}
	if err := decode(req, &in); err != nil {
		return nil, toStatus(err)
	}
	if err := h.authSvc.RegisterDevice(ctx, userID, in.PushToken); err != nil {
		return nil, toStatus(err)
	}
	return encode(map[string]bool{"success": true})
}
