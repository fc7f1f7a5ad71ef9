package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/repository"
	"nikosoko-backend/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("no provider is registered with this phone")
	ErrPhoneTaken         = errors.New("phone number is already registered")
)

type LoginResult struct {
	Provider     *domain.Provider
	AccessToken  string
	RefreshToken string
	Roles        []string
}

type authService struct {
	providerRepo repository.ProviderRepository
	premises     PremiseService
	tokens       security.TokenManager
	adminPhones  []string
}

// NewAuthService builds the phone login service. adminPhones lists numbers that carry the
// superadmin role; they are compared on their last nine digits.
func NewAuthService(providerRepo repository.ProviderRepository, premises PremiseService, tokens security.TokenManager, adminPhones []string) AuthService {
	return &authService{
		providerRepo: providerRepo,
		premises:     premises,
		tokens:       tokens,
		adminPhones:  adminPhones,
	}
}

func (s *authService) Login(ctx context.Context, phone string) (*LoginResult, error) {
	logger.EnterMethod("authService.Login", "phone", logger.MaskPhone(phone))

	if domain.NormalizePhone(phone) == "" {
		logger.ExitMethodWithError("authService.Login", ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	p, err := s.providerRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.ExitMethodWithError("authService.Login", err)
		return nil, err
	}

	res, err := s.issue(ctx, p)
	if err != nil {
		logger.ExitMethodWithError("authService.Login", err)
		return nil, err
	}
	logger.ExitMethod("authService.Login", "userID", p.ID, "roles", res.Roles)
	return res, nil
}

// Signup registers a provider profile and logs it in.
func (s *authService) Signup(ctx context.Context, p *domain.Provider) (*LoginResult, error) {
	logger.EnterMethod("authService.Signup", "name", p.Name)

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || domain.NormalizePhone(p.Phone) == "" {
		err := fmt.Errorf("%w: name and phone are required", domain.ErrInvalidArgument)
		logger.ExitMethodWithError("authService.Signup", err)
		return nil, err
	}
	if _, err := s.providerRepo.GetByPhone(ctx, p.Phone); err == nil {
		logger.ExitMethodWithError("authService.Signup", ErrPhoneTaken)
		return nil, ErrPhoneTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.ExitMethodWithError("authService.Signup", err)
		return nil, err
	}
	if p.AccountType == "" {
		p.AccountType = domain.AccountTypeIndividual
	}
	if err := s.providerRepo.Create(ctx, p); err != nil {
		logger.ExitMethodWithError("authService.Signup", err)
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	res, err := s.issue(ctx, p)
	if err != nil {
		logger.ExitMethodWithError("authService.Signup", err)
		return nil, err
	}
	logger.ExitMethod("authService.Signup", "userID", p.ID)
	return res, nil
}

func (s *authService) RefreshToken(ctx context.Context, refresh string) (string, string, error) {
	claims, err := s.tokens.ValidateToken(refresh)
	if err != nil {
		return "", "", err
	}
	if claims.Type != security.TokenTypeRefresh {
		return "", "", security.ErrWrongTokenType
	}
	p, err := s.providerRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", "", security.ErrInvalidToken
	}
	res, err := s.issue(ctx, p)
	if err != nil {
		return "", "", err
	}
	return res.AccessToken, res.RefreshToken, nil
}

// RegisterDevice stores the push token of the caller's device.
func (s *authService) RegisterDevice(ctx context.Context, userID int32, pushToken string) error {
	p, err := s.providerRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	p.PushToken = pushToken
	return s.providerRepo.Update(ctx, p)
}

func (s *authService) RolesFor(ctx context.Context, p *domain.Provider) ([]string, error) {
	var roles []string
	for _, admin := range s.adminPhones {
		if domain.SamePhone(admin, p.Phone) {
			roles = append(roles, security.RoleSuperAdmin)
			break
		}
	}
	superhost, err := s.premises.IsSuperhost(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check premises: %w", err)
	}
	if superhost {
		roles = append(roles, security.RoleSuperhost)
	}
	return roles, nil
}

func (s *authService) issue(ctx context.Context, p *domain.Provider) (*LoginResult, error) {
	roles, err := s.RolesFor(ctx, p)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.GenerateAccessToken(p.ID, p.Phone, roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.GenerateRefreshToken(p.ID, p.Phone)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Provider: p, AccessToken: access, RefreshToken: refresh, Roles: roles}, nil
}
