package service

import (
	"context"
	"fmt"
	"strings"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/repository"
)

type premiseService struct {
	premiseRepo  repository.PremiseRepository
	providerRepo repository.ProviderRepository
}

func NewPremiseService(premiseRepo repository.PremiseRepository, providerRepo repository.ProviderRepository) PremiseService {
	return &premiseService{
		premiseRepo:  premiseRepo,
		providerRepo: providerRepo,
	}
}

// RegisterPremise creates a premise managed by superhostID. The superhost is its first host.
func (s *premiseService) RegisterPremise(ctx context.Context, name string, superhostID int32) (*domain.Premise, error) {
	logger.EnterMethod("premiseService.RegisterPremise", "name", name, "superhostID", superhostID)

	name = strings.TrimSpace(name)
	if name == "" {
		err := fmt.Errorf("%w: premise name is required", domain.ErrInvalidArgument)
		logger.ExitMethodWithError("premiseService.RegisterPremise", err)
		return nil, err
	}
	if _, err := s.providerRepo.GetByID(ctx, superhostID); err != nil {
		logger.ExitMethodWithError("premiseService.RegisterPremise", err)
		return nil, fmt.Errorf("failed to get superhost: %w", err)
	}

	p := &domain.Premise{
		Name:        name,
		SuperhostID: superhostID,
		Hosts:       []int32{superhostID},
	}
	if err := s.premiseRepo.Create(ctx, p); err != nil {
		logger.ExitMethodWithError("premiseService.RegisterPremise", err)
		return nil, fmt.Errorf("failed to create premise: %w", err)
	}

	logger.ExitMethod("premiseService.RegisterPremise", "premiseID", p.ID)
	return p, nil
}

func (s *premiseService) IsSuperhost(ctx context.Context, providerID int32) (bool, error) {
	premises, err := s.premiseRepo.ListBySuperhost(ctx, providerID)
	if err != nil {
		return false, err
	}
	return len(premises) > 0, nil
}
