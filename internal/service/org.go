package service

import (
	"context"
	"fmt"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/repository"
)

type organizationService struct {
	orgRepo repository.OrganizationRepository
}

func NewOrganizationService(orgRepo repository.OrganizationRepository) OrganizationService {
	return &organizationService{orgRepo: orgRepo}
}

func (s *organizationService) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	logger.EnterMethod("organizationService.CreateOrganization", "name", org.Name)

	if org.Name == "" {
		err := fmt.Errorf("%w: organization name is required", domain.ErrInvalidArgument)
		logger.ExitMethodWithError("organizationService.CreateOrganization", err)
		return err
	}
	if err := org.Leaders.Validate(); err != nil {
		err = fmt.Errorf("%w: an organization needs %d distinct leader phones", err, domain.LeadershipSize)
		logger.ExitMethodWithError("organizationService.CreateOrganization", err)
		return err
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		logger.ExitMethodWithError("organizationService.CreateOrganization", err)
		return fmt.Errorf("failed to create organization: %w", err)
	}

	logger.ExitMethod("organizationService.CreateOrganization", "orgID", org.ID)
	return nil
}

func (s *organizationService) GetOrganization(ctx context.Context, id int32) (*domain.Organization, error) {
	return s.orgRepo.GetByID(ctx, id)
}

func (s *organizationService) ListOrganizations(ctx context.Context) ([]domain.Organization, error) {
	return s.orgRepo.List(ctx)
}

func (s *organizationService) ListLedBy(ctx context.Context, leaderPhone string) ([]domain.Organization, error) {
	if domain.NormalizePhone(leaderPhone) == "" {
		return nil, nil
	}
	return s.orgRepo.ListByLeaderPhone(ctx, domain.NormalizePhone(leaderPhone))
}
