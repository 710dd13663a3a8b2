package team

import (
	"context"
	"fmt"

	"workforce/internal/domain/apperr"
)

// Service resolves manager scope from profile rows.
type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) DirectReports(ctx context.Context, tenantID, managerID string) ([]string, error) {
	ids, err := s.Store.DirectReports(ctx, tenantID, managerID)
	if err != nil {
		return nil, fmt.Errorf("list direct reports: %w", err)
	}
	return ids, nil
}

func (s *Service) VerifyManagerOf(ctx context.Context, tenantID, managerID, targetUserID string) error {
	current, ok, err := s.Store.ManagerOf(ctx, tenantID, targetUserID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if !ok || current != managerID {
		return apperr.Forbidden("you are not the manager of this user")
	}
	return nil
}
