package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// UsageService интерфейс отчета об использовании тарифа
type UsageService interface {
	// GetUsage возвращает снимок лимитов тарифа и остатков пользователя
	GetUsage(ctx context.Context, userID string) (*domain.PlanLimits, error)
}

type usageService struct {
	userRepo repository.UserRepository
	quota    QuotaService
	log      *logger.Logger
}

// NewUsageService создает новый сервис отчета об использовании
func NewUsageService(userRepo repository.UserRepository, quota QuotaService, log *logger.Logger) UsageService {
	return &usageService{
		userRepo: userRepo,
		quota:    quota,
		log:      log,
	}
}

// GetUsage возвращает снимок лимитов тарифа и остатков пользователя
func (s *usageService) GetUsage(ctx context.Context, userID string) (*domain.PlanLimits, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	limits := s.quota.PlanLimitsFor(user, time.Now())
	return &limits, nil
}
