package service

import (
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// QuotaService интерфейс проверки квот и возможностей тарифа.
// Проверки чистые: читают пользователя и таблицу планов, ничего не пишут.
type QuotaService interface {
	// CheckMessageQuota проверяет суточный лимит сообщений; счетчик за прошлое
	// календарное число (UTC) считается обнуленным
	CheckMessageQuota(user *domain.User, now time.Time) error
	// CheckConversationQuota проверяет лимит активных диалогов; вызывается
	// только при создании нового диалога
	CheckConversationQuota(user *domain.User, now time.Time) error
	// CheckProviderAccess проверяет, что бэкенд генерации входит в тариф
	CheckProviderAccess(user *domain.User, provider domain.ModelProvider) error
	// PlanLimitsFor возвращает снимок лимитов тарифа и остатков на момент now
	PlanLimitsFor(user *domain.User, now time.Time) domain.PlanLimits
}

type quotaService struct {
	plans domain.PlanTable
	log   *logger.Logger
}

// NewQuotaService создает новый сервис квот
func NewQuotaService(plans domain.PlanTable, log *logger.Logger) QuotaService {
	return &quotaService{
		plans: plans,
		log:   log,
	}
}

// effectiveDailyCount возвращает счетчик сообщений с учетом смены календарного
// числа: если последнее сообщение было в другой день (UTC), счетчик равен нулю
func effectiveDailyCount(user *domain.User, now time.Time) int {
	if user.LastMessageDate == nil || !domain.SameUTCDay(*user.LastMessageDate, now) {
		return 0
	}
	return user.DailyMessageCount
}

// CheckMessageQuota проверяет суточный лимит сообщений
func (s *quotaService) CheckMessageQuota(user *domain.User, now time.Time) error {
	plan := s.plans.ResolveForUser(user)
	if plan.DailyMessageLimit == domain.Unlimited {
		return nil
	}

	if effectiveDailyCount(user, now) >= plan.DailyMessageLimit {
		s.log.Infow("Daily message limit reached", "userID", user.ID, "tier", plan.Tier, "limit", plan.DailyMessageLimit)
		return domain.NewQuotaError(
			domain.QuotaDailyMessageLimit,
			"daily message limit reached",
			s.PlanLimitsFor(user, now),
		)
	}
	return nil
}

// CheckConversationQuota проверяет лимит активных диалогов
func (s *quotaService) CheckConversationQuota(user *domain.User, now time.Time) error {
	plan := s.plans.ResolveForUser(user)
	if plan.MaxActiveConversations == domain.Unlimited {
		return nil
	}

	if user.ActiveConversations >= plan.MaxActiveConversations {
		s.log.Infow("Active conversation limit reached", "userID", user.ID, "tier", plan.Tier, "limit", plan.MaxActiveConversations)
		return domain.NewQuotaError(
			domain.QuotaActiveConversationLimit,
			"active conversation limit reached",
			s.PlanLimitsFor(user, now),
		)
	}
	return nil
}

// CheckProviderAccess проверяет, что бэкенд генерации входит в тариф.
// Запрос недоступного бэкенда отклоняется явно, а не подменяется доступным.
func (s *quotaService) CheckProviderAccess(user *domain.User, provider domain.ModelProvider) error {
	plan := s.plans.ResolveForUser(user)
	if provider == domain.ProviderSelfHosted && !plan.Features.SelfHostedModels {
		s.log.Infow("Self-hosted models not available in plan", "userID", user.ID, "tier", plan.Tier)
		return domain.ErrFeatureForbidden
	}
	return nil
}

// PlanLimitsFor возвращает снимок лимитов тарифа и остатков
func (s *quotaService) PlanLimitsFor(user *domain.User, now time.Time) domain.PlanLimits {
	plan := s.plans.ResolveForUser(user)

	remainingMessages := domain.Unlimited
	if plan.DailyMessageLimit != domain.Unlimited {
		remainingMessages = plan.DailyMessageLimit - effectiveDailyCount(user, now)
		if remainingMessages < 0 {
			remainingMessages = 0
		}
	}

	remainingConversations := domain.Unlimited
	if plan.MaxActiveConversations != domain.Unlimited {
		remainingConversations = plan.MaxActiveConversations - user.ActiveConversations
		if remainingConversations < 0 {
			remainingConversations = 0
		}
	}

	return domain.PlanLimits{
		Tier:                   plan.Tier,
		DailyMessageLimit:      plan.DailyMessageLimit,
		MaxActiveConversations: plan.MaxActiveConversations,
		MaxResponseLength:      plan.MaxResponseLength,
		Features:               plan.Features,
		Remaining: domain.RemainingLimits{
			DailyMessages:       remainingMessages,
			ActiveConversations: remainingConversations,
		},
	}
}
