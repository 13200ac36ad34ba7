package domain

// Unlimited сентинел "без ограничений" для числовых лимитов плана
const Unlimited = -1

// APIAccess доступ к программному API, возможно со своим месячным лимитом
type APIAccess struct {
	Enabled   bool `json:"enabled"`
	RateLimit int  `json:"rate_limit"` // запросов в месяц, Unlimited = без лимита
}

// PlanFeatures флаги возможностей, входящих в план
type PlanFeatures struct {
	Export           bool      `json:"export"`
	Customization    bool      `json:"customization"`
	API              APIAccess `json:"api"`
	PrioritySupport  bool      `json:"priority_support"`
	SelfHostedModels bool      `json:"self_hosted_models"`
}

// Plan статический набор лимитов и возможностей для уровня подписки
type Plan struct {
	Name string           `json:"name"`
	Tier SubscriptionTier `json:"tier"`
	// DailyMessageLimit сообщений в день, Unlimited = без лимита
	DailyMessageLimit int `json:"daily_message_limit"`
	// MaxResponseLength бюджет длины ответа в символах, <=0 = без лимита
	MaxResponseLength int `json:"max_response_length"`
	// MaxActiveConversations активных диалогов, Unlimited = без лимита
	MaxActiveConversations int          `json:"max_active_conversations"`
	Features               PlanFeatures `json:"features"`
}

// PlanTable неизменяемая таблица планов, строится один раз при старте приложения
type PlanTable struct {
	plans map[SubscriptionTier]Plan
	free  Plan
}

// DefaultPlanTable возвращает таблицу планов по умолчанию
func DefaultPlanTable() PlanTable {
	free := Plan{
		Name:                   "Free",
		Tier:                   TierFree,
		DailyMessageLimit:      20,
		MaxResponseLength:      300,
		MaxActiveConversations: 1,
		Features: PlanFeatures{
			Export:           false,
			Customization:    false,
			API:              APIAccess{Enabled: false},
			PrioritySupport:  false,
			SelfHostedModels: false,
		},
	}
	pro := Plan{
		Name:                   "Pro",
		Tier:                   TierPro,
		DailyMessageLimit:      150,
		MaxResponseLength:      1000,
		MaxActiveConversations: 5,
		Features: PlanFeatures{
			Export:           true,
			Customization:    true,
			API:              APIAccess{Enabled: true, RateLimit: 1000},
			PrioritySupport:  false,
			SelfHostedModels: true,
		},
	}
	business := Plan{
		Name:                   "Business",
		Tier:                   TierBusiness,
		DailyMessageLimit:      Unlimited,
		MaxResponseLength:      Unlimited,
		MaxActiveConversations: Unlimited,
		Features: PlanFeatures{
			Export:           true,
			Customization:    true,
			API:              APIAccess{Enabled: true, RateLimit: Unlimited},
			PrioritySupport:  true,
			SelfHostedModels: true,
		},
	}

	return PlanTable{
		plans: map[SubscriptionTier]Plan{
			TierFree:     free,
			TierPro:      pro,
			TierBusiness: business,
		},
		free: free,
	}
}

// Resolve возвращает план для уровня подписки.
// Неизвестный или пустой уровень трактуется как free, никогда как ошибка.
func (t PlanTable) Resolve(tier SubscriptionTier) Plan {
	if plan, ok := t.plans[tier]; ok {
		return plan
	}
	return t.free
}

// ResolveForUser возвращает план пользователя по его уровню подписки
func (t PlanTable) ResolveForUser(u *User) Plan {
	return t.Resolve(u.SubscriptionTier)
}
