package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanTable_Resolve(t *testing.T) {
	table := DefaultPlanTable()

	free := table.Resolve(TierFree)
	assert.Equal(t, 20, free.DailyMessageLimit)
	assert.Equal(t, 300, free.MaxResponseLength)
	assert.Equal(t, 1, free.MaxActiveConversations)
	assert.False(t, free.Features.SelfHostedModels)

	pro := table.Resolve(TierPro)
	assert.Equal(t, 150, pro.DailyMessageLimit)
	assert.Equal(t, 1000, pro.MaxResponseLength)
	assert.Equal(t, 5, pro.MaxActiveConversations)
	assert.True(t, pro.Features.SelfHostedModels)
	assert.True(t, pro.Features.API.Enabled)
	assert.Equal(t, 1000, pro.Features.API.RateLimit)

	business := table.Resolve(TierBusiness)
	assert.Equal(t, Unlimited, business.DailyMessageLimit)
	assert.Equal(t, Unlimited, business.MaxResponseLength)
	assert.Equal(t, Unlimited, business.MaxActiveConversations)
	assert.True(t, business.Features.PrioritySupport)
}

func TestPlanTable_Resolve_UnknownTier(t *testing.T) {
	table := DefaultPlanTable()

	// Неизвестный уровень трактуется как free, не как ошибка
	plan := table.Resolve("enterprise")
	assert.Equal(t, TierFree, plan.Tier)

	plan = table.Resolve("")
	assert.Equal(t, TierFree, plan.Tier)
}

func TestSameUTCDay(t *testing.T) {
	base := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)

	assert.True(t, SameUTCDay(base, base.Add(5*time.Minute)))
	// Через 20 минут уже следующее календарное число
	assert.False(t, SameUTCDay(base, base.Add(20*time.Minute)))
	// Сравнение в UTC не зависит от зоны входных значений
	plus3 := time.FixedZone("UTC+3", 3*60*60)
	assert.True(t, SameUTCDay(base, base.Add(5*time.Minute).In(plus3)))
}

func TestUser_HasActiveSubscription(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"active without end date", User{SubscriptionStatus: SubscriptionStatusActive}, true},
		{"active with future end", User{SubscriptionStatus: SubscriptionStatusActive, SubscriptionEnd: &future}, true},
		{"active with past end", User{SubscriptionStatus: SubscriptionStatusActive, SubscriptionEnd: &past}, false},
		{"canceled", User{SubscriptionStatus: SubscriptionStatusCanceled}, false},
		{"past due", User{SubscriptionStatus: SubscriptionStatusPastDue}, false},
		{"trialing", User{SubscriptionStatus: SubscriptionStatusTrialing}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasActiveSubscription())
		})
	}
}
