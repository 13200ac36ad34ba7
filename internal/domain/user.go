package domain

import (
	"time"
)

// SubscriptionTier уровень подписки пользователя
type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierPro      SubscriptionTier = "pro"
	TierBusiness SubscriptionTier = "business"
)

// SubscriptionStatus статус жизненного цикла подписки (управляется биллингом,
// движок только читает его)
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// User представляет пользователя: идентичность + право доступа + счетчики использования
type User struct {
	ID                 string             `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	Email              string             `json:"email" db:"email"`
	SubscriptionTier   SubscriptionTier   `json:"subscription_tier" db:"subscription_tier"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	SubscriptionEnd    *time.Time         `json:"subscription_end,omitempty" db:"subscription_end"`
	// DailyMessageCount число сообщений за календарный день LastMessageDate.
	// Осмысленно только вместе с LastMessageDate: другой день означает, что
	// счетчик подлежит сбросу перед любым сравнением или инкрементом.
	DailyMessageCount   int        `json:"daily_message_count" db:"daily_message_count"`
	LastMessageDate     *time.Time `json:"last_message_date,omitempty" db:"last_message_date"`
	ActiveConversations int        `json:"active_conversations" db:"active_conversations"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// HasActiveSubscription проверяет, действует ли платная подписка пользователя
func (u *User) HasActiveSubscription() bool {
	if u.SubscriptionStatus != SubscriptionStatusActive {
		return false
	}
	return u.SubscriptionEnd == nil || u.SubscriptionEnd.After(time.Now())
}

// SameUTCDay сравнивает календарный день (год, месяц, число) двух моментов в UTC
func SameUTCDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month() && au.Day() == bu.Day()
}
