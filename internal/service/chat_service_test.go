package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/kafka"
	"github.com/Dhoini/Chat-microservice/internal/metrics"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider записывает промпты и отдает ответы по очереди
type fakeProvider struct {
	name      domain.ModelProvider
	responses []string
	err       error
	calls     int
	prompts   [][]domain.PromptMessage
}

func (p *fakeProvider) Name() domain.ModelProvider {
	return p.name
}

func (p *fakeProvider) Complete(_ context.Context, messages []domain.PromptMessage) (string, error) {
	p.prompts = append(p.prompts, messages)
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	resp := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return resp, nil
}

type chatFixture struct {
	svc      ChatService
	users    *repository.InMemoryUserRepository
	convs    *repository.InMemoryConversationRepository
	provider *fakeProvider
}

func newChatFixture(t *testing.T, provider *fakeProvider) *chatFixture {
	t.Helper()
	log := logger.NewNop()
	users := repository.NewInMemoryUserRepository(log)
	convs := repository.NewInMemoryConversationRepository(log)
	quota := NewQuotaService(domain.DefaultPlanTable(), log)
	dispatcher := NewDispatcher(domain.ProviderHosted, log, provider)
	prompts := NewPromptBuilder("You are a helpful assistant.", "English")
	chatMetrics := metrics.NewChatMetrics(prometheus.NewRegistry(), log)

	svc := NewChatService(users, convs, quota, dispatcher, prompts, kafka.NewNoOpProducer(), chatMetrics, ChatConfig{}, log)
	return &chatFixture{svc: svc, users: users, convs: convs, provider: provider}
}

func seedFreeUser(f *chatFixture, id string) {
	f.users.Seed(&domain.User{
		ID:                 id,
		SubscriptionTier:   domain.TierFree,
		SubscriptionStatus: domain.SubscriptionStatusActive,
	})
}

func TestChatService_ProcessMessage_NewConversation(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"Short answer."}}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	resp, limits, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "Hello there"})
	require.NoError(t, err)
	assert.Equal(t, "Short answer.", resp.Response)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, string(domain.ProviderHosted), resp.ModelProvider)

	// Ход записан целиком: вопрос и ответ
	conv, err := f.convs.GetByIDAndOwner(context.Background(), resp.ConversationID, "user-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello there", conv.Messages[0].Content)
	assert.Equal(t, "Short answer.", conv.Messages[1].Content)
	assert.Equal(t, "Hello there", conv.Title)

	// Использование учтено
	user, err := f.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, user.DailyMessageCount)
	assert.Equal(t, 1, user.ActiveConversations)

	require.NotNil(t, limits)
	assert.Equal(t, 19, limits.Remaining.DailyMessages)
	assert.Equal(t, 0, limits.Remaining.ActiveConversations)
}

func TestChatService_ProcessMessage_ExistingConversationHistory(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"Again."}}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	conv := &domain.Conversation{
		ID:     "conv-1",
		UserID: "user-1",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "first question"},
			{Role: domain.RoleAssistant, Content: "first answer"},
		},
	}
	require.NoError(t, f.convs.Create(context.Background(), conv))

	resp, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{
		Message:        "follow-up",
		ConversationID: "conv-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", resp.ConversationID)

	// История вошла в промпт в исходном порядке
	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	require.Len(t, prompt, 4)
	assert.Equal(t, "first question", prompt[1].Content)
	assert.Equal(t, "first answer", prompt[2].Content)
	assert.Contains(t, prompt[3].Content, "follow-up")

	got, err := f.convs.GetByIDAndOwner(context.Background(), "conv-1", "user-1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 4)
}

func TestChatService_ProcessMessage_EmptyMessage(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}})
	seedFreeUser(f, "user-1")

	_, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatService_ProcessMessage_UnknownUser(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}})

	_, _, err := f.svc.ProcessMessage(context.Background(), "ghost", domain.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestChatService_ProcessMessage_InactiveSubscription(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}}
	f := newChatFixture(t, provider)

	ended := time.Now().Add(-time.Hour)
	f.users.Seed(&domain.User{
		ID:                 "user-1",
		SubscriptionTier:   domain.TierPro,
		SubscriptionStatus: domain.SubscriptionStatusCanceled,
		SubscriptionEnd:    &ended,
	})

	_, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrSubscriptionInactive)
	assert.Zero(t, provider.calls, "no generation for inactive subscription")
}

func TestChatService_ProcessMessage_DailyQuotaExceeded(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}}
	f := newChatFixture(t, provider)

	today := time.Now()
	f.users.Seed(&domain.User{
		ID:                 "user-1",
		SubscriptionTier:   domain.TierFree,
		SubscriptionStatus: domain.SubscriptionStatusActive,
		DailyMessageCount:  20,
		LastMessageDate:    &today,
	})

	_, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	var quotaErr *domain.QuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, domain.QuotaDailyMessageLimit, quotaErr.Kind)
	assert.Zero(t, provider.calls)
}

func TestChatService_ProcessMessage_ConversationQuotaExceeded(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}}
	f := newChatFixture(t, provider)

	f.users.Seed(&domain.User{
		ID:                  "user-1",
		SubscriptionTier:    domain.TierFree,
		ActiveConversations: 1,
	})

	// Новый диалог при занятом слоте отклоняется
	_, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi"})
	var quotaErr *domain.QuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, domain.QuotaActiveConversationLimit, quotaErr.Kind)

	// Сообщение в существующий диалог проходит
	require.NoError(t, f.convs.Create(context.Background(), &domain.Conversation{ID: "conv-1", UserID: "user-1"}))
	_, _, err = f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi", ConversationID: "conv-1"})
	assert.NoError(t, err)
}

func TestChatService_ProcessMessage_ForbiddenProvider(t *testing.T) {
	hosted := &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}}
	selfHosted := &fakeProvider{name: domain.ProviderSelfHosted, responses: []string{"y"}}

	log := logger.NewNop()
	users := repository.NewInMemoryUserRepository(log)
	convs := repository.NewInMemoryConversationRepository(log)
	quota := NewQuotaService(domain.DefaultPlanTable(), log)
	dispatcher := NewDispatcher(domain.ProviderHosted, log, hosted, selfHosted)
	prompts := NewPromptBuilder("Assistant.", "")
	chatMetrics := metrics.NewChatMetrics(prometheus.NewRegistry(), log)
	svc := NewChatService(users, convs, quota, dispatcher, prompts, kafka.NewNoOpProducer(), chatMetrics, ChatConfig{}, log)

	users.Seed(&domain.User{ID: "user-1", SubscriptionTier: domain.TierFree})

	// Недоступный бэкенд отклоняется явно, без подмены доступным
	_, _, err := svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{
		Message:       "hi",
		ModelProvider: "self-hosted",
	})
	assert.ErrorIs(t, err, domain.ErrFeatureForbidden)
	assert.Zero(t, selfHosted.calls)
	assert.Zero(t, hosted.calls)
}

func TestChatService_ProcessMessage_ForeignConversation(t *testing.T) {
	f := newChatFixture(t, &fakeProvider{name: domain.ProviderHosted, responses: []string{"x"}})
	seedFreeUser(f, "user-1")
	require.NoError(t, f.convs.Create(context.Background(), &domain.Conversation{ID: "conv-1", UserID: "someone-else"}))

	_, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{
		Message:        "hi",
		ConversationID: "conv-1",
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChatService_ProcessMessage_LengthRetry(t *testing.T) {
	overlong := strings.Repeat("a", 400) // бюджет free-тарифа 300 символов
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{overlong, "short enough"}}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	resp, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "short enough", resp.Response)
	assert.Equal(t, 2, provider.calls)

	// Повторный промпт содержит слишком длинный ответ и корректирующую директиву
	retryPrompt := provider.prompts[1]
	assert.Equal(t, overlong, retryPrompt[len(retryPrompt)-2].Content)
	assert.Contains(t, retryPrompt[len(retryPrompt)-1].Content, "400 characters long")

	// Записан только принятый ответ
	conv, err := f.convs.GetByIDAndOwner(context.Background(), resp.ConversationID, "user-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "short enough", conv.Messages[1].Content)
}

func TestChatService_ProcessMessage_FallbackAfterExhaustedRetries(t *testing.T) {
	overlong := strings.Repeat("a", 400)
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{overlong}}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	resp, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, defaultFallbackMessage, resp.Response)
	assert.Equal(t, defaultMaxLengthRetries, provider.calls)

	// Каждая повторная попытка несет на одну пару "ответ + директива" больше;
	// после последней попытки корректирующий промпт уже не собирается
	base := len(provider.prompts[0])
	for i, prompt := range provider.prompts {
		assert.Len(t, prompt, base+2*i)
	}

	// Ответ-заглушка все равно списывает квоту
	user, err := f.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, user.DailyMessageCount)
}

func TestChatService_ProcessMessage_GenerationFailure(t *testing.T) {
	provider := &fakeProvider{
		name: domain.ProviderHosted,
		err:  domain.NewGenerationError(domain.ProviderHosted, "connection refused", errors.New("dial tcp")),
	}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	_, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, 1, provider.calls, "hard backend failure is not retried")

	// Ничего не записано и не списано
	user, err := f.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, user.DailyMessageCount)
	assert.Zero(t, user.ActiveConversations)

	convs, err := f.convs.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestChatService_ProcessMessage_CancelledContext(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"fine"}}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.svc.ProcessMessage(ctx, "user-1", domain.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Отмененный запрос не оставляет следов
	user, err := f.users.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, user.DailyMessageCount)
}

func TestChatService_ProcessMessage_TitleTruncation(t *testing.T) {
	provider := &fakeProvider{name: domain.ProviderHosted, responses: []string{"ok"}}
	f := newChatFixture(t, provider)
	seedFreeUser(f, "user-1")

	long := strings.Repeat("q", 80)
	resp, _, err := f.svc.ProcessMessage(context.Background(), "user-1", domain.ChatRequest{Message: long})
	require.NoError(t, err)

	conv, err := f.convs.GetByIDAndOwner(context.Background(), resp.ConversationID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("q", 50)+"...", conv.Title)
}
