package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/internal/kafka"
	"github.com/Dhoini/Chat-microservice/internal/metrics"
	"github.com/Dhoini/Chat-microservice/internal/middleware"
	"github.com/Dhoini/Chat-microservice/internal/repository"
	"github.com/Dhoini/Chat-microservice/internal/service"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type stubProvider struct {
	name     domain.ModelProvider
	response string
	err      error
}

func (p *stubProvider) Name() domain.ModelProvider { return p.name }

func (p *stubProvider) Complete(_ context.Context, _ []domain.PromptMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

type testEnv struct {
	router *gin.Engine
	users  *repository.InMemoryUserRepository
	convs  *repository.InMemoryConversationRepository
}

func newTestEnv(t *testing.T, provider service.ModelProvider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	users := repository.NewInMemoryUserRepository(log)
	convs := repository.NewInMemoryConversationRepository(log)
	quota := service.NewQuotaService(domain.DefaultPlanTable(), log)
	dispatcher := service.NewDispatcher(domain.ProviderHosted, log, provider)
	prompts := service.NewPromptBuilder("You are a helpful assistant.", "English")
	chatMetrics := metrics.NewChatMetrics(prometheus.NewRegistry(), log)
	producer := kafka.NewNoOpProducer()

	chatSvc := service.NewChatService(users, convs, quota, dispatcher, prompts, producer, chatMetrics, service.ChatConfig{}, log)
	convSvc := service.NewConversationService(convs, users, producer, log)
	usageSvc := service.NewUsageService(users, quota, log)

	auth := middleware.NewJWTMiddleware(log, &middleware.DefaultTokenValidator{Secret: testSecret})

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		v1.POST("/chat", NewChatHandler(chatSvc, log).Chat)
		convHandler := NewConversationHandler(convSvc, log)
		v1.GET("/conversations", convHandler.List)
		v1.GET("/conversations/:id", convHandler.Get)
		v1.PATCH("/conversations/:id", convHandler.Rename)
		v1.DELETE("/conversations/:id", convHandler.Delete)
		v1.GET("/user/usage", NewUsageHandler(usageSvc, log).GetUsage)
	}

	return &testEnv{router: router, users: users, convs: convs}
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func doRequest(env *testEnv, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestChatEndpoint_Success(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "Hello!"})
	env.users.Seed(&domain.User{ID: "user-1", SubscriptionTier: domain.TierFree})

	w := doRequest(env, "POST", "/api/v1/chat", signToken(t, "user-1"), `{"message": "hi"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hello!", resp.Response)
	assert.NotEmpty(t, resp.ConversationID)

	assert.Equal(t, "free", w.Header().Get("X-Subscription-Tier"))
	assert.Equal(t, "19", w.Header().Get("X-Daily-Messages-Remaining"))
	assert.Equal(t, "0", w.Header().Get("X-Active-Conversations-Remaining"))
}

func TestChatEndpoint_MissingToken(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "x"})

	w := doRequest(env, "POST", "/api/v1/chat", "", `{"message": "hi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatEndpoint_EmptyMessage(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "x"})
	env.users.Seed(&domain.User{ID: "user-1", SubscriptionTier: domain.TierFree})

	w := doRequest(env, "POST", "/api/v1/chat", signToken(t, "user-1"), `{"message": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatEndpoint_QuotaExceeded(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "x"})
	now := time.Now()
	env.users.Seed(&domain.User{
		ID:                "user-1",
		SubscriptionTier:  domain.TierFree,
		DailyMessageCount: 20,
		LastMessageDate:   &now,
	})

	w := doRequest(env, "POST", "/api/v1/chat", signToken(t, "user-1"), `{"message": "hi"}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "limits")

	var limits domain.PlanLimits
	require.NoError(t, json.Unmarshal(body["limits"], &limits))
	assert.Equal(t, 0, limits.Remaining.DailyMessages)
}

func TestChatEndpoint_ForbiddenProvider(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderSelfHosted, response: "x"})
	env.users.Seed(&domain.User{ID: "user-1", SubscriptionTier: domain.TierFree})

	w := doRequest(env, "POST", "/api/v1/chat", signToken(t, "user-1"), `{"message": "hi", "modelProvider": "self-hosted"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChatEndpoint_InactiveSubscription(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "x"})
	env.users.Seed(&domain.User{
		ID:                 "user-1",
		SubscriptionTier:   domain.TierPro,
		SubscriptionStatus: domain.SubscriptionStatusPastDue,
	})

	w := doRequest(env, "POST", "/api/v1/chat", signToken(t, "user-1"), `{"message": "hi"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestChatEndpoint_GenerationFailure(t *testing.T) {
	env := newTestEnv(t, &stubProvider{
		name: domain.ProviderHosted,
		err:  domain.NewGenerationError(domain.ProviderHosted, "unexpected status 503", nil),
	})
	env.users.Seed(&domain.User{ID: "user-1", SubscriptionTier: domain.TierFree})

	w := doRequest(env, "POST", "/api/v1/chat", signToken(t, "user-1"), `{"message": "hi"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestConversationEndpoints(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "x"})
	env.users.Seed(&domain.User{ID: "user-1", SubscriptionTier: domain.TierFree, ActiveConversations: 1})
	require.NoError(t, env.convs.Create(context.Background(), &domain.Conversation{
		ID:     "conv-1",
		UserID: "user-1",
		Title:  "First",
	}))
	token := signToken(t, "user-1")

	w := doRequest(env, "GET", "/api/v1/conversations", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conv-1")

	w = doRequest(env, "GET", "/api/v1/conversations/conv-1", token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Чужой или несуществующий диалог
	w = doRequest(env, "GET", "/api/v1/conversations/ghost", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(env, "PATCH", "/api/v1/conversations/conv-1", token, `{"title": "Renamed"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(env, "DELETE", "/api/v1/conversations/conv-1", token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(env, "GET", "/api/v1/conversations/conv-1", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsageEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubProvider{name: domain.ProviderHosted, response: "x"})
	now := time.Now()
	env.users.Seed(&domain.User{
		ID:                  "user-1",
		SubscriptionTier:    domain.TierPro,
		SubscriptionStatus:  domain.SubscriptionStatusActive,
		DailyMessageCount:   10,
		LastMessageDate:     &now,
		ActiveConversations: 2,
	})

	w := doRequest(env, "GET", "/api/v1/user/usage", signToken(t, "user-1"), "")
	require.Equal(t, http.StatusOK, w.Code)

	var limits domain.PlanLimits
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &limits))
	assert.Equal(t, domain.TierPro, limits.Tier)
	assert.Equal(t, 140, limits.Remaining.DailyMessages)
	assert.Equal(t, 3, limits.Remaining.ActiveConversations)
	assert.Equal(t, "pro", w.Header().Get("X-Subscription-Tier"))
}
