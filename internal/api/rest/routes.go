package rest

import (
	"github.com/Dhoini/Chat-microservice/internal/api/rest/handlers"
	restmw "github.com/Dhoini/Chat-microservice/internal/api/rest/middleware"
	"github.com/Dhoini/Chat-microservice/internal/middleware"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers обработчики, монтируемые в роутер
type Handlers struct {
	Chat         *handlers.ChatHandler
	Conversation *handlers.ConversationHandler
	Usage        *handlers.UsageHandler
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(log *logger.Logger, registry *prometheus.Registry, auth *middleware.JWTMiddleware, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(restmw.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		v1.POST("/chat", h.Chat.Chat)

		conversations := v1.Group("/conversations")
		{
			conversations.GET("", h.Conversation.List)
			conversations.GET("/:id", h.Conversation.Get)
			conversations.PATCH("/:id", h.Conversation.Rename)
			conversations.DELETE("/:id", h.Conversation.Delete)
		}

		v1.GET("/user/usage", h.Usage.GetUsage)
	}

	return r
}
