package service

import (
	"context"
	"fmt"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// ModelProvider интерфейс бэкенда генерации; реализуется клиентами integration/mistral и integration/ollama
type ModelProvider interface {
	// Name возвращает тег бэкенда
	Name() domain.ModelProvider
	// Complete выполняет запрос генерации и возвращает текст ответа
	Complete(ctx context.Context, messages []domain.PromptMessage) (string, error)
}

// Dispatcher интерфейс маршрутизации запросов генерации по тегу бэкенда
type Dispatcher interface {
	// Resolve возвращает бэкенд по тегу; пустой тег разрешается в бэкенд по умолчанию
	Resolve(tag string) (ModelProvider, error)
}

type dispatcher struct {
	providers       map[domain.ModelProvider]ModelProvider
	defaultProvider domain.ModelProvider
	log             *logger.Logger
}

// NewDispatcher создает новый диспетчер бэкендов генерации
func NewDispatcher(defaultProvider domain.ModelProvider, log *logger.Logger, providers ...ModelProvider) Dispatcher {
	registry := make(map[domain.ModelProvider]ModelProvider, len(providers))
	for _, p := range providers {
		registry[p.Name()] = p
	}
	return &dispatcher{
		providers:       registry,
		defaultProvider: defaultProvider,
		log:             log,
	}
}

// Resolve возвращает бэкенд по тегу; пустой тег разрешается в бэкенд по умолчанию
func (d *dispatcher) Resolve(tag string) (ModelProvider, error) {
	resolved := domain.ModelProvider(tag)
	if tag == "" {
		resolved = d.defaultProvider
	}

	provider, ok := d.providers[resolved]
	if !ok {
		d.log.Warnw("Unknown model provider requested", "provider", resolved)
		return nil, fmt.Errorf("%w: unknown model provider %q", domain.ErrInvalidInput, resolved)
	}
	return provider, nil
}
