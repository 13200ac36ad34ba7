package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dhoini/Chat-microservice/internal/domain"
	"github.com/Dhoini/Chat-microservice/pkg/logger"
)

// Client представляет клиент для работы с собственным inference-эндпоинтом Ollama
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// Config конфигурация для клиента Ollama
type Config struct {
	BaseURL string
	Model   string
}

// NewClient создает новый клиент Ollama
func NewClient(cfg Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		log:        log,
	}
}

// Name возвращает тег бэкенда
func (c *Client) Name() domain.ModelProvider {
	return domain.ProviderSelfHosted
}

// chatRequest тело запроса /api/chat; стриминг выключен, ответ приходит целиком
type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []domain.PromptMessage `json:"messages"`
	Stream   bool                   `json:"stream"`
}

// chatResponse ответ /api/chat
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Complete выполняет запрос генерации и возвращает текст ответа модели
func (c *Client) Complete(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	c.log.Debugw("Requesting Ollama chat completion", "model", c.model, "messages", len(messages))

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", domain.NewGenerationError(c.Name(), "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		c.baseURL+"/api/chat",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", domain.NewGenerationError(c.Name(), "failed to create request", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("Ollama request failed", "error", err)
		return "", domain.NewGenerationError(c.Name(), "failed to execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Errorw("Ollama returned non-OK status", "status", resp.StatusCode)
		return "", domain.NewGenerationError(c.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var completionResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return "", domain.NewGenerationError(c.Name(), "failed to decode response", err)
	}

	if completionResp.Message.Content == "" {
		return "", domain.NewGenerationError(c.Name(), "empty completion", nil)
	}

	return completionResp.Message.Content, nil
}
