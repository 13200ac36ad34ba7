package mistral

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

// Client представляет клиент для работы с Mistral AI API
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// Config конфигурация для клиента Mistral
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient создает новый клиент Mistral
func NewClient(cfg Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

// Name возвращает тег бэкенда
func (c *Client) Name() domain.ModelProvider {
	return domain.ProviderHosted
}

// chatCompletionRequest тело запроса chat completions
type chatCompletionRequest struct {
	Model    string                 `json:"model"`
	Messages []domain.PromptMessage `json:"messages"`
}

// chatCompletionResponse ответ chat completions
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Complete выполняет запрос генерации и возвращает текст первого варианта ответа.
// Транспортная ошибка, неуспешный статус и пустой ответ сводятся к GenerationError.
func (c *Client) Complete(ctx context.Context, messages []domain.PromptMessage) (string, error) {
	c.log.Debugw("Requesting Mistral chat completion", "model", c.model, "messages", len(messages))

	body, err := json.Marshal(chatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", domain.NewGenerationError(c.Name(), "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		c.baseURL+"/v1/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", domain.NewGenerationError(c.Name(), "failed to create request", err)
	}

	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("Mistral request failed", "error", err)
		return "", domain.NewGenerationError(c.Name(), "failed to execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Errorw("Mistral returned non-OK status", "status", resp.StatusCode)
		return "", domain.NewGenerationError(c.Name(), fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var completionResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return "", domain.NewGenerationError(c.Name(), "failed to decode response", err)
	}

	if len(completionResp.Choices) == 0 || completionResp.Choices[0].Message.Content == "" {
		return "", domain.NewGenerationError(c.Name(), "empty completion", nil)
	}

	c.log.Debugw("Mistral completion received", "id", completionResp.ID)
	return completionResp.Choices[0].Message.Content, nil
}
