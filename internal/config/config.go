package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	LLM struct {
		// DefaultProvider провайдер по умолчанию, когда клиент не указал его явно ("hosted")
		DefaultProvider string `mapstructure:"defaultProvider"`
		// MaxLengthRetries максимальное число попыток уложить ответ в лимит длины
		MaxLengthRetries int `mapstructure:"maxLengthRetries"`
		// SystemPrompt базовая системная инструкция (параметризуется лимитом длины)
		SystemPrompt string `mapstructure:"systemPrompt"`
		// ResponseLanguage необязательная языковая директива для ответов модели
		ResponseLanguage string `mapstructure:"responseLanguage"`
		// FallbackMessage короткий ответ-заглушка после исчерпания попыток
		FallbackMessage string `mapstructure:"fallbackMessage"`
		Mistral         struct {
			APIKey  string `mapstructure:"apiKey"`
			BaseURL string `mapstructure:"baseUrl"`
			Model   string `mapstructure:"model"`
		} `mapstructure:"mistral"`
		Ollama struct {
			BaseURL string `mapstructure:"baseUrl"`
			Model   string `mapstructure:"model"`
		} `mapstructure:"ollama"`
	} `mapstructure:"llm"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
}

// LoadConfig загружает конфигурацию из файла или переменных окружения.
func LoadConfig(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env опционален: в контейнере все приходит через окружение
		_ = godotenv.Load()
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv() // Чтение переменных окружения

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("llm.defaultProvider", "hosted")
	viper.SetDefault("llm.maxLengthRetries", 3)
	viper.SetDefault("llm.mistral.baseUrl", "https://api.mistral.ai")
	viper.SetDefault("llm.mistral.model", "mistral-large-latest")
	viper.SetDefault("llm.ollama.baseUrl", "http://localhost:11434")
	viper.SetDefault("llm.ollama.model", "llama3")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
