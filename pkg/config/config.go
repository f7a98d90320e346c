package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Chat      ChatConfig      `mapstructure:"chat"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // memory, sqlite or postgres
	Path     string `mapstructure:"path"`   // sqlite database file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ProvidersConfig struct {
	Default   string          `mapstructure:"default"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type AssistantConfig struct {
	Name         string  `mapstructure:"name"`
	Prompt       string  `mapstructure:"prompt"`
	ContextCount int     `mapstructure:"context_count"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Stream       bool    `mapstructure:"stream"`
}

type ChatConfig struct {
	RenameDelayMS int    `mapstructure:"rename_delay_ms"`
	SummaryModel  string `mapstructure:"summary_model"`
	ExportDir     string `mapstructure:"export_dir"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "quill.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("providers.default", "openai")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	v.SetDefault("assistant.name", "Assistant")
	v.SetDefault("assistant.context_count", 20)
	v.SetDefault("assistant.temperature", 0.7)
	v.SetDefault("assistant.max_tokens", 1024)
	v.SetDefault("chat.rename_delay_ms", 1000)
	v.SetDefault("chat.summary_model", "")
	v.SetDefault("chat.export_dir", "exports")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.Providers.OpenAI.APIKey = apiKey
	}

	if apiKey := v.GetString("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Providers.Anthropic.APIKey = apiKey
	}

	if apiKey := v.GetString("GEMINI_API_KEY"); apiKey != "" {
		config.Providers.Gemini.APIKey = apiKey
	}

	return &config, nil
}
