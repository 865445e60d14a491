package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server. It is built once at
// process start and passed by parameter into every component; nothing below
// cmd/ reads environment variables directly.
type Profile struct {
	// Slack workspace configuration
	SlackToken string // Bot token used for conversations.list / conversations.history
	Workspace  string // Human-readable workspace name embedded in the digest
	WindowDays int    // Trailing retrieval window in days (default: 7)

	// LLM configuration (OpenAI-compatible protocol)
	// All providers (openai, deepseek, zai, siliconflow, openrouter, ollama) use the same config
	LLMProvider  string // Provider identifier
	LLMAPIKey    string // LLM API key
	LLMBaseURL   string // LLM base URL (optional, has default per provider)
	LLMModel     string // Model name: gpt-4o, deepseek-chat, glm-4.7, etc.
	LLMMaxTokens int    // Max completion tokens for the digest call (default: 2000)
	LLMTimeout   int    // LLM request timeout in seconds (default: 120)

	// Server configuration
	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

// Provider default configurations for LLM.
// Used when the base URL or model is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.SlackToken = getEnvOrDefault("TEAMDIGEST_SLACK_TOKEN", "")
	p.Workspace = getEnvOrDefault("TEAMDIGEST_WORKSPACE", "Grassroots Marketing")
	p.WindowDays = getEnvOrDefaultInt("TEAMDIGEST_WINDOW_DAYS", 7)

	p.LLMProvider = getEnvOrDefault("TEAMDIGEST_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("TEAMDIGEST_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("TEAMDIGEST_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("TEAMDIGEST_LLM_MODEL", "")
	p.LLMMaxTokens = getEnvOrDefaultInt("TEAMDIGEST_LLM_MAX_TOKENS", 2000)
	p.LLMTimeout = getEnvOrDefaultInt("TEAMDIGEST_LLM_TIMEOUT_SECONDS", 120)

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("unknown LLM provider, treating as generic OpenAI-compatible", "provider", p.LLMProvider)
		}
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.WindowDays <= 0 {
		p.WindowDays = 7
	}
	if p.LLMMaxTokens <= 0 {
		p.LLMMaxTokens = 2000
	}

	if p.SlackToken == "" {
		return errors.New("slack token required (TEAMDIGEST_SLACK_TOKEN)")
	}
	if p.LLMAPIKey == "" {
		return errors.New("LLM api key required (TEAMDIGEST_LLM_API_KEY)")
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q, expected sqlite or postgres", p.Driver)
	}

	if p.Driver == "sqlite" {
		if p.Data != "" {
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		if p.DSN == "" {
			dbFile := fmt.Sprintf("teamdigest_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	} else if p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	return nil
}
