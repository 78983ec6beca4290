package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"ai_dungeon_master/generator"
)

// SecretsDir is where docker secrets are mounted.
var SecretsDir = "/run/secrets"

type Config struct {
	Addr        string `envconfig:"ADDR" default:"0.0.0.0:9779"`
	DBPath      string `envconfig:"DB_PATH" default:"~/.ai_dungeon_master/game_data.db"`
	StoriesPath string `envconfig:"STORIES_PATH"`

	AIProvider    string        `envconfig:"AI_PROVIDER" default:"openai"`
	AIModel       string        `envconfig:"AI_MODEL"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL"`
	AIMaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"400"`
	AITemperature float32       `envconfig:"AI_TEMPERATURE" default:"0.8"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console"`

	// Read from OPENAI_API_KEY / GEMINI_API_KEY or the matching secret file.
	AIAPIKey string `ignored:"true"`
}

// Load reads .env when present, then the environment and secrets.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	switch cfg.AIProvider {
	case generator.ProviderOpenAI:
		if cfg.AIModel == "" {
			cfg.AIModel = generator.DefaultOpenAIModel
		}
	case generator.ProviderGemini:
		if cfg.AIModel == "" {
			cfg.AIModel = generator.DefaultGeminiModel
		}
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}

	key, err := lookupSecret(cfg.AIProvider + "_api_key")
	if err != nil {
		return nil, err
	}
	cfg.AIAPIKey = key

	path, err := expandHome(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cfg.DBPath = path
	return &cfg, nil
}

// lookupSecret returns the upper-cased env var when set, else the docker
// secret file of the same lower-cased name. A missing secret is not an error.
func lookupSecret(name string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(strings.ToUpper(name))); v != "" {
		return v, nil
	}
	v, err := ReadSecret(name)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return v, err
}

// ReadSecret reads a docker secret from SecretsDir.
func ReadSecret(name string) (string, error) {
	path := filepath.Join(SecretsDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
