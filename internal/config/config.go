package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

const DefaultBaseURL = "http://127.0.0.1:8000/api"

type Config struct {
	POSBaseURL  string        `koanf:"pos_base_url"`
	POSUsername string        `koanf:"pos_username"`
	POSPassword string        `koanf:"pos_password"`
	LLMBaseURL  string        `koanf:"llm_base_url"`
	LLMAPIKey   string        `koanf:"llm_api_key"`
	LLMModel    string        `koanf:"llm_model"`
	Timeout     time.Duration `koanf:"timeout"`
	RateLimit   float64       `koanf:"rate_limit"`
	LogFile     string        `koanf:"log_file"`
	Debug       bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		POSBaseURL: DefaultBaseURL,
		Timeout:    20 * time.Second,
		LogFile:    "./kasir.log",
		Debug:      false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}
