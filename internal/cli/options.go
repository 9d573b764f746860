package cli

import "time"

type Options struct {
	Command    []string
	BaseURL    string
	Username   string
	Password   string
	JSON       bool
	Debug      bool
	LogFile    string
	Timeout    time.Duration
	RateLimit  float64
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
}
