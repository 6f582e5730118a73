package config

// SentryConfig enables error reporting of failed solves. An empty DSN
// disables it.
type SentryConfig struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
	Release     string `json:"release"`
}
