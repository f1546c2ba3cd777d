package internal

import "github.com/ternlund/datapact/internal/genai"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	generator genai.Generator
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithGenerator overrides the generation client (used by tests and
// local development to avoid a live model endpoint).
func WithGenerator(g genai.Generator) Option {
	return func(a *application) {
		a.generator = g
	}
}
