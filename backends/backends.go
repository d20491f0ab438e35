// Package backends provides a unified interface to the chat model backends
package backends

import (
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/ollamacli/backends/registry"
	"github.com/tmc/ollamacli/backends/retry"
	"github.com/tmc/ollamacli/options"

	// Register all backends
	_ "github.com/tmc/ollamacli/backends/dummy"
	_ "github.com/tmc/ollamacli/backends/ollama"
)

// InitializeModel initializes the model based on the given configuration.
// Requests that cannot reach the server are retried cfg.Retries times.
func InitializeModel(cfg *options.Config, providerOpts ...options.InferenceProviderOption) (llms.Model, error) {
	model, err := registry.InitializeModel(cfg, providerOpts...)
	if err != nil || cfg.Retries <= 0 {
		return model, err
	}
	rc := retry.DefaultConfig
	rc.MaxAttempts = cfg.Retries + 1
	return retry.Wrap(model, rc), nil
}

// WithHTTPClient returns an option to set the HTTP client for the inference provider
func WithHTTPClient(client *http.Client) options.InferenceProviderOption {
	return registry.WithHTTPClient(client)
}
