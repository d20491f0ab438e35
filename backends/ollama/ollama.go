// Package ollama provides the Ollama backend implementation
package ollama

import (
	"strings"

	"github.com/tmc/langchaingo/httputil"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/ollamacli/backends/registry"
	"github.com/tmc/ollamacli/options"
)

func init() {
	registry.Register("ollama", Constructor)
}

// Constructor creates a new Ollama backend
func Constructor(cfg *options.Config, opts *options.InferenceProviderOptions) (llms.Model, error) {
	ollamaOpts := []ollama.Option{
		ollama.WithModel(cfg.Model),
	}
	if host := ServerURL(cfg.Host); host != "" {
		ollamaOpts = append(ollamaOpts, ollama.WithServerURL(host))
	}
	switch {
	case opts != nil && opts.HTTPClient != nil:
		ollamaOpts = append(ollamaOpts, ollama.WithHTTPClient(opts.HTTPClient))
	case cfg.Debug:
		ollamaOpts = append(ollamaOpts, ollama.WithHTTPClient(httputil.DebugHTTPClient))
	}
	return ollama.New(ollamaOpts...)
}

// ServerURL normalizes an OLLAMA_HOST style value ("host:port", ":port",
// or a full URL) into a URL.
func ServerURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/")
	}
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + strings.TrimSuffix(host, "/")
}
