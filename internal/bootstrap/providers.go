package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/ports"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/cache"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/websearch"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/websearch/duckduckgo"
	"github.com/kirillkom/grounded-assistant/internal/infrastructure/websearch/searchserver"
	"github.com/kirillkom/grounded-assistant/internal/observability/metrics"
)

func newExecutor(cfg config.Config, logger *slog.Logger, providers *metrics.ProviderMetrics) *resilience.Executor {
	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	policy.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	policy.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	policy.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		policy.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	policy.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	policy.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout

	return resilience.NewExecutor(policy,
		resilience.WithLogger(logger),
		resilience.WithStateObserver(providers.ObserveBreakerState),
	)
}

type embedding struct {
	embedder ports.Embedder
	method   string
	closeFn  func()
}

// newEmbedder selects the embedding provider and wraps it with the Redis
// cache when REDIS_ADDR is set. An unreachable Redis leaves the provider
// undecorated.
func newEmbedder(ctx context.Context, cfg config.Config, executor *resilience.Executor, logger *slog.Logger, providers *metrics.ProviderMetrics) (embedding, error) {
	var (
		inner  ports.Embedder
		method string
	)
	switch cfg.EmbeddingProvider {
	case "", "ollama":
		e := ollama.NewEmbedder(ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor))
		inner, method = e, e.Method()
	case "openai":
		e := openai.NewEmbedder(openai.New(openAIConfig(cfg), executor))
		inner, method = e, e.Method()
	default:
		return embedding{}, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}

	out := embedding{embedder: inner, method: method, closeFn: func() {}}
	if cfg.RedisAddr == "" {
		return out, nil
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.EmbeddingCacheTTL,
	})
	if err != nil {
		logger.Warn("embedding_cache_disabled", "addr", cfg.RedisAddr, "error", err)
		return out, nil
	}
	if err := store.Ping(ctx); err != nil {
		logger.Warn("embedding_cache_unreachable", "addr", cfg.RedisAddr, "error", err)
	}
	out.embedder = cache.NewCachedEmbedder(inner, store, method, providers, logger)
	out.closeFn = store.Close
	return out, nil
}

func newGenerator(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.AnswerGenerator, error) {
	switch cfg.GenerationProvider {
	case "", "ollama":
		client := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
		return ollama.NewGenerator(client, cfg.GenerationTemperature), nil
	case "openai":
		return openai.NewGenerator(openai.New(openAIConfig(cfg), executor)), nil
	case "gemini":
		generator, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, float32(cfg.GenerationTemperature), executor)
		if err != nil {
			return nil, fmt.Errorf("init gemini generator: %w", err)
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}

// newWebSearcher returns nil when web search is disabled.
func newWebSearcher(cfg config.Config, executor *resilience.Executor) (ports.WebSearcher, error) {
	var searcher ports.WebSearcher
	switch cfg.WebSearchProvider {
	case "none", "off", "disabled":
		return nil, nil
	case "", "duckduckgo":
		searcher = duckduckgo.New(cfg.DuckDuckGoURL, executor)
	case "searchserver":
		searcher = searchserver.New(cfg.SearchServerURL, cfg.SearchServerEngine, executor)
	default:
		return nil, fmt.Errorf("unknown web search provider %q", cfg.WebSearchProvider)
	}
	return websearch.NewRateLimited(searcher, cfg.WebSearchRPS, cfg.WebSearchBurst), nil
}

func openAIConfig(cfg config.Config) openai.Config {
	return openai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		ChatModel:   cfg.OpenAIChatModel,
		EmbedModel:  cfg.OpenAIEmbedModel,
		Dimensions:  cfg.OpenAIEmbedDimensions,
		Temperature: float32(cfg.GenerationTemperature),
	}
}
