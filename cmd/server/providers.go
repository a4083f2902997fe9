package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/config"
	"github.com/windfall/drill_service/internal/freshness"
	"github.com/windfall/drill_service/internal/media"
)

// providers holds the model clients selected by configuration.
type providers struct {
	llm    client.Completer
	tts    client.Synthesizer
	stt    client.Transcriber
	images client.ImageGenerator
}

// lazyGemini creates the Gemini client on first use so it is only built
// when a provider actually selects it.
type lazyGemini struct {
	ctx context.Context
	cfg *config.Config
	c   *client.GeminiClient
}

func (g *lazyGemini) get() (*client.GeminiClient, error) {
	if g.c != nil {
		return g.c, nil
	}
	c, err := client.NewGeminiClient(g.ctx, g.cfg.GCPProjectID, g.cfg.GCPLocation, g.cfg.GeminiSAPath, g.cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	g.c = c
	return c, nil
}

func buildProviders(ctx context.Context, cfg *config.Config, store media.Store, log zerolog.Logger) (*providers, error) {
	oa := client.NewOpenAIClient(client.OpenAIOptions{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.OpenAIChatModel,
		TTSModel:   cfg.OpenAITTSModel,
		TTSVoice:   cfg.OpenAITTSVoice,
		STTModel:   cfg.OpenAISTTModel,
		ImageModel: cfg.OpenAIImageModel,
	})
	gemini := &lazyGemini{ctx: ctx, cfg: cfg}
	p := &providers{}

	switch cfg.CompletionProvider {
	case "azure":
		p.llm = client.NewAzureChatClient(cfg.AzureChatEndpoint, cfg.AzureChatKey)
	case "gemini":
		g, err := gemini.get()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
		}
		p.llm = g
	default:
		p.llm = oa
	}

	switch cfg.TTSProvider {
	case "azure":
		p.tts = client.NewAzureSpeechClient(cfg.AzureAISpeechKey, cfg.AzureServiceRegion, cfg.AzureSpeechVoice)
	default:
		p.tts = oa
	}

	switch cfg.STTProvider {
	case "azure":
		p.stt = client.NewAzureWhisperClient(cfg.AzureWhisperEndpoint, cfg.AzureWhisperKey)
	default:
		p.stt = oa
	}

	switch cfg.ImageProvider {
	case "none":
		log.Warn().Msg("Image generation disabled, comprehension passages will have no image")
	case "gemini":
		g, err := gemini.get()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Imagen: %w", err)
		}
		p.images = media.NewStoredImageGenerator(g, store)
	default:
		p.images = oa
	}

	log.Info().
		Str("completion", cfg.CompletionProvider).
		Str("tts", cfg.TTSProvider).
		Str("stt", cfg.STTProvider).
		Str("image", cfg.ImageProvider).
		Msg("Providers initialized")
	return p, nil
}

// buildAudioStore returns the media store and, for the local store, the
// directory to serve and sweep.
func buildAudioStore(ctx context.Context, cfg *config.Config) (media.Store, string, func(), error) {
	switch cfg.AudioStore {
	case "r2":
		c, err := client.NewCloudflareClient(ctx,
			cfg.CloudflareAccessKeyID,
			cfg.CloudflareSecretKey,
			cfg.CloudflareR2Endpoint,
			cfg.CloudflareBucketName,
			cfg.CloudflarePublicURL,
			"audio/",
		)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize Cloudflare R2: %w", err)
		}
		return c, "", func() {}, nil
	case "gcs":
		c, err := client.NewStorageClient(ctx, cfg.GCSBucketName, cfg.GCSCredentialsFile, "audio/")
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to initialize GCS: %w", err)
		}
		return c, "", c.Close, nil
	default:
		s, err := media.NewLocalStore(cfg.AudioDir, cfg.AudioPublicBaseURL)
		if err != nil {
			return nil, "", nil, err
		}
		return s, s.Dir(), func() {}, nil
	}
}

// storeFactory picks the freshness backend. Each exercise gets its own
// store; redis stores share one connection.
func storeFactory(cfg *config.Config, redis *client.RedisClient) func(name string) freshness.Store {
	if cfg.FreshnessBackend == "redis" && redis != nil {
		return func(name string) freshness.Store {
			return freshness.NewRedisStore(redis, name)
		}
	}
	return func(string) freshness.Store {
		return freshness.NewMemoryStore()
	}
}
