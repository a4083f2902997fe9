package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts. Generation plus audio fan-out can take a while, so the
	// write timeout is generous.
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Provider selection
	CompletionProvider string `envconfig:"COMPLETION_PROVIDER" default:"openai"`
	TTSProvider        string `envconfig:"TTS_PROVIDER" default:"openai"`
	STTProvider        string `envconfig:"STT_PROVIDER" default:"openai"`
	ImageProvider      string `envconfig:"IMAGE_PROVIDER" default:"openai"`

	// OpenAI
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL"`
	OpenAIChatModel  string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-3.5-turbo"`
	OpenAITTSModel   string `envconfig:"OPENAI_TTS_MODEL" default:"tts-1"`
	OpenAITTSVoice   string `envconfig:"OPENAI_TTS_VOICE" default:"alloy"`
	OpenAISTTModel   string `envconfig:"OPENAI_STT_MODEL" default:"whisper-1"`
	OpenAIImageModel string `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
	ImageSize        string `envconfig:"IMAGE_SIZE" default:"1024x1024"`
	ImageQuality     string `envconfig:"IMAGE_QUALITY" default:"standard"`

	// Azure OpenAI (chat + whisper deployments)
	AzureChatEndpoint    string `envconfig:"AZURE_OPENAI_CHAT_ENDPOINT"`
	AzureChatKey         string `envconfig:"AZURE_OPENAI_CHAT_KEY"`
	AzureWhisperEndpoint string `envconfig:"AZURE_WHISPER_ENDPOINT"`
	AzureWhisperKey      string `envconfig:"AZURE_WHISPER_KEY"`

	// Azure AI Speech
	AzureAISpeechKey   string `envconfig:"AZURE_AI_SPEECH_KEY"`
	AzureServiceRegion string `envconfig:"AZURE_SERVICE_REGION"`
	AzureSpeechVoice   string `envconfig:"AZURE_SPEECH_VOICE" default:"en-US-AnaNeural"`

	// Gemini on Vertex AI
	GeminiSAPath string `envconfig:"GEMINI_SA_PATH"`
	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`
	GCPLocation  string `envconfig:"GCP_LOCATION" default:"asia-southeast1"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Audio storage
	AudioStore         string        `envconfig:"AUDIO_STORE" default:"local"`
	AudioDir           string        `envconfig:"AUDIO_DIR" default:"temp_audio"`
	AudioPublicBaseURL string        `envconfig:"AUDIO_PUBLIC_BASE_URL" default:"/audio"`
	AudioRetention     time.Duration `envconfig:"AUDIO_RETENTION" default:"6h"`
	AudioSweepInterval time.Duration `envconfig:"AUDIO_SWEEP_INTERVAL" default:"6h"`
	AudioSweepRetry    time.Duration `envconfig:"AUDIO_SWEEP_RETRY" default:"1h"`

	// Enrichment fan-out. Concurrency 0 means every unique fragment at once.
	EnrichTaskTimeout time.Duration `envconfig:"ENRICH_TASK_TIMEOUT" default:"20s"`
	EnrichConcurrency int           `envconfig:"ENRICH_CONCURRENCY" default:"0"`

	// Freshness cache
	FreshnessBackend  string `envconfig:"FRESHNESS_BACKEND" default:"memory"`
	FreshnessCapacity int    `envconfig:"FRESHNESS_CAPACITY" default:"5"`

	// Redis
	RedisURL string `envconfig:"REDIS_URL"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Pub/Sub generation events
	PubSubProjectID string `envconfig:"PUBSUB_PROJECT_ID"`
	PubSubTopic     string `envconfig:"PUBSUB_TOPIC"`

	// Cloudflare R2
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflarePublicURL   string `envconfig:"CLOUDFLARE_PUBLIC_URL"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Google Cloud Storage
	GCSBucketName      string `envconfig:"GCS_BUCKET_NAME"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`

	// Auth verification backend
	AuthBackendURL  string        `envconfig:"AUTH_BACKEND_URL"`
	AuthTimeout     time.Duration `envconfig:"AUTH_TIMEOUT" default:"10s"`
	AuthBypassToken string        `envconfig:"AUTH_BYPASS_TOKEN"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID,authtoken"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects provider and backend names the server cannot wire.
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"COMPLETION_PROVIDER", c.CompletionProvider, []string{"openai", "azure", "gemini"}},
		{"TTS_PROVIDER", c.TTSProvider, []string{"openai", "azure"}},
		{"STT_PROVIDER", c.STTProvider, []string{"openai", "azure"}},
		{"IMAGE_PROVIDER", c.ImageProvider, []string{"openai", "gemini", "none"}},
		{"AUDIO_STORE", c.AudioStore, []string{"local", "r2", "gcs"}},
		{"FRESHNESS_BACKEND", c.FreshnessBackend, []string{"memory", "redis"}},
	}
	for _, chk := range checks {
		if !oneOf(chk.value, chk.allowed) {
			return fmt.Errorf("invalid %s %q (want one of %v)", chk.name, chk.value, chk.allowed)
		}
	}
	if c.FreshnessCapacity < 1 {
		return fmt.Errorf("invalid FRESHNESS_CAPACITY %d", c.FreshnessCapacity)
	}
	if c.FreshnessBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("FRESHNESS_BACKEND=redis requires REDIS_URL")
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PubSubEnabled reports whether generation events should be published.
func (c *Config) PubSubEnabled() bool {
	return c.PubSubProjectID != "" && c.PubSubTopic != ""
}
