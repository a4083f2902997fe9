package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/config"
	httphandler "github.com/windfall/drill_service/internal/handler/http"
	"github.com/windfall/drill_service/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Health       *httphandler.HealthHandler
	Reading      *httphandler.ReadingHandler
	Presentation *httphandler.PresentationHandler
	Speaking     *httphandler.SpeakingHandler
	Adult        *httphandler.AdultHandler
	Writing      *httphandler.WritingHandler
	History      *httphandler.HistoryHandler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewRouter builds the route tree. audioDir is served under /audio when
// non-empty.
func NewRouter(cfg *config.Config, log zerolog.Logger, h Handlers, auth middleware.TokenValidator, audioDir string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (public)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)

	// Generated audio (public, short lived)
	if audioDir != "" {
		r.Handle("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(audioDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(auth))

		r.Route("/reading", func(r chi.Router) {
			r.Post("/sight-word-practice/sight_words", h.Reading.SightWords)
			r.Get("/comprehension/generate_comprehension", h.Reading.Comprehension)
			r.Get("/phoneme-flashcards/generate_phoneme_flashcards", h.Reading.PhonemeFlashcards)
		})

		r.Route("/presentation", func(r chi.Router) {
			r.Get("/power-words/get_power_words", h.Presentation.GetPowerWords)
			r.Post("/power-words/power_words", h.Presentation.ScorePowerWords)
			r.Get("/flow-chain/get_flow_chain", h.Presentation.GetFlowChain)
			r.Post("/flow-chain/flow_chain", h.Presentation.ScoreFlowChain)
			r.Get("/context-spin/get_context_spin", h.Presentation.GetContextSpin)
			r.Post("/context-spin/context_spin", h.Presentation.ScoreContextSpin)
			r.Get("/precision-drill/get_precision_drill", h.Presentation.GetPrecisionDrill)
			r.Post("/precision-drill/precision_drill", h.Presentation.ScorePrecisionDrill)
		})

		r.Route("/speaking", func(r chi.Router) {
			r.Get("/listen-speak/get_listen_speak", h.Speaking.GetListenSpeak)
			r.Post("/listen-speak/listen_speak", h.Speaking.ScoreListenSpeak)
			r.Get("/phrase-repeat/get_phrase_repeat", h.Speaking.GetPhraseRepeat)
			r.Post("/phrase-repeat/phrase_repeat", h.Speaking.ScorePhraseRepeat)
			r.Get("/pronunciation/get_pronunciation", h.Speaking.GetPronunciation)
			r.Post("/pronunciation/pronunciation", h.Speaking.ScorePronunciation)
			r.Get("/vocabulary-challenge/get_vocabulary", h.Speaking.GetVocabulary)
			r.Post("/vocabulary-challenge/vocabulary_challenge", h.Speaking.ScoreVocabulary)
		})

		r.Route("/adult", func(r chi.Router) {
			r.Get("/word-flash/get_word_flash", h.Adult.GetWordFlash)
			r.Post("/word-flash/word_flash", h.Adult.ScoreWordFlash)
			r.Get("/word-parts-workshop/get_word_parts", h.Adult.GetWordParts)
			r.Get("/sentence-builder/get_sentences", h.Adult.GetSentences)
			r.Get("/phrase-maker/get_phrases", h.Adult.GetPhrases)
			r.Get("/phoneme-mapping/get_phenome_mapping", h.Adult.GetPhonemeMapping)
			r.Get("/auditory-discrimination/get_auditory_discrimination", h.Adult.GetAuditoryDiscrimination)
		})

		r.Post("/writing/topic", h.Writing.Topic)
		r.Post("/writing/final", h.Writing.Final)

		r.Get("/history/{service}", h.History.Recent)
	})

	return r
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(cfg *config.Config, log zerolog.Logger, handler http.Handler) *HTTPServer {
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		log:    log,
	}
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
