// Package exercise runs the generation pipeline shared by every exercise:
// compose a prompt around the freshness exclusions, call the model, extract
// the JSON reply, attach audio and remember what was produced.
package exercise

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/enrich"
	"github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/freshness"
	"github.com/windfall/drill_service/internal/llmjson"
	"github.com/windfall/drill_service/internal/prompt"
)

// Request carries the caller's generation parameters.
type Request struct {
	UserID string
	Age    int
	Level  string
	Topic  string
	Count  int
}

// Recipe describes one exercise kind. Only Name, Prompt and Primary are
// required.
type Recipe[T any] struct {
	// Name identifies the cache, the audio file prefix and log lines.
	Name string
	// Seeds are the always-excluded "overused" examples.
	Seeds []string
	// ArrayKey names the list to salvage from a truncated reply.
	ArrayKey string
	Sampling client.Sampling

	Prompt func(req Request) prompt.Spec
	// Primary is the batch recorded in the freshness cache.
	Primary func(out *T) []string
	// Fallback replaces an unextractable reply; nil keeps the zero value.
	Fallback func(req Request) T
	// Finish normalizes the decoded value before enrichment.
	Finish func(out *T, req Request)
	// Fragments lists texts to synthesize; Attach writes the URLs back in
	// the same order. Both nil means no audio.
	Fragments func(out *T) []string
	Attach    func(out *T, refs []*string)
}

// Generation is what observers are told after each successful call.
type Generation struct {
	Service     string    `json:"service"`
	UserID      string    `json:"user_id,omitempty"`
	Items       []string  `json:"items"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Observer is notified after the cache has been updated. Errors are logged
// and never fail the request.
type Observer interface {
	Observe(ctx context.Context, g Generation) error
}

// StoreFactory returns the freshness store for a named exercise.
type StoreFactory func(name string) freshness.Store

// Deps are the collaborators shared by every assembler.
type Deps struct {
	LLM       client.Completer
	Fanout    *enrich.Fanout
	Stores    StoreFactory
	Capacity  int
	Observers []Observer
	Log       zerolog.Logger
}

// Assembler produces T values for one exercise kind.
type Assembler[T any] struct {
	recipe    Recipe[T]
	llm       client.Completer
	extractor *llmjson.Extractor
	cache     *freshness.Cache
	fanout    *enrich.Fanout
	observers []Observer
	log       zerolog.Logger
}

// New builds an Assembler with its own freshness cache.
func New[T any](deps Deps, recipe Recipe[T]) *Assembler[T] {
	log := deps.Log.With().Str("exercise", recipe.Name).Logger()

	var store freshness.Store
	if deps.Stores != nil {
		store = deps.Stores(recipe.Name)
	}

	return &Assembler[T]{
		recipe:    recipe,
		llm:       deps.LLM,
		extractor: llmjson.New(log),
		cache:     freshness.New(recipe.Name, recipe.Seeds, deps.Capacity, store, log),
		fanout:    deps.Fanout,
		observers: deps.Observers,
		log:       log,
	}
}

// Name returns the recipe name.
func (a *Assembler[T]) Name() string {
	return a.recipe.Name
}

// Cache exposes the freshness cache.
func (a *Assembler[T]) Cache() *freshness.Cache {
	return a.cache
}

// Generate runs one generation. Malformed model output degrades to the
// fallback or zero value; only provider failures return an error.
func (a *Assembler[T]) Generate(ctx context.Context, req Request) (T, error) {
	var out T

	text := prompt.Compose(a.recipe.Prompt(req), a.cache.ExclusionText(ctx))
	raw, err := a.llm.Complete(ctx, client.UserPrompt(text, a.recipe.Sampling))
	if err != nil {
		a.log.Error().Err(err).Msg("Completion failed")
		return out, providerError(a.recipe.Name, err)
	}

	if !a.extractor.Decode(raw, a.recipe.ArrayKey, &out) {
		a.log.Warn().Msg("Unusable completion, returning default result")
		if a.recipe.Fallback != nil {
			out = a.recipe.Fallback(req)
		}
	}
	if a.recipe.Finish != nil {
		a.recipe.Finish(&out, req)
	}

	if a.fanout != nil && a.recipe.Fragments != nil && a.recipe.Attach != nil {
		if frags := a.recipe.Fragments(&out); len(frags) > 0 {
			a.recipe.Attach(&out, a.fanout.Run(ctx, a.recipe.Name, frags))
		}
	}

	batch := a.recipe.Primary(&out)
	if dup := a.cache.Overlap(ctx, batch); len(dup) > 0 {
		a.log.Warn().Strs("repeated", dup).Msg("Model reused excluded items")
	}
	_ = a.cache.Record(ctx, batch)

	a.notify(ctx, Generation{
		Service:     a.recipe.Name,
		UserID:      req.UserID,
		Items:       batch,
		GeneratedAt: time.Now().UTC(),
	})
	return out, nil
}

func (a *Assembler[T]) notify(ctx context.Context, g Generation) {
	for _, o := range a.observers {
		if err := o.Observe(ctx, g); err != nil {
			a.log.Warn().Err(err).Msg("Generation observer failed")
		}
	}
}

// providerError keeps AppErrors from the client layer and tags anything
// else as an AI service failure.
func providerError(name string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	return errors.AIService(fmt.Sprintf("%s generation failed", name), err)
}
