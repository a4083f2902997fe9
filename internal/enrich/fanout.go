// Package enrich attaches synthesized audio to generated text fragments.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/media"
)

// Options tunes a Fanout.
type Options struct {
	// Voice is passed to the synthesizer; empty uses the provider default.
	Voice string
	// TaskTimeout bounds each synthesis+store task. 0 disables the bound.
	TaskTimeout time.Duration
	// Concurrency caps in-flight tasks. 0 starts every task at once.
	Concurrency int
}

// Fanout synthesizes one audio file per unique fragment, concurrently.
type Fanout struct {
	synth client.Synthesizer
	store media.Store
	opts  Options
	log   zerolog.Logger
}

// New creates a Fanout.
func New(synth client.Synthesizer, store media.Store, opts Options, log zerolog.Logger) *Fanout {
	return &Fanout{
		synth: synth,
		store: store,
		opts:  opts,
		log:   log.With().Str("component", "fanout").Logger(),
	}
}

// FileName is the stored name for the fragment at index.
func FileName(prefix string, index int, text string) string {
	return fmt.Sprintf("%s_%d_%016x.mp3", prefix, index, xxhash.Sum64String(text))
}

// Dedup returns the unique fragments in first-seen order and, for every
// input position, the index of its unique fragment.
func Dedup(fragments []string) (unique []string, slots []int) {
	seen := make(map[string]int, len(fragments))
	slots = make([]int, len(fragments))
	for pos, f := range fragments {
		slot, ok := seen[f]
		if !ok {
			slot = len(unique)
			seen[f] = slot
			unique = append(unique, f)
		}
		slots[pos] = slot
	}
	return unique, slots
}

// Run returns one audio URL per fragment position, nil where synthesis
// failed or timed out. It waits for every task before returning; a failed
// task never cancels its siblings.
func (f *Fanout) Run(ctx context.Context, prefix string, fragments []string) []*string {
	unique, slots := Dedup(fragments)
	refs := make([]*string, len(unique))

	var g errgroup.Group
	if f.opts.Concurrency > 0 {
		g.SetLimit(f.opts.Concurrency)
	}
	for i, text := range unique {
		if strings.TrimSpace(text) == "" {
			continue
		}
		g.Go(func() error {
			url, err := f.task(ctx, prefix, i, text)
			if err != nil {
				f.log.Warn().Err(err).Str("prefix", prefix).Int("index", i).Msg("Audio synthesis failed")
				return nil
			}
			refs[i] = &url
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*string, len(fragments))
	for pos, slot := range slots {
		out[pos] = refs[slot]
	}

	failed := 0
	for _, r := range refs {
		if r == nil {
			failed++
		}
	}
	f.log.Debug().Str("prefix", prefix).Int("fragments", len(fragments)).Int("unique", len(unique)).Int("failed", failed).Msg("Fan-out settled")
	return out
}

// task runs one synthesis under the per-task deadline. The deadline holds
// even when the provider ignores ctx.
func (f *Fanout) task(ctx context.Context, prefix string, index int, text string) (string, error) {
	if f.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.TaskTimeout)
		defer cancel()
	}

	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		url, err := f.synthesizeAndStore(ctx, prefix, index, text)
		done <- result{url, err}
	}()

	select {
	case r := <-done:
		return r.url, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *Fanout) synthesizeAndStore(ctx context.Context, prefix string, index int, text string) (string, error) {
	audio, err := f.synth.Synthesize(ctx, text, f.opts.Voice)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio for %q", text)
	}
	return f.store.Put(ctx, FileName(prefix, index, text), audio, media.ContentTypeMP3)
}
