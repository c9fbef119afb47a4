package maskfilter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// WordSource supplies the administered block-word list.
type WordSource interface {
	ListBlockedWords(ctx context.Context) ([]string, error)
}

// noiseClass matches characters commonly interposed to evade the filter:
// punctuation, combining marks, separators and format characters.
const noiseClass = `[\p{P}\p{M}\p{Z}\p{Cf}]`

// snapshot is an immutable compiled matcher. re is nil when the word list
// is empty.
type snapshot struct {
	re      *regexp.Regexp
	words   int
	builtAt time.Time
}

// Filter rewrites text for display, masking blocked words. The compiled
// matcher is cached with a TTL and swapped atomically on rebuild; readers
// holding the old snapshot are never blocked.
type Filter struct {
	source WordSource
	ttl    time.Duration
	logger *zap.Logger

	cur       atomic.Pointer[snapshot]
	rebuildMu sync.Mutex
}

func New(source WordSource, ttl time.Duration, logger *zap.Logger) *Filter {
	return &Filter{
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// Censor returns the display copy of text. Stored data is never touched;
// if nothing matches, text is returned unchanged.
func (f *Filter) Censor(ctx context.Context, text string) string {
	if text == "" {
		return text
	}
	snap := f.current(ctx)
	if snap == nil || snap.re == nil {
		// No word list (or first build failed): identity.
		return text
	}

	cleaned := normalize(text)
	if !snap.re.MatchString(cleaned) {
		return text
	}
	return snap.re.ReplaceAllStringFunc(cleaned, func(m string) string {
		return strings.Repeat("*", utf8.RuneCountInString(m))
	})
}

// Reload forces an immediate rebuild from the word store. Called by the
// admin surface after the list is edited.
func (f *Filter) Reload(ctx context.Context) error {
	f.rebuildMu.Lock()
	defer f.rebuildMu.Unlock()

	snap, err := f.build(ctx)
	if err != nil {
		return err
	}
	f.cur.Store(snap)
	return nil
}

// current returns a usable snapshot, rebuilding when the TTL has passed.
// A stale snapshot keeps serving while another goroutine rebuilds, and
// survives a failed rebuild.
func (f *Filter) current(ctx context.Context) *snapshot {
	snap := f.cur.Load()
	if snap != nil && time.Since(snap.builtAt) < f.ttl {
		return snap
	}

	if snap != nil {
		if !f.rebuildMu.TryLock() {
			return snap // rebuild in flight elsewhere
		}
		defer f.rebuildMu.Unlock()
		if cur := f.cur.Load(); cur != snap && time.Since(cur.builtAt) < f.ttl {
			return cur
		}
		fresh, err := f.build(ctx)
		if err != nil {
			f.logger.Warn("mask filter rebuild failed, serving stale matcher", zap.Error(err))
			return snap
		}
		f.cur.Store(fresh)
		return fresh
	}

	// First build: everyone waits once.
	f.rebuildMu.Lock()
	defer f.rebuildMu.Unlock()
	if cur := f.cur.Load(); cur != nil {
		return cur
	}
	fresh, err := f.build(ctx)
	if err != nil {
		f.logger.Error("mask filter initial build failed", zap.Error(err))
		return nil
	}
	f.cur.Store(fresh)
	return fresh
}

func (f *Filter) build(ctx context.Context) (*snapshot, error) {
	words, err := f.source.ListBlockedWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("mask filter: load words: %w", err)
	}

	var patterns []string
	for _, w := range words {
		p := wordPattern(w)
		if p != "" {
			patterns = append(patterns, p)
		}
	}

	snap := &snapshot{words: len(patterns), builtAt: time.Now()}
	if len(patterns) == 0 {
		return snap, nil
	}

	re, err := regexp.Compile(`(?i)(?:` + strings.Join(patterns, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("mask filter: compile: %w", err)
	}
	snap.re = re

	f.logger.Info("mask filter rebuilt", zap.Int("words", snap.words))
	return snap, nil
}

// wordPattern compiles one trigger word into a pattern that tolerates
// noise characters between its runes, so "s.p.a.m" still matches "spam".
func wordPattern(word string) string {
	word = normalize(strings.TrimSpace(word))
	if word == "" {
		return ""
	}
	parts := make([]string, 0, utf8.RuneCountInString(word))
	for _, r := range word {
		parts = append(parts, regexp.QuoteMeta(string(r)))
	}
	return strings.Join(parts, noiseClass+"*")
}

// normalize applies NFKC and drops format runes (zero-width space, joiner,
// BOM and friends) so block evasion via invisible characters still matches.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}
