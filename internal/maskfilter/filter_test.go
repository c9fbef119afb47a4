package maskfilter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWordSource struct {
	mu    sync.Mutex
	words []string
	err   error
	calls int
}

func (s *fakeWordSource) ListBlockedWords(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.words, nil
}

func (s *fakeWordSource) set(words []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words = words
	s.err = err
}

func newTestFilter(t *testing.T, words ...string) (*Filter, *fakeWordSource) {
	t.Helper()
	src := &fakeWordSource{words: words}
	return New(src, time.Minute, zap.NewNop()), src
}

func TestCensor_EvasionVariants(t *testing.T) {
	f, _ := newTestFilter(t, "spam")
	ctx := context.Background()

	t.Run("plain word is masked", func(t *testing.T) {
		assert.Equal(t, "****", f.Censor(ctx, "spam"))
	})

	t.Run("punctuation between letters is masked", func(t *testing.T) {
		out := f.Censor(ctx, "s.p.a.m")
		assert.NotContains(t, out, "spam")
		assert.Contains(t, out, "*")
	})

	t.Run("zero width joined is masked", func(t *testing.T) {
		out := f.Censor(ctx, "s​pam")
		assert.Equal(t, "****", out)
	})

	t.Run("trigger as substring with noise is masked", func(t *testing.T) {
		out := f.Censor(ctx, "spaming")
		assert.NotContains(t, out, "spam")
	})

	t.Run("unrelated text returned byte for byte", func(t *testing.T) {
		in := "hello there, nothing to see"
		assert.Equal(t, in, f.Censor(ctx, in))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, "****", f.Censor(ctx, "SpAm"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", f.Censor(ctx, ""))
	})
}

func TestCensor_EmptyWordListIsIdentity(t *testing.T) {
	f, src := newTestFilter(t)
	ctx := context.Background()

	in := "spam and anything else passes through"
	assert.Equal(t, in, f.Censor(ctx, in))
	assert.Equal(t, 1, src.calls, "empty list still builds exactly one snapshot")
}

func TestReload_SwapsMatcher(t *testing.T) {
	f, src := newTestFilter(t, "spam")
	ctx := context.Background()

	assert.Equal(t, "****", f.Censor(ctx, "spam"))
	assert.Equal(t, "eggs", f.Censor(ctx, "eggs"))

	src.set([]string{"eggs"}, nil)
	require.NoError(t, f.Reload(ctx))

	assert.Equal(t, "spam", f.Censor(ctx, "spam"), "old word dropped after reload")
	assert.Equal(t, "****", f.Censor(ctx, "eggs"), "new word picked up")
}

func TestReload_FailureKeepsServingOldSnapshot(t *testing.T) {
	f, src := newTestFilter(t, "spam")
	ctx := context.Background()

	require.Equal(t, "****", f.Censor(ctx, "spam"))

	src.set(nil, errors.New("store down"))
	require.Error(t, f.Reload(ctx))

	assert.Equal(t, "****", f.Censor(ctx, "spam"), "stale matcher still serves")
}

func TestCensor_TTLExpiryRebuilds(t *testing.T) {
	src := &fakeWordSource{words: []string{"spam"}}
	f := New(src, time.Millisecond, zap.NewNop())
	ctx := context.Background()

	require.Equal(t, "****", f.Censor(ctx, "spam"))

	src.set([]string{"eggs"}, nil)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, "****", f.Censor(ctx, "eggs"), "expired snapshot rebuilt on demand")
}

func TestCensor_ConcurrentReadersAndRebuilds(t *testing.T) {
	src := &fakeWordSource{words: []string{"spam"}}
	f := New(src, time.Millisecond, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				out := f.Censor(ctx, "some spam here")
				if !strings.Contains(out, "****") {
					t.Error("expected mask in output")
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_ = f.Reload(ctx)
		}
	}()
	wg.Wait()
}
