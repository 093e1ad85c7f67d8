package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"genadapter/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	hs, err := NewHistoryStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { hs.Close() })
	return hs
}

func TestHistoryStoreRecordAndRecent(t *testing.T) {
	hs := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, hs.Record(ctx, provider.Event{
		RequestID:      "req-1",
		Source:         "qwen",
		Model:          "qwen-plus",
		Modality:       provider.ModalityText,
		ThinkingBudget: 1000,
		PromptChars:    12,
		Duration:       1500 * time.Millisecond,
	}))
	require.NoError(t, hs.Record(ctx, provider.Event{
		Source:   "qwen",
		Model:    "qwen-vl-max",
		Modality: provider.ModalityVision,
		ImageRef: "/tmp/cat.png",
		Err:      errors.New("backend said no"),
	}))

	entries, err := hs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	vision, text := entries[0], entries[1]

	assert.Equal(t, "req-1", text.ID)
	assert.Equal(t, "llm", text.Modality)
	assert.Equal(t, 1000, text.ThinkingBudget)
	assert.Equal(t, 12, text.PromptChars)
	assert.Equal(t, int64(1500), text.DurationMS)
	assert.True(t, text.Succeeded())
	assert.WithinDuration(t, time.Now(), text.CreatedAt, time.Minute)

	assert.NotEmpty(t, vision.ID)
	assert.Equal(t, "vlm", vision.Modality)
	assert.Equal(t, "/tmp/cat.png", vision.ImageRef)
	assert.False(t, vision.Succeeded())
	assert.Equal(t, "backend said no", vision.Error)
}

func TestHistoryStoreRecentLimit(t *testing.T) {
	hs := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, hs.Record(ctx, provider.Event{
			RequestID: fmt.Sprintf("req-%d", i),
			Source:    "deepseek",
			Model:     "deepseek-chat",
			Modality:  provider.ModalityText,
		}))
	}

	entries, err := hs.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-4", entries[0].ID)
	assert.Equal(t, "req-3", entries[1].ID)

	entries, err = hs.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestHistoryStoreCount(t *testing.T) {
	hs := newTestStore(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 12; i++ {
		m := provider.ModalityText
		if i%3 == 0 {
			m = provider.ModalityVision
		}
		g.Go(func() error {
			return hs.Record(ctx, provider.Event{Source: "glm", Model: "glm-4v", Modality: m})
		})
	}
	require.NoError(t, g.Wait())

	total, err := hs.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 12, total)

	vision, err := hs.Count(ctx, provider.ModalityVision)
	require.NoError(t, err)
	assert.Equal(t, 4, vision)
}

func TestHistoryStoreDuplicateID(t *testing.T) {
	hs := newTestStore(t)
	ctx := context.Background()

	ev := provider.Event{RequestID: "same", Source: "kimi", Model: "k2", Modality: provider.ModalityText}
	require.NoError(t, hs.Record(ctx, ev))
	assert.Error(t, hs.Record(ctx, ev))
}

func TestHistoryStoreReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	hs, err := NewHistoryStore(dir)
	require.NoError(t, err)
	require.NoError(t, hs.Record(ctx, provider.Event{Source: "ollama", Model: "llava", Modality: provider.ModalityVision}))
	require.NoError(t, hs.Close())

	assert.FileExists(t, filepath.Join(dir, "history.db"))

	hs, err = NewHistoryStore(dir)
	require.NoError(t, err)
	defer hs.Close()

	n, err := hs.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewHistoryStoreBadDir(t *testing.T) {
	_, err := NewHistoryStore(filepath.Join(t.TempDir(), "missing", "nested"))
	assert.Error(t, err)
}
