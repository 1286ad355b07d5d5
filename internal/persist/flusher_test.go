package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kalambet/pronouns/internal/pronoun"
)

type mockBackend struct {
	mu     sync.Mutex
	saves  []map[string]pronoun.Record
	loaded map[string]pronoun.Record
	err    error
}

func (m *mockBackend) LoadPronouns(_ context.Context) (map[string]pronoun.Record, error) {
	return m.loaded, m.err
}

func (m *mockBackend) SavePronouns(_ context.Context, records map[string]pronoun.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, records)
	return nil
}

func (m *mockBackend) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *mockBackend) last() map[string]pronoun.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

func TestFlusher_CoalescesSignals(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := &mockBackend{}
	mgr := pronoun.NewManager(pronoun.NewMemoryStore(), nil, nil)
	f := NewFlusher(mgr, backend, 20*time.Millisecond, nil)
	mgr.SetPersister(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	for i := 0; i < 10; i++ {
		mgr.ApplyPreset("alice", "she")
	}
	_, err := mgr.SetField("alice", "reflexive", "herself!")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "herself!", backend.last()["alice"].Reflexive)

	cancel()
	<-done
	assert.Equal(t, 1, backend.saveCount(), "no pending changes means no flush on shutdown")
}

func TestFlusher_FlushesPendingOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := &mockBackend{}
	mgr := pronoun.NewManager(pronoun.NewMemoryStore(), nil, nil)
	f := NewFlusher(mgr, backend, time.Hour, nil)
	mgr.SetPersister(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	mgr.ApplyPreset("bob", "he")
	// Let Run pick up the signal before cancelling.
	require.Eventually(t, func() bool { return len(f.signal) == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Equal(t, 1, backend.saveCount())
	assert.Equal(t, "him", backend.last()["bob"].Objective)
}

func TestFlusher_SchedulePersistNeverBlocks(t *testing.T) {
	f := NewFlusher(pronoun.NewManager(pronoun.NewMemoryStore(), nil, nil), &mockBackend{}, 0, nil)
	for i := 0; i < 100; i++ {
		f.SchedulePersist()
	}
	assert.Len(t, f.signal, 1)
	assert.Equal(t, defaultDelay, f.delay)
}

func TestFlusher_FlushError(t *testing.T) {
	backend := &mockBackend{err: errors.New("disk full")}
	f := NewFlusher(pronoun.NewManager(pronoun.NewMemoryStore(), nil, nil), backend, 0, nil)

	err := f.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRestore(t *testing.T) {
	she, _ := pronoun.Preset("she")
	backend := &mockBackend{loaded: map[string]pronoun.Record{"alice": she}}
	mgr := pronoun.NewManager(pronoun.NewMemoryStore(), nil, nil)

	require.NoError(t, Restore(context.Background(), backend, mgr))
	assert.Equal(t, she, mgr.Get("alice"))
}
