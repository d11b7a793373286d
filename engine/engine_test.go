package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotBackends leert die Registry fuer die Testdauer und stellt sie
// danach wieder her.
func snapshotBackends(t *testing.T) {
	t.Helper()

	backendsMu.Lock()
	saved := backends
	backends = make(map[string]Factory)
	backendsMu.Unlock()

	t.Cleanup(func() {
		backendsMu.Lock()
		backends = saved
		backendsMu.Unlock()
	})
}

type stubEngine struct {
	name string
	dir  string
	cfg  Config
}

func (e *stubEngine) Translate(_ context.Context, batch [][]string, _ Options) ([]Hypothesis, error) {
	out := make([]Hypothesis, len(batch))
	for i, tokens := range batch {
		out[i] = Hypothesis{Tokens: tokens}
	}
	return out, nil
}

func (e *stubEngine) Close() error { return nil }

func stubFactory(name string) Factory {
	return func(dir string, cfg Config) (Engine, error) {
		return &stubEngine{name: name, dir: dir, cfg: cfg}, nil
	}
}

func TestNewWithoutBackend(t *testing.T) {
	snapshotBackends(t)

	_, err := New(t.TempDir(), Config{})
	require.ErrorIs(t, err, ErrNoBackend)
}

func TestNewUsesOnlyRegisteredBackend(t *testing.T) {
	snapshotBackends(t)

	Register("stub", stubFactory("stub"))

	eng, err := New("/models/fr-en", Config{Device: "cpu", InterThreads: 2})
	require.NoError(t, err)

	stub := eng.(*stubEngine)
	assert.Equal(t, "stub", stub.name)
	assert.Equal(t, "/models/fr-en", stub.dir)
	assert.Equal(t, "cpu", stub.cfg.Device)
	assert.Equal(t, 2, stub.cfg.InterThreads)
}

func TestNewPrefersCT2AmongMultiple(t *testing.T) {
	snapshotBackends(t)

	Register("ct2", stubFactory("ct2"))
	Register("mock", stubFactory("mock"))

	eng, err := New("dir", Config{})
	require.NoError(t, err)
	assert.Equal(t, "ct2", eng.(*stubEngine).name)
}

func TestNewExplicitBackend(t *testing.T) {
	snapshotBackends(t)

	Register("ct2", stubFactory("ct2"))
	Register("mock", stubFactory("mock"))

	eng, err := New("dir", Config{Backend: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", eng.(*stubEngine).name)
}

func TestNewUnknownBackend(t *testing.T) {
	snapshotBackends(t)

	Register("stub", stubFactory("stub"))

	_, err := New("dir", Config{Backend: "missing"})
	require.ErrorIs(t, err, ErrNoBackend)
	assert.Contains(t, err.Error(), "missing")
}

func TestBackends(t *testing.T) {
	snapshotBackends(t)

	Register("a", stubFactory("a"))
	Register("b", stubFactory("b"))

	assert.ElementsMatch(t, []string{"a", "b"}, Backends())
}
