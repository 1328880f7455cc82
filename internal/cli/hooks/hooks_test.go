package hooks

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaterialsRealm/vasp-workflows/pkg/scanner"
)

// recordingTUI captures messages sent to the TUI program.
type recordingTUI struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (r *recordingTUI) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

// countingBar counts progress increments and closes.
type countingBar struct {
	mu     sync.Mutex
	added  int
	closed int
}

func (b *countingBar) Add(num int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added += num
	return nil
}
func (b *countingBar) Describe(string) {}
func (b *countingBar) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestCLIHooksTUIMode(t *testing.T) {
	tui := &recordingTUI{}
	var buf bytes.Buffer
	h := NewCLIHooks(newTestLogger(&buf), true, false, tui, nil)

	require.NoError(t, h.OnDirDiscovered("/calc/a"))
	require.NoError(t, h.OnDirStatusUpdate("/calc/a", scanner.StatusDone, "Forces converged", time.Millisecond))
	require.NoError(t, h.OnRunComplete(scanner.Report{}))

	require.Len(t, tui.msgs, 3)
	assert.IsType(t, DirDiscoveredMsg{}, tui.msgs[0])
	update, ok := tui.msgs[1].(DirStatusUpdateMsg)
	require.True(t, ok)
	assert.Equal(t, scanner.StatusDone, update.Status)
	assert.IsType(t, RunCompleteMsg{}, tui.msgs[2])
	assert.Empty(t, buf.String(), "TUI mode must not log per-directory events")
}

func TestCLIHooksVerboseMode(t *testing.T) {
	var buf bytes.Buffer
	h := NewCLIHooks(newTestLogger(&buf), false, true, nil, nil)

	require.NoError(t, h.OnDirDiscovered("/calc/a"))
	require.NoError(t, h.OnDirStatusUpdate("/calc/a", scanner.StatusNotConverged, "Force sum norm 0.001 >= atol 1e-06", 0))

	out := buf.String()
	assert.Contains(t, out, "Work directory discovered")
	assert.Contains(t, out, "Directory classified")
	assert.Contains(t, out, "NOT_CONVERGED")
	assert.Contains(t, out, "level=WARN")
}

func TestCLIHooksProgressBarMode(t *testing.T) {
	bar := &countingBar{}
	var buf bytes.Buffer
	h := NewCLIHooks(newTestLogger(&buf), false, false, nil, bar)

	// Concurrent updates exercise the mutex around the bar.
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.OnDirStatusUpdate("/calc/x", scanner.StatusDone, "", 0)
		}()
	}
	wg.Wait()
	require.NoError(t, h.OnRunComplete(scanner.Report{}))

	assert.Equal(t, 16, bar.added)
	assert.Equal(t, 1, bar.closed)
}
