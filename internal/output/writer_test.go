package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sockscheck_go/internal/shared/types"
)

func ranked() []types.ProbeResult {
	return []types.ProbeResult{
		{Address: types.Address{Host: "10.0.0.2", Port: 1080}, Outcome: types.OutcomeValid, Latency: 104 * time.Millisecond},
		{Address: types.Address{Host: "10.0.0.1", Port: 9050}, Outcome: types.OutcomeValid, Latency: 1299 * time.Millisecond},
	}
}

var generated = time.Date(2026, 10, 18, 9, 30, 5, 0, time.Local)

const wantFile = `# Valid SOCKS5 proxies
# Format: IP:port latency(seconds)
# Generated: 2026-10-18 09:30:05
# Run: 5c1c1c8e-0000-4000-8000-000000000001

10.0.0.2:1080 0.10
10.0.0.1:9050 1.30
`

func TestFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Format(&buf, ranked(), Meta{RunID: "5c1c1c8e-0000-4000-8000-000000000001", Generated: generated})

	require.NoError(t, err)
	assert.Equal(t, wantFile, buf.String())
}

func TestWriter_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valid_socks_proxies.txt")

	written, err := (&Writer{Path: path}).Write(ranked(), Meta{RunID: "5c1c1c8e-0000-4000-8000-000000000001", Generated: generated})

	require.NoError(t, err)
	assert.True(t, written)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, wantFile, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriter_SkipsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	written, err := (&Writer{Path: path}).Write(nil, Meta{})

	require.NoError(t, err)
	assert.False(t, written)
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriter_PersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.txt")

	_, err := (&Writer{Path: path}).Write(ranked(), Meta{})

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, path, perr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
