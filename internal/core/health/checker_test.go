package health

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"

	"sockscheck_go/internal/core/address"
	"sockscheck_go/internal/core/probe"
	"sockscheck_go/internal/shared/types"
)

// fakeProber 根据 host 返回预设的延迟；未登记的 host 视为连接失败。
type fakeProber struct {
	latency map[string]time.Duration
	calls   atomic.Int32
	delay   time.Duration
}

func (f *fakeProber) ProbeTimeout(_ context.Context, addr types.Address, _ time.Duration) types.ProbeResult {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if l, ok := f.latency[addr.Host]; ok {
		return types.ProbeResult{Address: addr, Outcome: types.OutcomeValid, Latency: l}
	}
	return types.ProbeResult{Address: addr, Outcome: types.OutcomeConnectError, Err: errors.New("refused")}
}

type recordingReporter struct {
	mu       sync.Mutex
	started  int
	events   []Event
	finished *types.BatchReport
}

func (r *recordingReporter) Start(total int) { r.started = total }

func (r *recordingReporter) Progress(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recordingReporter) Finish(report types.BatchReport) { r.finished = &report }

func TestValidate_SequentialCollectsValid(t *testing.T) {
	prober := &fakeProber{latency: map[string]time.Duration{
		"a": 300 * time.Millisecond,
		"c": 100 * time.Millisecond,
	}}
	rep := &recordingReporter{}
	checker := New(prober, rep, Options{})

	report := checker.Validate(context.Background(), []string{"a:1", "b:2", "socks5://c:3"})

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "a:1", report.Results[0].Candidate)
	assert.Equal(t, 0, report.Results[0].Index)
	assert.Equal(t, "socks5://c:3", report.Results[1].Candidate)
	assert.Equal(t, 2, report.Results[1].Index)

	assert.Equal(t, 3, rep.started)
	require.Len(t, rep.events, 3)
	for i, ev := range rep.events {
		assert.Equal(t, i+1, ev.Index)
		assert.Equal(t, 3, ev.Total)
	}
	assert.Equal(t, "b:2", rep.events[1].Candidate)
	assert.Equal(t, types.OutcomeConnectError, rep.events[1].Result.Outcome)
	require.NotNil(t, rep.finished)
	assert.Equal(t, report.Valid, rep.finished.Valid)
}

func TestValidate_ParseErrorDoesNotAbortBatch(t *testing.T) {
	prober := &fakeProber{latency: map[string]time.Duration{"ok": time.Millisecond}}
	rep := &recordingReporter{}

	report := New(prober, rep, Options{}).Validate(context.Background(), []string{"badformat", "ok:1080"})

	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	assert.EqualValues(t, 1, prober.calls.Load())

	first := rep.events[0].Result
	assert.Equal(t, types.OutcomeParseError, first.Outcome)
	var perr *address.ParseError
	assert.True(t, errors.As(first.Err, &perr))
	assert.Equal(t, "ok:1080", report.Results[0].Candidate)
}

func TestValidate_EmptyAndNil(t *testing.T) {
	checker := New(&fakeProber{}, nil, Options{Workers: 4})

	for _, in := range [][]string{nil, {}} {
		report := checker.Validate(context.Background(), in)
		assert.Zero(t, report.Total)
		assert.Zero(t, report.Valid)
		assert.Zero(t, report.Invalid)
		assert.Empty(t, report.Results)
	}
}

func TestValidate_ParallelCountsMatchInput(t *testing.T) {
	latency := map[string]time.Duration{}
	var candidates []string
	for i := 0; i < 40; i++ {
		host := string(rune('a'+i%26)) + string(rune('a'+i/26))
		if i%3 == 0 {
			latency[host] = time.Duration(i) * time.Millisecond
		}
		candidates = append(candidates, host+":1080")
	}
	candidates = append(candidates, "no-port", "")

	prober := &fakeProber{latency: latency, delay: 2 * time.Millisecond}
	rep := &recordingReporter{}
	report := New(prober, rep, Options{Workers: 8}).Validate(context.Background(), candidates)

	assert.Equal(t, len(candidates), report.Total)
	assert.Equal(t, report.Total, report.Valid+report.Invalid)
	assert.Equal(t, 14, report.Valid)
	assert.Len(t, rep.events, len(candidates))

	for i := 1; i < len(report.Results); i++ {
		assert.Less(t, report.Results[i-1].Index, report.Results[i].Index)
	}
}

func TestValidate_CanceledBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := &fakeProber{latency: map[string]time.Duration{"a": time.Millisecond}}
	report := New(prober, nil, Options{}).Validate(ctx, []string{"a:1", "a:2", "a:3"})

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Invalid)
	assert.Zero(t, prober.calls.Load())
}

func TestValidate_CancelMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rep := &cancelAfterFirst{cancel: cancel}
	prober := &fakeProber{latency: map[string]time.Duration{"a": time.Millisecond}}

	report := New(prober, rep, Options{}).Validate(ctx, []string{"a:1", "a:2", "a:3"})

	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, []types.Outcome{types.OutcomeValid, types.OutcomeCanceled, types.OutcomeCanceled}, rep.outcomes)
}

type cancelAfterFirst struct {
	cancel   context.CancelFunc
	outcomes []types.Outcome
}

func (c *cancelAfterFirst) Start(int) {}

func (c *cancelAfterFirst) Progress(ev Event) {
	c.outcomes = append(c.outcomes, ev.Result.Outcome)
	c.cancel()
}

func (c *cancelAfterFirst) Finish(types.BatchReport) {}

func TestValidate_NothingListening(t *testing.T) {
	report := NewDefault(probe.Options{Timeout: time.Second}, nil, Options{}).
		Validate(context.Background(), []string{"127.0.0.1:1"})

	assert.Equal(t, 1, report.Total)
	assert.Zero(t, report.Valid)
	assert.Empty(t, report.Results)
}

func TestValidate_WithStubServers(t *testing.T) {
	good := serveReply(t, []byte{0x05, 0x00})
	bad := serveReply(t, []byte{0x04, 0x00})

	report := NewDefault(probe.Options{Timeout: 2 * time.Second}, nil, Options{Workers: 2}).
		Validate(context.Background(), []string{bad, "badformat", good})

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Valid)
	require.Len(t, report.Results, 1)
	assert.Equal(t, good, report.Results[0].Candidate)
	secs, ok := report.Results[0].LatencySeconds()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, secs, 0.0)
}

func serveReply(t *testing.T, reply []byte) string {
	t.Helper()
	ln, err := nettest.NewLocalListener("tcp4")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 3)
				if _, err := io.ReadFull(c, buf); err != nil {
					return
				}
				c.Write(reply)
			}(conn)
		}
	}()
	return ln.Addr().String()
}
