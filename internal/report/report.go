// Package report 提供批量验证的文本进度输出。
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"

	"sockscheck_go/internal/core/address"
	"sockscheck_go/internal/core/health"
	"sockscheck_go/internal/core/probe"
	"sockscheck_go/internal/shared/types"
)

// New 根据类型返回 Reporter：bar | lines | none。
func New(kind string, w io.Writer) (health.Reporter, error) {
	switch strings.ToLower(kind) {
	case "bar":
		return NewBar(w), nil
	case "", "lines":
		return NewLines(w), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("report: unknown progress kind %q", kind)
	}
}

// Lines 为每个候选打印一行结果。
type Lines struct {
	w io.Writer
}

func NewLines(w io.Writer) *Lines {
	return &Lines{w: w}
}

func (l *Lines) Start(total int) {
	if total == 0 {
		fmt.Fprintln(l.w, "No proxies found")
		return
	}
	fmt.Fprintf(l.w, "Found %d proxies. Testing...\n", total)
}

func (l *Lines) Progress(ev health.Event) {
	fmt.Fprintf(l.w, "[%d/%d] testing %s... %s\n", ev.Index, ev.Total, ev.Candidate, Describe(ev.Result))
}

func (l *Lines) Finish(r types.BatchReport) {
	if r.Total == 0 {
		return
	}
	fmt.Fprintf(l.w, "Tested %d candidates: %d valid, %d invalid\n", r.Total, r.Valid, r.Invalid)
}

// Bar 用进度条显示批量验证进度。
type Bar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func NewBar(w io.Writer) *Bar {
	return &Bar{w: w}
}

func (b *Bar) Start(total int) {
	if total == 0 {
		fmt.Fprintln(b.w, "No proxies found")
		return
	}
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(b.w) }),
	)
}

func (b *Bar) Progress(ev health.Event) {
	if b.bar == nil {
		return
	}
	b.bar.Describe(ev.Candidate)
	_ = b.bar.Add(1)
}

func (b *Bar) Finish(r types.BatchReport) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	fmt.Fprintf(b.w, "Tested %d candidates: %d valid, %d invalid\n", r.Total, r.Valid, r.Invalid)
}

// Describe 返回一个结果的简短描述，例如 "valid (0.12s)"。
func Describe(r types.ProbeResult) string {
	if secs, ok := r.LatencySeconds(); ok {
		return fmt.Sprintf("valid (%.2fs)", secs)
	}
	return "invalid (" + reason(r) + ")"
}

func reason(r types.ProbeResult) string {
	var (
		perr *address.ParseError
		cerr *probe.ConnectError
		herr *probe.ProtocolError
	)
	switch {
	case errors.As(r.Err, &perr):
		return perr.Reason
	case errors.As(r.Err, &cerr):
		if cerr.Err != nil {
			return cerr.Err.Error()
		}
	case errors.As(r.Err, &herr):
		if herr.Err == nil {
			return fmt.Sprintf("unexpected reply % x", herr.Reply)
		}
		return herr.Err.Error()
	}
	return r.Outcome.String()
}

// Summary 打印排序后的有效代理列表。
func Summary(w io.Writer, ranked []types.ProbeResult) {
	fmt.Fprintf(w, "\nFound %d valid SOCKS proxies:\n", len(ranked))
	for _, r := range ranked {
		secs, _ := r.LatencySeconds()
		fmt.Fprintf(w, "  %s (%.2fs)\n", r.Address, secs)
	}
}
