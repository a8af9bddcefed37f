package health

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"sockscheck_go/internal/core/address"
	"sockscheck_go/internal/core/probe"
	"sockscheck_go/internal/shared/logger"
	"sockscheck_go/internal/shared/types"
)

// Event 是每个候选完成后发出的进度事件。
// Index 从 1 开始；并发模式下事件顺序不保证与输入一致。
type Event struct {
	Index     int
	Total     int
	Candidate string
	Result    types.ProbeResult
}

// Reporter 消费批量验证的进度流。
// Progress 对每个候选恰好调用一次；Checker 会串行化所有调用。
type Reporter interface {
	Start(total int)
	Progress(ev Event)
	Finish(report types.BatchReport)
}

// Prober 是 Checker 依赖的探测能力，*probe.Prober 实现了它。
type Prober interface {
	ProbeTimeout(ctx context.Context, addr types.Address, timeout time.Duration) types.ProbeResult
}

// Options 控制批量验证
type Options struct {
	// Workers <= 1 时按输入顺序逐个探测。
	Workers int
	// Timeout 是单次探测的超时；0 表示使用 Prober 的默认值。
	Timeout time.Duration
}

// Checker 负责对候选列表进行批量握手验证。
type Checker struct {
	prober   Prober
	reporter Reporter
	opts     Options
}

// New 创建一个新的 Checker 实例。reporter 可以为 nil。
func New(prober Prober, reporter Reporter, opts Options) *Checker {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Checker{prober: prober, reporter: reporter, opts: opts}
}

// NewDefault 使用 probe.New(probeOpts) 作为探测器。
func NewDefault(probeOpts probe.Options, reporter Reporter, opts Options) *Checker {
	return New(probe.New(probeOpts), reporter, opts)
}

// Validate 对 candidates 逐个解析并探测，返回汇总结果。
//
// 单个候选的任何失败都不会中断批次。ctx 被取消后，尚未开始的候选
// 以 OutcomeCanceled 记为无效，因此 Valid + Invalid 始终等于 len(candidates)。
// nil 或空列表返回一个空的报告。
func (c *Checker) Validate(ctx context.Context, candidates []string) types.BatchReport {
	total := len(candidates)
	report := types.BatchReport{Total: total}

	c.reporter.Start(total)

	var (
		mu   sync.Mutex
		done int
	)
	// record 串行化结果合并和进度回调
	record := func(res types.ProbeResult) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if res.Valid() {
			report.Valid++
			report.Results = append(report.Results, res)
		} else {
			report.Invalid++
		}
		c.reporter.Progress(Event{Index: done, Total: total, Candidate: res.Candidate, Result: res})
	}

	if c.opts.Workers == 1 || total <= 1 {
		for i, candidate := range candidates {
			record(c.check(ctx, i, candidate))
		}
	} else {
		c.runPool(ctx, candidates, record)
	}

	sortByIndex(report.Results)
	c.reporter.Finish(report)
	return report
}

func (c *Checker) runPool(ctx context.Context, candidates []string, record func(types.ProbeResult)) {
	var wg sync.WaitGroup
	jobs := make(chan int)

	workers := c.opts.Workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				record(c.check(ctx, i, candidates[i]))
			}
		}()
	}

	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// check 处理单个候选：解析失败和探测失败都变成一个无效结果。
func (c *Checker) check(ctx context.Context, index int, candidate string) types.ProbeResult {
	var res types.ProbeResult

	if err := ctx.Err(); err != nil {
		res = types.ProbeResult{Outcome: types.OutcomeCanceled, Err: err}
	} else if addr, err := address.Parse(candidate); err != nil {
		res = types.ProbeResult{Outcome: types.OutcomeParseError, Err: err}
	} else {
		res = c.prober.ProbeTimeout(ctx, addr, c.opts.Timeout)
	}
	res.Index = index
	res.Candidate = candidate

	logFields := logger.Debug().Str("candidate", candidate).Str("outcome", res.Outcome.String())
	if res.Valid() {
		logFields.Bool("success", true).Int64("latency_ms", res.Latency.Milliseconds()).Msg("HealthCheck: Check passed.")
	} else {
		logFields.Bool("success", false).Err(res.Err).Msg("HealthCheck: Check failed.")
	}
	return res
}

// sortByIndex 恢复发现顺序；并发模式下结果按完成顺序追加。
func sortByIndex(results []types.ProbeResult) {
	slices.SortFunc(results, func(a, b types.ProbeResult) int {
		return cmp.Compare(a.Index, b.Index)
	})
}

type nopReporter struct{}

func (nopReporter) Start(int) {}

func (nopReporter) Progress(Event) {}

func (nopReporter) Finish(types.BatchReport) {}
