package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"sockscheck_go/internal/core/health"
	"sockscheck_go/internal/core/probe"
	"sockscheck_go/internal/core/ranker"
	"sockscheck_go/internal/output"
	"sockscheck_go/internal/report"
	"sockscheck_go/internal/shared/logger"
	"sockscheck_go/internal/shared/types"
	"sockscheck_go/internal/source"
)

// Result 是一次运行的产出
type Result struct {
	Report  types.BatchReport
	Ranked  []types.ProbeResult
	Written bool // 结果文件是否已写入
}

// App 负责一次完整的运行：获取 → 验证 → 排序 → 报告 → 保存。
type App struct {
	cfg *types.Config
	out io.Writer

	// acquire 可在测试中替换
	acquire func(ctx context.Context, cfg types.SourceConf) ([]string, error)
}

// New creates a new App instance. Progress and summary go to stdout.
func New(cfg *types.Config) *App {
	return &App{cfg: cfg, out: os.Stdout, acquire: source.Acquire}
}

// WithOutput 替换进度和汇总的输出目标
func (a *App) WithOutput(w io.Writer) *App {
	a.out = w
	return a
}

// Run 执行一次运行。获取失败被视为空列表；只有结果保存失败会返回 error，
// 此时返回的 Result 仍包含完整的排序结果。
func (a *App) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := logger.Get().With().Str("run_id", runID).Logger()
	log.Info().Msg("Starting proxy validation run...")

	candidates, err := a.acquire(ctx, a.cfg.SourceConf)
	if err != nil {
		var aerr *source.AcquisitionError
		if errors.As(err, &aerr) {
			log.Error().Err(err).Str("source", aerr.Source).Msg("Failed to acquire proxy list")
		} else {
			log.Error().Err(err).Msg("Failed to acquire proxy list")
		}
		candidates = nil
	}

	return a.RunCandidates(ctx, runID, candidates)
}

// RunCandidates 对已获取的候选列表执行验证、排序、报告和保存。
func (a *App) RunCandidates(ctx context.Context, runID string, candidates []string) (*Result, error) {
	log := logger.Get().With().Str("run_id", runID).Logger()

	reporter, err := report.New(a.cfg.OutputConf.Progress, a.out)
	if err != nil {
		return nil, err
	}
	checker := health.NewDefault(
		probe.Options{Timeout: a.cfg.CheckConf.Timeout, FastClose: a.cfg.CheckConf.FastClose},
		reporter,
		health.Options{Workers: a.cfg.CheckConf.Workers, Timeout: a.cfg.CheckConf.Timeout},
	)

	started := time.Now()
	batch := checker.Validate(ctx, candidates)
	batch.RunID = runID
	ranked := ranker.Rank(batch.Results)

	log.Info().
		Int("total", batch.Total).
		Int("valid", batch.Valid).
		Int("invalid", batch.Invalid).
		Dur("elapsed", time.Since(started)).
		Msg("Validation finished.")

	res := &Result{Report: batch, Ranked: ranked}
	if len(candidates) == 0 {
		return res, nil
	}
	report.Summary(a.out, ranked)

	w := &output.Writer{Path: a.cfg.OutputConf.File}
	written, err := w.Write(ranked, output.Meta{RunID: runID, Generated: time.Now()})
	if err != nil {
		log.Error().Err(err).Msg("Failed to save valid proxies")
		return res, err
	}
	res.Written = written
	if written {
		log.Info().Str("file", w.Path).Int("count", len(ranked)).Msg("Valid proxies saved.")
	}
	return res, nil
}
