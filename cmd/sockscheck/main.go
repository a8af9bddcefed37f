package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sockscheck_go/internal/app"
	"sockscheck_go/internal/shared/config"
	"sockscheck_go/internal/shared/logger"
	"sockscheck_go/internal/shared/types"
)

func main() {
	configPath := flag.String("config", "configs/sockscheck.ini", "Path to ini config file (optional)")
	writeConfig := flag.String("write-config", "", "Write the effective config to this path and exit")
	file := flag.String("file", "", "Local proxy list, one host:port per line")
	url := flag.String("url", "", "Proxy list URL, used when the local file does not exist")
	upstream := flag.String("upstream", "", "SOCKS5 proxy used to download the list")
	out := flag.String("out", "", "Output file for valid proxies")
	timeout := flag.Duration("timeout", 0, "Per-probe timeout")
	workers := flag.Int("workers", 0, "Concurrent probes (1 = sequential)")
	progress := flag.String("progress", "", "Progress output: bar | lines | none")
	deadline := flag.Duration("deadline", 0, "Overall run deadline (0 = none)")
	logLevel := flag.String("log-level", "", "Log level: debug | info | warn | error")
	flag.Parse()

	// 1. 加载 .ini 配置 (文件不存在时使用默认值)
	cfg := types.DefaultConfig()
	if _, err := config.Load(cfg, *configPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", *configPath, err)
		os.Exit(1)
	}

	// 1.1 命令行参数覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file":
			cfg.SourceConf.File = *file
		case "url":
			cfg.SourceConf.URL = *url
		case "upstream":
			cfg.SourceConf.Upstream = *upstream
		case "out":
			cfg.OutputConf.File = *out
		case "timeout":
			cfg.CheckConf.Timeout = *timeout
		case "workers":
			cfg.CheckConf.Workers = *workers
		case "progress":
			cfg.OutputConf.Progress = *progress
		case "log-level":
			cfg.LogConf.Level = *logLevel
		}
	})
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := config.SaveIni(cfg, *writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Fatal: Failed to write config '%s': %v\n", *writeConfig, err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", *writeConfig)
		return
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *deadline)
		defer cancel()
	}

	// 3. 运行
	started := time.Now()
	res, err := app.New(cfg).Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Run finished with errors")
		stop()
		os.Exit(1)
	}
	logger.Info().
		Int("valid", res.Report.Valid).
		Int("total", res.Report.Total).
		Dur("elapsed", time.Since(started)).
		Msg("Done.")
}
