// Package logger 是基于 zerolog 的全局日志封装。
// 在 Init 之前调用也是安全的：默认输出到 stderr 的 info 级别控制台日志。
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sockscheck_go/internal/shared/types"
)

var (
	mu  sync.RWMutex
	log = newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}, zerolog.InfoLevel)

	logFile *os.File
)

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Init 根据配置初始化日志系统。可以重复调用；之前打开的日志文件会被关闭。
func Init(cfg types.LogConf) error {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		lv, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
		level = lv
	}

	var out io.Writer = os.Stderr
	var f *os.File
	if cfg.File != "" {
		var err error
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("logger: open log file: %w", err)
		}
		out = f
	}

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: f != nil}
	case "json":
	default:
		if f != nil {
			f.Close()
		}
		return fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	SetOutput(out, level)

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	mu.Unlock()
	return nil
}

// SetOutput replaces the global logger. Tests use it to capture output.
func SetOutput(w io.Writer, level zerolog.Level) {
	l := newLogger(w, level)
	mu.Lock()
	log = l
	mu.Unlock()
}

// Get 返回当前全局 logger 的副本
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug() *zerolog.Event {
	l := Get()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := Get()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := Get()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := Get()
	return l.Error()
}

func Fatal() *zerolog.Event {
	l := Get()
	return l.Fatal()
}
