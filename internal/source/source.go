// Package source 负责获取候选代理列表：本地文本文件或 HTTP 下载。
// 两种来源使用同一种行格式：每行一个候选，忽略空行。
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"sockscheck_go/internal/core/address"
	"sockscheck_go/internal/shared/logger"
	"sockscheck_go/internal/shared/retry"
	"sockscheck_go/internal/shared/types"
)

// maxListSize 限制下载的列表大小
const maxListSize = 32 << 20

// AcquisitionError 表示候选列表获取失败 (已用尽重试次数)。
type AcquisitionError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("source: acquire %s failed after %d attempt(s): %v", e.Source, e.Attempts, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ParseLines 按行读取候选，去掉首尾空白并跳过空行。
func ParseLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// LoadFile 从本地 UTF-8 文本文件读取候选列表。
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines, err := ParseLines(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// Fetcher 通过 HTTP 下载候选列表，失败时按 Policy 重试。
type Fetcher struct {
	Client    *http.Client
	Policy    retry.Policy
	UserAgent string
}

// Fetch 下载 url 并解析为候选列表。用尽重试后返回 *AcquisitionError。
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	policy := f.Policy
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Fetching proxy list failed, retrying")
		}
	}

	var lines []string
	attempts, err := policy.Do(ctx, func(attempt int) error {
		logger.Info().Str("url", url).Int("attempt", attempt).Int("max_attempts", max(policy.Attempts, 1)).Msg("Fetching proxy list")
		var err error
		lines, err = f.fetchOnce(ctx, client, url)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Str("url", url).Int("attempts", attempts).Msg("Giving up on proxy list download")
		return nil, &AcquisitionError{Source: url, Attempts: attempts, Err: err}
	}
	logger.Info().Str("url", url).Int("count", len(lines)).Msg("Fetched proxy list")
	return lines, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return ParseLines(io.LimitReader(resp.Body, maxListSize))
}

// NewHTTPClient 创建下载用的 HTTP 客户端。
// upstream 非空时 (host:port 或 socks5://host:port) 所有连接都经由该 SOCKS5 代理。
func NewHTTPClient(timeout time.Duration, upstream string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if strings.TrimSpace(upstream) != "" {
		addr, err := address.Parse(upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream proxy: %w", err)
		}
		base := &net.Dialer{Timeout: timeout}
		dialer, err := proxy.SOCKS5("tcp", addr.String(), nil, base)
		if err != nil {
			return nil, fmt.Errorf("create socks5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// Acquire 按参考行为获取候选：本地文件存在时读取文件，否则从 URL 下载。
// 两者都不可用时返回空列表和 nil。
func Acquire(ctx context.Context, cfg types.SourceConf) ([]string, error) {
	if cfg.File != "" {
		_, err := os.Stat(cfg.File)
		switch {
		case err == nil:
			logger.Info().Str("file", cfg.File).Msg("Local proxy list found, reading from file")
			lines, err := LoadFile(cfg.File)
			if err != nil {
				return nil, &AcquisitionError{Source: cfg.File, Attempts: 1, Err: err}
			}
			logger.Info().Str("file", cfg.File).Int("count", len(lines)).Msg("Loaded proxy list from file")
			return lines, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, &AcquisitionError{Source: cfg.File, Attempts: 1, Err: err}
		}
		logger.Info().Str("file", cfg.File).Msg("Local proxy list not found, falling back to URL")
	}

	if cfg.URL == "" {
		return nil, nil
	}

	client, err := NewHTTPClient(cfg.FetchTimeout, cfg.Upstream)
	if err != nil {
		return nil, &AcquisitionError{Source: cfg.URL, Err: err}
	}
	f := &Fetcher{
		Client:    client,
		Policy:    retry.Fixed(cfg.Retries, cfg.RetryDelay),
		UserAgent: cfg.UserAgent,
	}
	return f.Fetch(ctx, cfg.URL)
}
