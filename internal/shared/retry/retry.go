// Package retry implements a small bounded retry policy with fixed or
// multiplicative delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy 描述重试策略。零值表示只尝试一次。
type Policy struct {
	Attempts   int           // 总尝试次数 (包括第一次)
	Delay      time.Duration // 两次尝试之间的等待
	Multiplier float64       // 每次失败后 Delay 的倍数；<= 1 表示固定间隔
	MaxDelay   time.Duration // 等待上限；0 表示不限制

	// OnRetry 在每次等待之前被调用。attempt 从 1 开始，是刚刚失败的那一次。
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Fixed 返回固定间隔的策略
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent 包装一个不应重试的错误；Do 会立即返回被包装的原始错误。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do 按策略运行 fn，直到成功、遇到 Permanent 错误、尝试次数用尽或 ctx 结束。
// 返回实际的尝试次数和最后一次的错误。
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Delay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return attempt - 1, err
		}

		err = fn(attempt)
		if err == nil {
			return attempt, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, perm.err
		}
		if attempt == attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, err
			case <-timer.C:
			}
		}
		wait = p.next(wait)
	}
	return attempts, err
}

func (p Policy) next(wait time.Duration) time.Duration {
	if p.Multiplier > 1 {
		wait = time.Duration(float64(wait) * p.Multiplier)
	}
	if p.MaxDelay > 0 && wait > p.MaxDelay {
		wait = p.MaxDelay
	}
	return wait
}
