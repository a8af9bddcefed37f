// Package probe 实现 SOCKS5 最小握手探测。
//
// 一次探测只做三件事：TCP 连接、发送问候 [0x05 0x01] [0x00]、读取 2 字节的方法选择。
// 服务器回复的第一个字节为 0x05 即视为可用。延迟只统计 TCP 连接建立的时间，
// 不包含握手往返。
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"sockscheck_go/internal/shared/types"
)

const DefaultTimeout = 5 * time.Second

const (
	socks5Version = 0x05
	methodNoAuth  = 0x00
)

// Options 控制探测行为
type Options struct {
	// Timeout 同时约束 TCP 连接和握手读写；<= 0 时使用 DefaultTimeout。
	Timeout time.Duration
	// FastClose 使探测连接在关闭时直接发送 RST (SO_LINGER=0)，不进入 TIME_WAIT。
	// 仅在 unix 平台上生效。
	FastClose bool
}

// ConnectError 表示 TCP 连接失败：拒绝、超时或域名解析失败。
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("probe: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ProtocolError 表示连接已建立但握手失败：读写出错、响应过短或版本不符。
type ProtocolError struct {
	Addr  string
	Reply []byte
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe: handshake %s: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("probe: handshake %s: unexpected reply %#v", e.Addr, e.Reply)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Prober 探测单个地址。无共享可变状态，可并发使用。
type Prober struct {
	opts Options
}

// New 创建一个新的 Prober 实例。
func New(opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Prober{opts: opts}
}

// Timeout 返回默认的单次探测超时
func (p *Prober) Timeout() time.Duration {
	return p.opts.Timeout
}

// Probe 使用默认超时探测 addr。
func (p *Prober) Probe(ctx context.Context, addr types.Address) types.ProbeResult {
	return p.ProbeTimeout(ctx, addr, p.opts.Timeout)
}

// ProbeTimeout 使用调用方指定的超时探测 addr。
// 所有失败都通过返回值的 Outcome 和 Err 表达，从不 panic。
func (p *Prober) ProbeTimeout(ctx context.Context, addr types.Address, timeout time.Duration) types.ProbeResult {
	if timeout <= 0 {
		timeout = p.opts.Timeout
	}
	result := types.ProbeResult{Address: addr}
	target := addr.String()

	dialer := &net.Dialer{Timeout: timeout}
	if p.opts.FastClose {
		dialer.Control = fastCloseControl
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		result.Outcome = types.OutcomeConnectError
		result.Err = &ConnectError{Addr: target, Err: err}
		return result
	}
	latency := time.Since(start)
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		result.Outcome = types.OutcomeProtocolError
		result.Err = &ProtocolError{Addr: target, Err: err}
		return result
	}

	reply, err := greet(conn)
	if err != nil {
		result.Outcome = types.OutcomeProtocolError
		result.Err = &ProtocolError{Addr: target, Reply: reply, Err: err}
		return result
	}
	if reply[0] != socks5Version {
		result.Outcome = types.OutcomeProtocolError
		result.Err = &ProtocolError{Addr: target, Reply: reply}
		return result
	}

	if latency < 0 {
		latency = 0
	}
	result.Outcome = types.OutcomeValid
	result.Latency = latency
	return result
}

// greet 发送问候并读取方法选择。
// 版本号与方法列表分两次写出，与参考实现的报文节奏一致。
func greet(conn net.Conn) ([]byte, error) {
	// VER=5, NMETHODS=1
	if _, err := conn.Write([]byte{socks5Version, 0x01}); err != nil {
		return nil, fmt.Errorf("write version: %w", err)
	}
	// METHODS=0x00(No Auth)
	if _, err := conn.Write([]byte{methodNoAuth}); err != nil {
		return nil, fmt.Errorf("write methods: %w", err)
	}

	reply := make([]byte, 2)
	n, err := io.ReadFull(conn, reply)
	if err != nil {
		return reply[:n], fmt.Errorf("read method selection: %w", err)
	}
	return reply, nil
}
