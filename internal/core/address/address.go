package address

import (
	"fmt"
	"strconv"
	"strings"

	"sockscheck_go/internal/shared/types"
)

const schemeSep = "://"

// ParseError 表示候选字符串不是合法的 host:port。
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("address: parse %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("address: parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse 将原始候选字符串规范化为 Address。
//
// 可选的 scheme 前缀 ("socks5://") 会被去掉，取第一个 "://" 之后的部分；
// 剩余部分必须恰好由一个 ':' 分为 host 和 port 两段。
func Parse(raw string) (types.Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return types.Address{}, &ParseError{Input: raw, Reason: "empty candidate"}
	}
	if i := strings.Index(s, schemeSep); i >= 0 {
		s = s[i+len(schemeSep):]
	}

	host, port, ok := strings.Cut(s, ":")
	if !ok {
		return types.Address{}, &ParseError{Input: raw, Reason: "missing ':' separator"}
	}
	if strings.Contains(port, ":") {
		return types.Address{}, &ParseError{Input: raw, Reason: "too many ':' separators"}
	}
	if host == "" {
		return types.Address{}, &ParseError{Input: raw, Reason: "empty host"}
	}

	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return types.Address{}, &ParseError{Input: raw, Reason: "invalid port", Err: err}
	}
	return types.Address{Host: host, Port: uint16(n)}, nil
}
