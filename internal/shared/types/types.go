package types

import (
	"strconv"
	"time"
)

// Address 是一个已规范化的代理端点。
// Host 不为空且不包含 ':'；Port 在 [0, 65535] 范围内。
type Address struct {
	Host string
	Port uint16
}

// String 以 "host:port" 形式返回地址，address.Parse 可以原样解析回来。
func (a Address) String() string {
	return a.Host + ":" + strconv.FormatUint(uint64(a.Port), 10)
}

// Outcome 描述单次探测的结果类别，取代捕获后丢弃的异常。
type Outcome int

const (
	OutcomeValid         Outcome = iota // 握手成功
	OutcomeParseError                   // 候选地址格式错误
	OutcomeConnectError                 // 拒绝连接 / 超时 / DNS 失败
	OutcomeProtocolError                // 握手响应过短或版本错误
	OutcomeCanceled                     // 批次被取消，未进行探测
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeConnectError:
		return "connect_error"
	case OutcomeProtocolError:
		return "protocol_error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ProbeResult 是一个候选地址经过解析和探测后的不可变结果。
type ProbeResult struct {
	Index     int    // 在输入列表中的位置 (从 0 开始)，用于排序时的稳定性
	Candidate string // 原始候选字符串
	Address   Address
	Outcome   Outcome
	Latency   time.Duration // 仅当 Outcome == OutcomeValid 时有意义
	Err       error
}

// Valid reports whether the candidate answered the SOCKS5 greeting.
func (r ProbeResult) Valid() bool {
	return r.Outcome == OutcomeValid
}

// LatencySeconds 返回以秒为单位的延迟；仅当结果有效时 ok 为 true。
func (r ProbeResult) LatencySeconds() (float64, bool) {
	if !r.Valid() {
		return 0, false
	}
	return r.Latency.Seconds(), true
}

// BatchReport 汇总一次批量验证。
// Valid + Invalid == Total 恒成立；Results 只包含有效结果，按发现顺序排列。
type BatchReport struct {
	RunID   string
	Total   int
	Valid   int
	Invalid int
	Results []ProbeResult
}
