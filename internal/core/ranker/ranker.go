package ranker

import (
	"cmp"
	"slices"

	"sockscheck_go/internal/shared/types"
)

// Rank 返回按延迟升序排列的有效结果，延迟相同时保持发现顺序。
// 无效结果被过滤掉；输入切片不会被修改。
func Rank(results []types.ProbeResult) []types.ProbeResult {
	ranked := make([]types.ProbeResult, 0, len(results))
	for _, r := range results {
		if r.Valid() {
			ranked = append(ranked, r)
		}
	}
	slices.SortStableFunc(ranked, func(a, b types.ProbeResult) int {
		if c := cmp.Compare(a.Latency, b.Latency); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return ranked
}
