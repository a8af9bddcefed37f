package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"sockscheck_go/internal/shared/types"
)

const timeLayout = "2006-01-02 15:04:05"

// PersistenceError 表示结果文件写入失败。内存中的排序结果不受影响。
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("output: write %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Meta 是写入文件头的元数据
type Meta struct {
	RunID     string
	Generated time.Time
}

// Writer 将排序后的有效代理写入文本文件。
type Writer struct {
	Path string
}

// Write 写入 ranked。列表为空时不创建文件并返回 (false, nil)。
// 文件先写入同目录的临时文件再重命名，不会留下半写的结果。
func (w *Writer) Write(ranked []types.ProbeResult, meta Meta) (bool, error) {
	if len(ranked) == 0 {
		return false, nil
	}

	dir := filepath.Dir(w.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.Path)+".*")
	if err != nil {
		return false, &PersistenceError{Path: w.Path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := Format(tmp, ranked, meta); err != nil {
		tmp.Close()
		return false, &PersistenceError{Path: w.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return false, &PersistenceError{Path: w.Path, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return false, &PersistenceError{Path: w.Path, Err: err}
	}
	if err := os.Rename(tmp.Name(), w.Path); err != nil {
		return false, &PersistenceError{Path: w.Path, Err: err}
	}
	return true, nil
}

// Format 输出文件内容：头部注释块，空行，然后每行 "<host:port> <秒，两位小数>"。
func Format(out io.Writer, ranked []types.ProbeResult, meta Meta) error {
	bw := bufio.NewWriter(out)
	generated := meta.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	fmt.Fprintln(bw, "# Valid SOCKS5 proxies")
	fmt.Fprintln(bw, "# Format: IP:port latency(seconds)")
	fmt.Fprintf(bw, "# Generated: %s\n", generated.Format(timeLayout))
	if meta.RunID != "" {
		fmt.Fprintf(bw, "# Run: %s\n", meta.RunID)
	}
	fmt.Fprintln(bw)

	for _, r := range ranked {
		secs, _ := r.LatencySeconds()
		fmt.Fprintf(bw, "%s %.2f\n", r.Address, secs)
	}
	return bw.Flush()
}
