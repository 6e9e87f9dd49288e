package errors

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ============================================================================
// 错误报告器
// ============================================================================

// Reporter 错误报告器
//
// 可以被多个 goroutine 同时使用，前端驱动并行处理多个源文件时
// 共享同一个 Reporter。
type Reporter struct {
	mu          sync.Mutex
	formatter   *Formatter
	out         io.Writer
	sourceCache map[string][]string // 源代码缓存
	errors      []*CompileError
	warnings    []*CompileError
}

// NewReporter 创建错误报告器，输出到 os.Stderr
func NewReporter() *Reporter {
	return &Reporter{
		formatter:   NewFormatter(),
		out:         os.Stderr,
		sourceCache: make(map[string][]string),
	}
}

// SetFormatter 设置格式化器
func (r *Reporter) SetFormatter(f *Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatter = f
}

// SetOutput 设置输出位置，传入 nil 表示只收集不输出
func (r *Reporter) SetOutput(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = w
}

// LoadSource 加载源文件
func (r *Reporter) LoadSource(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadSourceLocked(filename)
}

func (r *Reporter) loadSourceLocked(filename string) error {
	if _, ok := r.sourceCache[filename]; ok {
		return nil // 已加载
	}

	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	r.sourceCache[filename] = lines
	return nil
}

// SetSource 设置源代码（用于测试或内存中的源代码）
func (r *Reporter) SetSource(filename string, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sourceCache[filename] = strings.Split(content, "\n")
}

// GetSourceLine 获取源代码行
func (r *Reporter) GetSourceLine(filename string, line int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lines, ok := r.sourceCache[filename]; ok {
		if line > 0 && line <= len(lines) {
			return lines[line-1]
		}
	}
	return ""
}

// ============================================================================
// 报告错误
// ============================================================================

// ReportError 报告编译错误
func (r *Reporter) ReportError(err *CompileError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 内存中的源代码没有对应文件，加载失败不影响报告
	_ = r.loadSourceLocked(err.File)

	if len(err.Hints) == 0 {
		err.Hints = GetSuggestions(err.Code)
	}

	r.errors = append(r.errors, err)
	r.emitLocked(err)
}

// ReportWarning 报告警告
func (r *Reporter) ReportWarning(err *CompileError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err.Level = LevelWarning
	r.warnings = append(r.warnings, err)
	r.emitLocked(err)
}

// ReportSimple 报告只有位置和消息的错误
func (r *Reporter) ReportSimple(file string, line, col int, message string) {
	r.ReportError(&CompileError{
		Code:    E0001,
		Level:   LevelError,
		Message: message,
		File:    file,
		Line:    line,
		Column:  col,
	})
}

func (r *Reporter) emitLocked(err *CompileError) {
	if r.out == nil {
		return
	}
	fmt.Fprint(r.out, r.formatter.FormatCompileError(err, r.sourceCache[err.File]))
}

// ============================================================================
// 状态查询
// ============================================================================

// HasErrors 是否有错误
func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// ErrorCount 错误数量
func (r *Reporter) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// WarningCount 警告数量
func (r *Reporter) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

// Errors 获取所有错误
func (r *Reporter) Errors() []*CompileError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*CompileError(nil), r.errors...)
}

// Warnings 获取所有警告
func (r *Reporter) Warnings() []*CompileError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*CompileError(nil), r.warnings...)
}

// Summary 返回所有错误的汇总输出
func (r *Reporter) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.formatter.FormatCompileErrors(r.errors, r.sourceCache)
}

// Clear 清空错误和警告
func (r *Reporter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = nil
	r.warnings = nil
}
