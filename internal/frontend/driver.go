// Package frontend 并行驱动多个编译单元的词法分析
package frontend

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	uatomic "go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tangzhangming/gfront/internal/charstream"
	cerrors "github.com/tangzhangming/gfront/internal/errors"
	"github.com/tangzhangming/gfront/internal/lexer"
	"github.com/tangzhangming/gfront/internal/token"
)

const (
	// DefaultWorkers 默认工作线程数（等于 CPU 核心数）
	DefaultWorkers = 0 // 0 表示自动检测

	// MaxWorkers 工作线程上限
	MaxWorkers = 256
)

// ============================================================================
// 编译单元
// ============================================================================

// Source 一个编译单元
type Source struct {
	Name string // 文件路径或显示名

	text     string
	inMemory bool
}

// FileSource 从文件读取的编译单元，文件在工作线程中才打开
func FileSource(path string) Source {
	return Source{Name: path}
}

// StringSource 内存中的编译单元
func StringSource(name, text string) Source {
	return Source{Name: name, text: text, inMemory: true}
}

func (s Source) open() charstream.CharStream {
	if s.inMemory {
		return charstream.NewString(s.text, s.Name)
	}
	return charstream.NewFile(s.Name)
}

// Result 一个编译单元的结果
//
// 出错时 Tokens 是出错前得到的 token，Err 为该单元的错误。
type Result struct {
	Source   Source
	Tokens   []token.Token
	Err      error
	Duration time.Duration
}

// ============================================================================
// 驱动
// ============================================================================

// Driver 前端驱动
//
// 零值可用。Reporter 为 nil 时只返回错误不报告。
type Driver struct {
	// Workers 工作线程数量（0 表示自动检测 CPU 核心数）
	Workers int

	// Logger 为 nil 时不输出日志
	Logger *zap.Logger

	// Reporter 接收每个单元的词法错误，可以在多个驱动之间共享
	Reporter *cerrors.Reporter

	// Options 传给每个词法分析器
	Options []lexer.Option

	stats driverStats
}

type driverStats struct {
	units  uatomic.Int64
	tokens uatomic.Int64
	failed uatomic.Int64
}

// Stats 驱动统计信息
type Stats struct {
	Units  int64 // 处理过的单元
	Tokens int64 // 产生的 token（含 EOF）
	Failed int64 // 出错的单元
}

// Stats 返回累计统计
func (d *Driver) Stats() Stats {
	return Stats{
		Units:  d.stats.units.Load(),
		Tokens: d.stats.tokens.Load(),
		Failed: d.stats.failed.Load(),
	}
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Driver) numWorkers(units int) int {
	n := d.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return min(n, MaxWorkers, units)
}

// TokenizeAll 并行扫描所有编译单元
//
// 某个单元出错不影响其他单元。结果与 sources 一一对应，返回的错误是
// 所有单元错误的 multierr 组合。取消只在单元之间生效，
// 未开始的单元的错误为 ctx.Err()。
func (d *Driver) TokenizeAll(ctx context.Context, sources []Source) ([]Result, error) {
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results, nil
	}

	workers := d.numWorkers(len(sources))
	log := d.logger()
	log.Debug("tokenize start", zap.Int("units", len(sources)), zap.Int("workers", workers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = Result{Source: sources[i], Err: err}
					continue
				}
				results[i] = d.tokenize(sources[i])
			}
		}()
	}

	for i := range sources {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var err error
	for _, r := range results {
		err = multierr.Append(err, r.Err)
	}
	if err != nil {
		log.Debug("tokenize done with errors", zap.Int("errors", len(multierr.Errors(err))))
	}
	return results, err
}

// Tokenize 扫描单个编译单元
func (d *Driver) Tokenize(src Source) Result {
	return d.tokenize(src)
}

func (d *Driver) tokenize(src Source) Result {
	start := time.Now()
	cs := src.open()
	l := lexer.NewFromStream(cs, d.Options...)

	tokens, err := l.ScanTokens()
	err = multierr.Append(err, cs.Close())

	r := Result{
		Source:   src,
		Tokens:   tokens,
		Err:      err,
		Duration: time.Since(start),
	}

	d.stats.units.Inc()
	d.stats.tokens.Add(int64(len(tokens)))
	if err != nil {
		d.stats.failed.Inc()
		d.report(src, err)
	}

	d.logger().Debug("unit tokenized",
		zap.String("unit", src.Name),
		zap.Int("tokens", len(tokens)),
		zap.Duration("elapsed", r.Duration),
		zap.Error(err))
	return r
}

// report 把单元的错误交给 Reporter
func (d *Driver) report(src Source, err error) {
	if d.Reporter == nil {
		return
	}
	if src.inMemory {
		d.Reporter.SetSource(src.Name, src.text)
	}
	for _, e := range multierr.Errors(err) {
		var le *lexer.Error
		if errors.As(e, &le) {
			d.Reporter.ReportError(le.CompileError())
			continue
		}
		d.Reporter.ReportError(&cerrors.CompileError{
			Code:    cerrors.E0008,
			Level:   cerrors.LevelError,
			Message: e.Error(),
			File:    src.Name,
			Line:    1,
			Column:  1,
			Cause:   e,
		})
	}
}
