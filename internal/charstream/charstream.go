// Package charstream 提供逐字符拉取的源代码输入抽象
//
// 词法分析器只依赖 CharStream 接口，不关心字符来自文件、
// io.Reader、字节流还是内存字符串。
package charstream

import (
	"errors"
	"fmt"
)

// ============================================================================
// CharStream 接口
// ============================================================================

// EOS 流结束标记，不会与任何合法字符相等
const EOS rune = -1

// ErrClosed 在已关闭的流上读取
var ErrClosed = errors.New("charstream: stream is closed")

// CharStream 单字符拉取游标
//
// LA(k) 返回第 k 个尚未消费的字符（从 1 开始），不产生副作用；
// 剩余字符不足 k 个时返回 EOS。Consume 返回并跳过下一个字符，
// 耗尽后持续返回 EOS。Close 可以重复调用。
type CharStream interface {
	LA(k int) (rune, error)
	Consume() (rune, error)
	Close() error
	Description() string
}

// ============================================================================
// 读取错误
// ============================================================================

// ReadError 包装底层 I/O 错误
//
// 不论输入来自文件、Reader 还是字节流，读取失败都统一为 ReadError，
// 调用方用 errors.As 判断即可。
type ReadError struct {
	Description string
	Err         error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read error in %s: %v", e.Description, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsReadError 判断 err 链中是否包含 ReadError
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

func checkLA(k int) {
	if k < 1 {
		panic(fmt.Sprintf("charstream: invalid lookahead %d", k))
	}
}
