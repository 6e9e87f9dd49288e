package lexer

import (
	"github.com/tangzhangming/gfront/internal/charstream"
	"github.com/tangzhangming/gfront/internal/token"
)

// TokenStream 语法分析器使用的 token 拉取接口
//
// 只能向前拉取，不支持回退。
type TokenStream struct {
	lexer *Lexer
}

// NewTokenStream 在 CharStream 上创建词法分析器和 TokenStream
func NewTokenStream(cs charstream.CharStream, opts ...Option) *TokenStream {
	return &TokenStream{lexer: NewFromStream(cs, opts...)}
}

// StreamOf 包装已有的词法分析器
func StreamOf(l *Lexer) *TokenStream {
	return &TokenStream{lexer: l}
}

// NextToken 转发给词法分析器
func (s *TokenStream) NextToken() (token.Token, error) {
	return s.lexer.NextToken()
}

// Lexer 返回底层词法分析器
func (s *TokenStream) Lexer() *Lexer {
	return s.lexer
}

// Close 关闭底层字符流
func (s *TokenStream) Close() error {
	return s.lexer.Close()
}
