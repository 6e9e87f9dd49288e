// Package diagnostics 把前端错误转换为 LSP 诊断
//
// gfront check -json 输出 textDocument/publishDiagnostics 的参数结构，
// 编辑器插件可以直接转发。
package diagnostics

import (
	"errors"
	"io"
	"sort"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/multierr"

	cerrors "github.com/tangzhangming/gfront/internal/errors"
	"github.com/tangzhangming/gfront/internal/lexer"
)

// Source 诊断来源
const Source = "gfront"

// ============================================================================
// 转换
// ============================================================================

// ErrorCodeToDiagnostic 将错误码转换为诊断信息
//
// line/col 从 1 开始，width 为标注的字符数，最少为 1。
func ErrorCodeToDiagnostic(code, message string, line, col, width int) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError

	// 登记过的错误码按级别，其余按前缀判断
	if info, ok := cerrors.GetErrorInfo(code); ok {
		severity = severityOf(info.Level)
	} else if len(code) > 0 {
		switch code[0] {
		case 'W':
			severity = protocol.DiagnosticSeverityWarning
		case 'I':
			severity = protocol.DiagnosticSeverityInformation
		case 'H':
			severity = protocol.DiagnosticSeverityHint
		}
	}

	if width < 1 {
		width = 1
	}
	start := protocol.Position{
		Line:      zeroBased(line),
		Character: zeroBased(col),
	}
	end := start
	end.Character += uint32(width)

	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: severity,
		Code:     code,
		Source:   Source,
		Message:  message,
	}
}

func severityOf(level cerrors.Level) protocol.DiagnosticSeverity {
	switch level {
	case cerrors.LevelWarning:
		return protocol.DiagnosticSeverityWarning
	case cerrors.LevelNote:
		return protocol.DiagnosticSeverityInformation
	case cerrors.LevelHelp:
		return protocol.DiagnosticSeverityHint
	}
	return protocol.DiagnosticSeverityError
}

// LSP 行号列号从 0 开始
func zeroBased(n int) uint32 {
	if n < 1 {
		return 0
	}
	return uint32(n - 1)
}

// FromLexerError 词法错误转换为诊断
//
// 输入结束处的错误宽度为 0。期望字符集合放在 Data 中。
func FromLexerError(e *lexer.Error) protocol.Diagnostic {
	d := ErrorCodeToDiagnostic(e.Code(), e.Message, e.Pos.Line, e.Pos.Column, 1)
	if e.Char == lexer.EOS {
		d.Range.End = d.Range.Start
	}
	if len(e.Expected) > 0 {
		d.Data = map[string]string{"expected": e.ExpectedString()}
	}
	return d
}

// FromCompileError 报告器格式的错误转换为诊断
func FromCompileError(e *cerrors.CompileError) protocol.Diagnostic {
	width := e.EndColumn - e.Column
	d := ErrorCodeToDiagnostic(e.Code, e.Message, e.Line, e.Column, width)
	if e.Level != cerrors.LevelError {
		d.Severity = severityOf(e.Level)
	}
	if e.AtEnd {
		d.Range.End = d.Range.Start
	}
	if e.Expected != "" {
		d.Data = map[string]string{"expected": e.Expected}
	}
	return d
}

// FromError 把任意错误展开为诊断
//
// multierr 组合的错误逐个转换。没有位置信息的错误放在文件开头。
func FromError(err error) []protocol.Diagnostic {
	if err == nil {
		return nil
	}

	var diags []protocol.Diagnostic
	for _, e := range multierr.Errors(err) {
		var le *lexer.Error
		var ce *cerrors.CompileError
		switch {
		case errors.As(e, &le):
			diags = append(diags, FromLexerError(le))
		case errors.As(e, &ce):
			diags = append(diags, FromCompileError(ce))
		default:
			diags = append(diags, ErrorCodeToDiagnostic(cerrors.E0001, e.Error(), 1, 1, 0))
		}
	}

	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Range.Start, diags[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})
	return diags
}

// ============================================================================
// 发布
// ============================================================================

// Publish 构造 publishDiagnostics 参数
//
// 没有错误时 Diagnostics 为空数组而不是 null，编辑器据此清除旧诊断。
func Publish(path string, version uint32, err error) protocol.PublishDiagnosticsParams {
	diags := FromError(err)
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	return protocol.PublishDiagnosticsParams{
		URI:         uri.File(path),
		Version:     version,
		Diagnostics: diags,
	}
}

// Filename 从文档 URI 取回文件路径
func Filename(docURI string) (string, error) {
	u, err := uri.Parse(docURI)
	if err != nil {
		return "", err
	}
	return u.Filename(), nil
}

// WriteJSON 每个参数写一行 JSON
func WriteJSON(w io.Writer, params ...protocol.PublishDiagnosticsParams) error {
	enc := json.NewEncoder(w)
	for _, p := range params {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// Marshal 序列化诊断参数
func Marshal(p protocol.PublishDiagnosticsParams) ([]byte, error) {
	return json.Marshal(p)
}
