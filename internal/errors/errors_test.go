package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/tangzhangming/gfront/internal/i18n"
)

func plainFormatter() *Formatter {
	i18n.SetLanguage(i18n.LangEnglish)
	f := NewFormatter()
	f.Colors = false
	return f
}

func TestFormatCompileError(t *testing.T) {
	err := &CompileError{
		Code:    E0003,
		Level:   LevelError,
		Message: "unterminated string literal",
		File:    "a.groovy",
		Line:    2,
		Column:  5,
		Hints:   []string{"add the closing quote"},
	}
	lines := []string{"def x = 1", "y = \"abc"}

	out := plainFormatter().FormatCompileError(err, lines)

	for _, want := range []string{
		"error[E0003]: unterminated string literal",
		"--> a.groovy:2:5",
		"2 | y = \"abc",
		"    ^",
		"= help: add the closing quote",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLayoutColumns(t *testing.T) {
	f := plainFormatter()
	tests := []struct {
		line       string
		from, to   int
		shown      string
		start, end int
	}{
		{"abc", 2, 3, "abc", 1, 2},
		{"\tx", 2, 3, "    x", 4, 5},
		{"ab\tx", 4, 5, "ab  x", 4, 5},
		{"ŝŝ", 3, 4, "ŝŝ", 2, 3},
		{"中文x", 3, 4, "中文x", 4, 5},
		{"中文x", 1, 2, "中文x", 0, 2},
		{"abc", 4, 4, "abc", 3, 4},
		{"", 1, 1, "", 0, 1},
	}
	for _, tt := range tests {
		shown, start, end := f.layout(tt.line, tt.from, tt.to)
		if shown != tt.shown || start != tt.start || end != tt.end {
			t.Errorf("layout(%q, %d, %d) = %q, %d, %d; want %q, %d, %d",
				tt.line, tt.from, tt.to, shown, start, end, tt.shown, tt.start, tt.end)
		}
	}
}

func TestFormatExpectedAsHelp(t *testing.T) {
	err := &CompileError{
		Code: E0005, Level: LevelError, Message: "invalid number literal: 42.c",
		File: "n.groovy", Line: 1, Column: 4, EndColumn: 5,
		Expected: "'0'-'9'",
	}
	out := plainFormatter().FormatCompileError(err, []string{"42.cheese"})
	if !strings.Contains(out, "  = help: expected '0'-'9'\n") {
		t.Errorf("expected set not rendered as help:\n%s", out)
	}
	if !strings.Contains(out, "  |    ^\n") {
		t.Errorf("caret misplaced:\n%s", out)
	}
}

func TestFormatAtEndOfInput(t *testing.T) {
	f := plainFormatter()

	err := &CompileError{
		Code: E0004, Level: LevelError, Message: "unterminated block comment",
		File: "c.groovy", Line: 2, Column: 8, EndColumn: 8, AtEnd: true,
	}
	out := f.FormatCompileError(err, []string{"x = 1", "/* open"})
	if !strings.Contains(out, "2 | /* open\n  |        ^ end of input\n") {
		t.Errorf("caret should sit after the last character:\n%s", out)
	}

	// 以换行结尾时，输入结束在最后一行之后的空行上
	err = &CompileError{
		Code: E0003, Level: LevelError, Message: "unterminated string literal",
		File: "s.groovy", Line: 3, Column: 1, EndColumn: 1, AtEnd: true,
	}
	out = f.FormatCompileError(err, []string{"a", "b"})
	if !strings.Contains(out, "3 | \n  | ^ end of input\n") {
		t.Errorf("empty trailing line not rendered:\n%s", out)
	}

	// 不是输入结束时，越界的行号不显示源码
	err.AtEnd = false
	out = f.FormatCompileError(err, []string{"a", "b"})
	if strings.Contains(out, "3 |") {
		t.Errorf("line past the source rendered:\n%s", out)
	}
}

func TestFormatCompileErrorsSummary(t *testing.T) {
	f := plainFormatter()
	if got := f.FormatCompileErrors(nil, nil); got != "" {
		t.Errorf("no errors rendered %q", got)
	}
	errs := []*CompileError{
		{Code: E0002, Message: "first", File: "a.groovy", Line: 1, Column: 1},
		{Code: E0002, Message: "second", File: "b.groovy", Line: 1, Column: 2},
	}
	out := f.FormatCompileErrors(errs, map[string][]string{"a.groovy": {"#"}})
	if !strings.Contains(out, "1 | #") || strings.Contains(out, "1 | ?") {
		t.Errorf("source lookup by file:\n%s", out)
	}
	if !strings.HasSuffix(out, "\nfound 2 error(s)\n") {
		t.Errorf("summary missing:\n%s", out)
	}
}

func TestFormatterColors(t *testing.T) {
	f := plainFormatter()
	f.Colors = true
	err := &CompileError{Code: E0002, Level: LevelWarning, Message: "odd", File: "w.groovy", Line: 1, Column: 1}
	out := f.FormatCompileError(err, []string{"?"})
	if !strings.HasPrefix(out, string(styleWarning)+"warning[E0002]"+string(styleReset)) {
		t.Errorf("level not coloured:\n%q", out)
	}

	defer SetDefaultFormatter(GetDefaultFormatter())
	SetDefaultFormatter(f)
	if GetDefaultFormatter() != f {
		t.Errorf("default formatter not replaced")
	}
}

func TestReporterCollectsConcurrently(t *testing.T) {
	r := NewReporter()
	r.SetFormatter(plainFormatter())
	var buf bytes.Buffer
	r.SetOutput(&buf)
	r.SetSource("mem.groovy", "'abc")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ReportError(&CompileError{Code: E0003, Message: "unterminated", File: "mem.groovy", Line: 1, Column: 1})
		}()
	}
	wg.Wait()

	if r.ErrorCount() != 8 {
		t.Fatalf("ErrorCount() = %d, want 8", r.ErrorCount())
	}
	if len(r.Errors()[0].Hints) == 0 {
		t.Errorf("expected hints to be filled from the code")
	}
	if !strings.Contains(buf.String(), "1 | 'abc") {
		t.Errorf("source line not rendered:\n%s", buf.String())
	}
	r.Clear()
	if r.HasErrors() {
		t.Errorf("Clear() should drop errors")
	}
}

func TestCompileErrorUnwrap(t *testing.T) {
	cause := stderrors.New("cause")
	err := &CompileError{Code: E0008, Cause: cause}
	if !stderrors.Is(err, cause) {
		t.Errorf("CompileError should unwrap to its cause")
	}
}

func TestCodeTable(t *testing.T) {
	for _, code := range []string{E0001, E0002, E0003, E0004, E0005, E0006, E0007, E0008, E0009} {
		info, ok := GetErrorInfo(code)
		if !ok || info.Code != code {
			t.Errorf("code %s missing from table", code)
		}
	}
	if IsKnownCode("E9999") {
		t.Errorf("E9999 should be unknown")
	}
}
