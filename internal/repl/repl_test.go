package repl

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/peterh/liner"

	"github.com/tangzhangming/gfront/internal/lexer"
)

// scripted 按顺序返回预先写好的输入行
type scripted struct {
	lines   []string
	prompts []string
	history []string
}

func (s *scripted) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func (s *scripted) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func run(t *testing.T, lines ...string) (*scripted, string) {
	t.Helper()
	in := &scripted{lines: lines}
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.HistoryFile = ""
	if err := New(cfg, in, &out).Loop(); err != nil {
		t.Fatal(err)
	}
	return in, out.String()
}

func TestTokensPrinted(t *testing.T) {
	in, out := run(t, "x = 42")

	for _, want := range []string{`1:1     IDENT`, `"42" = 42`, `1:3`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(in.history) != 1 || in.history[0] != "x = 42" {
		t.Errorf("history = %q", in.history)
	}
}

func TestContinuationLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"block comment", []string{"/* start", "end */ x"}},
		{"interpolation", []string{`"a ${ 1 +`, `2 }"`}},
		{"heredoc", []string{"<<<EOT", "body", "EOT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			in, out := run(t, tt.lines...)
			continued := 0
			for _, p := range in.prompts {
				if p == cfg.PromptContinue {
					continued++
				}
			}
			if continued != len(tt.lines)-1 {
				t.Errorf("continuation prompts = %d, want %d (%q)", continued, len(tt.lines)-1, in.prompts)
			}
			if strings.Contains(out, "-->") {
				t.Errorf("unexpected error:\n%s", out)
			}
			if len(in.history) != 1 || in.history[0] != strings.Join(tt.lines, "\n") {
				t.Errorf("history = %q", in.history)
			}
		})
	}
}

func TestErrorReported(t *testing.T) {
	_, out := run(t, "a = 0x", "b")
	if !strings.Contains(out, "[E0002]") && !strings.Contains(out, "[E0005]") {
		t.Errorf("expected a formatted number error:\n%s", out)
	}
	// 出错后 REPL 继续工作
	if !strings.Contains(out, `"b"`) {
		t.Errorf("next line not processed:\n%s", out)
	}
}

func TestOpenStringReportedImmediately(t *testing.T) {
	cfg := DefaultConfig()
	for _, line := range []string{`s = "abc`, `s = 'abc`} {
		in, out := run(t, line, "b")
		for _, p := range in.prompts {
			if p == cfg.PromptContinue {
				t.Errorf("%s: quoted string should not continue on the next line (%q)", line, in.prompts)
			}
		}
		if !strings.Contains(out, "[E0003]") {
			t.Errorf("%s: expected an unterminated string error:\n%s", line, out)
		}
		if !strings.Contains(out, `"b"`) {
			t.Errorf("%s: next line not processed:\n%s", line, out)
		}
	}
}

func TestCommands(t *testing.T) {
	in, out := run(t, "1", ":gstrings off", `"${x}"`, ":history", ":bogus", ":help", ":quit", "never read")

	if !strings.Contains(out, "gstrings: false") {
		t.Errorf(":gstrings not applied:\n%s", out)
	}
	if strings.Contains(out, "GSTRING_START") {
		t.Errorf("interpolation should be off:\n%s", out)
	}
	if !strings.Contains(out, `   2  "${x}"`) {
		t.Errorf(":history output missing:\n%s", out)
	}
	if !strings.Contains(out, ":bogus") {
		t.Errorf("unknown command not reported:\n%s", out)
	}
	if !strings.Contains(out, ":gstrings on|off") {
		t.Errorf(":help output missing:\n%s", out)
	}
	if len(in.lines) != 1 {
		t.Errorf(":quit should stop reading, %d lines left", len(in.lines))
	}
}

func TestAbortDropsBuffer(t *testing.T) {
	in, out := run(t, "/* open", "^C", "y")
	if strings.Contains(out, "-->") {
		t.Errorf("aborted input should be discarded:\n%s", out)
	}
	if len(in.history) != 1 || in.history[0] != "y" {
		t.Errorf("history = %q", in.history)
	}
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`'abc`, false},
		{`"abc`, false},
		{"'abc\nd'", false},
		{"/* x", true},
		{"<<<EOT\nbody", true},
		{`"${ a`, true},
		{`"${ 'a`, false},
		{`"${ a } b`, false},
		{"\"${ a /* c", true},
		{"1 + ", false},
		{`a \u00`, false},
	}
	for _, tt := range tests {
		_, err := lexer.New(tt.input, SourceName).ScanTokens()
		if got := needsMoreInput(err); got != tt.want {
			t.Errorf("needsMoreInput(%q) = %v, want %v (err %v)", tt.input, got, tt.want, err)
		}
	}
}
