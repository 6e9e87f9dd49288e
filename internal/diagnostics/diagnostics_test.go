package diagnostics

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/protocol"
	"go.uber.org/multierr"

	cerrors "github.com/tangzhangming/gfront/internal/errors"
	"github.com/tangzhangming/gfront/internal/lexer"
)

func lexError(t *testing.T, input string) *lexer.Error {
	t.Helper()
	_, err := lexer.New(input, "test.groovy").ScanTokens()
	var le *lexer.Error
	if !errors.As(err, &le) {
		t.Fatalf("ScanTokens(%q): expected lexer error, got %v", input, err)
	}
	return le
}

func TestFromLexerError(t *testing.T) {
	d := FromLexerError(lexError(t, "'abc\n"))

	if d.Range.Start != (protocol.Position{Line: 0, Character: 4}) {
		t.Errorf("start = %+v", d.Range.Start)
	}
	if d.Range.End.Character != 5 {
		t.Errorf("end = %+v", d.Range.End)
	}
	if d.Code != cerrors.E0003 || d.Source != Source {
		t.Errorf("code/source = %v/%s", d.Code, d.Source)
	}
	if d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v", d.Severity)
	}
}

func TestFromLexerErrorAtEnd(t *testing.T) {
	d := FromLexerError(lexError(t, "x = 1\n/* never closed"))
	if d.Code != cerrors.E0004 {
		t.Errorf("code = %v", d.Code)
	}
	if d.Range.Start != d.Range.End {
		t.Errorf("error at end of input should be empty: %+v", d.Range)
	}
}

func TestFromLexerErrorExpected(t *testing.T) {
	d := FromLexerError(lexError(t, "42.cheese"))
	data, ok := d.Data.(map[string]string)
	if !ok || data["expected"] != "'0'-'9'" {
		t.Errorf("data = %#v", d.Data)
	}
}

// 经过报告器格式转换后范围和期望字符不变
func TestFromCompileErrorMatchesLexer(t *testing.T) {
	for _, input := range []string{"x = 1\n/* never closed", "42.cheese", "'abc\n"} {
		le := lexError(t, input)
		want := FromLexerError(le)
		got := FromCompileError(le.CompileError())
		if got.Range != want.Range {
			t.Errorf("%q: range = %+v, want %+v", input, got.Range, want.Range)
		}
		wd, _ := want.Data.(map[string]string)
		gd, _ := got.Data.(map[string]string)
		if wd["expected"] != gd["expected"] {
			t.Errorf("%q: data = %#v, want %#v", input, got.Data, want.Data)
		}
	}
}

func TestErrorCodeToDiagnostic(t *testing.T) {
	tests := []struct {
		code string
		want protocol.DiagnosticSeverity
	}{
		{cerrors.E0002, protocol.DiagnosticSeverityError},
		{"W0100", protocol.DiagnosticSeverityWarning},
		{"I0001", protocol.DiagnosticSeverityInformation},
		{"H0001", protocol.DiagnosticSeverityHint},
		{"", protocol.DiagnosticSeverityError},
	}
	for _, tt := range tests {
		d := ErrorCodeToDiagnostic(tt.code, "msg", 3, 7, 2)
		if d.Severity != tt.want {
			t.Errorf("%q: severity = %v, want %v", tt.code, d.Severity, tt.want)
		}
		if d.Range.Start.Line != 2 || d.Range.Start.Character != 6 || d.Range.End.Character != 8 {
			t.Errorf("%q: range = %+v", tt.code, d.Range)
		}
	}
}

func TestFromErrorCombined(t *testing.T) {
	late := lexError(t, "a\nb\n'x")
	early := &cerrors.CompileError{
		Code: cerrors.E0002, Level: cerrors.LevelWarning, Message: "odd",
		File: "test.groovy", Line: 1, Column: 2, EndColumn: 4,
	}
	plain := errors.New("disk on fire")

	diags := FromError(multierr.Combine(late, early, plain))
	if len(diags) != 3 {
		t.Fatalf("got %d diagnostics", len(diags))
	}
	// 按位置排序，没有位置的排在最前
	if diags[0].Message != "disk on fire" {
		t.Errorf("diags[0] = %+v", diags[0])
	}
	if diags[1].Severity != protocol.DiagnosticSeverityWarning || diags[1].Range.End.Character != 3 {
		t.Errorf("diags[1] = %+v", diags[1])
	}
	if diags[2].Range.Start.Line != 2 {
		t.Errorf("diags[2] = %+v", diags[2])
	}

	if FromError(nil) != nil {
		t.Error("nil error should give no diagnostics")
	}
}

func TestPublishJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Main.groovy")

	clean := Publish(path, 1, nil)
	if got, err := Filename(string(clean.URI)); err != nil || got != path {
		t.Errorf("Filename = %q, %v", got, err)
	}
	data, err := Marshal(clean)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"diagnostics":[]`) {
		t.Errorf("clean params should carry an empty array: %s", data)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, clean, Publish(path, 2, lexError(t, "@@ \\u00G1"))); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per params, got %q", buf.String())
	}

	var decoded struct {
		URI         string `json:"uri"`
		Version     int    `json:"version"`
		Diagnostics []struct {
			Code     string `json:"code"`
			Severity int    `json:"severity"`
			Source   string `json:"source"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Version != 2 || len(decoded.Diagnostics) != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if d := decoded.Diagnostics[0]; d.Code != cerrors.E0007 || d.Severity != 1 || d.Source != Source {
		t.Errorf("diagnostic = %+v", d)
	}
}
