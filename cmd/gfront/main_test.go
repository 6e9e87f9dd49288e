package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/gfront/internal/config"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--lang", "en"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPreprocessArgs(t *testing.T) {
	tests := []struct {
		args   []string
		rest   []string
		lang   string
		config string
	}{
		{[]string{"--lang", "zh", "tokens", "a.groovy"}, []string{"tokens", "a.groovy"}, "zh", ""},
		{[]string{"check", "-lang=en", "--config=x.toml", "a"}, []string{"check", "a"}, "en", "x.toml"},
		{[]string{"-config", "y.toml", "tokens", "-json"}, []string{"tokens", "-json"}, "", "y.toml"},
		{[]string{"repl"}, []string{"repl"}, "", ""},
	}
	for _, tt := range tests {
		rest, opts := preprocessArgs(tt.args)
		if !reflect.DeepEqual(rest, tt.rest) || opts.lang != tt.lang || opts.config != tt.config {
			t.Errorf("preprocessArgs(%q) = %q, %+v", tt.args, rest, opts)
		}
	}
}

func TestDetectChineseOS(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses the system UI language")
	}
	tests := []struct {
		lcAll, language, lang string
		want                  bool
	}{
		{"", "", "zh_CN.UTF-8", true},
		{"C.UTF-8", "zh_TW:en", "en_US.UTF-8", true},
		{"en_US.UTF-8", "", "zh_CN.UTF-8", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Setenv("LC_ALL", tt.lcAll)
		t.Setenv("LC_MESSAGES", "")
		t.Setenv("LANGUAGE", tt.language)
		t.Setenv("LANG", tt.lang)
		if got := detectChineseOS(); got != tt.want {
			t.Errorf("LC_ALL=%q LANGUAGE=%q LANG=%q: got %v", tt.lcAll, tt.language, tt.lang, got)
		}
	}
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	if code != 0 || !strings.Contains(out, Version) {
		t.Errorf("version: %d %q", code, out)
	}
	code, out, _ = runCLI(t, "", "help")
	if code != 0 || !strings.Contains(out, "cache-demo") {
		t.Errorf("help: %d %q", code, out)
	}
	code, _, errOut := runCLI(t, "", "frobnicate")
	if code != 1 || !strings.Contains(errOut, "frobnicate") {
		t.Errorf("unknown command: %d %q", code, errOut)
	}
}

func TestTokensCommand(t *testing.T) {
	path := writeSource(t, "Main.groovy", "def x = \"a${b}\"\n")

	code, out, _ := runCLI(t, "", "tokens", path)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	for _, want := range []string{"1:1\tdef", "GSTRING_START", "1:5\tIDENT"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	_, out, _ = runCLI(t, "", "tokens", "-no-gstrings", path)
	if strings.Contains(out, "GSTRING_START") {
		t.Errorf("-no-gstrings ignored:\n%s", out)
	}
}

func TestTokensJSONFromStdin(t *testing.T) {
	code, out, _ := runCLI(t, "n = 123456789012345678901234567890", "tokens", "-json", "-")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}

	var units []unitJSON
	if err := json.Unmarshal([]byte(out), &units); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(units) != 1 || units[0].File != config.Default().Lexer.Filename {
		t.Fatalf("units = %+v", units)
	}
	toks := units[0].Tokens
	if len(toks) != 4 || toks[2].Type != "INTEGER" || toks[2].Value != "123456789012345678901234567890" {
		t.Errorf("tokens = %+v", toks)
	}
	if toks[2].Column != 5 || toks[2].Offset != 4 {
		t.Errorf("position = %d/%d", toks[2].Column, toks[2].Offset)
	}
}

func TestCheckCommand(t *testing.T) {
	good := writeSource(t, "Good.groovy", "println 'ok'\n")
	bad := writeSource(t, "Bad.groovy", "x = 'open\n")

	code, out, _ := runCLI(t, "", "check", good)
	if code != 0 || !strings.Contains(out, "1 file(s) checked") {
		t.Errorf("check good: %d %q", code, out)
	}

	code, _, errOut := runCLI(t, "", "check", good, bad)
	if code != 1 {
		t.Errorf("check bad: exit code %d", code)
	}
	if !strings.Contains(errOut, "E0003") || !strings.Contains(errOut, "found 1 error(s)") {
		t.Errorf("check bad stderr:\n%s", errOut)
	}
}

func TestCheckJSON(t *testing.T) {
	good := writeSource(t, "Good.groovy", "x = 1\n")
	bad := writeSource(t, "Bad.groovy", "x = 1\n/* open")

	code, out, _ := runCLI(t, "", "check", "-json", good, bad)
	if code != 1 {
		t.Errorf("exit code %d", code)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per file:\n%s", out)
	}
	var params struct {
		URI         string `json:"uri"`
		Diagnostics []struct {
			Code  string `json:"code"`
			Range struct {
				Start struct {
					Line int `json:"line"`
				} `json:"start"`
			} `json:"range"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &params); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(params.URI, "/Bad.groovy") || len(params.Diagnostics) != 1 {
		t.Fatalf("params = %+v", params)
	}
	if d := params.Diagnostics[0]; d.Code != "E0004" || d.Range.Start.Line != 1 {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	if err := os.WriteFile(path, []byte("[lexer]\ngstrings = false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	src := writeSource(t, "A.groovy", `"${x}"`)

	code, out, _ := runCLI(t, "", "--config", path, "tokens", src)
	if code != 0 || strings.Contains(out, "GSTRING_START") {
		t.Errorf("config not applied: %d\n%s", code, out)
	}

	code, _, errOut := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.toml"), "version")
	if code != 2 || !strings.Contains(errOut, "config error") {
		t.Errorf("missing config: %d %q", code, errOut)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	code, out, _ := runCLI(t, "", "init", dir)
	if code != 0 || !strings.Contains(out, config.ConfigFileName) {
		t.Fatalf("init: %d %q", code, out)
	}
	if _, err := config.LoadConfig(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}

	code, _, errOut := runCLI(t, "", "init", dir)
	if code != 1 || !strings.Contains(errOut, "already exists") {
		t.Errorf("second init: %d %q", code, errOut)
	}
}

func TestCacheDemo(t *testing.T) {
	code, out, _ := runCLI(t, "", "cache-demo", "-n", "64", "-sites", "4")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	for _, want := range []string{"dispatch cache:", "2 monomorphic", "2 megamorphic", "references: weak/"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	code, _, _ = runCLI(t, "", "cache-demo", "-n", "0")
	if code != 2 {
		t.Errorf("-n 0 exit code %d", code)
	}
}
