package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/sandrolain/gometapath"
	"github.com/sandrolain/gometapath/pkg/loader"
)

const catalog = `{"catalog": {"id": "c1", "item": [{"sku": "a", "price": 10}, {"sku": "b", "price": 25}]}}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func compareJSON(t *testing.T, want string, got []byte) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(`{"v":`+want+`}`), &w); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"v":`+string(got)+`}`), &g); err != nil {
		t.Fatalf("output %q is not JSON: %v", got, err)
	}
	wm, gm := w.(map[string]any), g.(map[string]any)
	diff := gojsondiff.New().CompareObjects(wm, gm)
	if diff.Modified() {
		s, err := formatter.NewAsciiFormatter(wm, formatter.AsciiFormatterDefaultConfig).Format(diff)
		if err != nil {
			t.Fatal(err)
		}
		t.Error(s)
	}
}

func TestRun(t *testing.T) {
	doc := writeFile(t, "cat.json", catalog)
	yamlDoc := writeFile(t, "cat.yaml", "catalog:\n  id: y1\n  item:\n    - sku: z\n      price: 3\n")

	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"no document", []string{"1 + 2"}, "", `[3]`},
		{"file document", []string{"//item/@sku", doc}, "", `[
			{"path": "/catalog/item[1]/@sku", "kind": "flag()", "name": "sku", "value": "a"},
			{"path": "/catalog/item[2]/@sku", "kind": "flag()", "name": "sku", "value": "b"}]`},
		{"yaml document", []string{"string(/catalog/@id)", yamlDoc}, "", `["y1"]`},
		{"stdin", []string{"-e", "sum(//@price)", "-"}, catalog, `[35]`},
		{"document flag", []string{"-e", "count(//item)", "-f", doc}, "", `[2]`},
		{"as boolean", []string{"-as", "boolean", "//item[@price > 100]", doc}, "", `false`},
		{"as number", []string{"-as", "number", "//item[2]/@price", doc}, "", `25`},
		{"as string", []string{"-as", "string", "()"}, "", `""`},
		{"variables", []string{"-var", "min=15", "count(//item[@price > decimal($min)])", doc}, "", `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, strings.NewReader(tt.stdin), &stdout, &stderr)
			if code != 0 {
				t.Fatalf("exit %d, stderr: %s", code, stderr.String())
			}
			compareJSON(t, tt.want, stdout.Bytes())
		})
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"no expression", nil, 2, "usage"},
		{"bad flag", []string{"-nope"}, 2, "not defined"},
		{"bad var", []string{"-var", "x", "1"}, 2, "name=value"},
		{"syntax error", []string{"1 +"}, 1, "MPST0003"},
		{"missing document", []string{".", "/nonexistent/doc.json"}, 1, "FODC0002"},
		{"bad result type", []string{"-as", "float", "1"}, 1, "unknown result type"},
		{"bad log level", []string{"-log-level", "loud", "1"}, 2, "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, strings.NewReader(""), &stdout, &stderr)
			if code != tt.code {
				t.Errorf("exit = %d, want %d", code, tt.code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr %q does not contain %q", stderr.String(), tt.want)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-version"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d", code)
	}
	if got := strings.TrimSpace(stdout.String()); got != gometapath.Version() {
		t.Errorf("version = %q", got)
	}
}

func TestConfig(t *testing.T) {
	cfgPath := writeFile(t, "metapath.yaml", "log_level: info\ntimeout: 2s\nmax_depth: 50\ncache_size: 16\n")
	var stderr bytes.Buffer
	o, _, err := parseFlags([]string{"-config", cfgPath, "-log-level", "error", "1"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	if o.cfg.LogLevel != "error" {
		t.Errorf("log level = %q, flag should override config", o.cfg.LogLevel)
	}
	if o.cfg.MaxDepth != 50 || o.cfg.CacheSize != 16 || o.cfg.Listen != "localhost:8080" {
		t.Errorf("cfg = %+v", o.cfg)
	}
	if o.cfg.Timeout.String() != "2s" {
		t.Errorf("timeout = %v", o.cfg.Timeout)
	}

	bad := writeFile(t, "bad.yaml", "unknown_key: 1\n")
	if _, _, err := parseFlags([]string{"-config", bad}, &stderr); err == nil {
		t.Error("unknown config key accepted")
	}
}

func TestDebugLogsToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-debug", "1 + 1"}, nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "level=DEBUG") {
		t.Errorf("no debug output in %q", stderr.String())
	}
}

func TestServeAccess(t *testing.T) {
	doc := writeFile(t, "cat.json", catalog)
	tests := []struct {
		name   string
		cfg    config
		denied bool
	}{
		{"default", config{}, true},
		{"remote only", config{ServeRemote: true}, true},
		{"root", config{ServeRoot: filepath.Dir(doc)}, false},
		{"other root", config{ServeRoot: t.TempDir()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.New(serveAccess(tt.cfg)...).Load(context.Background(), doc)
			if got := errors.Is(err, loader.ErrAccessDenied); got != tt.denied {
				t.Errorf("denied = %v, want %v (%v)", got, tt.denied, err)
			}
		})
	}
}
