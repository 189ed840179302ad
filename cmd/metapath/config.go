package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"sigs.k8s.io/yaml"
)

// config holds the settings read from the YAML config file. Command line
// flags override them.
type config struct {
	LogLevel           string   `json:"log_level"`
	LogFormat          string   `json:"log_format"`
	Timeout            duration `json:"timeout"`
	MaxDepth           int      `json:"max_depth"`
	MaxDescendantNodes int      `json:"max_descendant_nodes"`
	CacheSize          int      `json:"cache_size"`
	Listen             string   `json:"listen"`
	Schema             string   `json:"schema"`
	// ServeRoot lets the server load files below this directory.
	ServeRoot string `json:"serve_root"`
	// ServeRemote lets the server load http and https URIs.
	ServeRemote bool `json:"serve_remote"`
}

func defaultConfig() config {
	return config{
		LogLevel:  "warn",
		LogFormat: "text",
		Listen:    "localhost:8080",
	}
}

// duration accepts Go duration strings such as "5s" in YAML.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = duration(v)
	return nil
}

func (d duration) String() string { return time.Duration(d).String() }

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
