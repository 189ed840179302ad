// Command metapath evaluates Metapath expressions against documents, or
// serves evaluation over HTTP.
//
// Usage:
//
//	metapath [flags] EXPR [DOCUMENT]
//	metapath -e EXPR -f DOCUMENT [flags]
//	metapath -serve [-listen ADDR]
//
// DOCUMENT is a file path or URI; "-" reads the document from stdin. The
// result is written to stdout as JSON, indented when stdout is a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/sandrolain/gometapath"
	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/loader"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// vars collects repeated -var name=value flags.
type vars map[string]string

func (v vars) String() string { return fmt.Sprint(map[string]string(v)) }

func (v vars) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	v[name] = value
	return nil
}

type options struct {
	configFile string
	expr       string
	doc        string
	as         string
	format     string
	pretty     bool
	compact    bool
	serve      bool
	debug      bool
	version    bool
	vars       vars
	cfg        config
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("metapath", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{vars: vars{}}

	fs.StringVar(&o.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&o.expr, "e", "", "expression to evaluate (default: first argument)")
	fs.StringVar(&o.doc, "f", "", "document file or URI, or - for stdin (default: second argument)")
	fs.StringVar(&o.as, "as", "sequence", "result type: sequence, boolean, string, number or node")
	fs.StringVar(&o.format, "format", "", "document format: json, yaml or ion (default: detect)")
	fs.BoolVar(&o.pretty, "pretty", false, "always indent output")
	fs.BoolVar(&o.compact, "compact", false, "never indent output")
	fs.BoolVar(&o.serve, "serve", false, "serve evaluation over HTTP")
	fs.BoolVar(&o.debug, "debug", false, "log every evaluation step")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")
	fs.Var(o.vars, "var", "bind an external variable, as name=value (repeatable)")
	listen := fs.String("listen", "", "address to serve on")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	timeout := fs.Duration("timeout", 0, "evaluation timeout")
	schema := fs.String("schema", "", "schema document shaping loaded documents")
	serveRoot := fs.String("serve-root", "", "directory the server may load documents from (default: none)")
	serveRemote := fs.Bool("serve-remote", false, "let the server load http and https URIs")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "log-level":
			cfg.LogLevel = *logLevel
		case "timeout":
			cfg.Timeout = duration(*timeout)
		case "schema":
			cfg.Schema = *schema
		case "serve-root":
			cfg.ServeRoot = *serveRoot
		case "serve-remote":
			cfg.ServeRemote = *serveRemote
		}
	})
	if o.debug {
		cfg.LogLevel = "debug"
	}
	o.cfg = cfg
	return o, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "metapath:", err)
		return 2
	}
	if o.version {
		fmt.Fprintln(stdout, gometapath.Version())
		return 0
	}
	logger, err := newLogger(stderr, o.cfg.LogLevel, o.cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(stderr, "metapath:", err)
		return 2
	}

	var access []loader.Option
	if o.serve {
		access = serveAccess(o.cfg)
	}
	ldr, err := newLoader(ctx, o, logger, access...)
	if err != nil {
		logger.Error("loading schema", "error", err)
		return 1
	}
	ev := newEvaluator(o, logger)

	if o.serve {
		return serve(ctx, o.cfg.Listen, server.New(
			server.WithEvaluator(ev),
			server.WithLoader(ldr),
			server.WithLogger(logger),
		), logger)
	}

	if o.expr == "" {
		if len(rest) == 0 {
			fmt.Fprintln(stderr, "usage: metapath [flags] EXPR [DOCUMENT]")
			return 2
		}
		o.expr, rest = rest[0], rest[1:]
	}
	if o.doc == "" && len(rest) > 0 {
		o.doc = rest[0]
	}
	if err := evaluate(ctx, o, ev, ldr, stdin, stdout); err != nil {
		fmt.Fprintln(stderr, "metapath:", err)
		return 1
	}
	return 0
}

// serveAccess confines the server's loader to what the config allows.
func serveAccess(cfg config) []loader.Option {
	var schemes []string
	var opts []loader.Option
	if cfg.ServeRoot != "" {
		schemes = append(schemes, "file")
		opts = append(opts, loader.WithRoot(cfg.ServeRoot))
	}
	if cfg.ServeRemote {
		schemes = append(schemes, "http", "https")
	}
	return append(opts, loader.WithSchemes(schemes...))
}

func newLoader(ctx context.Context, o *options, logger *slog.Logger, access ...loader.Option) (*loader.Loader, error) {
	lopts := []loader.Option{loader.WithLogger(logger)}
	if o.format != "" {
		f, err := loader.ParseFormat(o.format)
		if err != nil {
			return nil, err
		}
		lopts = append(lopts, loader.WithFormat(f))
	}
	if o.cfg.Schema != "" {
		def, err := loader.New(lopts...).LoadSchema(ctx, o.cfg.Schema)
		if err != nil {
			return nil, err
		}
		lopts = append(lopts, loader.WithDefinition(def))
	}
	return loader.New(append(lopts, access...)...), nil
}

func newEvaluator(o *options, logger *slog.Logger) *evaluator.Evaluator {
	eopts := []evaluator.EvalOption{
		evaluator.WithLogger(logger),
		evaluator.WithDebug(o.debug),
		evaluator.WithCaching(true),
		evaluator.WithCacheSize(o.cfg.CacheSize),
	}
	if o.cfg.Timeout > 0 {
		eopts = append(eopts, evaluator.WithTimeout(time.Duration(o.cfg.Timeout)))
	}
	if o.cfg.MaxDepth > 0 {
		eopts = append(eopts, evaluator.WithMaxDepth(o.cfg.MaxDepth))
	}
	if o.cfg.MaxDescendantNodes > 0 {
		eopts = append(eopts, evaluator.WithMaxDescendantNodes(o.cfg.MaxDescendantNodes))
	}
	return evaluator.New(eopts...)
}

func evaluate(ctx context.Context, o *options, ev *evaluator.Evaluator, ldr *loader.Loader, stdin io.Reader, stdout io.Writer) error {
	as, err := gometapath.ParseResultType(o.as)
	if err != nil {
		return err
	}
	expr, err := ev.Compile(o.expr)
	if err != nil {
		return err
	}

	dopts := []evaluator.DynamicOption{evaluator.WithDocuments(ldr)}
	for name, value := range o.vars {
		dopts = append(dopts, evaluator.WithVariable(name, sequence.Of(item.UntypedAtomic(value))))
	}

	var focus item.Item
	if o.doc != "" {
		doc, err := readDocument(ctx, o.doc, ldr, stdin)
		if err != nil {
			return err
		}
		focus = doc.Node()
		if doc.BaseURI() != "" {
			dopts = append(dopts, evaluator.WithBaseURI(doc.BaseURI()))
		}
	}

	seq, err := ev.Eval(ctx, expr, focus, dopts...)
	if err != nil {
		return err
	}
	out, err := gometapath.ResultJSON(seq, as)
	if err != nil {
		return err
	}
	return writeJSON(stdout, out, o.indent(stdout))
}

// readDocument loads the named document, or decodes stdin for "-".
func readDocument(ctx context.Context, name string, ldr *loader.Loader, stdin io.Reader) (*node.Document, error) {
	if name != "-" {
		return ldr.Load(ctx, name)
	}
	dec := json.NewDecoder(stdin)
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return node.NewDocument("", data), nil
}

func (o *options) indent(w io.Writer) bool {
	switch {
	case o.compact:
		return false
	case o.pretty:
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) int {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()
	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		return 1
	}
	return 0
}
