// Package server exposes Metapath evaluation over HTTP.
//
// Routes:
//
//	POST /evaluate   evaluate an expression against an inline or loaded document
//	GET  /functions  list the functions of the evaluator's registry
//	GET  /version    report the library version
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sandrolain/gometapath"
	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/loader"
	"github.com/sandrolain/gometapath/pkg/node"
	"github.com/sandrolain/gometapath/pkg/sequence"
	"github.com/sandrolain/gometapath/pkg/types"
)

// DefaultMaxBodyBytes bounds the size of an evaluation request.
const DefaultMaxBodyBytes = 8 << 20

// RequestIDHeader carries the request ID in responses.
const RequestIDHeader = "X-Request-ID"

// Server handles evaluation requests. It is safe for concurrent use.
type Server struct {
	ev       *evaluator.Evaluator
	loader   *loader.Loader
	registry *functions.Registry
	logger   *slog.Logger
	maxBody  int64
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithEvaluator sets the evaluator. It should have caching enabled, since
// requests compile through it.
func WithEvaluator(ev *evaluator.Evaluator) Option {
	return func(s *Server) {
		s.ev = ev
	}
}

// WithLoader sets the loader used for request URIs and doc(). URIs come
// from clients, so the loader should be confined with loader.WithSchemes
// and loader.WithRoot. Without this option nothing can be loaded.
func WithLoader(l *loader.Loader) Option {
	return func(s *Server) {
		s.loader = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxBodyBytes bounds request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{maxBody: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ev == nil {
		s.ev = evaluator.New(evaluator.WithCaching(true), evaluator.WithLogger(s.logger))
	}
	if s.loader == nil {
		s.loader = loader.New(loader.WithLogger(s.logger), loader.WithSchemes())
	}
	s.registry = s.ev.Options().Registry

	r := mux.NewRouter()
	r.HandleFunc("/evaluate", s.withRequestID(s.handleEvaluate)).Methods(http.MethodPost)
	r.HandleFunc("/functions", s.withRequestID(s.handleFunctions)).Methods(http.MethodGet)
	r.HandleFunc("/version", s.withRequestID(s.handleVersion)).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type requestIDKey struct{}

func (s *Server) withRequestID(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set(RequestIDHeader, id)
		s.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path)
		h(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// EvaluateRequest is the body of POST /evaluate.
type EvaluateRequest struct {
	Expression string `json:"expression"`
	// Document is evaluated inline. It takes precedence over URI.
	Document any `json:"document,omitempty"`
	// URI names a document to load. It is also the base URI for doc().
	URI string `json:"uri,omitempty"`
	// As selects the result reduction: sequence (default), boolean,
	// string, number or node.
	As string `json:"as,omitempty"`
	// Variables binds external variables to scalars or arrays of scalars.
	Variables map[string]any `json:"variables,omitempty"`
}

// EvaluateResponse is the body of a successful POST /evaluate.
type EvaluateResponse struct {
	ID         string `json:"id"`
	Result     any    `json:"result"`
	StaticType string `json:"static_type"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Position *int   `json:"position,omitempty"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	ID    string    `json:"id"`
	Error ErrorBody `json:"error"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req EvaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	as, err := gometapath.ParseResultType(req.As)
	if req.As == "" {
		as, err = gometapath.ResultSequence, nil
	}
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	expr, err := s.ev.Compile(req.Expression)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	opts := []evaluator.DynamicOption{evaluator.WithDocuments(s.loader)}
	if req.URI != "" {
		opts = append(opts, evaluator.WithBaseURI(req.URI))
	}
	for name, v := range req.Variables {
		seq, err := variable(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("variable $%s: %w", name, err))
			return
		}
		opts = append(opts, evaluator.WithVariable(name, seq))
	}

	var focus item.Item
	switch {
	case req.Document != nil:
		focus = node.NewDocument(req.URI, req.Document).Node()
	case req.URI != "":
		doc, err := s.loader.Load(ctx, req.URI)
		if err != nil {
			s.writeError(w, r, statusOf(err), err)
			return
		}
		focus = doc.Node()
	}

	seq, err := s.ev.Eval(ctx, expr, focus, opts...)
	if err != nil {
		s.writeError(w, r, statusOf(err), err)
		return
	}
	result, err := gometapath.ResultJSON(seq, as)
	if err != nil {
		s.writeError(w, r, statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, EvaluateResponse{
		ID:         requestID(ctx),
		Result:     result,
		StaticType: expr.StaticType().String(),
	})
}

// variable converts a decoded JSON value into a sequence.
func variable(v any) (*sequence.Sequence, error) {
	if arr, ok := v.([]any); ok {
		items := make([]item.Item, 0, len(arr))
		for _, e := range arr {
			a, ok := item.FromGo(e)
			if !ok {
				return nil, errors.New("array members must be scalars")
			}
			items = append(items, a)
		}
		return sequence.FromList(items), nil
	}
	if v == nil {
		return sequence.Empty(), nil
	}
	a, ok := item.FromGo(v)
	if !ok {
		return nil, errors.New("value must be a scalar or an array of scalars")
	}
	return sequence.Of(a), nil
}

// statusOf maps an evaluation error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded), types.CodeOf(err) == types.ErrEvaluationTimeout:
		return http.StatusGatewayTimeout
	case errors.Is(err, loader.ErrAccessDenied):
		return http.StatusForbidden
	case types.CodeOf(err) == types.ErrDocumentLoad:
		return http.StatusBadGateway
	case errors.Is(err, types.ErrCompile):
		return http.StatusBadRequest
	case types.CodeOf(err) != "":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// FunctionInfo describes one function in GET /functions.
type FunctionInfo struct {
	Name    string `json:"name"`
	MinArgs int    `json:"min_args"`
	// MaxArgs is -1 for variadic functions.
	MaxArgs int    `json:"max_args"`
	Returns string `json:"returns"`
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	fns := s.registry.Functions()
	out := make([]FunctionInfo, len(fns))
	for i, f := range fns {
		out[i] = FunctionInfo{Name: f.Name, MinArgs: f.MinArgs, MaxArgs: f.MaxArgs, Returns: f.ReturnType.String()}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": gometapath.Version()})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := requestID(r.Context())
	body := ErrorBody{Message: err.Error()}
	var te *types.Error
	if errors.As(err, &te) {
		body.Code = string(te.Code)
		body.Message = te.Message
		if te.Position >= 0 {
			pos := te.Position
			body.Position = &pos
		}
	}
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	s.logger.Log(r.Context(), level, "request failed", "id", id, "status", status, "error", err)
	s.writeJSON(w, status, ErrorResponse{ID: id, Error: body})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
