package onebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yiyinbot/yiyin/pkg/observability"
)

const (
	maxEventBody    = 8 << 20
	shutdownTimeout = 5 * time.Second
)

// Handler receives decoded events.
type Handler interface {
	HandleEvent(ctx context.Context, ev *Event)
}

// HandlerFunc adapts a function to [Handler].
type HandlerFunc func(ctx context.Context, ev *Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, ev *Event) { f(ctx, ev) }

// Server receives events posted by the OneBot implementation. Each event is
// handled on its own goroutine after the webhook has replied.
type Server struct {
	handler Handler
	secret  string
	logger  *log.Logger

	mu   sync.Mutex
	base context.Context
	wg   sync.WaitGroup
}

// NewServer creates a webhook server. A non-empty secret enables
// X-Signature verification.
func NewServer(h Handler, secret string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{handler: h, secret: secret, logger: logger, base: context.Background()}
}

// Router returns the HTTP routes: POST /onebot and GET /healthz.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/onebot", s.handleEvent)
	r.Post("/", s.handleEvent)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	return r
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if s.secret != "" && !VerifySignature(s.secret, body, r.Header.Get("X-Signature")) {
		s.logger.Warn("rejected event with bad signature", "remote", r.RemoteAddr)
		http.Error(w, "bad signature", http.StatusUnauthorized)
		return
	}
	ev, err := ParseEvent(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)

	if ev.PostType == PostMetaEvent {
		return
	}
	observability.Bot().OnEvent(r.Context(), ev.PostType, ev.Group())
	s.dispatch(ev)
}

func (s *Server) dispatch(ev *Event) {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("event handler panicked", "panic", p, "message_id", ev.MessageID)
			}
		}()
		s.handler.HandleEvent(ctx, ev)
	}()
}

// Wait blocks until all dispatched events have been handled.
func (s *Server) Wait() { s.wg.Wait() }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// waits for in-flight handlers.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.ListenAndServe] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("webhook listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.Wait()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	return err
}

// Sign returns the X-Signature value for body: "sha1=" followed by the hex
// HMAC-SHA1 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether header is the signature of body.
func VerifySignature(secret string, body []byte, header string) bool {
	got, ok := strings.CutPrefix(header, "sha1=")
	if !ok {
		return false
	}
	want := Sign(secret, body)[len("sha1="):]
	return hmac.Equal([]byte(got), []byte(want))
}
