package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	sessionName = "leapbind"
	clientKey   = "client"
	argsSignal  = "args"
)

// Handlers serves the observables of a Technology to browsers.
type Handlers struct {
	tech         *Technology
	sessionStore sessions.Store
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(tech *Technology, sessionStore sessions.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		tech:         tech,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// Index renders the page with the current signals of every attached
// observable.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	client := h.clientID(w, r)

	var page []byte
	var renderErr error
	err := h.tech.loop.Call(r.Context(), func(context.Context) {
		page, renderErr = h.tech.renderPage(client)
	})
	if err = errors.Join(err, renderErr); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// Updates is the long-lived SSE endpoint. It first catches up with the
// changes made after the page was rendered, then pushes every new change.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	sse := datastar.NewSSE(w, r)

	updates, release := h.tech.notifier.subscribe()
	defer release()

	ctx := r.Context()
	for {
		next, err := h.push(ctx, sse, since)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			_ = sse.ConsoleError(err)
		}
		since = next

		select {
		case <-ctx.Done():
			return
		case <-updates:
		}
	}
}

// push sends the changes made after since and returns the new position.
func (h *Handlers) push(ctx context.Context, sse *datastar.ServerSentEventGenerator, since uint64) (uint64, error) {
	var u *update
	if err := h.tech.loop.Call(ctx, func(context.Context) {
		u = h.tech.changesSince(since)
	}); err != nil {
		return since, err
	}
	if u.empty() {
		return u.seq, nil
	}

	if len(u.signals) > 0 {
		if err := sse.MarshalAndPatchSignals(u.signals); err != nil {
			return since, fmt.Errorf("patch signals: %w", err)
		}
	}
	for _, lv := range u.lists {
		html, err := renderList(lv)
		if err != nil {
			return since, err
		}
		if err := sse.PatchElements(html); err != nil {
			return since, fmt.Errorf("patch %s: %w", lv.Element, err)
		}
	}
	return u.seq, nil
}

// Set writes the signals of one observable back into its model.
func (h *Handlers) Set(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, "")
}

// Call writes the signals of one observable back into its model, then
// invokes a model function. The "args" signal, or the list element named
// by the item query parameter, is passed as call data.
func (h *Handlers) Call(w http.ResponseWriter, r *http.Request) {
	h.invoke(w, r, chi.URLParam(r, "fn"))
}

func (h *Handlers) invoke(w http.ResponseWriter, r *http.Request, fn string) {
	client := h.clientID(w, r)

	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var signals map[string]any
	readErr := datastar.ReadSignals(r, &signals)
	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		_ = sse.ConsoleError(fmt.Errorf("read signals: %w", readErr))
		return
	}

	o, ok := h.tech.Lookup(chi.URLParam(r, "id"))
	if !ok {
		_ = sse.ConsoleError(fmt.Errorf("unknown observable %q", chi.URLParam(r, "id")))
		return
	}
	itemID := r.URL.Query().Get("item")

	var opErr error
	err := h.tech.loop.Call(r.Context(), func(context.Context) {
		if ns, ok := signals[o.namespace].(map[string]any); ok {
			if opErr = o.apply(ns); opErr != nil {
				return
			}
		}
		if fn == "" {
			return
		}
		data := signals[argsSignal]
		if itemID != "" {
			item, ok := h.tech.Lookup(itemID)
			if !ok {
				opErr = fmt.Errorf("unknown item %q", itemID)
				return
			}
			data = item.model
		}
		opErr = o.call(fn, data)
	})
	if err = errors.Join(err, opErr); err != nil {
		h.logger.Warn("browser call failed", "client", client, "observable", o.id, "function", fn, "error", err)
		_ = sse.ConsoleError(err)
		return
	}
	h.logger.Debug("browser call", "client", client, "observable", o.id, "function", fn)
}

// clientID identifies the browser through a session cookie.
func (h *Handlers) clientID(w http.ResponseWriter, r *http.Request) string {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		h.logger.Debug("discarding undecodable session", "error", err)
	}
	if id, ok := session.Values[clientKey].(string); ok {
		return id
	}
	id := uuid.NewString()
	session.Values[clientKey] = id
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}
	return id
}
