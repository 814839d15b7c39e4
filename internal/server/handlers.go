package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/leapstack-labs/stache/internal/config"
	"github.com/leapstack-labs/stache/internal/registry"
	"github.com/leapstack-labs/stache/internal/template"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Error codes returned in JSON error bodies alongside template error codes.
const (
	codeBadRequest = "BAD_REQUEST"
	codeNotFound   = "NOT_FOUND"
)

type handlers struct {
	registry *registry.TemplateRegistry
	vars     template.Map
	opts     []template.Option
	events   *broadcaster
	metrics  *metrics
	logger   *slog.Logger
}

func (h *handlers) routes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Get("/templates", h.listTemplates)
	r.Post("/templates/{name}/render", h.renderNamed)
	r.Post("/render", h.renderInline)
	r.Get("/events", h.streamEvents)
}

type renderRequest struct {
	Template   string             `json:"template"`
	Vars       map[string]any     `json:"vars"`
	Delimiters *delimitersRequest `json:"delimiters,omitempty"`
}

type delimitersRequest struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type renderResponse struct {
	Output  string `json:"output"`
	TraceID string `json:"trace_id"`
}

type templateInfo struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"templates": h.registry.Count(),
	})
}

func (h *handlers) listTemplates(w http.ResponseWriter, _ *http.Request) {
	entries := h.registry.All()
	list := make([]templateInfo, 0, len(entries))
	for _, e := range entries {
		list = append(list, templateInfo{Name: e.Name, Path: e.Path})
	}
	writeJSON(w, http.StatusOK, list)
}

// renderNamed renders a registered template. The body, if any, is a JSON
// object of variables. The response is the rendered text.
func (h *handlers) renderNamed(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok := h.registry.Get(name)
	if !ok {
		h.metrics.render(renderNamed, resultError)
		writeError(w, http.StatusNotFound, errorBody{Code: codeNotFound, Message: fmt.Sprintf("template %q not found", name)})
		return
	}

	var vars map[string]any
	if err := decodeBody(r, &vars, true); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Trace-Id", entry.Template.TraceID())
	w.WriteHeader(http.StatusOK)
	ctx := template.Merge(template.Merge(entry.Defaults, h.vars), template.NewContext(vars))
	h.metrics.render(renderNamed, resultOK)
	if err := entry.Template.RenderTo(w, ctx); err != nil {
		h.logger.Warn("failed to write response", "template", entry.Name, "error", err)
	}
}

// renderInline compiles and renders a template body sent in the request.
func (h *handlers) renderInline(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: err.Error()})
		return
	}

	opts := append([]template.Option{template.WithName("request"), template.WithLogger(h.logger)}, h.opts...)
	if req.Delimiters != nil {
		d := &config.DelimiterConfig{Open: req.Delimiters.Open, Close: req.Delimiters.Close}
		if err := d.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, errorBody{Code: codeBadRequest, Message: err.Error()})
			return
		}
		opts = append(opts, template.WithDelimiters(d.Open, d.Close))
	}

	tmpl, err := template.Compile(req.Template, opts...)
	if err != nil {
		h.metrics.render(renderInline, resultError)
		writeTemplateError(w, err)
		return
	}
	h.metrics.render(renderInline, resultOK)

	out := tmpl.Render(template.Merge(h.vars, template.NewContext(req.Vars)))
	writeJSON(w, http.StatusOK, renderResponse{Output: out, TraceID: tmpl.TraceID()})
}

// streamEvents sends reload events as server-sent events until the client
// disconnects or the server shuts down.
func (h *handlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errorBody{Code: "STREAMING_UNSUPPORTED", Message: "streaming unsupported"})
		return
	}

	events := h.events.subscribe()
	defer h.events.unsubscribe(events)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("failed to encode event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// decodeBody decodes a JSON request body into v. Numbers keep their decimal
// text. An empty body is accepted only when allowEmpty is set.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeTemplateError(w http.ResponseWriter, err error) {
	var tErr *template.Error
	if !errors.As(err, &tErr) {
		writeError(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: err.Error()})
		return
	}
	writeError(w, http.StatusUnprocessableEntity, errorBody{
		Code:    string(tErr.Code),
		Message: tErr.Message,
		Name:    tErr.Pos.Name,
		Line:    tErr.Pos.Line,
		Column:  tErr.Pos.Column,
		TraceID: tErr.TraceID,
	})
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
