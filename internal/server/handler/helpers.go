package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorResponse is the body for engine and input failures.
type errorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeServiceError maps err onto a status code. Input and solver failures
// are echoed to the caller; anything else is logged and hidden behind msg.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	var (
		de *domain.DomainError
		ae *domain.AmbiguousInputError
		ne *domain.NoArbitrageBoundError
		ce *domain.ConvergenceError
	)
	switch {
	case errors.As(err, &de):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   de.Error(),
			Kind:    "domain",
			Details: map[string]any{"field": de.Field, "reason": de.Reason},
		})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   ae.Error(),
			Kind:    "ambiguous_input",
			Details: map[string]any{"missing": nonNil(ae.Missing)},
		})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   ne.Error(),
			Kind:    "no_arbitrage_bound",
			Details: map[string]any{"target": ne.Target, "lower": finiteOrNil(ne.Lower), "upper": finiteOrNil(ne.Upper)},
		})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   ce.Error(),
			Kind:    "convergence",
			Details: map[string]any{"solver": ce.Solver, "iterations": ce.Iterations},
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, msg+": not found")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, domain.ErrRateLimited.Error())
	default:
		logger.ErrorContext(r.Context(), "handler: "+msg,
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// finiteOrNil turns infinities into JSON null.
func finiteOrNil(v float64) any {
	if math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid request body: trailing data")
	}
	return nil
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0. since and until take RFC 3339
// timestamps; unparsable values are ignored.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	opts := domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
	if t, err := time.Parse(time.RFC3339, q.Get("since")); err == nil {
		opts.Since = &t
	}
	if t, err := time.Parse(time.RFC3339, q.Get("until")); err == nil {
		opts.Until = &t
	}
	return opts
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
