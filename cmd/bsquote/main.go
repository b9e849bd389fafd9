// Command bsquote prices options from JSON on the command line. It reads a
// quote request, or an array of them, from a file or stdin and writes the
// resolved quotes as JSON. No database, cache or network is used.
//
//	echo '{"option_type":"call","strike":100,"spot":100,"volatility":0.2,"time_to_expiry":1}' | bsquote
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/pricing"
	"github.com/alanyoungcy/optionlab/internal/service"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailures = 1
	exitUsage    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// result is one entry of the output. Exactly one of Quote and Error is set.
type result struct {
	Quote *domain.Quote `json:"quote,omitempty"`
	Error *quoteError   `json:"error,omitempty"`
}

type quoteError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bsquote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "-", "input file, - for stdin")
	rate := fs.Float64("rate", 0.05, "risk-free rate for requests without one, as a decimal")
	pretty := fs.Bool("pretty", false, "indent output")
	verbose := fs.Bool("v", false, "log solver diagnostics to stderr")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	raw, err := readInput(*in, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "bsquote: %v\n", err)
		return exitUsage
	}
	reqs, single, err := decodeRequests(raw)
	if err != nil {
		fmt.Fprintf(stderr, "bsquote: %v\n", err)
		return exitUsage
	}

	solver, err := pricing.NewSolver(pricing.DefaultSolverConfig())
	if err != nil {
		fmt.Fprintf(stderr, "bsquote: %v\n", err)
		return exitUsage
	}
	rates := service.NewRateService(nil, nil, *rate, 0, logger)
	pricer := service.NewPricingService(solver, rates, nil, nil, logger)

	ctx := context.Background()
	code := exitOK
	results := make([]result, len(reqs))
	for i, req := range reqs {
		q, err := pricer.Quote(ctx, req)
		if err != nil {
			results[i].Error = &quoteError{Kind: errorKind(err), Message: err.Error()}
			code = exitFailures
			continue
		}
		results[i].Quote = &q
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	var out any = results
	if single {
		out = results[0]
	}
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "bsquote: write output: %v\n", err)
		return exitFailures
	}
	return code
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}

// decodeRequests accepts a single object or an array of objects.
func decodeRequests(raw []byte) ([]domain.QuoteRequest, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false, errors.New("empty input")
	}
	if raw[0] == '[' {
		var reqs []domain.QuoteRequest
		if err := strictUnmarshal(raw, &reqs); err != nil {
			return nil, false, fmt.Errorf("decode request array: %w", err)
		}
		if len(reqs) == 0 {
			return nil, false, errors.New("empty request array")
		}
		return reqs, false, nil
	}
	var req domain.QuoteRequest
	if err := strictUnmarshal(raw, &req); err != nil {
		return nil, false, fmt.Errorf("decode request: %w", err)
	}
	return []domain.QuoteRequest{req}, true, nil
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrAmbiguousInput):
		return "ambiguous_input"
	case errors.Is(err, domain.ErrDomain):
		return "domain"
	case errors.Is(err, domain.ErrNoArbitrageBound):
		return "no_arbitrage_bound"
	case errors.Is(err, domain.ErrConvergence):
		return "convergence"
	}
	return "internal"
}
