package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/notify"
)

type recordSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordSender) Name() string { return r.name }

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestNotifyFilters(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := notify.NewNotifier([]notify.Sender{s}, []string{notify.AlertSolverFailed}, discard())

	ctx := context.Background()
	if err := n.Notify(ctx, notify.AlertSolverFailed, "a", "x"); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(ctx, notify.AlertArchiveCompleted, "b", "y"); err != nil {
		t.Fatal(err)
	}
	if len(s.titles) != 1 || s.titles[0] != "a" {
		t.Errorf("expected only the allowed alert, got %v", s.titles)
	}
}

func TestNotifyAllowsEverythingWhenUnfiltered(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := notify.NewNotifier([]notify.Sender{s}, nil, discard())
	_ = n.Notify(context.Background(), "anything", "t", "m")
	if len(s.titles) != 1 {
		t.Errorf("expected delivery, got %v", s.titles)
	}
}

func TestNotifyCollectsSenderErrors(t *testing.T) {
	bad := &recordSender{name: "bad", err: errors.New("down")}
	good := &recordSender{name: "good"}
	n := notify.NewNotifier([]notify.Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), notify.AlertError, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Fatalf("expected combined error naming the sender, got %v", err)
	}
	if len(good.titles) != 1 {
		t.Error("a failing sender must not block the others")
	}
}

func TestFormatEvent(t *testing.T) {
	ev := domain.NewEvent(domain.EventSolverFailed, map[string]any{"solver": "implied volatility", "iterations": 100})
	alert, title, msg, ok := notify.FormatEvent(ev)
	if !ok || alert != notify.AlertSolverFailed || title == "" {
		t.Fatalf("unexpected mapping: %q %q %v", alert, title, ok)
	}
	if msg != "iterations: 100\nsolver: implied volatility" {
		t.Errorf("unexpected message %q", msg)
	}

	if _, _, _, ok := notify.FormatEvent(domain.NewEvent(domain.EventQuoteComputed, nil)); ok {
		t.Error("computed quotes should not alert")
	}
}

func TestDiscordSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := notify.NewDiscordSender(srv.URL).Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	embeds, _ := got["embeds"].([]any)
	if len(embeds) != 1 {
		t.Fatalf("expected one embed, got %v", got)
	}
	if e := embeds[0].(map[string]any); e["title"] != "Title" {
		t.Errorf("embed title: %v", e["title"])
	}
}

func TestTelegramSender(t *testing.T) {
	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := notify.NewTelegramSender("TOKEN", "42").WithBaseURL(srv.URL + "/")
	if err := s.Send(context.Background(), "T", "m"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path: %s", path)
	}
	if body["chat_id"] != "42" || !strings.HasPrefix(body["text"], "*T*") {
		t.Errorf("body: %v", body)
	}
}

func TestSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := notify.NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status error, got %v", err)
	}
}
