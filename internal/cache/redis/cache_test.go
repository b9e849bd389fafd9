package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

func TestRateEncoding(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)
	enc := encodeRate(0.0425, ts)

	vals := make(map[string]string, len(enc))
	for k, v := range enc {
		vals[k] = v.(string)
	}
	rate, got, err := decodeRate(vals)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rate != 0.0425 {
		t.Errorf("rate: expected 0.0425, got %v", rate)
	}
	if !got.Equal(ts) {
		t.Errorf("ts: expected %v, got %v", ts, got)
	}
}

func TestDecodeRateMissing(t *testing.T) {
	if _, _, err := decodeRate(map[string]string{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty hash: expected ErrNotFound, got %v", err)
	}
	if _, _, err := decodeRate(map[string]string{"rate": "0.05"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing ts: expected ErrNotFound, got %v", err)
	}
	if _, _, err := decodeRate(map[string]string{"rate": "x", "ts": "1"}); err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bad rate: expected parse error, got %v", err)
	}
}

func TestDecodeMessages(t *testing.T) {
	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{"payload": "a"}},
		{ID: "2-0", Values: map[string]any{"other": "b"}},
		{ID: "3-0", Values: map[string]any{"payload": []byte("c")}},
	}
	got := decodeMessages(msgs)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != "1-0" || string(got[0].Payload) != "a" {
		t.Errorf("first message: %+v", got[0])
	}
	if got[1].ID != "3-0" || string(got[1].Payload) != "c" {
		t.Errorf("second message: %+v", got[1])
	}
}

func TestKeys(t *testing.T) {
	cases := map[string]string{
		quoteKey("abc"):    "quote:abc",
		lockKey("archive"): "lock:archive",
		rateLimitKey("ip"): "ratelimit:ip",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
	if !hasPattern("quotes*") || hasPattern("quotes") {
		t.Error("hasPattern misclassified channel names")
	}
}
