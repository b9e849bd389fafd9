package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func ptr(v float64) *float64 { return &v }

type published struct {
	channel string
	event   domain.Event
}

type memBus struct {
	mu       sync.Mutex
	messages []published
	stream   []domain.StreamMessage
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	ev, err := domain.UnmarshalEvent(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{channel: channel, event: ev})
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (b *memBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("%d-0", len(b.stream)+1)
	b.stream = append(b.stream, domain.StreamMessage{ID: id, Payload: payload})
	return nil
}

// StreamRead returns entries after lastID; IDs are "<n>-0" with n from 1.
func (b *memBus) StreamRead(_ context.Context, _, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var after int
	if _, err := fmt.Sscanf(lastID, "%d", &after); err != nil {
		return nil, err
	}
	var out []domain.StreamMessage
	for i := after; i < len(b.stream) && len(out) < count; i++ {
		out = append(out, b.stream[i])
	}
	return out, nil
}

func (b *memBus) StreamRevRange(_ context.Context, _ string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.StreamMessage
	for i := len(b.stream) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, b.stream[i])
	}
	return out, nil
}

func (b *memBus) eventsOfType(typ string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, m := range b.messages {
		if m.event.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type memRateCache struct {
	rate float64
	ts   time.Time
	set  bool
}

func (c *memRateCache) SetRate(_ context.Context, rate float64, ts time.Time) error {
	c.rate, c.ts, c.set = rate, ts, true
	return nil
}

func (c *memRateCache) GetRate(context.Context) (float64, time.Time, error) {
	if !c.set {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return c.rate, c.ts, nil
}

type memQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]domain.Quote
	hits   int
}

func newMemQuoteCache() *memQuoteCache { return &memQuoteCache{quotes: map[string]domain.Quote{}} }

func (c *memQuoteCache) Get(_ context.Context, key string) (domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[key]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	c.hits++
	return q, nil
}

func (c *memQuoteCache) Set(_ context.Context, key string, q domain.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[key] = q
	return nil
}

type memScenarios struct {
	rows map[string]domain.Scenario
}

func newMemScenarios() *memScenarios { return &memScenarios{rows: map[string]domain.Scenario{}} }

func (m *memScenarios) Create(_ context.Context, s domain.Scenario) error {
	m.rows[s.ID] = s
	return nil
}

func (m *memScenarios) GetByID(_ context.Context, id string) (domain.Scenario, error) {
	s, ok := m.rows[id]
	if !ok {
		return domain.Scenario{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memScenarios) List(context.Context, domain.ListOpts) ([]domain.Scenario, error) {
	out := make([]domain.Scenario, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *memScenarios) ListBefore(context.Context, time.Time, int) ([]domain.Scenario, error) {
	return nil, nil
}

func (m *memScenarios) DeleteByIDs(context.Context, []string) (int64, error) { return 0, nil }

type memLocks struct {
	held     map[string]bool
	released int
}

func (l *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[key] = true
	return func() {
		delete(l.held, key)
		l.released++
	}, nil
}

type stubArchiver struct {
	cutoffs []time.Time
	n       int64
	err     error
}

func (a *stubArchiver) ArchiveScenarios(_ context.Context, before time.Time) (int64, error) {
	a.cutoffs = append(a.cutoffs, before)
	return a.n, a.err
}

type stubBlobs struct {
	prefix  string
	infos   []domain.BlobInfo
	objects map[string]string
	got     []string
}

func (b *stubBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b.got = append(b.got, path)
	body, ok := b.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (b *stubBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	b.prefix = prefix
	return b.infos, nil
}

func (b *stubBlobs) Exists(context.Context, string) (bool, error) { return false, nil }
