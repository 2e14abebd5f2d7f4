package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"rankbot/internal/stats"
	"rankbot/internal/storage"
	"rankbot/internal/transport"
	logx "rankbot/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	to    []transport.ChatTarget
	fails int // fail this many sends first
	err   error
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                          { return nil }

func (f *fakeAdapter) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return transport.MessageRef{}, f.err
	}
	f.sent = append(f.sent, text)
	f.to = append(f.to, to)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

type item struct{ id, owner string }

func (i item) ID() string    { return i.id }
func (i item) Owner() string { return i.owner }
func (i item) Update(context.Context, *storage.Session) (stats.Change, error) {
	return nil, nil
}

func newTestService(ad transport.Adapter, cfg Config) *Service {
	s := New(cfg, ad, logx.Nop())
	s.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return s
}

func TestLeagueRankSkipsAbsentQueues(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{Target: transport.ChatTarget{ChatID: -100, ThreadID: 7}, RatePerSec: 100})

	ch := stats.SubModeDeltas{nil, {Old: "SILVER I", New: "GOLD IV"}, nil}
	if err := s.LeagueRank(context.Background(), item{id: "league:1", owner: "steffo"}, ch); err != nil {
		t.Fatalf("LeagueRank() error: %v", err)
	}
	if len(ad.sent) != 1 {
		t.Fatalf("sent %d messages, want 1: %v", len(ad.sent), ad.sent)
	}
	msg := ad.sent[0]
	if !strings.Contains(msg, "<b>FLEX</b>") || !strings.Contains(msg, "SILVER I -> <b>GOLD IV</b>") || !strings.Contains(msg, "steffo") {
		t.Fatalf("message = %q", msg)
	}
	if ad.to[0] != (transport.ChatTarget{ChatID: -100, ThreadID: 7}) {
		t.Fatalf("target = %+v", ad.to[0])
	}
}

func TestLeagueRankAllQueues(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{RatePerSec: 100})
	ch := stats.SubModeDeltas{{New: "A"}, {New: "B"}, {New: "C"}}
	_ = s.LeagueRank(context.Background(), item{id: "x"}, ch)
	if len(ad.sent) != 3 {
		t.Fatalf("sent %d, want 3", len(ad.sent))
	}
	for i, label := range []string{"SOLO/DUO", "FLEX", "3V3"} {
		if !strings.Contains(ad.sent[i], label) {
			t.Fatalf("message %d = %q, want %s", i, ad.sent[i], label)
		}
	}
	// No Owner: falls back to the item id.
	if !strings.Contains(ad.sent[0], "x has a new rank") {
		t.Fatalf("message = %q", ad.sent[0])
	}
}

func TestDotaRankEscapesAndSends(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{RatePerSec: 100})
	err := s.DotaRank(context.Background(), item{id: "dota:1", owner: "<max>"}, stats.SingleDelta{Old: "Archon 5", New: "Legend 1"})
	if err != nil {
		t.Fatal(err)
	}
	want := "✳️ &lt;max&gt; is now <b>Legend 1</b> on Dota 2! (was Archon 5)"
	if len(ad.sent) != 1 || ad.sent[0] != want {
		t.Fatalf("sent = %q, want %q", ad.sent, want)
	}
}

func TestDeliveryErrorsAreSwallowed(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{fails: 10, err: errors.New("telegram: bad gateway")}
	s := newTestService(ad, Config{RatePerSec: 100, RetryMax: 2})
	if err := s.DotaRank(context.Background(), item{id: "d"}, stats.SingleDelta{New: "Herald 1"}); err != nil {
		t.Fatalf("DotaRank() returned %v, delivery errors must not propagate", err)
	}
	if ad.fails != 7 {
		t.Fatalf("attempts = %d, want 3", 10-ad.fails)
	}
	h := s.Snapshot()
	if len(h) != 1 || h[0].Err == "" {
		t.Fatalf("history = %+v", h)
	}
}

func TestSendRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{fails: 1, err: errors.New("timeout")}
	s := newTestService(ad, Config{RatePerSec: 100, RetryMax: 1})
	if err := s.Send(context.Background(), "hi", nil); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(ad.sent) != 1 {
		t.Fatalf("sent = %v", ad.sent)
	}
}

func TestWrongChangeShapeIsIgnored(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	s := newTestService(ad, Config{RatePerSec: 100})
	_ = s.DotaRank(context.Background(), item{id: "d"}, stats.SubModeDeltas{})
	_ = s.LeagueRank(context.Background(), item{id: "l"}, stats.SingleDelta{})
	if len(ad.sent) != 0 {
		t.Fatalf("sent = %v", ad.sent)
	}
}

func TestSendWithoutAdapter(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, logx.Nop())
	if err := s.Send(context.Background(), "x", nil); !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("Send() = %v, want ErrNoAdapter", err)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: time.Second, RetryMaxDelay: 4 * time.Second}
	for attempt, nominal := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 6: 4 * time.Second} {
		d := retryDelay(cfg, attempt)
		lo, hi := time.Duration(float64(nominal)*0.7), time.Duration(float64(nominal)*1.3)
		if d < lo || d > hi {
			t.Fatalf("retryDelay(%d) = %s, want within [%s, %s]", attempt, d, lo, hi)
		}
	}
}
