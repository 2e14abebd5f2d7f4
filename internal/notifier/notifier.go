package notifier

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rankbot/internal/transport"
	logx "rankbot/pkg/logx"
)

var ErrNoAdapter = errors.New("notifier has no transport")

const historyMax = 300

// Service delivers notifications through a transport.Adapter.
//
// It is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	log     logx.Logger
	adapter transport.Adapter
	cfg     Config
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, adapter transport.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		adapter: adapter,
		log:     log.With(logx.String("comp", "notifier")),
		sleep:   sleepCtx,
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	s.cfg = cfg
	// A League change can produce up to three messages at once.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), max(cfg.RatePerSec, 3))
}

// Send delivers text to the configured target, retrying transient failures.
// Unlike Notify it returns the final error.
func (s *Service) Send(ctx context.Context, text string, opt *transport.SendOptions) error {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	ad := s.adapter
	s.mu.Unlock()

	if ad == nil {
		return ErrNoAdapter
	}
	attempts := 1 + cfg.RetryMax

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		_, err := ad.SendText(callCtx, cfg.Target, text, opt)
		cancel()
		if err == nil {
			s.appendHistory(text, nil)
			return nil
		}
		lastErr = err
		s.log.Debug("notify send failed", logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", attempts))
		if attempt == attempts {
			break
		}
		if err := s.sleep(ctx, retryDelay(cfg, attempt)); err != nil {
			return err
		}
	}
	s.appendHistory(text, lastErr)
	return lastErr
}

// Notify is Send with delivery errors logged and swallowed.
func (s *Service) Notify(ctx context.Context, text string, opt *transport.SendOptions) {
	if err := s.Send(ctx, text, opt); err != nil {
		s.log.Warn("couldn't deliver notification", logx.Err(err), logx.String("text", text))
	}
}

// Snapshot returns recent deliveries, oldest first.
func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(text string, err error) {
	h := HistoryItem{At: time.Now(), Text: text}
	if err != nil {
		h.Err = err.Error()
	}
	s.hmu.Lock()
	s.history = append(s.history, h)
	if len(s.history) > historyMax {
		s.history = s.history[len(s.history)-historyMax:]
	}
	s.hmu.Unlock()
}

func retryDelay(cfg Config, attempt int) time.Duration {
	// Exponential backoff: base * 2^(attempt-1), capped.
	d := cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	// Jitter 0.7..1.3
	j := 0.7 + rand.Float64()*0.6
	return max(time.Duration(float64(d)*j), 0)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
