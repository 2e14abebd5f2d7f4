// Package stats refreshes tracked game profiles block by block, pacing
// requests and isolating per-item failures.
package stats

import (
	"context"
	"runtime/debug"
	"time"

	"rankbot/internal/crash"
	"rankbot/internal/metrics"
	"rankbot/internal/storage"
	logx "rankbot/pkg/logx"
)

const DefaultCooldown = 30 * time.Minute

// Item is one tracked entity. Update fetches its current state, stages the
// new state on sess and returns what changed (nil when nothing did).
type Item interface {
	ID() string
	Update(ctx context.Context, sess *storage.Session) (Change, error)
}

// OnChange is called once per non-empty change. Its errors and panics are
// logged and never stop the block.
type OnChange func(ctx context.Context, item Item, c Change) error

// Loader lists a block's items at the start of every pass.
type Loader func(ctx context.Context, sess *storage.Session) ([]Item, error)

// Block is an ordered group of same-variant items.
type Block struct {
	Variant string
	// Delay is the minimum interval between the starts of two items.
	Delay    time.Duration
	Load     Loader
	OnChange OnChange
}

// Clock is the time source; tests substitute a fake.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Options struct {
	Blocks   []Block
	Cooldown time.Duration // default 30m
	Reporter crash.Reporter
	Clock    Clock
}

// BlockSummary counts what one ProcessBlock call did.
type BlockSummary struct {
	Processed      int
	Failed         int
	Changes        int
	CallbackErrors int
}

type Pipeline struct {
	store    *storage.Store
	log      logx.Logger
	blocks   []Block
	cooldown time.Duration
	reporter crash.Reporter
	clock    Clock
}

func New(store *storage.Store, log logx.Logger, opts Options) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Reporter == nil {
		opts.Reporter = crash.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Pipeline{
		store:    store,
		log:      log.With(logx.String("comp", "stats")),
		blocks:   append([]Block(nil), opts.Blocks...),
		cooldown: opts.Cooldown,
		reporter: opts.Reporter,
		clock:    opts.Clock,
	}
}

// RunForever runs passes separated by the cooldown until ctx is done.
func (p *Pipeline) RunForever(ctx context.Context) error {
	for {
		if err := p.RunPass(ctx); err != nil {
			return err
		}
		p.log.Info("pass complete; pausing", logx.Duration("cooldown", p.cooldown))
		if err := p.clock.Sleep(ctx, p.cooldown); err != nil {
			return err
		}
	}
}

// RunPass processes every block once, committing after each. It only fails
// when ctx is done.
func (p *Pipeline) RunPass(ctx context.Context) error {
	start := p.clock.Now()
	sess := p.store.Begin()
	for _, b := range p.blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.log.Info("now updating block", logx.String("variant", b.Variant))

		var items []Item
		if b.Load != nil {
			var err error
			items, err = b.Load(ctx, sess)
			if err != nil {
				if isCancel(ctx, err) {
					return ctx.Err()
				}
				p.log.Error("block load failed", logx.String("variant", b.Variant), logx.Err(err))
				continue
			}
		}

		sum, err := p.ProcessBlock(ctx, sess, b, items)
		p.commit(ctx, sess, b.Variant)
		if err != nil {
			return err
		}
		p.log.Debug("block done",
			logx.String("variant", b.Variant),
			logx.Int("processed", sum.Processed),
			logx.Int("failed", sum.Failed),
			logx.Int("changes", sum.Changes),
		)
	}
	metrics.ObservePass(p.clock.Now().Sub(start))
	return nil
}

func (p *Pipeline) commit(ctx context.Context, sess *storage.Session, variant string) {
	// Work done before a stop request is still saved.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := sess.Commit(cctx); err != nil {
		p.log.Error("commit failed", logx.String("variant", variant), logx.Err(err))
	}
}

// ProcessBlock updates items in order. A failing item is logged, reported and
// skipped; a change triggers b.OnChange. Between item starts at least b.Delay
// elapses. The only error returned is ctx's.
func (p *Pipeline) ProcessBlock(ctx context.Context, sess *storage.Session, b Block, items []Item) (BlockSummary, error) {
	var sum BlockSummary
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		start := p.clock.Now()
		p.log.Debug("updating item", logx.String("item", it.ID()))

		ch, err := p.update(ctx, sess, it)
		sum.Processed++
		switch {
		case err != nil && isCancel(ctx, err):
			return sum, ctx.Err()
		case err != nil:
			sum.Failed++
			p.fail(ctx, b.Variant, it, err)
		case IsEmpty(ch):
			metrics.IncItemUpdate(b.Variant, "ok")
		default:
			sum.Changes++
			metrics.IncItemUpdate(b.Variant, "ok")
			metrics.IncChange(b.Variant)
			if b.OnChange != nil {
				if cerr := p.dispatch(ctx, b.OnChange, it, ch); cerr != nil {
					sum.CallbackErrors++
					fields := []logx.Field{logx.String("item", it.ID()), logx.Err(cerr)}
					if pe, ok := cerr.(*PanicError); ok {
						fields = append(fields, logx.Stack(string(pe.Stack)))
					}
					p.log.Error("change callback failed", fields...)
				}
			}
		}

		if i == len(items)-1 {
			break
		}
		if wait := b.Delay - p.clock.Now().Sub(start); wait > 0 {
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

func (p *Pipeline) update(ctx context.Context, sess *storage.Session, it Item) (ch Change, err error) {
	defer func() {
		if r := recover(); r != nil {
			ch, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return it.Update(ctx, sess)
}

func (p *Pipeline) dispatch(ctx context.Context, fn OnChange, it Item, ch Change) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, it, ch)
}

func (p *Pipeline) fail(ctx context.Context, variant string, it Item, err error) {
	kind := Classify(err)
	status, body := HTTPDetails(err)
	fields := []logx.Field{
		logx.String("item", it.ID()),
		logx.String("kind", kind.String()),
		logx.Err(err),
	}
	if status != 0 {
		fields = append(fields, logx.Int("status", status))
	}
	if pe, ok := err.(*PanicError); ok {
		fields = append(fields, logx.Stack(string(pe.Stack)))
	}

	level := crash.LevelError
	if kind == Transient5xx {
		level = crash.LevelWarning
		p.log.Warn("server error while updating item", fields...)
	} else {
		p.log.Error("error while updating item", fields...)
	}
	metrics.IncItemUpdate(variant, kind.String())

	p.reporter.Report(ctx, crash.Report{
		Item:    it.ID(),
		Variant: variant,
		Kind:    kind.String(),
		Status:  status,
		Body:    body,
		Err:     err,
		Level:   level,
		At:      p.clock.Now(),
	})
}
