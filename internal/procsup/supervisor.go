package procsup

import (
	"context"
	"errors"
	"os"
	"time"

	"rankbot/internal/metrics"
	logx "rankbot/pkg/logx"
)

const DefaultPollInterval = 10 * time.Second

// Options are the supervisor knobs. Zero values pick the defaults.
type Options struct {
	// PollInterval is the liveness polling period (default 10s).
	PollInterval time.Duration
	// StopTimeout bounds the join of each worker at shutdown; after it the
	// worker is killed. Zero means wait forever.
	StopTimeout time.Duration
	// SignalUnpaired sends a terminate signal to every worker without a stop
	// channel at shutdown. Without it, joining such a worker relies on it
	// exiting on its own.
	SignalUnpaired bool
	// Excluded roles are never spawned and never polled.
	Excluded map[string]bool
	// Notify reports lifecycle state to the service manager (sd_notify).
	Notify func(state string)
}

// Supervisor keeps one process alive per WorkerSpec.
//
// The handle table is owned by the goroutine calling Start/Poll/Run/Shutdown;
// none of these methods are safe for concurrent use.
type Supervisor struct {
	specs   []WorkerSpec
	spawner Spawner
	stop    StopChannel
	log     logx.Logger
	opts    Options

	handles  map[string]*WorkerHandle
	restarts map[string]int
	started  bool
	stopping bool
}

func New(specs []WorkerSpec, spawner Spawner, stop StopChannel, log logx.Logger, opts Options) *Supervisor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Supervisor{
		specs:    append([]WorkerSpec(nil), specs...),
		spawner:  spawner,
		stop:     stop,
		log:      log,
		opts:     opts,
		handles:  map[string]*WorkerHandle{},
		restarts: map[string]int{},
	}
}

// Specs returns the managed (non-excluded) specs in start order.
func (s *Supervisor) Specs() []WorkerSpec {
	out := make([]WorkerSpec, 0, len(s.specs))
	for _, sp := range s.specs {
		if s.opts.Excluded[sp.Role] {
			continue
		}
		out = append(out, sp)
	}
	return out
}

// Handle returns the current handle for a worker, or nil.
func (s *Supervisor) Handle(name string) *WorkerHandle { return s.handles[name] }

// Restarts returns how many times a worker was replaced.
func (s *Supervisor) Restarts(name string) int { return s.restarts[name] }

// Snapshot lists the managed workers in spec order.
func (s *Supervisor) Snapshot() []WorkerStatus {
	out := make([]WorkerStatus, 0, len(s.specs))
	for _, sp := range s.Specs() {
		st := WorkerStatus{Name: sp.Name, Role: sp.Role, Restarts: s.restarts[sp.Name]}
		if h := s.handles[sp.Name]; h != nil {
			st.Pid = h.Process.Pid()
			st.Since = h.StartedAt
			_, exited := h.Process.Exited()
			st.Alive = !exited
		}
		out = append(out, st)
	}
	return out
}

// Start spawns one process per managed spec.
func (s *Supervisor) Start() {
	for _, sp := range s.specs {
		if s.opts.Excluded[sp.Role] {
			s.log.Warn("worker disabled in this run mode", logx.String("worker", sp.Name), logx.String("role", sp.Role))
			continue
		}
		s.log.Info("starting worker", logx.String("worker", sp.Name), logx.String("role", sp.Role))
		s.spawn(sp)
	}
	s.started = true
}

func (s *Supervisor) spawn(sp WorkerSpec) {
	var stopEnd *os.File
	if sp.Paired && s.stop != nil {
		stopEnd = s.stop.WorkerEnd()
	}
	p, err := s.spawner.Spawn(sp, stopEnd)
	if err != nil {
		// The slot stays empty; the next poll tries again.
		s.log.Error("worker spawn failed", logx.String("worker", sp.Name), logx.Err(err))
		return
	}
	s.handles[sp.Name] = &WorkerHandle{Spec: sp, Process: p, StartedAt: time.Now()}
	metrics.IncWorkerStart(sp.Name)
	metrics.SetWorkerUp(sp.Name, true)
	s.log.Debug("worker spawned", logx.String("worker", sp.Name), logx.Int("pid", p.Pid()))
}

// Poll is one monitor tick: every terminated worker, whatever its exit status,
// is logged, dropped and replaced from the same spec. Empty slots (failed
// spawns) are retried.
func (s *Supervisor) Poll() {
	if s.stopping {
		return
	}
	for _, sp := range s.specs {
		if s.opts.Excluded[sp.Role] {
			continue
		}
		h := s.handles[sp.Name]
		if h == nil {
			s.log.Info("retrying worker spawn", logx.String("worker", sp.Name))
			s.spawn(sp)
			continue
		}
		st, exited := h.Process.Exited()
		if !exited {
			continue
		}
		h.Exit = &st
		metrics.SetWorkerUp(sp.Name, false)
		s.log.Warn("worker exited",
			logx.String("worker", sp.Name),
			logx.Int("pid", h.Process.Pid()),
			logx.Int("exit_code", st.Code),
			logx.String("status", st.Text),
			logx.Duration("uptime", st.At.Sub(h.StartedAt)),
		)
		delete(s.handles, sp.Name)
		s.restarts[sp.Name]++
		metrics.IncWorkerRestart(sp.Name)
		s.log.Info("restarting worker", logx.String("worker", sp.Name), logx.Int("restarts", s.restarts[sp.Name]))
		s.spawn(sp)
	}
}

// Run starts every worker, polls until ctx is done, then shuts down.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.started {
		s.Start()
	}
	s.opts.Notify("READY=1")

	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("now stopping")
			return s.Shutdown(context.Background())
		case <-t.C:
			s.Poll()
			s.opts.Notify("WATCHDOG=1")
		}
	}
}

// Shutdown sends the stop sentinel once, signals unpaired workers when
// configured, and joins every worker in spec order.
//
// ctx only aborts the join; it is not a grace period (see Options.StopTimeout).
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.stopping = true
	s.opts.Notify("STOPPING=1")

	if s.stop != nil {
		s.log.Info("asking paired worker to stop")
		if err := s.stop.SendStop(); err != nil {
			s.log.Warn("stop sentinel not sent", logx.Err(err))
		}
	}

	if s.opts.SignalUnpaired {
		for _, sp := range s.specs {
			h := s.handles[sp.Name]
			if h == nil || sp.Paired {
				continue
			}
			if err := h.Process.Signal(terminateSignal); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.log.Warn("signal worker failed", logx.String("worker", sp.Name), logx.Err(err))
			}
		}
	}

	for _, sp := range s.specs {
		h := s.handles[sp.Name]
		if h == nil {
			continue
		}
		s.log.Info("waiting for worker to stop", logx.String("worker", sp.Name))
		if err := s.join(ctx, h); err != nil {
			return err
		}
		st, _ := h.Process.Exited()
		h.Exit = &st
		metrics.SetWorkerUp(sp.Name, false)
		s.log.Info("worker stopped", logx.String("worker", sp.Name), logx.Int("exit_code", st.Code))
	}
	return nil
}

func (s *Supervisor) join(ctx context.Context, h *WorkerHandle) error {
	var timeout <-chan time.Time
	if s.opts.StopTimeout > 0 {
		t := time.NewTimer(s.opts.StopTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-h.Process.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
	}
	s.log.Warn("worker did not stop in time; killing", logx.String("worker", h.Spec.Name), logx.Duration("timeout", s.opts.StopTimeout))
	if err := h.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.log.Error("kill worker failed", logx.String("worker", h.Spec.Name), logx.Err(err))
	}
	select {
	case <-h.Process.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
