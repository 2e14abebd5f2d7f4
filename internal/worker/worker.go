// Package worker is the worker-mode side of the binary: it resolves a worker
// name to its role and runs it until the supervisor, a signal or the role
// itself ends it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"rankbot/internal/config"
	"rankbot/internal/ipc"
	rtsup "rankbot/internal/runtime/supervisor"
	logx "rankbot/pkg/logx"
)

var ErrUnknownWorker = errors.New("unknown worker")

// Env is what a role receives.
type Env struct {
	Name   string
	Args   []string
	Config *config.Config
	Log    logx.Logger
	Logs   *logx.Service
}

// Role runs until ctx is done. Returning nil before that counts as an exit;
// the supervisor restarts the process.
type Role func(ctx context.Context, env Env) error

var roles = map[string]Role{
	"telegram": runTelegram,
	"stats":    runStats,
	"digest":   runDigest,
}

func Lookup(role string) (Role, bool) {
	r, ok := roles[role]
	return r, ok
}

// Roles lists the known role names.
func Roles() []string {
	out := make([]string, 0, len(roles))
	for k := range roles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run is the worker-mode entry point. extra are the arguments after "--".
func Run(ctx context.Context, name string, cfg *config.Config, extra []string) error {
	var wc *config.WorkerConfig
	for _, w := range cfg.WorkerList() {
		if w.Name == name {
			wc = &w
			break
		}
	}
	if wc == nil {
		return fmt.Errorf("%w: %q", ErrUnknownWorker, name)
	}
	role, ok := Lookup(wc.Role)
	if !ok {
		return fmt.Errorf("worker %q: unknown role %q", name, wc.Role)
	}

	logs, log := logx.New(cfg.Logging.Logx(), nil)
	defer logs.Close()
	log = log.With(logx.String("worker", name))

	// Every worker stops on SIGINT/SIGTERM; the supervisor signals unpaired ones.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reason := func() ipc.Reason { return ipc.ReasonNone }
	if wc.Paired {
		f, err := ipc.FromEnv()
		if err != nil {
			return err
		}
		if f != nil {
			defer f.Close()
			ctx, reason = ipc.Listen(ctx, f)
			log.Debug("listening for stop sentinel")
		}
	}

	sup := rtsup.New(ctx, rtsup.WithLogger(log), rtsup.WithCancelOnError(true))
	sup.Go(wc.Role, func(c context.Context) error {
		return role(c, Env{Name: name, Args: append(append([]string(nil), wc.Args...), extra...), Config: cfg, Log: log, Logs: logs})
	})
	log.Info("worker started", logx.String("role", wc.Role), logx.Int("pid", os.Getpid()))

	err := sup.Wait(context.Background())
	switch r := reason(); {
	case r != ipc.ReasonNone:
		log.Info("worker stopping", logx.String("reason", r.String()))
	case ctx.Err() != nil:
		log.Info("worker stopping", logx.String("reason", "signal"))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker failed", logx.Err(err))
		return err
	}
	return nil
}
