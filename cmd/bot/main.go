package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rankbot/internal/config"
	"rankbot/internal/ipc"
	"rankbot/internal/metrics"
	"rankbot/internal/procsup"
	"rankbot/internal/worker"
	logx "rankbot/pkg/logx"
)

func main() {
	var (
		cfgPath    string
		workerName string
		debug      bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config (json or yaml)")
	flag.StringVar(&workerName, "worker", "", "run as the named worker instead of the supervisor")
	flag.BoolVar(&debug, "debug", false, "skip the roles listed in supervisor.debug_excluded")
	flag.Parse()

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if workerName != "" {
		if err := worker.Run(context.Background(), workerName, cfg, flag.Args()); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		return
	}

	if err := supervise(cfgm, cfg, debug); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func supervise(cfgm *config.ConfigManager, cfg *config.Config, debug bool) error {
	logs, log := logx.New(cfg.Logging.Logx(), nil)
	defer logs.Close()
	log = log.With(logx.String("comp", "supervisor"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop, err := ipc.New()
	if err != nil {
		return err
	}
	defer stop.Close()

	spawner, err := procsup.NewSelfSpawner("-config", cfgm.Path())
	if err != nil {
		return err
	}

	var specs []procsup.WorkerSpec
	for _, w := range cfg.WorkerList() {
		if _, ok := worker.Lookup(w.Role); !ok {
			return fmt.Errorf("worker %q: unknown role %q (known: %v)", w.Name, w.Role, worker.Roles())
		}
		specs = append(specs, procsup.WorkerSpec{Name: w.Name, Role: w.Role, Args: w.Args, Paired: w.Paired})
	}

	opts := procsup.Options{
		PollInterval:   cfg.Supervisor.PollEvery(),
		StopTimeout:    cfg.Supervisor.StopGrace(),
		SignalUnpaired: cfg.Supervisor.SignalUnpairedOnStop(),
		Notify:         procsup.SystemdNotifier(log),
	}
	if debug {
		opts.Excluded = map[string]bool{}
		for _, r := range cfg.Supervisor.DebugExcludedRoles() {
			opts.Excluded[r] = true
		}
		log.Info("debug mode", logx.Any("excluded", cfg.Supervisor.DebugExcludedRoles()))
	}

	// Workers re-read the file when they restart; the supervisor only
	// follows logging changes.
	go func() {
		if err := cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()
	updates := cfgm.Subscribe(1)
	defer cfgm.Unsubscribe(updates)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-updates:
				if !ok {
					return
				}
				logs.Apply(c.Logging.Logx())
			}
		}
	}()

	if addr := cfg.Supervisor.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, log); err != nil {
				log.Error("metrics endpoint failed", logx.Err(err))
			}
		}()
	}

	sup := procsup.New(specs, spawner, stop, log, opts)
	log.Info("supervisor started", logx.Int("pid", os.Getpid()), logx.Int("workers", len(sup.Specs())))
	if err := sup.Run(ctx); err != nil {
		return err
	}
	for _, st := range sup.Snapshot() {
		log.Info("worker summary", logx.String("worker", st.Name), logx.Int("restarts", st.Restarts))
	}
	log.Info("all workers stopped")
	return nil
}
