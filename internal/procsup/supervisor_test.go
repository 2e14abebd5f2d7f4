package procsup

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	logx "rankbot/pkg/logx"
)

type fakeProc struct {
	pid  int
	done chan struct{}

	mu      sync.Mutex
	st      *ExitStatus
	signals []os.Signal
	killed  bool
	// exitOnSignal makes the process exit when it receives any signal.
	exitOnSignal bool
}

func (p *fakeProc) Pid() int { return p.pid }

func (p *fakeProc) Exited() (ExitStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == nil {
		return ExitStatus{}, false
	}
	return *p.st, true
}

func (p *fakeProc) Done() <-chan struct{} { return p.done }

func (p *fakeProc) exit(code int) {
	p.mu.Lock()
	if p.st != nil {
		p.mu.Unlock()
		return
	}
	p.st = &ExitStatus{Code: code, Text: "exit", At: time.Now()}
	p.mu.Unlock()
	close(p.done)
}

func (p *fakeProc) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	exit := p.exitOnSignal
	p.mu.Unlock()
	if exit {
		p.exit(-1)
	}
	return nil
}

func (p *fakeProc) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit(-1)
	return nil
}

func (p *fakeProc) alive() bool {
	_, ok := p.Exited()
	return !ok
}

type fakeSpawner struct {
	t *testing.T

	mu      sync.Mutex
	nextPid int
	procs   map[string][]*fakeProc
	stops   map[string][]*os.File
	failN   map[string]int
	// exitOnSignal is copied into every spawned process.
	exitOnSignal bool
}

func newFakeSpawner(t *testing.T) *fakeSpawner {
	return &fakeSpawner{t: t, nextPid: 100, procs: map[string][]*fakeProc{}, stops: map[string][]*os.File{}, failN: map[string]int{}}
}

func (f *fakeSpawner) Spawn(spec WorkerSpec, stop *os.File) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN[spec.Name] > 0 {
		f.failN[spec.Name]--
		return nil, errors.New("spawn refused")
	}
	for _, p := range f.procs[spec.Name] {
		if p.alive() {
			f.t.Errorf("spawn of %s while pid %d is still alive", spec.Name, p.pid)
		}
	}
	f.nextPid++
	p := &fakeProc{pid: f.nextPid, done: make(chan struct{}), exitOnSignal: f.exitOnSignal}
	f.procs[spec.Name] = append(f.procs[spec.Name], p)
	f.stops[spec.Name] = append(f.stops[spec.Name], stop)
	return p, nil
}

func (f *fakeSpawner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.procs[name])
}

func (f *fakeSpawner) latest(name string) *fakeProc {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := f.procs[name]
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

type fakeStop struct {
	mu     sync.Mutex
	end    *os.File
	sent   int
	onSend func()
}

func (s *fakeStop) WorkerEnd() *os.File { return s.end }

func (s *fakeStop) SendStop() error {
	s.mu.Lock()
	s.sent++
	n := s.sent
	cb := s.onSend
	s.mu.Unlock()
	if n > 1 {
		return errors.New("already sent")
	}
	if cb != nil {
		cb()
	}
	return nil
}

var testSpecs = []WorkerSpec{
	{Name: "telegram", Role: "telegram", Paired: true},
	{Name: "stats", Role: "stats"},
	{Name: "digest", Role: "digest"},
}

func TestStartSkipsExcludedRoles(t *testing.T) {
	sp := newFakeSpawner(t)
	s := New(testSpecs, sp, &fakeStop{}, logx.Nop(), Options{Excluded: map[string]bool{"stats": true}})
	s.Start()

	if sp.count("telegram") != 1 || sp.count("digest") != 1 {
		t.Fatalf("expected telegram and digest spawned once")
	}
	if sp.count("stats") != 0 {
		t.Fatalf("excluded role was spawned")
	}
	s.Poll()
	if sp.count("stats") != 0 {
		t.Fatalf("excluded role was spawned by Poll")
	}
	if got := len(s.Specs()); got != 2 {
		t.Fatalf("Specs() len = %d, want 2", got)
	}
}

func TestPairedWorkerGetsStopEnd(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	sp := newFakeSpawner(t)
	s := New(testSpecs, sp, &fakeStop{end: r}, logx.Nop(), Options{})
	s.Start()

	if got := sp.stops["telegram"][0]; got != r {
		t.Fatalf("paired worker stop end = %v, want read end", got)
	}
	if got := sp.stops["stats"][0]; got != nil {
		t.Fatalf("unpaired worker got a stop end")
	}

	// A restarted paired worker receives the same endpoint.
	sp.latest("telegram").exit(1)
	s.Poll()
	if got := sp.stops["telegram"][1]; got != r {
		t.Fatalf("restarted paired worker stop end = %v, want read end", got)
	}
}

func TestPollRestartsRegardlessOfExitCode(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{name: "clean exit", code: 0},
		{name: "crash", code: 2},
		{name: "killed", code: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := newFakeSpawner(t)
			s := New(testSpecs, sp, &fakeStop{}, logx.Nop(), Options{})
			s.Start()

			first := sp.latest("stats")
			oldHandle := s.Handle("stats")
			first.exit(tt.code)
			s.Poll()

			if got := sp.count("stats"); got != 2 {
				t.Fatalf("spawn count = %d, want 2", got)
			}
			if s.Restarts("stats") != 1 {
				t.Fatalf("Restarts = %d, want 1", s.Restarts("stats"))
			}
			h := s.Handle("stats")
			if h == oldHandle || h.Process == first {
				t.Fatal("handle was not replaced")
			}
			if oldHandle.Exit == nil || oldHandle.Exit.Code != tt.code {
				t.Fatalf("old handle exit = %+v, want code %d", oldHandle.Exit, tt.code)
			}
			if h.Exit != nil {
				t.Fatal("new handle should be alive")
			}
			// Other workers untouched.
			if sp.count("telegram") != 1 || sp.count("digest") != 1 {
				t.Fatal("unrelated workers were respawned")
			}
		})
	}
}

func TestPollLeavesLiveWorkersAlone(t *testing.T) {
	sp := newFakeSpawner(t)
	s := New(testSpecs, sp, &fakeStop{}, logx.Nop(), Options{})
	s.Start()
	for i := 0; i < 5; i++ {
		s.Poll()
	}
	for _, spec := range testSpecs {
		if got := sp.count(spec.Name); got != 1 {
			t.Fatalf("%s spawned %d times, want 1", spec.Name, got)
		}
	}
}

func TestPollRetriesFailedSpawn(t *testing.T) {
	sp := newFakeSpawner(t)
	sp.failN["digest"] = 1
	s := New(testSpecs, sp, &fakeStop{}, logx.Nop(), Options{})
	s.Start()

	if s.Handle("digest") != nil {
		t.Fatal("failed spawn should leave the slot empty")
	}
	s.Poll()
	if s.Handle("digest") == nil || sp.count("digest") != 1 {
		t.Fatal("empty slot was not refilled on the next poll")
	}
}

func TestShutdownSendsSentinelOnceAndJoinsAll(t *testing.T) {
	sp := newFakeSpawner(t)
	sp.exitOnSignal = true
	stop := &fakeStop{}
	s := New(testSpecs, sp, stop, logx.Nop(), Options{SignalUnpaired: true})
	s.Start()
	stop.onSend = func() { sp.latest("telegram").exit(0) }

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if stop.sent != 1 {
		t.Fatalf("sentinel sent %d times, want 1", stop.sent)
	}
	if n := len(sp.latest("telegram").signals); n != 0 {
		t.Fatalf("paired worker got %d signals, want 0", n)
	}
	for _, name := range []string{"stats", "digest"} {
		p := sp.latest(name)
		if len(p.signals) != 1 || p.signals[0] != terminateSignal {
			t.Fatalf("%s signals = %v, want [terminate]", name, p.signals)
		}
		if p.alive() {
			t.Fatalf("%s still alive after shutdown", name)
		}
	}

	// No restarts once stopping.
	s.Poll()
	if sp.count("stats") != 1 {
		t.Fatal("Poll respawned a worker during shutdown")
	}
}

func TestShutdownWithoutSignalWaitsForSelfExit(t *testing.T) {
	sp := newFakeSpawner(t)
	stop := &fakeStop{}
	s := New(testSpecs[:2], sp, stop, logx.Nop(), Options{})
	s.Start()
	stop.onSend = func() { sp.latest("telegram").exit(0) }

	done := make(chan error, 1)
	go func() { done <- s.Shutdown(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Shutdown returned while an unpaired worker is still alive")
	case <-time.After(50 * time.Millisecond):
	}
	sp.latest("stats").exit(0)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the last worker exited")
	}
}

func TestShutdownKillsAfterStopTimeout(t *testing.T) {
	sp := newFakeSpawner(t)
	stop := &fakeStop{}
	s := New(testSpecs[1:2], sp, stop, logx.Nop(), Options{StopTimeout: 20 * time.Millisecond})
	s.Start()

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	p := sp.latest("stats")
	if !p.killed {
		t.Fatal("stubborn worker was not killed after the stop timeout")
	}
}

func TestShutdownHonorsContext(t *testing.T) {
	sp := newFakeSpawner(t)
	s := New(testSpecs[1:2], sp, &fakeStop{}, logx.Nop(), Options{})
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown() = %v, want deadline exceeded", err)
	}
}

func TestRunRestartsWithinOnePollAndStops(t *testing.T) {
	sp := newFakeSpawner(t)
	sp.exitOnSignal = true
	stop := &fakeStop{}

	var (
		mu     sync.Mutex
		states []string
	)
	notify := func(st string) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	}
	s := New(testSpecs, sp, stop, logx.Nop(), Options{PollInterval: 10 * time.Millisecond, SignalUnpaired: true, Notify: notify})
	stop.onSend = func() { sp.latest("telegram").exit(0) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return sp.count("stats") == 1 })
	sp.latest("stats").exit(0)
	waitFor(t, func() bool { return sp.count("stats") == 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if stop.sent != 1 {
		t.Fatalf("sentinel sent %d times, want 1", stop.sent)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != "READY=1" || states[len(states)-1] != "STOPPING=1" {
		t.Fatalf("notify states = %v", states)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSnapshot(t *testing.T) {
	sp := newFakeSpawner(t)
	sp.failN["digest"] = 2
	s := New(testSpecs, sp, &fakeStop{}, logx.Nop(), Options{})
	s.Start()
	sp.latest("stats").exit(1)
	s.Poll()
	sp.latest("stats").exit(0)

	got := map[string]WorkerStatus{}
	for _, st := range s.Snapshot() {
		got[st.Name] = st
	}
	if st := got["stats"]; st.Alive || st.Restarts != 1 || st.Pid == 0 {
		t.Fatalf("stats status = %+v, want exited after 1 restart", st)
	}
	if st := got["digest"]; st.Alive || st.Pid != 0 {
		t.Fatalf("digest status = %+v, want empty slot", st)
	}
	if st := got["telegram"]; !st.Alive {
		t.Fatalf("telegram status = %+v, want alive", st)
	}
}
