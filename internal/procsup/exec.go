package procsup

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"rankbot/internal/ipc"
)

// EnvWorkerName is set in every spawned worker's environment.
const EnvWorkerName = "RANKBOT_WORKER"

// ExecSpawner re-executes a binary in worker mode:
//
//	<Executable> <BaseArgs...> -worker <name> [-- <spec.Args...>]
type ExecSpawner struct {
	Executable string
	BaseArgs   []string
	Env        []string // extra KEY=VALUE entries
	Stdout     io.Writer
	Stderr     io.Writer
}

// NewSelfSpawner spawns workers from the currently running executable.
func NewSelfSpawner(baseArgs ...string) (*ExecSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &ExecSpawner{Executable: exe, BaseArgs: baseArgs, Stdout: os.Stdout, Stderr: os.Stderr}, nil
}

// Command builds the exec.Cmd for spec. Exposed for tests.
func (s *ExecSpawner) Command(spec WorkerSpec, stop *os.File) *exec.Cmd {
	args := append(append([]string(nil), s.BaseArgs...), "-worker", spec.Name)
	if len(spec.Args) > 0 {
		args = append(append(args, "--"), spec.Args...)
	}
	// #nosec G204 -- the executable is our own binary.
	cmd := exec.Command(s.Executable, args...)
	cmd.Env = append(append(os.Environ(), s.Env...), EnvWorkerName+"="+spec.Name)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if stop != nil {
		cmd.ExtraFiles = []*os.File{stop}
		cmd.Env = append(cmd.Env, ipc.EnvStopFD+"="+strconv.Itoa(ipc.ChildFD))
	}
	configureSysProcAttr(cmd)
	return cmd
}

func (s *ExecSpawner) Spawn(spec WorkerSpec, stop *os.File) (Process, error) {
	cmd := s.Command(spec, stop)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %s: %w", spec.Name, err)
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

// execProcess reaps its child in a goroutine; the supervisor only polls.
type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu     sync.Mutex
	status *ExitStatus
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()
	st := ExitStatus{Code: -1, At: time.Now()}
	if ps := p.cmd.ProcessState; ps != nil {
		st.Code = ps.ExitCode()
		st.Text = ps.String()
	} else if err != nil {
		st.Text = err.Error()
	}
	p.mu.Lock()
	p.status = &st
	p.mu.Unlock()
	close(p.done)
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Exited() (ExitStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return ExitStatus{}, false
	}
	return *p.status, true
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Signal(sig os.Signal) error {
	select {
	case <-p.done:
		return os.ErrProcessDone
	default:
	}
	return p.cmd.Process.Signal(sig)
}

func (p *execProcess) Kill() error {
	select {
	case <-p.done:
		return os.ErrProcessDone
	default:
	}
	return p.cmd.Process.Kill()
}
