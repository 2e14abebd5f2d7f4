package procsup

import (
	"os"
	"time"
)

// WorkerSpec is the immutable descriptor of one supervised role.
type WorkerSpec struct {
	Name string
	Role string
	Args []string
	// Paired workers receive the worker side of the stop channel and are the
	// only ones stopped in-band at shutdown.
	Paired bool
}

// ExitStatus describes how a worker process ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was killed by a signal.
	Code int
	// Text is a human readable status such as "exit status 1" or "signal: killed".
	Text string
	At   time.Time
}

// Process is a running worker process.
type Process interface {
	Pid() int
	// Exited reports the exit status without blocking; ok is false while alive.
	Exited() (st ExitStatus, ok bool)
	// Done is closed once the process has been reaped.
	Done() <-chan struct{}
	Signal(sig os.Signal) error
	Kill() error
}

// Spawner starts worker processes. stop is non-nil only for the paired role.
type Spawner interface {
	Spawn(spec WorkerSpec, stop *os.File) (Process, error)
}

// StopChannel is the supervisor-held end of the stop channel.
type StopChannel interface {
	WorkerEnd() *os.File
	SendStop() error
}

// WorkerHandle is the supervisor's record of one live (or just exited) process.
// Handles are never mutated across restarts; a restart installs a new handle.
type WorkerHandle struct {
	Spec      WorkerSpec
	Process   Process
	StartedAt time.Time
	// Exit is nil while the process is alive.
	Exit *ExitStatus
}

// WorkerStatus is a point-in-time view of one managed worker.
type WorkerStatus struct {
	Name     string
	Role     string
	Pid      int
	Alive    bool
	Restarts int
	Since    time.Time
}
