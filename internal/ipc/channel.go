// Package ipc implements the one-shot stop channel between the supervisor and
// the paired worker process.
//
// The channel is an OS pipe created once in the supervisor. The supervisor keeps
// the write side for its whole lifetime and also keeps the read side open, so it
// can hand the same read side to every new instance of the paired worker and a
// write never fails with EPIPE after the current worker died.
//
// The only message ever written is the sentinel line "stop".
package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sentinel is the single payload understood by the worker side.
const Sentinel = "stop"

// EnvStopFD tells a worker which inherited descriptor carries the stop channel.
const EnvStopFD = "RANKBOT_STOP_FD"

// ChildFD is the descriptor number of the first entry in exec.Cmd.ExtraFiles.
const ChildFD = 3

var (
	ErrAlreadySent = errors.New("ipc: stop already sent")
	ErrClosed      = errors.New("ipc: channel closed")
)

// Channel is the supervisor-held pair of pipe ends.
type Channel struct {
	mu     sync.Mutex
	r      *os.File
	w      *os.File
	once   sync.Once
	sent   bool
	closed bool

	writeTimeout time.Duration
}

// New creates the pipe.
func New() (*Channel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("ipc: create pipe: %w", err)
	}
	return &Channel{r: r, w: w, writeTimeout: 2 * time.Second}, nil
}

// WorkerEnd returns the read side to place in exec.Cmd.ExtraFiles of a newly
// spawned paired worker. The supervisor keeps ownership; callers must not close it.
func (c *Channel) WorkerEnd() *os.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.r
}

// Sent reports whether the sentinel was already written.
func (c *Channel) Sent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// SendStop writes the sentinel exactly once. Later calls return ErrAlreadySent.
//
// The write carries a deadline so a full pipe can never stall the supervisor.
func (c *Channel) SendStop() error {
	err := ErrAlreadySent
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			err = ErrClosed
			return
		}
		c.sent = true
		if c.writeTimeout > 0 {
			_ = c.w.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		_, err = io.WriteString(c.w, Sentinel+"\n")
		if err != nil {
			err = fmt.Errorf("ipc: send stop: %w", err)
		}
	})
	return err
}

// Close releases both pipe ends. Workers still holding the read side see EOF
// only after every copy is closed.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.Join(c.w.Close(), c.r.Close())
}

// FromEnv opens the inherited stop channel in a worker process.
// It returns (nil, nil) when the worker is not paired.
func FromEnv() (*os.File, error) {
	raw := strings.TrimSpace(os.Getenv(EnvStopFD))
	if raw == "" {
		return nil, nil
	}
	fd, err := strconv.Atoi(raw)
	if err != nil || fd < 0 {
		return nil, fmt.Errorf("ipc: invalid %s=%q", EnvStopFD, raw)
	}
	f := os.NewFile(uintptr(fd), "stop-channel")
	if f == nil {
		return nil, fmt.Errorf("ipc: fd %d is not valid", fd)
	}
	return f, nil
}

// Reason tells why a Listen context ended.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonStop: the sentinel arrived.
	ReasonStop
	// ReasonEOF: every writer is gone (the supervisor exited).
	ReasonEOF
	// ReasonError: the read failed.
	ReasonError
)

func (r Reason) String() string {
	switch r {
	case ReasonStop:
		return "stop"
	case ReasonEOF:
		return "eof"
	case ReasonError:
		return "error"
	default:
		return "none"
	}
}

var errStopped = errors.New("stop sentinel received")

// Listen returns a context that is cancelled when the sentinel (or EOF) arrives
// on r, plus a function reporting why. Unknown lines are ignored.
//
// The reader goroutine is not interruptible; it ends with the process.
func Listen(parent context.Context, r io.Reader) (context.Context, func() Reason) {
	ctx, cancel := context.WithCancelCause(parent)
	var (
		mu     sync.Mutex
		reason Reason
	)
	set := func(rs Reason, cause error) {
		mu.Lock()
		if reason == ReasonNone {
			reason = rs
		}
		mu.Unlock()
		cancel(cause)
	}

	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == Sentinel {
				set(ReasonStop, errStopped)
				return
			}
		}
		if err := sc.Err(); err != nil {
			set(ReasonError, err)
			return
		}
		set(ReasonEOF, io.EOF)
	}()

	return ctx, func() Reason {
		mu.Lock()
		defer mu.Unlock()
		return reason
	}
}
