// Package router dispatches chat commands ("/ping", "/ranks@bot args") to
// handlers.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	kit "rankbot/internal/transport"
	logx "rankbot/pkg/logx"
)

const defaultTimeout = 15 * time.Second

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Timeout     time.Duration // 0 uses the router default
	Handle      HandlerFunc
}

type Request struct {
	Update  kit.Update
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string
	Logger  logx.Logger

	adapter kit.Adapter
}

// Reply answers in the request's chat and thread.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) error {
	_, err := r.adapter.SendText(ctx, r.Chat, text, opt)
	return err
}

// Router is not safe for concurrent Register; register everything before Run.
type Router struct {
	log     logx.Logger
	adapter kit.Adapter
	cmds    map[string]*Command
	names   []string
	mw      []Middleware
}

func New(adapter kit.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "router"))
	r := &Router{log: log, adapter: adapter, cmds: map[string]*Command{}}
	r.mw = []Middleware{MWPanicRecover(log), MWRequestLog(log)}
	r.Register(Command{Name: "help", Description: "list commands", Handle: r.help})
	return r
}

func (r *Router) Register(c Command) {
	cmd := c
	r.cmds[strings.ToLower(c.Name)] = &cmd
	r.names = append(r.names, c.Name)
	for _, a := range c.Aliases {
		r.cmds[strings.ToLower(a)] = &cmd
	}
}

// ParseCommand splits "/cmd@bot a b" into ("cmd", [a b]). ok is false for
// anything that is not a command.
func ParseCommand(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name = strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

// Dispatch runs the handler matching up. Unknown commands and plain text are
// ignored.
func (r *Router) Dispatch(ctx context.Context, up kit.Update) error {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return nil
	}
	name, args, ok := ParseCommand(up.Message.Text)
	if !ok {
		return nil
	}
	cmd := r.cmds[name]
	if cmd == nil {
		return nil
	}
	req := &Request{
		Update:  up,
		Chat:    kit.ChatTarget{ChatID: up.Message.ChatID, ThreadID: up.Message.ThreadID},
		FromID:  up.Message.FromID,
		Command: cmd.Name,
		Args:    args,
		Logger:  r.log.With(logx.String("cmd", cmd.Name)),
		adapter: r.adapter,
	}
	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	mws := append(append([]Middleware(nil), r.mw...), MWTimeout(timeout))
	h := Chain(cmd.Handle, mws...)
	return h(ctx, req)
}

// Run dispatches updates until ctx is done or in is closed.
func (r *Router) Run(ctx context.Context, in <-chan kit.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-in:
			if !ok {
				return
			}
			// Errors are already logged by MWRequestLog.
			_ = r.Dispatch(ctx, up)
		}
	}
}

func (r *Router) help(ctx context.Context, req *Request) error {
	names := append([]string(nil), r.names...)
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		c := r.cmds[strings.ToLower(n)]
		fmt.Fprintf(&b, "/%s - %s\n", c.Name, c.Description)
	}
	return req.Reply(ctx, strings.TrimRight(b.String(), "\n"), nil)
}
