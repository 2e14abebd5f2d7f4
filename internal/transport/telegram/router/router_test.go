package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	kit "rankbot/internal/transport"
	logx "rankbot/pkg/logx"
)

type fakeAdapter struct {
	sent []string
	to   []kit.ChatTarget
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                    { return nil }
func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.sent = append(f.sent, text)
	f.to = append(f.to, to)
	return kit.MessageRef{}, nil
}

func msg(text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: -1, ThreadID: 2, FromID: 3, Text: text}}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		name string
		args string
		ok   bool
	}{
		{"/ping", "ping", "", true},
		{"/Ranks@rank_bot dota  league", "ranks", "dota,league", true},
		{"hello /ping", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := ParseCommand(tt.in)
		if name != tt.name || strings.Join(args, ",") != tt.args || ok != tt.ok {
			t.Fatalf("ParseCommand(%q) = %q, %v, %v", tt.in, name, args, ok)
		}
	}
}

func TestDispatchRepliesInThread(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	r := New(ad, logx.Nop())
	var gotArgs []string
	r.Register(Command{Name: "ping", Aliases: []string{"p"}, Description: "pong", Handle: func(ctx context.Context, req *Request) error {
		gotArgs = req.Args
		return req.Reply(ctx, "pong", nil)
	}})

	if err := r.Dispatch(context.Background(), msg("/p now")); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(ad.sent) != 1 || ad.sent[0] != "pong" || ad.to[0] != (kit.ChatTarget{ChatID: -1, ThreadID: 2}) {
		t.Fatalf("sent = %v to %v", ad.sent, ad.to)
	}
	if len(gotArgs) != 1 || gotArgs[0] != "now" {
		t.Fatalf("args = %v", gotArgs)
	}

	_ = r.Dispatch(context.Background(), msg("just chatting"))
	_ = r.Dispatch(context.Background(), msg("/unknown"))
	if len(ad.sent) != 1 {
		t.Fatalf("non-commands produced replies: %v", ad.sent)
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	t.Parallel()
	r := New(&fakeAdapter{}, logx.Nop())
	r.Register(Command{Name: "boom", Handle: func(context.Context, *Request) error { panic("bad") }})
	err := r.Dispatch(context.Background(), msg("/boom"))
	if err == nil || !strings.Contains(err.Error(), "panic: bad") {
		t.Fatalf("Dispatch() = %v, want recovered panic", err)
	}
}

func TestHelpListsCommands(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	r := New(ad, logx.Nop())
	r.Register(Command{Name: "ranks", Description: "show ranks", Handle: func(context.Context, *Request) error { return errors.New("x") }})
	if err := r.Dispatch(context.Background(), msg("/help")); err != nil {
		t.Fatal(err)
	}
	if len(ad.sent) != 1 || ad.sent[0] != "/help - list commands\n/ranks - show ranks" {
		t.Fatalf("help = %q", ad.sent)
	}
}
