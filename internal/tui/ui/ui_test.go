package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/rivo/tview"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type page string

func (p page) Name() string { return string(p) }
func (p page) Hints() []MenuHint { return nil }

func TestPagesStack(t *testing.T) {
	p := NewPages()
	var changes [][]string
	p.SetOnChange(func(stack []Component) {
		var names []string
		for _, c := range stack {
			names = append(names, c.Name())
		}
		changes = append(changes, names)
	})
	for _, name := range []string{"Conversations", "Thread", "Help"} {
		p.Add(page(name), tview.NewBox())
	}

	p.Reset(page("Conversations"))
	p.Push(page("Thread"))
	p.Push(page("Thread"))
	if p.Depth() != 2 {
		t.Fatalf("depth = %d, want 2 (duplicate push ignored)", p.Depth())
	}
	if front, _ := p.GetFrontPage(); front != "Thread" {
		t.Errorf("front = %q", front)
	}

	if !p.Pop() {
		t.Fatal("Pop returned false")
	}
	if p.Pop() {
		t.Error("root page popped")
	}
	if p.Top().Name() != "Conversations" {
		t.Errorf("top = %q", p.Top().Name())
	}
	if len(changes) != 3 {
		t.Errorf("changes = %v", changes)
	}
}

func TestFlashExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("empty model has a message")
	}
	f.Info("sent")
	if m := f.Current(); m == nil || m.Text != "sent" || m.Level != FlashInfo {
		t.Fatalf("current = %+v", m)
	}
	now = now.Add(6 * time.Second)
	if f.Current() != nil {
		t.Error("info message did not expire")
	}
}

func TestFlashErrUsesStatusMessage(t *testing.T) {
	f := NewFlashModel()
	f.Err(status.Error(codes.InvalidArgument, "content must not be empty"))
	if m := f.Current(); m == nil || m.Text != "content must not be empty" || m.Level != FlashErr {
		t.Errorf("current = %+v", m)
	}
	f.Err(errors.New("plain"))
	if m := f.Current(); m.Text != "plain" {
		t.Errorf("text = %q", m.Text)
	}
	f.Err(nil)
	if m := f.Current(); m.Text != "plain" {
		t.Error("nil error replaced the message")
	}
}

func TestBadge(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{-1, ""},
		{7, "(7)"},
		{99, "(99)"},
		{100, "(99+)"},
	}
	for _, tt := range tests {
		if got := Badge(tt.n); got != tt.want {
			t.Errorf("Badge(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
