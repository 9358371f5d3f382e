package optimistic

import (
	"context"
	"errors"
	"testing"
)

func TestRunSuccessKeepsApplied(t *testing.T) {
	state := 0
	cmd := Command{
		Name:       "inc",
		Apply:      func() bool { state++; return true },
		Compensate: func() { state-- },
	}
	if err := Run(context.Background(), cmd, func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != 1 {
		t.Errorf("state = %d, want 1", state)
	}
}

func TestRunFailureCompensates(t *testing.T) {
	state := 0
	order := []string{}
	cmd := Command{
		Name:       "inc",
		Apply:      func() bool { state++; order = append(order, "apply"); return true },
		Compensate: func() { state--; order = append(order, "compensate") },
	}
	boom := errors.New("boom")
	err := Run(context.Background(), cmd, func(context.Context) error {
		order = append(order, "call")
		return boom
	}, nil)

	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapping boom", err)
	}
	if !WasCompensated(err) {
		t.Error("WasCompensated() = false")
	}
	if state != 0 {
		t.Errorf("state = %d, want 0 after compensation", state)
	}
	want := []string{"apply", "call", "compensate"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunSkipsCompensateWhenNothingApplied(t *testing.T) {
	compensated := false
	cmd := Command{
		Apply:      func() bool { return false },
		Compensate: func() { compensated = true },
	}
	err := Run(context.Background(), cmd, func(context.Context) error { return errors.New("x") }, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if compensated {
		t.Error("Compensate ran although Apply changed nothing")
	}
	if WasCompensated(err) {
		t.Error("WasCompensated() = true")
	}
}

func TestRunKeepPolicy(t *testing.T) {
	state := 0
	transient := errors.New("429")
	cmd := Command{
		Apply:      func() bool { state = 1; return true },
		Compensate: func() { state = 0 },
	}
	err := Run(context.Background(), cmd, func(context.Context) error { return transient },
		func(err error) bool { return errors.Is(err, transient) })
	if !errors.Is(err, transient) {
		t.Errorf("err = %v", err)
	}
	if state != 1 {
		t.Errorf("state = %d, want optimistic value kept", state)
	}
}
