package schedule

import (
	"context"
	"testing"
	"time"

	logx "tabelbot/pkg/logx"
)

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		h, m int
		ok   bool
	}{
		{in: "07:30", h: 7, m: 30, ok: true},
		{in: "23:59", h: 23, m: 59, ok: true},
		{in: "0:00", h: 0, m: 0, ok: true},
		{in: "24:00", ok: false},
		{in: "12:60", ok: false},
		{in: "noon", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseHHMM(tt.in)
			if tt.ok {
				if err != nil {
					t.Fatalf("ParseHHMM(%q) error: %v", tt.in, err)
				}
				if h != tt.h || m != tt.m {
					t.Fatalf("ParseHHMM(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.h, tt.m)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseHHMM(%q) accepted", tt.in)
			}
		})
	}
}

func TestAddDailyRequiresStart(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	if _, err := s.AddDaily("reminder", "08:00", 0, func(context.Context) error { return nil }); err == nil {
		t.Fatal("AddDaily before Start should fail")
	}
}

func TestAddDailyAndWeeklySpecs(t *testing.T) {
	s := New(Config{Workers: 1}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	if _, err := s.AddDaily("morning", "07:30", time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddDaily: %v", err)
	}
	if _, err := s.AddWeekly("weekly", time.Monday, "09:00", time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddWeekly: %v", err)
	}
	if _, err := s.AddDaily("bad", "25:00", 0, func(context.Context) error { return nil }); err == nil {
		t.Fatal("invalid HH:MM accepted")
	}
}
