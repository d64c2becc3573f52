package health

import (
	"context"
	"errors"
	"testing"
)

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		db   Pinger
		want Status
	}{
		{"memory", nil, Status{OK: true, DB: "memory"}},
		{"up", stubPinger{}, Status{OK: true, DB: "ok"}},
		{"down", stubPinger{err: errors.New("connection refused")}, Status{OK: false, DB: "unavailable"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewService(tc.db).Status(context.Background()); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
