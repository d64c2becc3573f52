package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the payload served by the health endpoint.
type Status struct {
	OK bool   `json:"ok"`
	DB string `json:"db"`
}

// Service encapsulates health-related checks.
type Service struct {
	db Pinger
}

// NewService constructs a new health service. A nil db means the process
// runs on in-memory repositories.
func NewService(db Pinger) *Service {
	return &Service{db: db}
}

// Status reports whether the database answers a ping.
func (s *Service) Status(ctx context.Context) Status {
	if s == nil || s.db == nil {
		return Status{OK: true, DB: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return Status{OK: false, DB: "unavailable"}
	}
	return Status{OK: true, DB: "ok"}
}
