package ping

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusStart   Status = "start"
	StatusTimeout Status = "timeout"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusStart, StatusTimeout:
		return true
	}
	return false
}

// Ping is an immutable heartbeat event. Rows are only ever appended and are
// removed solely by the parent check's cascade delete.
type Ping struct {
	ID        int64     `json:"id"`
	CheckID   int64     `json:"check_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	HTTPCode  int       `json:"http_code,omitempty"`
	Method    string    `json:"method,omitempty"`
	URL       string    `json:"url,omitempty"`
}
