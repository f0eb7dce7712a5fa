package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Session states
const (
	StateOpen    = "open"
	StateExpired = "expired"
	StateClosed  = "closed"
)

// Duration bounds of a session, in minutes
const (
	DefaultDuration = 15
	MinDuration     = 1
	MaxDuration     = 1440
)

type Session struct {
	ID          int64     `json:"id"`
	ClassRoomID int64     `json:"classroom_id"`
	CreatedAt   time.Time `json:"created_at"`
	CloseAt     time.Time `json:"close_at"`
	IsActive    bool      `json:"is_active"`
}

// IsOpen reports whether students may check in at now: the session is active and its window has not elapsed.
func (s Session) IsOpen(now time.Time) bool {
	return s.IsActive && now.Before(s.CloseAt)
}

func (s Session) State(now time.Time) string {
	switch {
	case !s.IsActive:
		return StateClosed
	case now.Before(s.CloseAt):
		return StateOpen
	default:
		return StateExpired
	}
}

type Record struct {
	ID           int64      `json:"id"`
	SessionID    int64      `json:"session_id"`
	StudentID    string     `json:"student_id"`
	StudentName  string     `json:"student_name,omitempty"`
	StudentEmail string     `json:"student_email,omitempty"`
	IsPresent    bool       `json:"is_present"`
	AttendedAt   *time.Time `json:"attended_at"`
}

// Summary is a session with its derived state and record totals.
type Summary struct {
	Session
	State   string `json:"state"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

func NewSummary(s Session, records []Record, now time.Time) Summary {
	sum := Summary{Session: s, State: s.State(now), Total: len(records)}
	for _, r := range records {
		if r.IsPresent {
			sum.Present++
		}
	}
	sum.Absent = sum.Total - sum.Present
	return sum
}

// StudentStatus is a student's attendance in one session. Record is nil when the student has none.
type StudentStatus struct {
	Session
	State  string  `json:"state"`
	Record *Record `json:"record"`
}

type SessionDetails struct {
	Summary
	Records []Record `json:"records"`
}

// OpenSession holds the duration of a new session; zero means DefaultDuration.
type OpenSession struct {
	DurationMinutes int `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
}

func (o *OpenSession) Validate(validate *validator.Validate) error {
	if err := validate.Struct(o); err != nil {
		return err
	}
	if o.DurationMinutes == 0 {
		o.DurationMinutes = DefaultDuration
	}
	return nil
}

type RecordFilter struct {
	SessionID   int64
	ClassRoomID int64
	StudentID   string
}
