// Package record defines the unified record model shared by every consumer
// (list, search, stats, export, browse) and the decoder that builds records
// from container items.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/stchris/pstexplorer/internal/pst"
)

// Kind is the closed set of item kinds.
type Kind int

const (
	KindEmail Kind = iota
	KindCalendar
	KindContact
	KindTask
	KindNote
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindEmail, KindCalendar, KindContact, KindTask, KindNote}

func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindCalendar:
		return "calendar"
	case KindContact:
		return "contact"
	case KindTask:
		return "task"
	case KindNote:
		return "note"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindOf classifies a message class. Matching is case-insensitive on the
// class prefix; unknown classes, distribution lists included, are treated as
// email.
func KindOf(class string) Kind {
	c := strings.ToUpper(class)
	switch {
	case c == "", c == "IPM", strings.HasPrefix(c, "IPM.NOTE"):
		return KindEmail
	case strings.HasPrefix(c, "IPM.APPOINTMENT"), strings.HasPrefix(c, "IPM.SCHEDULE"):
		return KindCalendar
	case strings.HasPrefix(c, "IPM.CONTACT"):
		return KindContact
	case strings.HasPrefix(c, "IPM.TASK"):
		return KindTask
	case strings.HasPrefix(c, "IPM.STICKYNOTE"):
		return KindNote
	default:
		return KindEmail
	}
}

// DateLayout is the rendering used by every human and structured output.
const DateLayout = "2006-01-02 15:04:05 UTC"

// Timestamp is a UTC instant or the explicit Unknown marker. The zero value
// is Unknown.
type Timestamp struct {
	t     time.Time
	known bool
}

// Unknown is the absent timestamp.
var Unknown Timestamp

// At returns a known timestamp normalized to UTC.
func At(t time.Time) Timestamp {
	return Timestamp{t: t.UTC(), known: true}
}

// Known reports whether the timestamp carries a value.
func (ts Timestamp) Known() bool { return ts.known }

// Time returns the instant and whether it is known.
func (ts Timestamp) Time() (time.Time, bool) { return ts.t, ts.known }

// Before orders known timestamps. Unknown is never before anything.
func (ts Timestamp) Before(o Timestamp) bool {
	return ts.known && o.known && ts.t.Before(o.t)
}

// Equal reports whether both are unknown or both are the same instant.
func (ts Timestamp) Equal(o Timestamp) bool {
	return ts.known == o.known && ts.t.Equal(o.t)
}

// String renders the timestamp with DateLayout, or "" when unknown.
func (ts Timestamp) String() string {
	if !ts.known {
		return ""
	}
	return ts.t.Format(DateLayout)
}

// Attachment describes an attachment without its payload.
type Attachment struct {
	Filename    string
	Size        int64
	ContentType string
	Method      int
}

// Email holds the addressing of an email.
type Email struct {
	From          string
	SenderAddress string
	To            string
	Cc            string
	Bcc           string
}

// Calendar holds appointment fields.
type Calendar struct {
	Organizer string
	Location  string
	Start     Timestamp
	End       Timestamp
	AllDay    bool
}

// Contact holds address book fields.
type Contact struct {
	DisplayName   string
	FileAs        string
	GivenName     string
	Surname       string
	Company       string
	EmailAddress  string
	BusinessPhone string
	HomePhone     string
	MobilePhone   string
}

// TaskStatus mirrors the Outlook task status values.
type TaskStatus int

const (
	TaskNotStarted TaskStatus = iota
	TaskInProgress
	TaskComplete
	TaskWaiting
	TaskDeferred
)

func (s TaskStatus) String() string {
	switch s {
	case TaskNotStarted:
		return "not started"
	case TaskInProgress:
		return "in progress"
	case TaskComplete:
		return "complete"
	case TaskWaiting:
		return "waiting"
	case TaskDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}

// Task holds task fields.
type Task struct {
	Status          TaskStatus
	PercentComplete float64
	Due             Timestamp
	Complete        bool
	Owner           string
}

// Note holds sticky note fields.
type Note struct {
	Color int
}

// Record is one decoded item. Exactly one of the payload pointers is set,
// the one matching Kind.
type Record struct {
	ID           pst.NodeID
	Kind         Kind
	MessageClass string
	FolderID     pst.NodeID
	FolderPath   string
	Subject      string
	Date         Timestamp
	Size         int64
	Body         string
	Attachments  []Attachment

	// HasAttachments is read from the item's flags and is set even when
	// attachments were not enumerated.
	HasAttachments bool

	Email    *Email
	Calendar *Calendar
	Contact  *Contact
	Task     *Task
	Note     *Note

	// DecodeErr is set when some fields could not be decoded. The record
	// still carries every field that did decode.
	DecodeErr *DecodeError
}

// From returns the sender of an email or the organizer of an appointment.
func (r *Record) From() string {
	switch {
	case r.Email != nil:
		return r.Email.From
	case r.Calendar != nil:
		return r.Calendar.Organizer
	}
	return ""
}

// To returns the display To line of an email.
func (r *Record) To() string {
	if r.Email != nil {
		return r.Email.To
	}
	return ""
}

// Cc returns the display Cc line of an email.
func (r *Record) Cc() string {
	if r.Email != nil {
		return r.Email.Cc
	}
	return ""
}

// Partial reports whether the record carries a decode error.
func (r *Record) Partial() bool { return r.DecodeErr != nil }

// DecodeError lists the fields of one item that failed to decode.
type DecodeError struct {
	ID     pst.NodeID
	Fields []string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode item %s: %s: %v", e.ID, strings.Join(e.Fields, ", "), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// add records a failed field. The first error is kept as the cause.
func (e *DecodeError) add(field string, err error) {
	e.Fields = append(e.Fields, field)
	if e.Err == nil {
		e.Err = err
	}
}
