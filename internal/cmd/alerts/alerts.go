// Package alerts renders one-line status notices for terminal commands.
package alerts

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"

	"github.com/agentstation/recordsync"
)

// Alert is a status notice with optional detail lines.
type Alert struct {
	Level   Level
	Message string
	Details []string
	Err     error
}

// New creates an alert with the given level and message.
func New(level Level, message string) *Alert {
	return &Alert{Level: level, Message: message}
}

// NewError creates an error alert.
func NewError(message string) *Alert { return New(LevelError, message) }

// NewWarning creates a warning alert.
func NewWarning(message string) *Alert { return New(LevelWarning, message) }

// NewInfo creates an info alert.
func NewInfo(message string) *Alert { return New(LevelInfo, message) }

// NewSuccess creates a success alert.
func NewSuccess(message string) *Alert { return New(LevelSuccess, message) }

// WithError attaches an underlying error.
func (a *Alert) WithError(err error) *Alert {
	a.Err = err
	return a
}

// WithDetails appends detail lines.
func (a *Alert) WithDetails(details ...string) *Alert {
	a.Details = append(a.Details, details...)
	return a
}

// String returns the alert headline.
func (a *Alert) String() string {
	message := a.Level.Icon() + " " + a.Message
	if a.Err != nil {
		message += fmt.Sprintf(": %v", a.Err)
	}
	return message
}

// Write prints the alert to w, colored when w is a terminal.
func (a *Alert) Write(w io.Writer) error {
	line := a.String()
	if useColor(w) {
		line = a.Level.Color() + line + reset
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, d := range a.Details {
		if _, err := fmt.Fprintf(w, "   %s\n", d); err != nil {
			return err
		}
	}
	return nil
}

// FromSnapshot summarizes how a session ended.
func FromSnapshot(snap recordsync.Snapshot) *Alert {
	var a *Alert
	switch {
	case snap.State == recordsync.StateDone:
		a = NewSuccess(fmt.Sprintf("Record %s submitted", snap.Identity))
		for _, inv := range snap.Invocations {
			a.WithDetails(fmt.Sprintf("workflow %s: %s", inv.InvocationID, inv.Outcome))
		}
	case snap.State.Failed():
		a = NewError(fmt.Sprintf("Session ended in state %s", snap.State))
		if snap.Status != nil {
			a.WithError(snap.Status)
		}
	case len(snap.Notes) > 0:
		a = NewWarning(fmt.Sprintf("Record %s has unsaved fields", snap.Identity))
		fields := make([]string, 0, len(snap.Notes))
		for field := range snap.Notes {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			a.WithDetails(fmt.Sprintf("%s: %s", field, snap.Notes[field].Message))
		}
	case !snap.Valid:
		a = NewWarning(fmt.Sprintf("Record %s is incomplete", snap.Identity))
		for _, field := range snap.Invalid {
			a.WithDetails(field + ": required")
		}
	default:
		a = NewInfo(fmt.Sprintf("Record %s is %s", snap.Identity, snap.State))
	}
	return a
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
