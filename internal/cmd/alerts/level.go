package alerts

import "fmt"

// Level is the severity of an alert.
type Level int

const (
	// LevelError marks a failure.
	LevelError Level = iota
	// LevelWarning marks a condition that needs attention.
	LevelWarning
	// LevelInfo marks a neutral notice.
	LevelInfo
	// LevelSuccess marks a completed operation.
	LevelSuccess
)

const reset = "\033[0m"

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Icon returns the status symbol for the level.
func (l Level) Icon() string {
	switch l {
	case LevelError:
		return "✗"
	case LevelWarning:
		return "!"
	case LevelInfo:
		return "i"
	case LevelSuccess:
		return "✓"
	default:
		return "?"
	}
}

// Color returns the ANSI color code for the level.
func (l Level) Color() string {
	switch l {
	case LevelError:
		return "\033[31m"
	case LevelWarning:
		return "\033[33m"
	case LevelInfo:
		return "\033[36m"
	case LevelSuccess:
		return "\033[32m"
	default:
		return reset
	}
}
