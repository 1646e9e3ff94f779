package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/internal/kinds"
	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
)

// Mock is an Application for command tests. Each method calls the matching
// function field; a nil field returns a default.
//
//	fake := bridgetest.New().Respond("crm.deal.get", deal)
//	mock := &application.Mock{
//	    BridgeFunc: func() (bridge.Bridge, error) { return fake, nil },
//	}
//	cmd := approve.NewCommand(mock)
type Mock struct {
	KindsFunc        func() (*kinds.Registry, error)
	NewSessionFunc   func(kind string, opts ...recordsync.Option) (recordsync.Session, error)
	BridgeFunc       func() (bridge.Bridge, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Kinds returns KindsFunc's registry or the embedded profiles.
func (m *Mock) Kinds() (*kinds.Registry, error) {
	if m.KindsFunc != nil {
		return m.KindsFunc()
	}
	return kinds.Default()
}

// NewSession calls NewSessionFunc. Without one it builds a session for
// kind on the mock's Kinds, Bridge and Logger.
func (m *Mock) NewSession(kind string, opts ...recordsync.Option) (recordsync.Session, error) {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc(kind, opts...)
	}
	reg, err := m.Kinds()
	if err != nil {
		return nil, err
	}
	k, err := reg.Get(kind)
	if err != nil {
		return nil, err
	}
	b, err := m.Bridge()
	if err != nil {
		return nil, err
	}
	base := []recordsync.Option{
		recordsync.WithKind(k),
		recordsync.WithBridge(b),
		recordsync.WithLogger(m.Logger()),
	}
	return recordsync.New(append(base, opts...)...)
}

// Bridge returns BridgeFunc's bridge or an error.
func (m *Mock) Bridge() (bridge.Bridge, error) {
	if m.BridgeFunc != nil {
		return m.BridgeFunc()
	}
	return nil, errors.NewConfigError("bridge", "no bridge configured", nil)
}

// Logger returns LoggerFunc's logger or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns OutputFormatFunc's format or "json".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "json"
}

// Version returns VersionFunc's version or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns CommitFunc's commit or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns DateFunc's date or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns BuiltByFunc's value or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

var _ Application = (*Mock)(nil)
