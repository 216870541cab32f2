package app

import "sync"

// Level classifies a user-facing notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warning"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Reporter is the user-facing channel. Operator diagnostics go to slog.
type Reporter interface {
	Report(level Level, message string)
}

type ReporterFunc func(level Level, message string)

func (f ReporterFunc) Report(level Level, message string) { f(level, message) }

var Discard Reporter = ReporterFunc(func(Level, string) {})

// NoticeLog collects notices for rendering after a run.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *NoticeLog) Report(level Level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, Notice{Level: level, Message: message})
}

func (l *NoticeLog) Notices() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}

func orDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}
