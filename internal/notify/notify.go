// Package notify carries user-facing notifications from services and the
// calendar view to whatever renders them.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// Level is the closed set of notification kinds.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// DefaultDuration is how long a toast stays on screen.
const DefaultDuration = 4 * time.Second

// Style holds display attributes for a level.
type Style struct {
	Title string
	Icon  string
	Color string
}

var styles = map[Level]Style{
	LevelSuccess: {Title: "¡Éxito!", Icon: "check-circle", Color: "green"},
	LevelError:   {Title: "Error", Icon: "x-circle", Color: "red"},
	LevelWarning: {Title: "Advertencia", Icon: "exclamation-triangle", Color: "yellow"},
	LevelInfo:    {Title: "Información", Icon: "information-circle", Color: "blue"},
}

// StyleOf returns the display attributes for l. Unknown levels render as info.
func StyleOf(l Level) Style {
	if s, ok := styles[l]; ok {
		return s
	}
	return styles[LevelInfo]
}

// Notification is one toast.
type Notification struct {
	Level    Level         `json:"type"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
}

// DurationMs is the display time in milliseconds.
func (n Notification) DurationMs() int {
	if n.Duration <= 0 {
		return int(DefaultDuration / time.Millisecond)
	}
	return int(n.Duration / time.Millisecond)
}

// Sink receives notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

func build(l Level, message string, title []string) Notification {
	t := StyleOf(l).Title
	if len(title) > 0 && title[0] != "" {
		t = title[0]
	}
	return Notification{Level: l, Title: t, Message: message, Duration: DefaultDuration}
}

// Success builds a success notification with an optional title.
func Success(message string, title ...string) Notification {
	return build(LevelSuccess, message, title)
}

// Error builds an error notification with an optional title.
func Error(message string, title ...string) Notification {
	return build(LevelError, message, title)
}

// Warning builds a warning notification with an optional title.
func Warning(message string, title ...string) Notification {
	return build(LevelWarning, message, title)
}

// Info builds an info notification with an optional title.
func Info(message string, title ...string) Notification {
	return build(LevelInfo, message, title)
}

func MemberAdded(name string) Notification {
	return Success(fmt.Sprintf("%s ha sido agregado exitosamente al gimnasio.", name), "¡Miembro agregado!")
}

func MemberUpdated(name string) Notification {
	return Success(fmt.Sprintf("Los datos de %s han sido actualizados.", name), "¡Miembro actualizado!")
}

func MemberDeleted(name string) Notification {
	return Success(fmt.Sprintf("%s ha sido eliminado del sistema.", name), "Miembro eliminado")
}

func MemberStatusChanged(name string, active bool) Notification {
	state := "desactivado"
	if active {
		state = "activado"
	}
	return Info(fmt.Sprintf("%s ha sido %s.", name, state), "Estado actualizado")
}

func PaymentProcessed(amountCRC int64, name string) Notification {
	return Success(fmt.Sprintf("Pago de %s registrado para %s.", core.FormatCRC(amountCRC), name), "Pago procesado")
}

func CheckInRegistered(name string) Notification {
	return Success(fmt.Sprintf("%s ha ingresado al gimnasio.", name), "Check-in registrado")
}

func ReminderQueued(name string) Notification {
	return Info(fmt.Sprintf("Se registró un recordatorio de pago para %s.", name), "Recordatorio")
}

// Recorder keeps notifications in memory until drained. One Recorder is
// created per request and flushed into the response.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

// LogSink writes notifications to the log. Used by background processes
// that have nobody to show a toast to.
type LogSink struct {
	Logger *applog.Logger
}

func (s LogSink) Notify(ctx context.Context, n Notification) {
	logger := s.Logger
	if logger == nil {
		logger = applog.FromContext(ctx)
	}
	logger = logger.WithComponent(applog.ComponentNotify)
	args := []any{"level", string(n.Level), "title", n.Title}
	if n.Level == LevelError {
		logger.WarnContext(ctx, n.Message, args...)
		return
	}
	logger.InfoContext(ctx, n.Message, args...)
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}
