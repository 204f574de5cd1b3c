package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	styleTime      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleReading   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleEmergency = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleActuator  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	stylePayload   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// Stdout is a print-only Transport. Publishes are written to out, either as
// JSON lines or colorized when out is a terminal. Subscriptions never fire.
type Stdout struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	now      func() time.Time
}

// NewStdout creates a print-only transport on os.Stdout, colorized when stdout
// is a terminal.
func NewStdout() *Stdout {
	return &Stdout{
		out:      os.Stdout,
		colorize: term.IsTerminal(int(os.Stdout.Fd())),
		now:      time.Now,
	}
}

// NewStdoutWriter creates a print-only transport writing to w.
func NewStdoutWriter(w io.Writer, colorize bool) *Stdout {
	return &Stdout{out: w, colorize: colorize, now: time.Now}
}

func (w *Stdout) Connect(context.Context) error { return nil }

func (w *Stdout) Disconnect() {}

// Publish prints the message.
func (w *Stdout) Publish(_ context.Context, topic string, payload []byte, qos QoS) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := w.now().UTC()
	if w.colorize {
		fmt.Fprintf(w.out, "%s %s %s\n",
			styleTime.Render("["+ts.Format(time.RFC3339)+"]"),
			topicStyle(topic).Render(fmt.Sprintf("%-32s", topic)),
			stylePayload.Render(string(payload)))
		return nil
	}

	data, err := json.Marshal(NewRecord(topic, payload, qos, ts))
	if err != nil {
		return &TransportError{Op: "publish", Topic: topic, Err: err}
	}
	fmt.Fprintln(w.out, string(data))
	return nil
}

// Subscribe accepts the subscription; nothing is ever delivered.
func (w *Stdout) Subscribe(_ context.Context, topic string, _ Handler) (Subscription, error) {
	return nopSubscription(topic), nil
}

func topicStyle(topic string) lipgloss.Style {
	switch {
	case strings.HasSuffix(topic, "/emergency"):
		return styleEmergency
	case strings.HasSuffix(topic, "/siren"), strings.HasSuffix(topic, "/horn"):
		return styleActuator
	default:
		return styleReading
	}
}

type nopSubscription string

func (s nopSubscription) Topic() string { return string(s) }

func (nopSubscription) Unsubscribe(context.Context) error { return nil }
