package notifier

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/loykin/webwatch/internal/matcher"
)

// ErrNoDesktop is returned when no notification helper exists on this host.
var ErrNoDesktop = errors.New("no desktop notification command available")

// Desktop shows a native notification by shelling out to notify-send on
// Linux/BSD or osascript on macOS.
type Desktop struct {
	// lookPath and run are replaceable in tests.
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
	goos     string
}

func NewDesktop() *Desktop {
	return &Desktop{
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		goos: runtime.GOOS,
	}
}

func (d *Desktop) Notify(ctx context.Context, source string, matches []matcher.KeywordMatch) error {
	if len(matches) == 0 {
		return nil
	}
	msg := Format(source, matches)
	name, args, err := d.command(msg)
	if err != nil {
		return &NotifyError{Channel: "desktop", Source: source, Err: err}
	}
	if err := d.run(ctx, name, args...); err != nil {
		return &NotifyError{Channel: "desktop", Source: source, Err: err}
	}
	return nil
}

func (d *Desktop) command(msg Message) (string, []string, error) {
	switch d.goos {
	case "darwin":
		p, err := d.lookPath("osascript")
		if err != nil {
			return "", nil, ErrNoDesktop
		}
		script := "display notification " + strconv.Quote(msg.Body) +
			" with title " + strconv.Quote(msg.Title) + ` sound name "default"`
		return p, []string{"-e", script}, nil
	case "windows":
		return "", nil, ErrNoDesktop
	default:
		p, err := d.lookPath("notify-send")
		if err != nil {
			return "", nil, ErrNoDesktop
		}
		return p, []string{"--app-name=webwatch", msg.Title, msg.Body}, nil
	}
}

// Available reports whether a notification helper exists on this host.
func (d *Desktop) Available() bool {
	_, _, err := d.command(Message{})
	return err == nil
}
