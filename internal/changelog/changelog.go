// Package changelog appends one-line audit entries to an infra changelog file.
package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the changelog kept under an agent's infra root.
const FileName = "server-changelog.md"

// TimeLayout renders UTC timestamps with microseconds and an explicit offset.
const TimeLayout = "2006-01-02T15:04:05.000000-07:00"

// Writer appends entries of the form "<timestamp> - <agent> - <message>",
// followed by " [<invocation>]" when Invocation is set.
type Writer struct {
	Path       string
	Agent      string
	Invocation string

	// Now defaults to time.Now.
	Now func() time.Time
}

// New returns a Writer for <infraRoot>/server-changelog.md.
func New(infraRoot, agentName, invocation string) *Writer {
	return &Writer{Path: filepath.Join(infraRoot, FileName), Agent: agentName, Invocation: invocation}
}

// Append writes one entry. The file is opened in append mode for each entry;
// concurrent writers are not coordinated.
func (w *Writer) Append(message string) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	if err := os.MkdirAll(filepath.Dir(w.Path), 0755); err != nil {
		return fmt.Errorf("creating changelog directory: %w", err)
	}

	f, err := os.OpenFile(w.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening changelog %s: %w", w.Path, err)
	}

	line := fmt.Sprintf("%s - %s - %s", now().UTC().Format(TimeLayout), w.Agent, message)
	if w.Invocation != "" {
		line += " [" + w.Invocation + "]"
	}
	line += "\n"
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("writing changelog %s: %w", w.Path, err)
	}
	return f.Close()
}
