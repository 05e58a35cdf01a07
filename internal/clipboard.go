package internal

import (
	"errors"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// systemClipboard is swapped out in tests
var systemClipboard = clipboard.WriteAll

// CopyText puts text on the system clipboard. When no clipboard utility is
// available it writes an OSC 52 sequence to fallback so the terminal can
// copy it instead.
func CopyText(text string, fallback io.Writer) error {
	err := systemClipboard(text)
	if err == nil {
		return nil
	}
	LogDebug("System clipboard unavailable, using OSC 52: %v", err)
	if fallback == nil {
		return err
	}

	seq := osc52.New(text)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	}
	if _, werr := seq.WriteTo(fallback); werr != nil {
		return errors.Join(err, werr)
	}
	return nil
}
