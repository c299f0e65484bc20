package activation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

// ErrClipboardUnsupported is returned when no system clipboard tool exists.
var ErrClipboardUnsupported = errors.New("system clipboard unavailable")

// SystemClipboard writes through the platform clipboard (pbcopy, xclip,
// xsel, wl-copy or the Windows API).
type SystemClipboard struct{}

// WriteText implements Clipboard.
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}

// OSC52Clipboard asks the terminal emulator to set the clipboard with an
// OSC 52 escape sequence. It works over SSH where no clipboard tool exists.
type OSC52Clipboard struct {
	// Open returns the terminal to write to. It defaults to the controlling
	// terminal; the writer is closed after each copy when it is an io.Closer.
	Open func() (io.Writer, error)
	// Getenv defaults to os.Getenv and is used to detect tmux and screen.
	Getenv func(string) string
}

// WriteText implements Clipboard.
func (o OSC52Clipboard) WriteText(text string) error {
	open := o.Open
	if open == nil {
		open = openTTY
	}
	getenv := o.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	w, err := open()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if closer, ok := w.(io.Closer); ok {
		defer closer.Close()
	}

	seq := osc52.New(text)
	term := getenv("TERM")
	switch {
	case getenv("TMUX") != "" || strings.HasPrefix(term, "tmux"):
		seq = seq.Tmux()
	case strings.HasPrefix(term, "screen"):
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(w); err != nil {
		return fmt.Errorf("write osc52: %w", err)
	}
	return nil
}

func openTTY() (io.Writer, error) {
	return os.OpenFile("/dev/tty", os.O_WRONLY, 0)
}
