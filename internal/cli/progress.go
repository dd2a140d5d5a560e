package cli

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// StartSpinner starts a spinner on w with the given suffix and returns a
// function that stops it. Nothing is shown when quiet is set or w is not a
// terminal.
func StartSpinner(w io.Writer, suffix string, quiet bool) (stop func()) {
	if quiet || !isTerminal(w) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
