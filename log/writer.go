package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

type wcOutput struct {
	timestamps bool
	wc         io.WriteCloser
}

func (w wcOutput) Write(stamp time.Time, debug bool, msg string) {
	b := strings.Builder{}
	if w.timestamps {
		b.WriteString(stamp.UTC().Format("2006-01-02T15:04:05.000Z "))
	}
	if debug {
		b.WriteString("[debug] ")
	}
	b.WriteString(msg)
	b.WriteRune('\n')
	if _, err := io.WriteString(w.wc, b.String()); err != nil {
		fmt.Fprintf(os.Stderr, "!!! failed to write log message: %v\n", err)
	}
}

func (w wcOutput) Close() error {
	return w.wc.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriterOutput returns an Output that writes formatted messages to w,
// prefixed with a UTC timestamp when timestamps is true. Closing the
// returned Output has no effect on w.
func WriterOutput(w io.Writer, timestamps bool) Output {
	return wcOutput{timestamps, nopCloser{w}}
}

// WriteCloserOutput is like WriterOutput but also closes wc on Close.
func WriteCloserOutput(wc io.WriteCloser, timestamps bool) Output {
	return wcOutput{timestamps, wc}
}
