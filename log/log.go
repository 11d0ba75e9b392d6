// Package log implements the minimalistic structured logging library used
// throughout spamchain: a name-prefixed "msg\t{json}" line, with an
// optional zapcore.Core shim for hosts that already log through zap.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Logger writes formatted output to an underlying Output. Logger is
// stateless and may be copied freely; the underlying Output is not copied.
type Logger struct {
	Out   Output
	Name  string
	Debug bool

	// Fields are additional key-value pairs merged into every message.
	Fields map[string]interface{}
}

// DefaultLogger is the package-level Logger used by Debugf/Printf/etc.
var DefaultLogger = Logger{Out: WriterOutput(os.Stderr, false)}

func Debugf(format string, val ...interface{}) { DefaultLogger.Debugf(format, val...) }
func Printf(format string, val ...interface{}) { DefaultLogger.Printf(format, val...) }

// Zap returns a *zap.Logger backed by this Logger, for hosts that want to
// pass a single logger object into both spamchain and their own zap-based
// code.
func (l Logger) Zap() *zap.Logger {
	return zap.New(zapLogger{L: l})
}

func (l Logger) Debugf(format string, val ...interface{}) {
	if !l.Debug {
		return
	}
	l.log(true, l.formatMsg(fmt.Sprintf(format, val...), nil))
}

func (l Logger) Printf(format string, val ...interface{}) {
	l.log(false, l.formatMsg(fmt.Sprintf(format, val...), nil))
}

// Msg writes a structured event log message:
//
//	name: msg	{"key":"value"}
//
// fields is a flattened key,value,key,value... slice, as with zap.Sugar.
func (l Logger) Msg(msg string, fields ...interface{}) {
	m := make(map[string]interface{}, len(fields)/2)
	fieldsToMap(fields, m)
	l.log(false, l.formatMsg(msg, m))
}

// Error writes a message describing a failed operation, pulling structured
// context out of err via an ErrFields-style Fields(err) walk if errFields is
// non-nil.
func (l Logger) Error(msg string, err error, errFields func(error) map[string]interface{}, fields ...interface{}) {
	if err == nil {
		return
	}

	var extracted map[string]interface{}
	if errFields != nil {
		extracted = errFields(err)
	}
	all := make(map[string]interface{}, len(fields)+len(extracted)+1)
	for k, v := range extracted {
		all[k] = v
	}
	if all["reason"] == nil {
		all["reason"] = err.Error()
	}
	fieldsToMap(fields, all)

	l.log(false, l.formatMsg(msg, all))
}

func fieldsToMap(fields []interface{}, out map[string]interface{}) {
	var lastKey string
	for i, val := range fields {
		if i%2 == 0 {
			key, ok := val.(string)
			if !ok {
				out[fmt.Sprintf("field%d", i)] = val
				continue
			}
			lastKey = key
		} else {
			out[lastKey] = val
		}
	}
}

func (l Logger) formatMsg(msg string, fields map[string]interface{}) string {
	b := strings.Builder{}
	b.WriteString(msg)
	b.WriteRune('\t')

	if len(l.Fields)+len(fields) != 0 {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		for k, v := range l.Fields {
			fields[k] = v
		}
		enc, err := json.Marshal(fields)
		if err != nil {
			return fmt.Sprintf("[BROKEN FORMATTING: %v] %v %+v", err, msg, fields)
		}
		b.Write(enc)
	}

	return b.String()
}

// Write implements io.Writer: every call is logged as a separate message.
func (l Logger) Write(s []byte) (int, error) {
	l.log(false, strings.TrimRight(string(s), "\n"))
	return len(s), nil
}

// DebugWriter returns a writer that logs every write through l, or discards
// everything if l.Debug is false. The written lines go out as regular
// messages; they are not marked as debug output.
func (l Logger) DebugWriter() io.Writer {
	if !l.Debug {
		return io.Discard
	}
	l.Debug = true
	return &l
}

func (l Logger) log(debug bool, s string) {
	if l.Name != "" {
		s = l.Name + ": " + s
	}

	if l.Out != nil {
		l.Out.Write(time.Now(), debug, s)
		return
	}
	if DefaultLogger.Out != nil {
		DefaultLogger.Out.Write(time.Now(), debug, s)
	}
}
