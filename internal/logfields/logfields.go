package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field names shared by every package.
const (
	KeyTask      = "task"
	KeyTasks     = "tasks"
	KeyRunID     = "run_id"
	KeySessionID = "session_id"
	KeyPattern   = "pattern"
	KeyPath      = "path"
	KeyDest      = "dest"
	KeyStage     = "stage"
	KeyCount     = "count"
	KeyOp        = "op"
	KeyDuration  = "duration_ms"
	KeyJobID     = "job_id"
	KeyError     = "error"
)

func Task(name string) slog.Attr     { return slog.String(KeyTask, name) }
func Tasks(names []string) slog.Attr { return slog.Any(KeyTasks, names) }
func RunID(id string) slog.Attr      { return slog.String(KeyRunID, id) }
func SessionID(id string) slog.Attr  { return slog.String(KeySessionID, id) }
func Pattern(p []string) slog.Attr   { return slog.Any(KeyPattern, p) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Dest(p string) slog.Attr        { return slog.String(KeyDest, p) }
func Stage(s string) slog.Attr       { return slog.String(KeyStage, s) }
func Count(n int) slog.Attr          { return slog.Int(KeyCount, n) }
func Op(op string) slog.Attr         { return slog.String(KeyOp, op) }
func JobID(id string) slog.Attr      { return slog.String(KeyJobID, id) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDuration, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
