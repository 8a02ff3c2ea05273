package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CommandLog appends every external invocation to an on-disk log so failed
// runs can be debugged from the working directory alone. Entries are flushed
// immediately; a crash mid-stage loses nothing.
type CommandLog struct {
	mu   sync.Mutex
	path string
}

// NewCommandLog creates a command log writing to the given file path.
func NewCommandLog(path string) *CommandLog {
	return &CommandLog{path: path}
}

// Record appends one invocation to the log. Logging failures are swallowed:
// an unwritable audit log must not fail a render.
func (l *CommandLog) Record(name string, args []string) {
	if l == nil || strings.TrimSpace(l.path) == "" {
		return
	}
	line := fmt.Sprintf("%s %s %s\n", time.Now().UTC().Format(time.RFC3339), name, strings.Join(args, " "))
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Path returns the log file location.
func (l *CommandLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}
