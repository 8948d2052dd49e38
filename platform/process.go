package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// SuspendToken stands for "these processes are stopped and owe a resume signal".
// Release sends the resume signal once; later calls are no-ops.
type SuspendToken struct {
	pids   []int
	resume func(pid int) error

	once sync.Once
	err  error
}

// NewSuspendToken wraps already-stopped pids with the function that resumes one of them
func NewSuspendToken(pids []int, resume func(pid int) error) *SuspendToken {
	return &SuspendToken{pids: pids, resume: resume}
}

// PIDs returns the stopped process ids
func (t *SuspendToken) PIDs() []int {
	return t.pids
}

// Release resumes every stopped process. All pids are attempted even when one fails.
func (t *SuspendToken) Release() error {
	t.once.Do(func() {
		var errs []error
		for _, pid := range t.pids {
			if err := t.resume(pid); err != nil {
				errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
			}
		}
		t.err = errors.Join(errs...)
	})
	return t.err
}

// Processes finds and signals processes by command name
type Processes struct {
	procDir string
}

// NewProcesses scans /proc
func NewProcesses() *Processes {
	return &Processes{procDir: "/proc"}
}

// Find returns the pids whose comm equals name
func (p *Processes) Find(name string) ([]int, error) {
	entries, err := os.ReadDir(p.procDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p.procDir, err)
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(p.procDir, e.Name(), "comm"))
		if err != nil {
			// process exited while scanning
			continue
		}
		if strings.TrimSpace(string(comm)) == name {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// Suspend stops every process named name. A partial failure resumes the
// processes already stopped before returning the error.
func (p *Processes) Suspend(name string) (*SuspendToken, error) {
	pids, err := p.Find(name)
	if err != nil {
		return nil, err
	}

	stopped := make([]int, 0, len(pids))
	for _, pid := range pids {
		if err := stopProcess(pid); err != nil {
			rollback := NewSuspendToken(stopped, resumeProcess)
			if rerr := rollback.Release(); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, fmt.Errorf("failed to stop %s (pid %d): %w", name, pid, err)
		}
		stopped = append(stopped, pid)
	}

	return NewSuspendToken(stopped, resumeProcess), nil
}
