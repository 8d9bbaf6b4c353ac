package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"

	"github.com/theirongolddev/gwlens/internal/fetch"
)

const runFilePrefix = "gwlensd-"

// ErrNotRunning is returned when no live daemon owns an instance.
var ErrNotRunning = errors.New("daemon: not running")

// Record is written by a running daemon so other invocations can find it.
type Record struct {
	PID         int       `json:"pid"`
	Addr        string    `json:"addr"`
	GatewayID   string    `json:"gateway_id"`
	Days        int       `json:"days"`
	IntervalSec int       `json:"interval_sec"`
	StartedAt   time.Time `json:"started_at"`
}

// Key returns the selection the recorded daemon polls.
func (r Record) Key() fetch.Key {
	return fetch.Key{GatewayID: r.GatewayID, RangeDays: r.Days}
}

// Instance locates the run and log files of the daemon polling one key, so
// daemons for different gateways or ranges can run side by side.
type Instance struct {
	Dir string
	Key fetch.Key
}

// NewInstance returns the instance for key under dir.
func NewInstance(dir string, key fetch.Key) Instance {
	return Instance{Dir: dir, Key: key}
}

func (i Instance) base() string {
	return fmt.Sprintf("%s%s-%dd", runFilePrefix, fileSafe(i.Key.GatewayID), i.Key.RangeDays)
}

// RunFile is where the owning daemon's Record lives.
func (i Instance) RunFile() string { return filepath.Join(i.Dir, i.base()+".json") }

// LogFile is the default output file of a detached daemon.
func (i Instance) LogFile() string { return filepath.Join(i.Dir, i.base()+".log") }

// Running returns the record of the live daemon for this instance. A run file
// left behind by a dead process is removed and reported as ErrNotRunning.
func (i Instance) Running() (Record, error) {
	return liveRecord(i.RunFile())
}

// Available reports whether a daemon for this instance could start on addr:
// nothing may own the instance, and no other live daemon may hold addr.
func (i Instance) Available(addr string) error {
	if cur, err := i.Running(); err == nil {
		return fmt.Errorf("daemon for %s already running (pid %d)", i.Key, cur.PID)
	} else if !errors.Is(err, ErrNotRunning) {
		return err
	}

	others, err := List(i.Dir)
	if err != nil {
		return err
	}
	if o, ok := lo.Find(others, func(r Record) bool { return r.Addr == addr }); ok {
		return fmt.Errorf("%s is already served by the daemon for %s (pid %d)", addr, o.Key(), o.PID)
	}
	return nil
}

// Claim checks Available and records rec as the owner of the instance.
func (i Instance) Claim(rec Record) error {
	if err := i.Available(rec.Addr); err != nil {
		return err
	}
	if err := os.MkdirAll(i.Dir, 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(i.RunFile(), append(data, '\n'), 0o600)
}

// Release removes the run file if it still names pid.
func (i Instance) Release(pid int) {
	rec, err := readRecord(i.RunFile())
	if err == nil && rec.PID == pid {
		_ = os.Remove(i.RunFile())
	}
}

// List returns every live daemon recorded under dir, ordered by gateway and
// range. Dead records are cleaned up on the way.
func List(dir string) ([]Record, error) {
	paths, err := filepath.Glob(filepath.Join(dir, runFilePrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, p := range paths {
		rec, err := liveRecord(p)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].GatewayID != out[b].GatewayID {
			return out[a].GatewayID < out[b].GatewayID
		}
		return out[a].Days < out[b].Days
	})
	return out, nil
}

// Terminate sends SIGTERM to pid and waits up to timeout for it to exit.
func Terminate(pid int, timeout time.Duration) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

// ProcessAlive reports whether pid names a running process.
func ProcessAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// FetchStatus asks the daemon listening on addr for its /v1/status.
func FetchStatus(ctx context.Context, addr string) (Status, error) {
	var st Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed status: %w", err)
	}
	return st, nil
}

func liveRecord(path string) (Record, error) {
	rec, err := readRecord(path)
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotRunning
	}
	if err != nil {
		return Record{}, err
	}
	if !ProcessAlive(rec.PID) {
		_ = os.Remove(path)
		return Record{}, ErrNotRunning
	}
	return rec, nil
}

func readRecord(path string) (Record, error) {
	var rec Record
	//nolint:gosec // run files live in the user's cache directory
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse %s: %w", path, err)
	}
	if rec.PID <= 0 {
		return rec, fmt.Errorf("invalid pid in %s", path)
	}
	return rec, nil
}

// fileSafe keeps gateway ids usable as file name fragments.
func fileSafe(id string) string {
	if id == "" {
		return "none"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
