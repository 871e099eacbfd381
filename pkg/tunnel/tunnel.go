// Package tunnel runs the local network tunnel that lets remote browsers reach
// hosts only visible from this machine.
package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/sessionrig/pkg/config"
)

// ReadyMarker is printed by the tunnel binary once it accepts traffic.
const ReadyMarker = "You can now access your local server"

// DefaultStopGrace is how long Stop waits after the interrupt before killing.
const DefaultStopGrace = 5 * time.Second

// Tunnel is started once before the first scenario and stopped once at the end.
type Tunnel interface {
	Start(ctx context.Context) error
	Stop() error
}

// Nop is the tunnel used when tunneling is disabled.
type Nop struct{}

func (Nop) Start(context.Context) error { return nil }
func (Nop) Stop() error                 { return nil }

// Options configures a Local tunnel.
type Options struct {
	Binary       string
	Key          string
	Identifier   string
	ReadyTimeout time.Duration
	StopGrace    time.Duration
}

// New returns the tunnel described by cfg: a Local process when enabled,
// otherwise Nop.
func New(cfg *config.Config, logger *zap.Logger) Tunnel {
	if !cfg.Tunnel.Enabled {
		return Nop{}
	}
	return NewLocal(Options{
		Binary:       cfg.Tunnel.Binary,
		Key:          cfg.Remote.AccessKey,
		Identifier:   cfg.Tunnel.Identifier,
		ReadyTimeout: cfg.Tunnel.Ready,
	}, logger)
}

// Local runs the tunnel binary as a child process.
type Local struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	scanDone chan struct{}
	waitErr  error
	lastLine string
}

// NewLocal creates a tunnel process wrapper. Nothing runs until Start.
func NewLocal(opts Options, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	return &Local{opts: opts, logger: logger}
}

// Args returns the command line arguments passed to the binary.
func (t *Local) Args() []string {
	args := []string{"--key", t.opts.Key, "--force-local"}
	if t.opts.Identifier != "" {
		args = append(args, "--local-identifier", t.opts.Identifier)
	}
	return args
}

// Start launches the binary and blocks until it reports readiness, exits, or
// ctx (bounded by the ready timeout) is done.
func (t *Local) Start(ctx context.Context) error {
	ready, err := t.launch()
	if err != nil {
		return err
	}

	if t.opts.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.ReadyTimeout)
		defer cancel()
	}

	select {
	case <-ready:
		t.logger.Info("tunnel ready")
		return nil
	case <-t.done:
		<-t.scanDone
		t.mu.Lock()
		err, last := t.waitErr, t.lastLine
		t.mu.Unlock()
		return fmt.Errorf("tunnel exited before ready (last output %q): %v", last, err)
	case <-ctx.Done():
		t.kill()
		return fmt.Errorf("tunnel not ready: %w", ctx.Err())
	}
}

// launch starts the process and its output and wait goroutines.
func (t *Local) launch() (<-chan struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil {
		return nil, fmt.Errorf("tunnel already started")
	}
	if t.opts.Key == "" {
		return nil, fmt.Errorf("tunnel requires an access key")
	}

	pr, pw := io.Pipe()

	// not CommandContext: the process must outlive Start
	cmd := exec.Command(t.opts.Binary, t.Args()...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.WaitDelay = t.opts.StopGrace

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("failed to start tunnel: %w", err)
	}

	t.cmd = cmd
	t.done = make(chan struct{})
	t.scanDone = make(chan struct{})
	ready := make(chan struct{}, 1)

	go t.scan(pr, ready)
	go func() {
		err := cmd.Wait()
		pw.Close()
		t.mu.Lock()
		t.waitErr = err
		t.mu.Unlock()
		close(t.done)
	}()

	t.logger.Info("tunnel starting", zap.String("binary", t.opts.Binary), zap.Int("pid", cmd.Process.Pid))
	return ready, nil
}

// scan forwards the tunnel output to the log and signals the ready marker.
func (t *Local) scan(r io.Reader, ready chan<- struct{}) {
	defer close(t.scanDone)

	signalled := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.mu.Lock()
		t.lastLine = line
		t.mu.Unlock()
		t.logger.Debug("tunnel output", zap.String("line", line))

		if !signalled && strings.Contains(line, ReadyMarker) {
			signalled = true
			ready <- struct{}{}
		}
	}
}

func (t *Local) kill() {
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		t.logger.Warn("failed to kill tunnel", zap.Error(err))
	}
	<-t.done
	<-t.scanDone
}

// Stop interrupts the process and kills it after the grace period. Stopping a
// tunnel that never started is a no-op.
func (t *Local) Stop() error {
	t.mu.Lock()
	cmd, done := t.cmd, t.done
	t.mu.Unlock()

	if cmd == nil {
		return nil
	}

	select {
	case <-done:
		<-t.scanDone
		t.logger.Info("tunnel already exited")
		return nil
	default:
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		t.logger.Warn("failed to interrupt tunnel", zap.Error(err))
	}

	select {
	case <-done:
		<-t.scanDone
	case <-time.After(t.opts.StopGrace):
		t.logger.Warn("tunnel did not exit after interrupt, killing", zap.Duration("grace", t.opts.StopGrace))
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill tunnel: %w", err)
		}
		<-done
		<-t.scanDone
	}

	t.logger.Info("tunnel stopped")
	return nil
}
