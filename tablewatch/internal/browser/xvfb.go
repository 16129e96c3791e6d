package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// x11SocketDir is where an X server listens for local clients.
var x11SocketDir = "/tmp/.X11-unix"

const (
	screenGeometry = "1920x1080x24"
	displayReady   = 5 * time.Second
)

// virtualDisplay is an Xvfb server a headful Chrome renders into.
type virtualDisplay struct {
	name string
	cmd  *exec.Cmd
	log  *slog.Logger
}

// displaySocket returns the socket path of an X display name such as ":99"
// or ":99.0". Remote displays ("host:0") are rejected.
func displaySocket(name string) (string, error) {
	num, ok := strings.CutPrefix(name, ":")
	if !ok {
		return "", fmt.Errorf("display %q: want :N", name)
	}
	num, _, _ = strings.Cut(num, ".")
	if n, err := strconv.Atoi(num); err != nil || n < 0 {
		return "", fmt.Errorf("display %q: want :N", name)
	}
	return filepath.Join(x11SocketDir, "X"+num), nil
}

// chromeEnv is the launch environment for a Chrome bound to display. Any
// inherited DISPLAY is replaced.
func chromeEnv(display string) []string {
	parent := os.Environ()
	env := make([]string, 0, len(parent)+1)
	for _, kv := range parent {
		if !strings.HasPrefix(kv, "DISPLAY=") {
			env = append(env, kv)
		}
	}
	return append(env, "DISPLAY="+display)
}

// startDisplay runs Xvfb on name and returns once its socket accepts
// clients, or fails after displayReady.
func startDisplay(ctx context.Context, name string, log *slog.Logger) (*virtualDisplay, error) {
	socket, err := displaySocket(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(socket); err == nil {
		return nil, fmt.Errorf("display %s already in use (%s)", name, socket)
	}

	cmd := exec.Command("Xvfb", name, "-screen", "0", screenGeometry, "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start xvfb: %w", err)
	}
	d := &virtualDisplay{name: name, cmd: cmd, log: log}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	deadline := time.NewTimer(displayReady)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, err := os.Stat(socket); err == nil {
			log.Info("browser: display ready", "display", name, "pid", cmd.Process.Pid)
			return d, nil
		}
		select {
		case err := <-exited:
			return nil, fmt.Errorf("xvfb on %s exited early: %v", name, err)
		case <-deadline.C:
			d.stop()
			return nil, fmt.Errorf("xvfb on %s: no socket after %s", name, displayReady)
		case <-ctx.Done():
			d.stop()
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
}

// stop kills the server. Safe on a nil display.
func (d *virtualDisplay) stop() {
	if d == nil || d.cmd.Process == nil {
		return
	}
	if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		d.log.Warn("browser: kill Xvfb", "display", d.name, "error", err)
		return
	}
	d.log.Info("browser: display stopped", "display", d.name)
}
