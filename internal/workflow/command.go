package workflow

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Command is an external program run as a task.
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Binary}, c.Args...), " ")
}

// Run executes the command in Dir and logs its combined output. The process
// is killed when ctx is cancelled.
func (c Command) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	cmd.Dir = c.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	slog.InfoContext(ctx, "running command", "command", c.String(), "dir", c.Dir)

	err := cmd.Run()
	if s := strings.TrimSpace(out.String()); s != "" {
		slog.InfoContext(ctx, "command output", "command", c.Binary, "output", s)
	}
	if err != nil {
		return fmt.Errorf("command %q: %w", c.String(), err)
	}
	return nil
}
