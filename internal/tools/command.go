package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"toolflow/internal/config"
	"toolflow/internal/logging"
	"toolflow/internal/value"
)

// defaultLineBuffer is the longest stdout or stderr line a command tool may
// emit.
const defaultLineBuffer = 10 * 1024 * 1024

// CommandTool implements [Handler] by running a local process.
//
// The step's parameters are written to the process's stdin as one JSON
// object. Stdout is read as line-delimited JSON and the last line that parses
// is the result; lines that do not parse are skipped. If no line parses, the
// trimmed stdout is returned as a string. Stderr is forwarded to the debug log.
type CommandTool struct {
	name        string
	description string
	argv        []string
	env         []string
	lineBuffer  int
	logger      *zap.SugaredLogger
}

// NewCommandTool builds a CommandTool from cfg.
func NewCommandTool(cfg config.ToolConfig, logger *zap.SugaredLogger) (*CommandTool, error) {
	if cfg.Type != "command" {
		return nil, fmt.Errorf("tool type is %q, not command", cfg.Type)
	}
	if cfg.Name == "" || len(cfg.Command) == 0 {
		return nil, fmt.Errorf("command tool requires name and command")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	for _, kv := range cfg.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			return nil, fmt.Errorf("env entry %q is not KEY=VALUE", kv)
		}
	}
	return &CommandTool{
		name:        cfg.Name,
		description: cfg.Description,
		argv:        append([]string(nil), cfg.Command...),
		env:         append([]string(nil), cfg.Env...),
		lineBuffer:  defaultLineBuffer,
		logger:      logger.With("tool", cfg.Name),
	}, nil
}

func (t *CommandTool) Name() string        { return t.name }
func (t *CommandTool) Description() string { return t.description }

// Execute runs the command. The process is killed when ctx is done.
func (t *CommandTool) Execute(ctx context.Context, params map[string]value.Value) (value.Value, error) {
	input, err := json.Marshal(value.Map(params))
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: encode params: %w", t.name, err)
	}

	cmd := exec.CommandContext(ctx, t.argv[0], t.argv[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	if len(t.env) > 0 {
		cmd.Env = append(os.Environ(), t.env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: stdout pipe: %w", t.name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: stderr pipe: %w", t.name, err)
	}

	if err := cmd.Start(); err != nil {
		return value.Value{}, fmt.Errorf("%s: start: %w", t.name, err)
	}

	stderrDone := make(chan string, 1)
	go func() {
		var tail string
		scanner := newLineScanner(stderr, t.lineBuffer)
		for scanner.Scan() {
			tail = scanner.Text()
			t.logger.Debugw("stderr", "line", tail)
		}
		if err := scanner.Err(); err != nil {
			t.logger.Debugw("stderr unreadable", "error", err)
		}
		// The child blocks on a full stderr pipe, so keep reading until EOF.
		_, _ = io.Copy(io.Discard, stderr)
		stderrDone <- tail
	}()

	result, ok, raw, readErr := parseOutput(stdout, t.lineBuffer)
	lastStderr := <-stderrDone

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return value.Value{}, fmt.Errorf("%s: %w", t.name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if lastStderr != "" {
				return value.Value{}, fmt.Errorf("%s: exit status %d: %s", t.name, exitErr.ExitCode(), lastStderr)
			}
			return value.Value{}, fmt.Errorf("%s: exit status %d", t.name, exitErr.ExitCode())
		}
		return value.Value{}, fmt.Errorf("%s: %w", t.name, err)
	}

	if readErr != nil {
		return value.Value{}, fmt.Errorf("%s: read output: %w", t.name, readErr)
	}
	if ok {
		return result, nil
	}
	return value.String(strings.TrimSpace(raw)), nil
}

// parseOutput reads line-delimited JSON from r. It returns the last line that
// decoded, whether any did, and the full text read. A read error, including a
// line longer than bufSize, is returned after r has been drained.
func parseOutput(r io.Reader, bufSize int) (value.Value, bool, string, error) {
	scanner := newLineScanner(r, bufSize)

	var (
		raw    strings.Builder
		last   value.Value
		parsed bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		raw.WriteString(line)
		raw.WriteByte('\n')

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var v value.Value
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			continue
		}
		last, parsed = v, true
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return value.Value{}, false, raw.String(), err
	}
	return last, parsed, raw.String(), nil
}

// newLineScanner returns a line scanner whose longest token is limit bytes.
func newLineScanner(r io.Reader, limit int) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(limit, 64*1024)), limit)
	return scanner
}
