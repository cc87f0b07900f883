package diagrams

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Renderer turns diagram source into SVG markup.
type Renderer interface {
	Render(ctx context.Context, source string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, source string) (string, error)

func (f RendererFunc) Render(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// RenderError is a renderer rejection. Line is 1-based, or 0 when the
// message does not name one.
type RenderError struct {
	Message string
	Line    int
	Err     error
}

func (e *RenderError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error { return e.Err }

var errorLine = regexp.MustCompile(`(?i)line\s+(\d+)`)

// ErrorLine extracts the 1-based source line an error refers to.
func ErrorLine(err error) int {
	var re *RenderError
	if errors.As(err, &re) && re.Line > 0 {
		return re.Line
	}
	if err == nil {
		return 0
	}
	if m := errorLine.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			return n
		}
	}
	return 0
}

// DefaultCommand is the mermaid-cli executable.
const DefaultCommand = "mmdc"

// CLIRenderer renders with mermaid-cli. Every call works in its own
// temporary directory, which is removed afterwards.
type CLIRenderer struct {
	Command    string
	Theme      string
	Background string
	Timeout    time.Duration
	// Args are appended to the generated command line.
	Args []string
}

// NewCLIRenderer returns a CLIRenderer with the given executable and timeout.
func NewCLIRenderer(command string, timeout time.Duration) *CLIRenderer {
	return &CLIRenderer{Command: command, Timeout: timeout}
}

func (r *CLIRenderer) Render(ctx context.Context, source string) (string, error) {
	command := r.Command
	if command == "" {
		command = DefaultCommand
	}
	if _, err := exec.LookPath(command); err != nil {
		return "", &RenderError{Message: fmt.Sprintf("diagram renderer %q not found", command), Err: err}
	}

	dir, err := os.MkdirTemp("", "wisdomizer-diagram-*")
	if err != nil {
		return "", fmt.Errorf("creating render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "diagram.mmd")
	output := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(input, []byte(source), 0o600); err != nil {
		return "", fmt.Errorf("writing diagram source: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := []string{"-i", input, "-o", output}
	if r.Theme != "" {
		args = append(args, "-t", r.Theme)
	}
	if r.Background != "" {
		args = append(args, "-b", r.Background)
	}
	args = append(args, r.Args...)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("rendering diagram: %w", ctx.Err())
		}
		msg := cleanCLIOutput(stderr.String())
		return "", &RenderError{Message: msg, Line: ErrorLine(errors.New(msg)), Err: err}
	}

	svg, err := os.ReadFile(output)
	if err != nil {
		return "", fmt.Errorf("reading rendered diagram: %w", err)
	}
	return string(svg), nil
}

// cleanCLIOutput keeps the first meaningful lines of mmdc's output, which
// otherwise ends in a node stack trace.
func cleanCLIOutput(out string) string {
	var kept []string
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "at ") {
			continue
		}
		kept = append(kept, trimmed)
		if len(kept) == 4 {
			break
		}
	}
	if len(kept) == 0 {
		return "diagram renderer failed"
	}
	return strings.Join(kept, "\n")
}
