package skills

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/jingkaihe/skillserver/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NoOutputPlaceholder is reported for a successful script that printed nothing
const NoOutputPlaceholder = "Script executed successfully (no output)"

// ScriptStatus is the outcome of a script run
type ScriptStatus string

const (
	ScriptSucceeded   ScriptStatus = "succeeded"
	ScriptRejected    ScriptStatus = "rejected"
	ScriptNotFound    ScriptStatus = "not_found"
	ScriptUnsupported ScriptStatus = "unsupported"
	ScriptFailed      ScriptStatus = "failed"
	ScriptSpawnFailed ScriptStatus = "spawn_failed"
)

// defaultInterpreters maps script extensions to the executable that runs them.
// The set of extensions is fixed; only the executables can be overridden.
var defaultInterpreters = map[string]string{
	".py": "python3",
	".sh": "bash",
	".js": "node",
}

var tracer = telemetry.Tracer("skillserver.skills")

// ScriptResult is the outcome of Runner.Run
type ScriptResult struct {
	ExecutionID string
	Status      ScriptStatus
	ScriptPath  string
	ExitCode    int
	Stdout      string
	Stderr      string
	Error       string
	Duration    time.Duration
}

// IsError returns true for every status except ScriptSucceeded
func (r *ScriptResult) IsError() bool {
	return r.Status != ScriptSucceeded
}

// Output renders the result as text for display
func (r *ScriptResult) Output() string {
	switch r.Status {
	case ScriptSucceeded:
		if r.Stdout == "" {
			return NoOutputPlaceholder
		}
		return r.Stdout
	case ScriptFailed:
		return fmt.Sprintf("Script failed with exit code %d\n\nSTDERR:\n%s\n\nSTDOUT:\n%s",
			r.ExitCode, strings.TrimRight(r.Stderr, "\n"), strings.TrimRight(r.Stdout, "\n"))
	default:
		return r.Error
	}
}

// Runner executes bundled scripts with the interpreter matching their extension
type Runner struct {
	interpreters map[string]string
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner) error

// WithInterpreter replaces the executable used for a supported extension
func WithInterpreter(ext, command string) RunnerOption {
	return func(r *Runner) error {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := defaultInterpreters[ext]; !ok {
			return errors.Errorf("unsupported script extension %q (supported: %s)", ext, SupportedExtensions())
		}
		if strings.TrimSpace(command) == "" {
			return errors.Errorf("empty interpreter for %s", ext)
		}
		r.interpreters[ext] = command
		return nil
	}
}

// NewRunner creates a Runner with the default interpreter table
func NewRunner(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{interpreters: make(map[string]string, len(defaultInterpreters))}
	for ext, command := range defaultInterpreters {
		r.interpreters[ext] = command
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SupportedExtensions returns the script extensions a Runner accepts
func SupportedExtensions() string {
	exts := make([]string, 0, len(defaultInterpreters))
	for ext := range defaultInterpreters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// Interpreter returns the executable for the script's extension
func (r *Runner) Interpreter(scriptPath string) (string, bool) {
	command, ok := r.interpreters[strings.ToLower(filepath.Ext(scriptPath))]
	return command, ok
}

// Run executes the script at relPath inside the skill directory and waits for
// it to exit. It never returns a nil result; failures are reported through
// the result status. The child is not tied to ctx and runs to completion.
func (r *Runner) Run(ctx context.Context, skill *Skill, relPath string, args []string) *ScriptResult {
	executionID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "skills.run_script", trace.WithAttributes(
		attribute.String("skill", skill.ID),
		attribute.String("script", relPath),
		attribute.Int("args.count", len(args)),
		attribute.String("execution_id", executionID),
	))
	defer span.End()

	log := logger.G(ctx).WithFields(logrus.Fields{
		"skill":        skill.ID,
		"script":       relPath,
		"execution_id": executionID,
	})
	log.Debug("running script")

	result := r.run(skill, relPath, args)
	result.ExecutionID = executionID

	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("exit_code", result.ExitCode),
	)
	if result.IsError() {
		span.SetStatus(codes.Error, result.Error)
		log.WithField("status", result.Status).WithField("exit_code", result.ExitCode).Warn("script did not succeed")
	} else {
		span.SetStatus(codes.Ok, "")
		log.WithField("duration", result.Duration).Debug("script finished")
	}

	return result
}

func (r *Runner) run(skill *Skill, relPath string, args []string) *ScriptResult {
	scriptPath, err := ResolvePath(skill, relPath)
	if err != nil {
		return &ScriptResult{Status: ScriptRejected, Error: err.Error()}
	}

	info, err := os.Stat(scriptPath)
	if err != nil || info.IsDir() {
		return &ScriptResult{
			Status:     ScriptNotFound,
			ScriptPath: scriptPath,
			Error:      fmt.Sprintf("script not found: %s", relPath),
		}
	}

	interpreter, ok := r.Interpreter(scriptPath)
	if !ok {
		return &ScriptResult{
			Status:     ScriptUnsupported,
			ScriptPath: scriptPath,
			Error: fmt.Sprintf("unsupported script type %q (supported: %s)",
				filepath.Ext(scriptPath), SupportedExtensions()),
		}
	}

	cmd := exec.Command(interpreter, append([]string{scriptPath}, args...)...)
	cmd.Dir = skill.Directory

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return &ScriptResult{
			Status:     ScriptSpawnFailed,
			ScriptPath: scriptPath,
			ExitCode:   -1,
			Error:      errors.Wrapf(err, "failed to execute script with %s", interpreter).Error(),
		}
	}

	err = cmd.Wait()
	result := &ScriptResult{
		Status:     ScriptSucceeded,
		ScriptPath: scriptPath,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   time.Since(startTime),
	}

	if err != nil {
		result.Status = ScriptFailed
		result.ExitCode = -1
		result.Error = err.Error()

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
	}

	return result
}
