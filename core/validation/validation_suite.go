package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"tinyimg/core"
	"tinyimg/inventory"
)

// ValidationStep represents a single preflight step with its status.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of a suite run.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool

	// Config is the loaded configuration when the config step passed.
	Config *core.Config
}

// ValidationSuite runs the startup preflight checks with colored
// progress output: config file, model list, device probe, history
// database, OpenAI credentials.
type ValidationSuite struct {
	output       io.Writer
	configPath   string
	prober       inventory.Prober
	showProgress bool
	failFast     bool
}

// NewValidationSuite creates a suite with default settings.
func NewValidationSuite(configPath string) *ValidationSuite {
	return &ValidationSuite{
		output:       os.Stdout,
		configPath:   configPath,
		prober:       inventory.NewSystemProber(),
		showProgress: true,
		failFast:     false,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithProber replaces the hardware prober, used by tests.
func (s *ValidationSuite) WithProber(p inventory.Prober) *ValidationSuite {
	s.prober = p
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on the first failure.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// Validate runs all preflight checks in sequence.
func (s *ValidationSuite) Validate() SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 5)

	if s.showProgress {
		s.printHeader(core.AppName + " Startup Validation")
	}

	var cfg *core.Config
	step := s.runStep("Configuration File", func() (bool, string, error) {
		loaded, result := CheckConfigFile(s.configPath)
		cfg = loaded
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if cfg == nil || (s.failFast && step.Status == StepFailed) {
		// Nothing downstream can run without a config.
		for _, name := range []string{"Model Configuration", "Device Probe", "History Database", "OpenAI Credentials"} {
			steps = append(steps, s.skipStep(name, "Skipped due to configuration errors"))
		}
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("Model Configuration", func() (bool, string, error) {
		result := CheckModels(cfg)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("Device Probe", func() (bool, string, error) {
		result := CheckDevices(s.prober, cfg.Devices.AllowCPUFallback)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	if cfg.History.Enabled {
		step = s.runStep("History Database", func() (bool, string, error) {
			result := CheckHistoryDatabase(cfg.History)
			return result.Valid, result.Message, result.Error
		})
	} else {
		step = s.skipStep("History Database", "History disabled in configuration")
	}
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.finish(steps, startTime, cfg)
	}

	step = s.runStep("OpenAI Credentials", func() (bool, string, error) {
		result := CheckOpenAICredentials(cfg)
		return result.Valid, result.Message, result.Error
	})
	steps = append(steps, step)

	return s.finish(steps, startTime, cfg)
}

// runStep executes a validation step with timing and progress output.
func (s *ValidationSuite) runStep(name string, fn func() (bool, string, error)) ValidationStep {
	step := ValidationStep{Name: name, Status: StepRunning}

	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", name)
	}

	startTime := time.Now()
	passed, message, err := fn()
	step.Latency = time.Since(startTime)
	step.Message = message
	step.Error = err

	if passed {
		step.Status = StepPassed
	} else {
		step.Status = StepFailed
	}

	if s.showProgress {
		s.printStep(step)
	}

	return step
}

func (s *ValidationSuite) skipStep(name, reason string) ValidationStep {
	step := ValidationStep{
		Name:    name,
		Status:  StepSkipped,
		Message: reason,
	}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) finish(steps []ValidationStep, startTime time.Time, cfg *core.Config) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
		Config:     cfg,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "=== %s ===\n", title)
	fmt.Fprintln(s.output)
}

func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}

	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "=== Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ===")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "=== Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ===")
	}

	fmt.Fprintln(s.output)
}

// GetFirstError returns the first error from failed steps, or nil.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a human-readable one-line summary.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation Passed: ")
	} else {
		sb.WriteString("Validation Failed: ")
	}
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
