package core

// Exit codes for the application.
// Signal-based exits follow the Unix 128 + signal number convention.
const (
	// ExitCodeSuccess indicates clean shutdown
	ExitCodeSuccess = 0

	// ExitCodeError indicates an error occurred
	ExitCodeError = 1

	// ExitCodeSIGINT is 128 + 2 (SIGINT)
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM is 128 + 15 (SIGTERM)
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// IsSignalExit reports whether the exit code indicates a signal-based exit.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}
