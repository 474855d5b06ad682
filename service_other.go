//go:build !windows

package main

import "fmt"

// RunAsService is a no-op outside Windows. Returns false so the
// application runs in the foreground.
func RunAsService() (bool, error) {
	return false, nil
}

// HandleServiceCommand recognises the service management commands so the
// CLI surface matches Windows, but service control itself is
// Windows-only so the commands just print a notice.
func HandleServiceCommand(args []string) bool {
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "install", "uninstall", "remove", "start", "stop", "restart", "status":
		fmt.Printf("The %q command manages the Windows service and is only available on Windows.\n", args[0])
		return true
	case "help", "-h", "--help", "-help":
		PrintServiceUsage()
		return true
	}

	return false
}
