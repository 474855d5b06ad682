//go:build windows

// Windows service support via github.com/kardianos/service. Lets the
// server run as a background service with proper Start/Stop handling
// from the service control manager.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"

	"tinyimg/core"
)

// Program implements service.Interface. It bridges the service control
// manager's Start/Stop lifecycle to the server's run loop.
type Program struct {
	// stop signals the run loop to begin graceful shutdown.
	stop chan struct{}
	// exit is closed when the run loop has fully returned.
	exit chan struct{}
}

// Start launches the server in a goroutine and returns immediately, as
// the service interface requires.
func (p *Program) Start(s service.Service) error {
	p.stop = make(chan struct{})
	p.exit = make(chan struct{})

	go func() {
		defer close(p.exit)
		run(p.stop)
	}()

	return nil
}

// Stop signals graceful shutdown and waits for the run loop to drain.
func (p *Program) Stop(s service.Service) error {
	close(p.stop)

	select {
	case <-p.exit:
	case <-time.After(90 * time.Second):
		return fmt.Errorf("timeout waiting for service to stop")
	}

	return nil
}

// ServiceConfig returns the Windows service registration settings.
func ServiceConfig() *service.Config {
	return &service.Config{
		Name:        "TinyIMGServer",
		DisplayName: core.AppName,
		Description: core.AppDescription,
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

// RunAsService runs the application under the service control manager.
// Returns true if running as a service, false if running interactively.
func RunAsService() (bool, error) {
	prg := &Program{}

	s, err := service.New(prg, ServiceConfig())
	if err != nil {
		return false, fmt.Errorf("failed to create service: %w", err)
	}

	if service.Interactive() {
		return false, nil
	}

	if err := s.Run(); err != nil {
		return true, fmt.Errorf("service run failed: %w", err)
	}

	return true, nil
}

// controlService creates the service handle and applies one control
// action (install, start, etc).
func controlService(action string, control func(service.Service) error) error {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if err := control(s); err != nil {
		return fmt.Errorf("failed to %s service: %w", action, err)
	}

	fmt.Printf("Service %s completed successfully\n", action)
	return nil
}

// serviceStatus returns the current status of the installed service.
func serviceStatus() (service.Status, error) {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return service.StatusUnknown, fmt.Errorf("failed to create service: %w", err)
	}
	return s.Status()
}

// HandleServiceCommand dispatches service management commands. Returns
// true when a command was handled and the process should exit.
func HandleServiceCommand(args []string) bool {
	if len(args) == 0 {
		return false
	}

	var err error
	switch args[0] {
	case "install":
		err = controlService("install", service.Service.Install)
	case "uninstall", "remove":
		err = controlService("uninstall", service.Service.Uninstall)
	case "start":
		err = controlService("start", service.Service.Start)
	case "stop":
		err = controlService("stop", service.Service.Stop)
	case "restart":
		err = controlService("restart", service.Service.Restart)
	case "status":
		status, statusErr := serviceStatus()
		if statusErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", statusErr)
			os.Exit(core.ExitCodeError)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running")
		case service.StatusStopped:
			fmt.Println("Service is stopped")
		default:
			fmt.Println("Service status unknown")
		}
		return true
	case "help", "-h", "--help", "-help":
		PrintServiceUsage()
		return true
	default:
		return false
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	return true
}
