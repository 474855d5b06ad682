package main

import "fmt"

// PrintServiceUsage prints the help text for the service management
// commands. Shared between the Windows implementation and the stub so
// `tinyimg help` behaves the same everywhere.
func PrintServiceUsage() {
	fmt.Println("TinyIMG Server Service Management")
	fmt.Println()
	fmt.Println("Usage: tinyimg <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  install    Install the application as a Windows service")
	fmt.Println("  uninstall  Remove the Windows service (alias: remove)")
	fmt.Println("  start      Start the Windows service")
	fmt.Println("  stop       Stop the Windows service")
	fmt.Println("  restart    Restart the Windows service (stop then start)")
	fmt.Println("  status     Show the current service status")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Run without arguments to start the server in the foreground.")
}
