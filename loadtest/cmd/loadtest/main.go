// Package main is the entry point for the SkillSwap load test binary.
// It provides subcommands for different load testing scenarios:
//
//   - saturate: Connection saturation test — opens N idle connections
//   - signal:   Signaling relay load test — pairs exchange offer/answer/ICE storms
//
// Both scenarios expect pre-seeded auth tokens in Redis: for each simulated
// user i, the key authtoken:<token-prefix><i> must resolve to a user ID.
//
// Usage:
//
//	loadtest <command> [options]
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "saturate":
		runSaturate(os.Args[2:])
	case "signal":
		runSignal(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: loadtest <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  saturate    Connection saturation test — opens N idle authenticated connections")
	fmt.Println("  signal      Signaling relay load test — pairs join rooms and exchange SDP/ICE traffic")
	fmt.Println()
	fmt.Println("Run 'loadtest <command> -h' for command-specific options.")
}
