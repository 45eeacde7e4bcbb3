// Package main implements the nescore executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nescore/internal/app"
	"nescore/internal/version"
)

func main() {
	var (
		romFile     = flag.String("rom", "", "Path to iNES ROM file")
		configFile  = flag.String("config", "", "Path to configuration file")
		monitorName = flag.String("monitor", "", "Monitor backend: auto, headless, terminal, ebitengine")
		trace       = flag.Bool("trace", false, "Trace every executed instruction")
		traceFile   = flag.String("trace-file", "", "Write the trace to a file instead of stdout")
		script      = flag.String("script", "", "Lua script defining on_step(cpu) halt condition")
		maxInsns    = flag.Uint64("max", 0, "Stop after this many instructions (0 = config value)")
		dump        = flag.String("dump", "", "Write the final CPU state as JSON to this file")
		paused      = flag.Bool("paused", false, "Start the interactive monitors paused")
		help        = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVersion {
		version.PrintBuildInfo(os.Stdout)
		os.Exit(0)
	}
	if *romFile == "" {
		printUsage()
		os.Exit(2)
	}

	setupGracefulShutdown()

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}
	config := app.NewConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		config = app.NewConfig()
	}

	// Flags override the config file
	if *monitorName != "" {
		config.Monitor.Backend = *monitorName
	}
	if *trace || *traceFile != "" {
		config.Debug.Trace = true
		config.Debug.TraceFile = *traceFile
	}
	if *script != "" {
		config.Debug.Script = *script
	}
	if *maxInsns > 0 {
		config.Emulation.MaxInstructions = *maxInsns
	}
	if *paused {
		config.Monitor.StartPaused = true
	}

	application, err := app.NewApplicationWithConfig(config, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.LoadROM(*romFile); err != nil {
		application.Cleanup()
		log.Fatalf("Failed to load ROM: %v", err)
	}

	result, err := application.Run()
	if err != nil {
		application.Cleanup()
		log.Fatalf("Run failed: %v", err)
	}
	if err := application.Cleanup(); err != nil {
		log.Printf("Application cleanup error: %v", err)
	}

	printSummary(result)

	if *dump != "" {
		path, err := application.SaveDump(*dump)
		if err != nil {
			log.Fatalf("Failed to write dump: %v", err)
		}
		fmt.Printf("Final state written to %s\n", path)
	}

	if result.Reason == app.StopFault {
		os.Exit(1)
	}
}

func printSummary(result app.RunResult) {
	s := result.Final
	reason := string(result.Reason)
	if reason == "" {
		reason = "quit"
	}

	fmt.Printf("Stopped: %s\n", reason)
	if result.Err != nil {
		fmt.Printf("   Fault: %v\n", result.Err)
	}
	fmt.Printf("   Instructions: %d (%.0f/s)\n", result.Instructions, result.InstructionsPerSecond())
	fmt.Printf("   Cycles: %d\n", result.Cycles)
	fmt.Printf("   PC:$%04X A:$%02X X:$%02X Y:$%02X SP:$%02X P:%s\n", s.PC, s.A, s.X, s.Y, s.SP, s.P)
}

// setupGracefulShutdown exits on SIGINT/SIGTERM
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nInterrupt received, shutting down...")
		os.Exit(130)
	}()
}

func printUsage() {
	fmt.Println("nescore - 6502 execution core")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nescore -rom <file> [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  nescore -rom test.nes -monitor headless -max 100000")
	fmt.Println("  nescore -rom test.nes -trace -trace-file trace.log")
	fmt.Println("  nescore -rom test.nes -script halt.lua -dump final.json")
	fmt.Println()
	fmt.Println("MONITOR KEYS:")
	fmt.Println("  Space  - Run / pause")
	fmt.Println("  N      - Step one instruction")
	fmt.Println("  R      - Reset")
	fmt.Println("  Q, Esc - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/nescore.json")
}
