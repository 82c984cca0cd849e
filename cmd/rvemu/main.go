package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rv32im/rubicv/api"
	"github.com/rv32im/rubicv/config"
	"github.com/rv32im/rubicv/debugger"
	"github.com/rv32im/rubicv/stats"
	"github.com/rv32im/rubicv/vm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rvemu",
		Short: "RV32IM user-mode emulator: predecode once, interpret fast",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: platform config dir)")

	// run command
	var maxCycles uint64
	var guestArgs []uint
	var argCount uint32
	var trace bool
	var showStats bool
	var statsOutput string
	var statsFormat string
	var resultWords int

	runCmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Run a code image to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-cycles") || maxCycles == 0 {
				maxCycles = cfg.Execution.MaxCycles
			}
			if !cmd.Flags().Changed("stats-output") {
				statsOutput = cfg.Statistics.OutputFile
			}
			if !cmd.Flags().Changed("stats-format") {
				statsFormat = cfg.Statistics.Format
			}

			prog, mem, err := loadImage(args[0])
			if err != nil {
				return err
			}
			seedArguments(mem, guestArgs)
			if !cmd.Flags().Changed("arg-count") {
				argCount = uint32(len(guestArgs))
			}

			var runner vm.Runner
			if cfg.Execution.StrictX0 {
				runner = vm.NewStrict(mem, prog)
			} else {
				runner = vm.New(mem, prog)
			}

			var collector *stats.Collector
			if showStats || cfg.Execution.EnableStats {
				collector = stats.NewCollector()
				runner.SetStats(collector)
			}

			var result vm.ExecutionResult
			if trace || cfg.Execution.EnableTrace {
				result = runTraced(runner, prog, argCount, maxCycles)
			} else {
				result = runner.Run(argCount, maxCycles)
			}

			printResult(result, runner.CycleCount())
			for i := 0; i < resultWords; i++ {
				addr := uint32(vm.ScratchStart + i*4)
				fmt.Printf("scratch[0x%08x] = 0x%08x\n", addr, mem.ReadU32(addr))
			}

			if collector != nil {
				if err := exportStats(collector, statsOutput, statsFormat); err != nil {
					return err
				}
			}

			if result.Kind == vm.Failed {
				return result.Err
			}
			return nil
		},
	}
	runCmd.Flags().Uint64Var(&maxCycles, "max-cycles", 0, "Cycle budget (0 = config default)")
	runCmd.Flags().UintSliceVar(&guestArgs, "arg", nil, "Guest argument word, repeatable; placed at ARGS_START in order")
	runCmd.Flags().Uint32Var(&argCount, "arg-count", 0, "Override a0 argument count (default: number of --arg flags)")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Print each executed instruction")
	runCmd.Flags().BoolVar(&showStats, "stats", false, "Collect and report execution statistics")
	runCmd.Flags().StringVar(&statsOutput, "stats-output", "", "Write statistics to a file instead of stdout")
	runCmd.Flags().StringVar(&statsFormat, "stats-format", "json", "Statistics file format: json or csv")
	runCmd.Flags().IntVar(&resultWords, "result-words", 0, "Print this many u32 result words from the scratch area")

	// predecode command
	var dump bool

	predecodeCmd := &cobra.Command{
		Use:   "predecode <image>",
		Short: "Predecode a code image and report its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			prog, err := vm.Predecode(image)
			if err != nil {
				return err
			}

			fmt.Printf("instructions: %d\n", len(prog.Records))
			fmt.Printf("entrypoint:   rec[%d]\n", prog.Entrypoint)
			fmt.Printf("writes to x0: %v\n", prog.WritesToX0)

			if dump {
				for i, rec := range prog.Records {
					fmt.Printf("rec[%4d]: %s\n", i, vm.Disassemble(rec))
				}
			}
			return nil
		},
	}
	predecodeCmd.Flags().BoolVar(&dump, "dump", false, "Disassemble every predecoded record")

	// debug command
	debugCmd := &cobra.Command{
		Use:   "debug <image>",
		Short: "Debug a code image in the interactive TUI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, mem, err := loadImage(args[0])
			if err != nil {
				return err
			}
			seedArguments(mem, guestArgs)

			runner := vm.New(mem, prog)
			regs := runner.Registers()
			regs[vm.RegA0] = uint32(len(guestArgs))
			regs[vm.RegSP] = vm.StackStart

			d := debugger.New(runner, mem, prog)
			return debugger.NewTUI(d).Run()
		},
	}
	debugCmd.Flags().UintSliceVar(&guestArgs, "arg", nil, "Guest argument word, repeatable")

	// serve command
	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP+WebSocket control-plane server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.API.Port
			}
			return serveAPI(port)
		},
	}
	serveCmd.Flags().IntVar(&port, "port", 8420, "Listen port (127.0.0.1 only)")

	// config command
	var writeDefaults bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.GetConfigPath()
			}
			if writeDefaults {
				if err := config.DefaultConfig().SaveTo(path); err != nil {
					return err
				}
				fmt.Printf("wrote defaults to %s\n", path)
				return nil
			}
			cfg, err := config.LoadFrom(path)
			if err != nil {
				return err
			}
			fmt.Printf("config file:  %s\n", path)
			fmt.Printf("max cycles:   %d\n", cfg.Execution.MaxCycles)
			fmt.Printf("trace:        %v\n", cfg.Execution.EnableTrace)
			fmt.Printf("stats:        %v (%s -> %s)\n", cfg.Execution.EnableStats, cfg.Statistics.Format, cfg.Statistics.OutputFile)
			fmt.Printf("api port:     %d\n", cfg.API.Port)
			return nil
		},
	}
	configCmd.Flags().BoolVar(&writeDefaults, "init", false, "Write the default configuration to disk")

	rootCmd.AddCommand(runCmd, predecodeCmd, debugCmd, serveCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// loadImage reads and predecodes an image file and allocates a fresh
// memory slab with the guest-visible code bytes copied to CODE_START.
func loadImage(path string) (*vm.Program, *vm.Memory, error) {
	image, err := os.ReadFile(path) // #nosec G304 -- user-specified image path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image: %w", err)
	}
	prog, err := vm.Predecode(image)
	if err != nil {
		return nil, nil, err
	}

	slab := make([]byte, vm.MemSize)
	copy(slab[vm.CodeStart:], image[4:])
	return prog, vm.NewMemory(slab), nil
}

// seedArguments writes each argument word little-endian into the args
// area at the head of the read-only half.
func seedArguments(mem *vm.Memory, args []uint) {
	slab := mem.Slab()
	for i, a := range args {
		binary.LittleEndian.PutUint32(slab[vm.ArgsStart+i*4:], uint32(a))
	}
}

// runTraced drives Step directly so each instruction can be printed
// before it executes, mirroring Run's seeding and termination handling.
func runTraced(runner vm.Runner, prog *vm.Program, argCount uint32, maxCycles uint64) vm.ExecutionResult {
	if maxCycles == 0 {
		maxCycles = vm.DefaultMaxCycles
	}
	regs := runner.Registers()
	regs[vm.RegA0] = argCount
	regs[vm.RegSP] = vm.StackStart

	for runner.CycleCount() < maxCycles {
		ppc := runner.PPC()
		fmt.Printf("[%10d] rec[%4d]: %s\n", runner.CycleCount(), ppc, vm.Disassemble(prog.Records[ppc]))
		if err := runner.Step(); err != nil {
			return vm.ClassifyStepError(err)
		}
	}
	return vm.ExecutionResult{Kind: vm.CycleLimitExceeded}
}

func printResult(result vm.ExecutionResult, cycles uint64) {
	switch result.Kind {
	case vm.Success:
		fmt.Printf("exit: success, x11=%d (%d cycles)\n", result.Value, cycles)
	case vm.Breakpoint:
		fmt.Printf("exit: breakpoint (%d cycles)\n", cycles)
	case vm.CycleLimitExceeded:
		fmt.Printf("exit: cycle limit exceeded (%d cycles)\n", cycles)
	case vm.Failed:
		fmt.Printf("exit: error: %v (%d cycles)\n", result.Err, cycles)
	}
}

func exportStats(c *stats.Collector, output, format string) error {
	if output == "" {
		fmt.Print(c.Report())
		return nil
	}
	f, err := os.Create(output) // #nosec G304 -- user-specified output path
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer f.Close()

	switch format {
	case "csv":
		return c.ExportCSV(f)
	default:
		return c.ExportJSON(f)
	}
}

func serveAPI(port int) error {
	server := api.NewServer(port)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
