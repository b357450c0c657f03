package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rv32ima/emulator/api"
	"github.com/rv32ima/emulator/config"
	"github.com/rv32ima/emulator/debugger"
	"github.com/rv32ima/emulator/gui"
	"github.com/rv32ima/emulator/loader"
	"github.com/rv32ima/emulator/vm"
)

// Exit codes, per spec §6. Step's *vm.FatalError only ever wraps an
// *vm.UnhandledTrapVectorModeError (exit 4) or a generic halt
// condition (*vm.FatalNullDerefError and anything else); "unknown
// instruction"/"instruction not implemented"/"insufficient privilege"
// are delivered to the guest as traps rather than raised as fatal
// conditions (spec §4.7), so exit code 1 covers every fatal halt other
// than exit 4, and exit codes 2-3 are unreachable from this interpreter.
const (
	exitNormal         = 0
	exitFatal          = 1
	exitTrapVectorMode = 4
)

// main runs the emulator and exits with its result code. The work itself
// lives in run so that deferred cleanup (trace flush, statistics export,
// monitor server shutdown) always executes: os.Exit and log.Fatal skip
// deferred functions, so the process only calls os.Exit once, after run
// has returned normally and every defer has fired.
func main() {
	os.Exit(run())
}

func run() int {
	var (
		memorySize  uint64
		dtbPath     string
		pageOffset  uint64
		debugMode   bool
		configFile  string
		traceFile   string
		statsFile   string
		statsFormat string
		monitorAddr string
		guiMode     bool
	)

	flag.Uint64Var(&memorySize, "m", uint64(vm.DefaultMemorySize), "memory size in bytes")
	flag.Uint64Var(&memorySize, "memory-size", uint64(vm.DefaultMemorySize), "alias for -m")
	flag.StringVar(&dtbPath, "d", "", "device tree blob to place at the end of RAM")
	flag.StringVar(&dtbPath, "dtb", "", "alias for -d")
	flag.Uint64Var(&pageOffset, "o", uint64(vm.DefaultPageOffset), "physical address RAM starts at")
	flag.Uint64Var(&pageOffset, "page-offset", uint64(vm.DefaultPageOffset), "alias for -o")
	flag.BoolVar(&debugMode, "e", false, "enable debug diagnostics and drop into the TUI monitor")
	flag.BoolVar(&debugMode, "debug", false, "alias for -e")
	flag.StringVar(&configFile, "c", "", "TOML configuration file")
	flag.StringVar(&configFile, "config", "", "alias for -c")
	flag.StringVar(&traceFile, "t", "", "execution trace output file")
	flag.StringVar(&traceFile, "trace", "", "alias for -t")
	flag.StringVar(&statsFile, "stats", "", "performance statistics output file")
	flag.StringVar(&statsFormat, "stats-format", "json", "statistics format: json or csv")
	flag.StringVar(&monitorAddr, "monitor", "", "start the HTTP+WebSocket status server on this address's port (bound to 127.0.0.1)")
	flag.BoolVar(&guiMode, "g", false, "start the desktop dashboard instead of running headless")
	flag.BoolVar(&guiMode, "gui", false, "alias for -g")

	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		return exitFatal
	}
	kernelPath := flag.Arg(0)

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFrom(configFile)
		if err != nil {
			log.Printf("loading config: %v", err)
			return exitFatal
		}
		cfg = loaded
	}
	applyFlagOverrides(cfg, overrides{
		memorySize:  memorySize,
		dtbPath:     dtbPath,
		pageOffset:  pageOffset,
		debugMode:   debugMode,
		traceFile:   traceFile,
		statsFile:   statsFile,
		statsFormat: statsFormat,
		monitorAddr: monitorAddr,
		guiMode:     guiMode,
	})

	bus := vm.NewBus(int(cfg.Execution.MemorySize), uint32(cfg.Execution.PageOffset), os.Stdout, nil)
	h := vm.NewHart(bus)
	bus.AttachHart(h)

	if _, err := loader.LoadFlat(bus, h, kernelPath, cfg.Execution.DTBPath); err != nil {
		log.Printf("loading kernel image: %v", err)
		return exitFatal
	}

	if cfg.Trace.Enabled {
		f, err := createOutputFile(cfg.Trace.OutputFile, "trace.log")
		if err != nil {
			log.Printf("opening trace file: %v", err)
			return exitFatal
		}
		defer f.Close()
		h.Trace = vm.NewExecutionTrace(f)
		if cfg.Trace.MaxEntries > 0 {
			h.Trace.MaxEntries = cfg.Trace.MaxEntries
		}
		defer func() {
			if err := h.Trace.Flush(); err != nil {
				log.Printf("flushing trace: %v", err)
			}
		}()
	}

	if cfg.Statistics.Enabled {
		h.Stats = vm.NewPerformanceStatistics()
		h.Stats.Start()
		defer exportStatistics(h.Stats, cfg.Statistics.OutputFile, cfg.Statistics.Format)
	}

	var apiServer *api.Server
	if cfg.Monitor.Enabled {
		port := monitorPort(cfg.Monitor.Addr)
		apiServer = api.NewServer(port, h, bus)
		go func() {
			if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("monitor server: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = apiServer.Shutdown(ctx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("interrupted, shutting down")
		os.Exit(exitFatal)
	}()

	if cfg.GUI.Enabled {
		gui.New(h, bus).Run()
		if h.Stats != nil {
			h.Stats.Finalize(h.Cycles)
		}
		return exitNormal
	}

	if cfg.Debugger.Enabled {
		dbg := debugger.NewDebuggerWithHistorySize(h, bus, cfg.Debugger.HistorySize)
		err := debugger.RunTUI(dbg)
		if h.Stats != nil {
			h.Stats.Finalize(h.Cycles)
		}
		if err != nil {
			log.Printf("debugger: %v", err)
			return exitFatal
		}
		return exitNormal
	}

	if action, err := h.Run(); err != nil {
		log.Printf("%v; %s", err, h.DumpState())
		return classifyFatal(err)
	} else if action == vm.PowerReboot {
		log.Println("guest requested reboot; exiting as a fresh process boundary")
	}
	return exitNormal
}

// classifyFatal maps a fatal run-stopping error to spec §6's exit code
// taxonomy. Only UnhandledTrapVectorModeError is distinguishable today;
// every other *vm.FatalError cause (e.g. a null-pointer dereference)
// falls back to the generic fatal-halt code.
func classifyFatal(err error) int {
	fe, ok := err.(*vm.FatalError)
	if !ok {
		return exitFatal
	}
	if _, isVectorMode := fe.Cause.(*vm.UnhandledTrapVectorModeError); isVectorMode {
		return exitTrapVectorMode
	}
	return exitFatal
}

// overrides holds the CLI flag values that take precedence over
// whatever a -c/--config file set, per spec.md §6's flag-over-config
// precedence.
type overrides struct {
	memorySize  uint64
	dtbPath     string
	pageOffset  uint64
	debugMode   bool
	traceFile   string
	statsFile   string
	statsFormat string
	monitorAddr string
	guiMode     bool
}

// flagDefault reports whether name was left at its flag.Parse default,
// so applyFlagOverrides only overwrites a config-file value when the
// user actually passed the flag.
func flagDefault(names ...string) bool {
	for _, name := range names {
		set := false
		flag.Visit(func(f *flag.Flag) {
			if f.Name == name {
				set = true
			}
		})
		if set {
			return false
		}
	}
	return true
}

func applyFlagOverrides(cfg *config.Config, o overrides) {
	if !flagDefault("m", "memory-size") {
		cfg.Execution.MemorySize = uint32(o.memorySize)
	}
	if o.dtbPath != "" {
		cfg.Execution.DTBPath = o.dtbPath
	}
	if !flagDefault("o", "page-offset") {
		cfg.Execution.PageOffset = uint32(o.pageOffset)
	}
	if o.debugMode {
		cfg.Debugger.Enabled = true
	}
	if o.traceFile != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.OutputFile = o.traceFile
	}
	if o.statsFile != "" {
		cfg.Statistics.Enabled = true
		cfg.Statistics.OutputFile = o.statsFile
	}
	if !flagDefault("stats-format") {
		cfg.Statistics.Format = o.statsFormat
	}
	if o.monitorAddr != "" {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Addr = o.monitorAddr
	}
	if o.guiMode {
		cfg.GUI.Enabled = true
	}
}

func monitorPort(addr string) int {
	_, portStr, err := splitHostPort(addr)
	if err != nil {
		return 7777
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 7777
	}
	return port
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, "", fmt.Errorf("no port in address %q", addr)
	}
	return addr[:idx], addr[idx+1:], nil
}

func createOutputFile(configured, fallback string) (*os.File, error) {
	path := configured
	if path == "" {
		path = filepath.Join(config.GetLogPath(), fallback)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path) // #nosec G304 -- user-specified output path
}

func exportStatistics(stats *vm.PerformanceStatistics, configured, format string) {
	ext := "json"
	if format == "csv" {
		ext = "csv"
	}
	f, err := createOutputFile(configured, "stats."+ext)
	if err != nil {
		log.Printf("opening statistics file: %v", err)
		return
	}
	defer f.Close()

	switch format {
	case "csv":
		err = stats.ExportCSV(f)
	default:
		err = stats.ExportJSON(f)
	}
	if err != nil {
		log.Printf("exporting statistics: %v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s <executable> [options]

  -m, --memory-size <bytes>   RAM size (default %d)
  -d, --dtb <file>            device tree blob to place at the end of RAM
  -o, --page-offset <dec>     physical address RAM starts at (default 0x%X)
  -e, --debug                 enable debug diagnostics and the TUI monitor
  -c, --config <file>         TOML configuration file
  -t, --trace <file>          per-instruction execution trace output
  --stats <file>               performance statistics output
  --stats-format json|csv      statistics format (default json)
  --monitor <addr>              start the HTTP+WebSocket status server
  -g, --gui                    start the desktop dashboard

Exit codes: 0 normal termination (SYSCON), 1 unknown instruction /
fatal halt, 2 instruction not implemented, 3 insufficient privilege,
4 unhandled trap-vector mode.
`, os.Args[0], vm.DefaultMemorySize, vm.DefaultPageOffset)
}
