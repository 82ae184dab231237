// Command gicli is the runner's entry point, spec §6 "CLI & EXTERNAL
// INTERFACES". It wires signal-based cancellation exactly like the
// teacher's example/weather/main.go (signal.Notify on SIGINT/SIGTERM
// cancelling a context.Context), then either runs the flag-parsed
// primary mode or dispatches to a cobra subcommand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/executor"
	"github.com/tigerroll/gicli/pkg/gicli/logging"
	"github.com/tigerroll/gicli/pkg/gicli/orchestrator"
	"github.com/tigerroll/gicli/pkg/gicli/pathutil"
	"github.com/tigerroll/gicli/pkg/gicli/session"
)

var subcommands = map[string]bool{
	"encrypt":         true,
	"decrypt":         true,
	"generate-config": true,
	"list":            true,
}

func main() {
	if len(os.Args) > 1 && subcommands[os.Args[1]] {
		if err := newRootCmd().Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	os.Exit(runPrimary(os.Args[1:]))
}

func runPrimary(args []string) int {
	fs := flag.NewFlagSet("gicli", flag.ContinueOnError)
	production := fs.Bool("p", false, "production mode")
	test := fs.Bool("t", false, "test mode (verbose by default)")
	jobID := fs.String("j", "", "target job id")
	importFlag := fs.Bool("i", false, "validate and import configuration")
	validateOnly := fs.Bool("v", false, "validate configuration only")
	dir := fs.String("d", "docs/", "configuration root directory")
	file := fs.String("f", "", "single configuration file")
	silent := fs.Bool("s", false, "silent mode")
	payloadFile := fs.String("payload-file", "", "override job payload from file")
	paramsFile := fs.String("params-file", "", "override job params from file")
	outputResponseParams := fs.Bool("output-response-params", false, "write response metadata to ./output-response-params.js")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *production && *test {
		fmt.Fprintln(os.Stderr, "gicli: -p and -t are mutually exclusive")
		return 1
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "gicli: warning: could not load .env: %v\n", err)
	}

	runtime := config.LoadRuntime()
	logLevel := runtime.LogLevel
	if *test && os.Getenv("LOG_LEVEL") == "" {
		logLevel = "DEBUG"
	}
	logSilent := runtime.LogSilent || *silent
	log := logging.New(logging.Options{Level: logLevel, Silent: logSilent, Dir: runtime.LogDir})
	defer log.Close()

	if os.Getenv("ENV_ENCRYPTION_KEY") == "" {
		log.Warnf("gicli: no ENV_ENCRYPTION_KEY set; a key was generated for this run only")
	}

	group, err := loadGroup(*dir, *file)
	if err != nil {
		log.Errorf("gicli: %v", err)
		return 1
	}
	if err := config.Validate(group); err != nil {
		log.Errorf("gicli: configuration invalid: %v", err)
		return 1
	}

	if *validateOnly {
		fmt.Fprintln(os.Stdout, "configuration is valid")
		return 0
	}
	if *importFlag {
		sysConfDir := os.Getenv("GICLI_SYSCONF_DIR")
		if sysConfDir == "" {
			sysConfDir = "/etc"
		}
		src := *file
		if src == "" {
			log.Errorf("gicli: -i requires -f <file>")
			return 1
		}
		dest, err := config.Import(src, sysConfDir)
		if err != nil {
			log.Errorf("gicli: import failed: %v", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "imported configuration to %s\n", dest)
		return 0
	}

	if *jobID == "" {
		log.Errorf("gicli: -j <id> is required")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warnf("gicli: received signal %v, stopping before the next job", sig)
		cancel()
	}()

	override, err := buildOverride(*payloadFile, *paramsFile)
	if err != nil {
		log.Errorf("gicli: %v", err)
		return 1
	}

	sessions := session.New()
	defer sessions.Close()

	o := orchestrator.New(group, sessions, runtime.EncryptionKey, log)
	result := o.Run(ctx, *jobID, override)

	if *outputResponseParams {
		if err := writeOutputResponseParams(result); err != nil {
			log.Warnf("gicli: writing output-response-params.js failed: %v", err)
		}
	}

	if result.Err != nil {
		log.Errorf("gicli: run failed: %v", result.Err)
	}
	return result.ExitCode()
}

func loadGroup(dir, file string) (*config.Group, error) {
	if file != "" {
		return config.Load(file)
	}
	return config.LoadDir(dir)
}

func buildOverride(payloadFile, paramsFile string) (*executor.PayloadOverride, error) {
	if payloadFile == "" && paramsFile == "" {
		return nil, nil
	}
	override := &executor.PayloadOverride{}
	if payloadFile != "" {
		raw, err := os.ReadFile(payloadFile)
		if err != nil {
			return nil, fmt.Errorf("reading payload-file: %w", err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("parsing payload-file: %w", err)
		}
		override.Payload = v
	}
	if paramsFile != "" {
		raw, err := os.ReadFile(paramsFile)
		if err != nil {
			return nil, fmt.Errorf("reading params-file: %w", err)
		}
		var v map[string]any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("parsing params-file: %w", err)
		}
		override.Params = v
	}
	return override, nil
}

// responseParamFields is the subset of a job's response spec §6 asks
// --output-response-params to surface; the bulky data field is never
// included.
var responseParamFields = []string{
	"currentPage", "totalPages", "pageSize", "totalCount",
	"hasPrevious", "hasNext", "succeeded", "errors", "message",
}

func writeOutputResponseParams(result orchestrator.Result) error {
	params := map[string]any{"succeeded": result.Err == nil}
	for _, run := range result.Runs {
		if run.JobID != result.TargetJobID {
			continue
		}
		body, ok := pathutil.Get(run.Result, "data")
		if !ok {
			continue
		}
		for _, field := range responseParamFields {
			if v, ok := pathutil.Get(body, field); ok {
				params[field] = v
			}
		}
	}
	if result.Err != nil {
		params["message"] = result.Err.Error()
	}

	encoded, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return err
	}
	content := append([]byte("module.exports = "), encoded...)
	content = append(content, ';', '\n')
	return os.WriteFile("output-response-params.js", content, 0o644)
}
