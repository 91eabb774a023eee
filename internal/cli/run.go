package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/modules"
	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/reactor"
	"github.com/roach88/ncd/internal/store"
	"github.com/roach88/ncd/internal/strtab"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Processes []string
	UntilIdle bool
	MaxCycles int

	// TokenGenerator allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator engine.RunTokenGenerator
}

// ProcessResult is the state of one top-level process when the run ended.
type ProcessResult struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunToken    string          `json:"run_token"`
	ProgramHash string          `json:"program_hash"`
	Processes   []ProcessResult `json:"processes"`
	Journaled   int             `json:"journaled"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [program]",
		Short: "Run a program",
		Long: `Run a CUE program on the single-threaded interpreter loop.

The program defaults to [run] program from ncd.toml. With --db (or
[journal] path), every statement and process transition is journaled to
SQLite under a fresh run token.

Without --until-idle the loop keeps running until interrupted; then every
process is terminated in reverse start order.

Example:
  ncd run ./programs/net --db ./ncd.db
  ncd run ./prog.cue --process main --until-idle`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runProgram(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringArrayVar(&opts.Processes, "process", nil, "process to start (repeatable; default all)")
	cmd.Flags().BoolVar(&opts.UntilIdle, "until-idle", false, "stop once no job is queued")
	cmd.Flags().IntVar(&opts.MaxCycles, "max-cycles", 0, "max back-to-back backtrack cycles per statement (0 = unlimited)")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.config()
	logger := slog.Default()

	if path == "" {
		path = cfg.ProgramDir()
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.JournalPath()
	}
	entry := opts.Processes
	if len(entry) == 0 {
		entry = cfg.Run.Entry
	}
	maxCycles := cfg.Run.MaxCycles
	if cmd.Flags().Changed("max-cycles") {
		maxCycles = opts.MaxCycles
	}

	logger.Info("loading program", "path", path)
	loaded, err := LoadProgram(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	prog := loaded.Program

	validation, err := ValidateProgram(prog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	if !validation.Valid {
		return outputValidationErrors(formatter, validation)
	}
	for _, w := range validation.Warnings {
		logger.Warn(w.Message, "path", w.Path)
	}

	hash, err := program.Hash(prog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing program: %v", err))
	}

	reg := engine.NewRegistry()
	if err := modules.Register(reg); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	gen := opts.TokenGenerator
	if gen == nil {
		gen = engine.UUIDv7Generator{}
	}
	token := gen.Generate()
	loop := reactor.NewLoop()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithClock(loop.Clock()),
		engine.WithRunToken(token),
		engine.WithMaxCycles(maxCycles),
	}

	var journal *store.Journal
	if dbPath != "" {
		logger.Info("opening journal", "path", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		// Teardown after a signal is still journaled.
		journal, err = store.NewJournal(context.WithoutCancel(parentCtx), st, store.Run{
			Token:         token,
			ProgramHash:   hash,
			EngineVersion: program.EngineVersion,
			StartedSeq:    loop.Clock().Current(),
			Entry:         entry,
		})
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
		}
		engineOpts = append(engineOpts, engine.WithObserver(journal))
	}

	interp := engine.New(loop, strtab.New(), reg, prog, engineOpts...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	// stop tears every process down and writes what the journal still buffers.
	stop := func() error {
		interp.Terminate()
		if journal == nil {
			return nil
		}
		return journal.Flush()
	}

	if err := interp.Start(entry...); err != nil {
		// Processes started before the failing name are torn down too.
		if ferr := stop(); ferr != nil {
			logger.Error("journal write failed", "error", ferr)
		}
		return formatter.Fail(ExitCommandError, ErrCodeRunFailed, err.Error())
	}
	formatter.VerboseLog("Run %s started", token)

	var loopErr error
	if opts.UntilIdle {
		loopErr = loop.RunUntilIdle(ctx)
	} else {
		loopErr = loop.Run(ctx)
	}
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) && !errors.Is(loopErr, context.DeadlineExceeded) {
		if ferr := stop(); ferr != nil {
			logger.Error("journal write failed", "error", ferr)
		}
		return WrapExitError(ExitFailure, "interpreter loop error", loopErr)
	}

	result := RunResult{RunToken: token, ProgramHash: hash}
	for _, p := range interp.Processes() {
		pr := ProcessResult{Name: p.Path(), State: p.State().String()}
		if p.Err() != nil {
			pr.Error = p.Err().Error()
		}
		result.Processes = append(result.Processes, pr)
	}
	failed := interp.Failed()

	// The loop is no longer running, so teardown happens on this goroutine.
	journalErr := stop()
	logger.Info("interpreter stopped", "run", token)

	if journal != nil {
		if journalErr != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("journal: %v", journalErr))
		}
		result.Journaled = journal.Written()
	}

	if err := outputRunResult(formatter, result, failed); err != nil {
		return err
	}
	if failed != nil {
		return WrapExitError(ExitFailure, "run failed", failed)
	}
	return nil
}

// outputRunResult prints the final process states.
func outputRunResult(formatter *OutputFormatter, result RunResult, failed error) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result, RunToken: result.RunToken}
		if failed != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRunFailed, Message: failed.Error()}
		}
		return formatter.JSON(resp)
	}

	w := formatter.Writer
	mark := "✓"
	if failed != nil {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Run %s\n", mark, result.RunToken)
	for _, p := range result.Processes {
		fmt.Fprintf(w, "  %s: %s\n", p.Name, p.State)
		if p.Error != "" {
			fmt.Fprintf(w, "    %s\n", p.Error)
		}
	}
	if result.Journaled > 0 {
		fmt.Fprintf(w, "Journaled %d transition(s)\n", result.Journaled)
	}
	return nil
}
