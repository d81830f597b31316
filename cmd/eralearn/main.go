/*
Eralearn learns a deterministic event-recording automaton equivalent to a
system under learning described in a textual SUL file.

It reads in the SUL description, runs the table-based active-learning loop
against it, and prints the resulting minimal DERA. Query statistics can be
watched over HTTP while the learn runs, and each completed table iteration can
be checkpointed to a local SQLite database.

Usage:

	eralearn [flags] SUL_FILE

The flags are:

	-v, --version
		Give the current version of eralearn and then exit.

	-c, --config FILE
		Load run settings from the given TOML config file. Flags given on the
		command line override values from the config file.

	-m, --max-const M
		Use M as the maximum constant appearing in the SUL's clock
		constraints. Defaults to 1.

	-l, --listen [ADDRESS]:PORT
		Serve query statistics and the live observation table over HTTP on the
		given address while the learn runs. Off by default.

	--checkpoint FILE
		Write a snapshot of the observation table to the given SQLite database
		after every close/consistent pass.

	-d, --emit-dta FILE
		After learning, write the learned DERA to FILE in the DTA toolkit's
		textual format.

	-i, --interactive
		After learning, start an interactive shell for issuing ad hoc
		membership queries against the learned DERA. Type "help" in the shell
		for the available commands.
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/dekarrin/rosed"
	"github.com/spf13/pflag"

	"github.com/halvard/eralearn/checkpoint"
	"github.com/halvard/eralearn/dtaexport"
	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/internal/version"
	"github.com/halvard/eralearn/pkg/learner"
	"github.com/halvard/eralearn/statsrv"
	"github.com/halvard/eralearn/suldsl"
)

const (

	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitUsageError indicates an unsuccessful program execution due to bad
	// arguments or an unreadable config file.
	ExitUsageError

	// ExitLearnError indicates an unsuccessful program execution due to a
	// problem while learning.
	ExitLearnError
)

const consoleOutputWidth = 100

// Config is the run configuration loaded from a TOML file.
type Config struct {
	MaxConst   int    `toml:"max_const"`
	Listen     string `toml:"listen"`
	Checkpoint string `toml:"checkpoint"`
	EmitDTA    string `toml:"emit_dta"`
}

var (
	returnCode      int     = ExitSuccess
	flagVersion     *bool   = pflag.BoolP("version", "v", false, "Gives the version info")
	flagConfig      *string = pflag.StringP("config", "c", "", "Load run settings from the given TOML file")
	flagMaxConst    *int    = pflag.IntP("max-const", "m", 1, "The maximum constant appearing in the SUL's clock constraints")
	flagListen      *string = pflag.StringP("listen", "l", "", "Serve query statistics over HTTP on the given address")
	flagCheckpoint  *string = pflag.String("checkpoint", "", "Checkpoint the observation table to the given SQLite database")
	flagEmitDTA     *string = pflag.StringP("emit-dta", "d", "", "Write the learned DERA to the given file in DTA format")
	flagInteractive *bool   = pflag.BoolP("interactive", "i", false, "Start an interactive query shell after learning")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			// we are panicking, make sure we dont lose the panic just because
			// we checked
			panic(fmt.Sprintf("unrecoverable panic occured: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("eralearn v%s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Need exactly one SUL file argument\nDo -h for help.\n")
		returnCode = ExitUsageError
		return
	}
	sulFile := args[0]

	cfg := Config{MaxConst: 1}
	if *flagConfig != "" {
		if _, err := toml.DecodeFile(*flagConfig, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: reading config %s: %s\n", *flagConfig, err.Error())
			returnCode = ExitUsageError
			return
		}
	}
	if pflag.Lookup("max-const").Changed {
		cfg.MaxConst = *flagMaxConst
	}
	if pflag.Lookup("listen").Changed {
		cfg.Listen = *flagListen
	}
	if pflag.Lookup("checkpoint").Changed {
		cfg.Checkpoint = *flagCheckpoint
	}
	if pflag.Lookup("emit-dta").Changed {
		cfg.EmitDTA = *flagEmitDTA
	}

	logger := log.New(os.Stderr, "eralearn: ", log.LstdFlags)

	if err := run(logger, sulFile, cfg, *flagInteractive); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", eraerr.Summary(err))
		returnCode = ExitLearnError
		return
	}
}

func run(logger *log.Logger, sulFile string, cfg Config, interactive bool) error {
	f, err := os.Open(sulFile)
	if err != nil {
		return fmt.Errorf("open SUL file: %w", err)
	}
	sul, err := suldsl.Parse(f)
	f.Close()
	if err != nil {
		return err
	}

	drv := learner.New(sul, cfg.MaxConst)

	if cfg.Listen != "" {
		srv := &statsrv.Server{Driver: drv}
		logger.Printf("serving stats on http://%s/stats", cfg.Listen)
		go func() {
			if err := http.ListenAndServe(cfg.Listen, srv.Router()); err != nil {
				logger.Printf("stats server stopped: %v", err)
			}
		}()
	}

	if cfg.Checkpoint != "" {
		store, err := checkpoint.Open(cfg.Checkpoint)
		if err != nil {
			return err
		}
		defer store.Close()

		runID, err := checkpoint.NewRunID()
		if err != nil {
			return err
		}
		logger.Printf("checkpointing run %s to %s", runID, cfg.Checkpoint)

		drv.OnIteration = func(iteration int) {
			if err := store.Save(context.Background(), runID, iteration, drv.Table); err != nil {
				logger.Printf("checkpoint iteration %d failed: %v", iteration, err)
			}
		}
	}

	logger.Printf("learning %s with m=%d over %d symbolic inputs",
		sulFile, cfg.MaxConst, len(drv.Table.A))
	dera, err := drv.Learn()
	if err != nil {
		return err
	}

	logger.Printf("done: MQ=%d IQ=%d EQ=%d cex(RS)=%d cex(prefixes)=%d",
		drv.Stats.MembershipQueries, drv.Stats.InclusionChecks, drv.Stats.EquivalenceChecks,
		drv.Stats.RivestSchapireCEs, drv.Stats.AllPrefixesCEs)

	fmt.Println(rosed.Edit(dera.String()).Wrap(consoleOutputWidth).String())

	if cfg.EmitDTA != "" {
		if err := os.WriteFile(cfg.EmitDTA, []byte(dtaexport.Render(dera)), 0644); err != nil {
			return fmt.Errorf("write DTA file: %w", err)
		}
		logger.Printf("wrote DTA to %s", cfg.EmitDTA)
	}

	if interactive {
		return runShell(os.Stdout, drv, dera)
	}
	return nil
}
