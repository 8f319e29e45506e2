// Command scenebench scores scene-understanding submissions against ground
// truth: instance AP, semantic IoU and scene-type classification.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/scenebench/internal/faults"
	"github.com/banshee-data/scenebench/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and maps its error to an exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return faults.ExitFailure
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "instance":
		err = runInstance(ctx, rest, stdout, stderr)
	case "semantic":
		err = runSemantic(ctx, rest, stdout, stderr)
	case "scene-type":
		err = runSceneType(ctx, rest, stdout, stderr)
	case "cache":
		err = runCache(ctx, rest, stdout, stderr)
	case "migrate":
		err = runMigrate(rest, stdout, stderr)
	case "serve":
		err = runServe(ctx, rest, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return faults.ExitFailure
	}

	if errors.Is(err, flag.ErrHelp) {
		return faults.ExitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
	}
	return faults.ExitCode(err)
}

// newFlagSet returns a subcommand flag set that reports parse failures as
// user faults instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return faults.User("%v", err)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `scenebench - scene understanding benchmark scoring

Usage: scenebench <command> [options]

Commands:
  instance     Score instance segmentation (AP over IoU thresholds)
  semantic     Score semantic labelling (per-class IoU)
  scene-type   Score scene classification (IoU and recall)
  cache        Inspect, warm or clear the ground-truth instance cache
  migrate      Manage the results database schema
  serve        Serve stored results and the SQL debug console
  version      Show scenebench version
  help         Show this help message

Run 'scenebench <command> -h' for command options.

Exit status: 0 success, 2 invalid submission, 1 any other failure.
`)
}
