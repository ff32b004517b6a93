// Command eac is the EAC command-line front end: parse, check, lower
// and run subcommands over one .eac source file, and an explain
// subcommand over one JSON-encoded trace file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/englishascode/eac/internal/check"
	"github.com/englishascode/eac/internal/explain"
	"github.com/englishascode/eac/internal/interp"
	"github.com/englishascode/eac/internal/interp/providers"
	"github.com/englishascode/eac/internal/ir"
	"github.com/englishascode/eac/internal/parser"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "parse":
		err = runParse(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "lower":
		err = runLower(os.Args[2:])
	case "run":
		err = runRun(os.Args[2:])
	case "explain":
		err = runExplain(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "eac: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: eac <parse|check|lower|run> [flags] FILE.eac\n       eac explain TRACE.json")
}

func readSource(fs *flag.FlagSet) ([]byte, error) {
	args := fs.Args()
	if len(args) != 1 {
		return nil, fmt.Errorf("expected exactly one source file, got %d", len(args))
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return src, nil
}

func runParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	fs.Parse(args)
	src, err := readSource(fs)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	fmt.Printf("parsed %d statement(s) OK\n", len(prog.Statements))
	return nil
}

// typeCheck parses src and runs the checker, returning its scope and
// diagnostics; the error is non-nil only when parsing fails.
func typeCheck(src []byte) (*check.Scope, []check.Diagnostic, error) {
	prog, err := parser.Parse(string(src))
	if err != nil {
		return nil, nil, err
	}
	scope, diags := check.Check(prog)
	return scope, diags, nil
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	src, err := readSource(fs)
	if err != nil {
		return err
	}
	_, diags, err := typeCheck(src)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	for _, d := range diags {
		fmt.Fprintf(w, "%s\n", d.Error())
	}
	w.Flush()
	if len(diags) > 0 {
		return fmt.Errorf("%d diagnostic(s)", len(diags))
	}
	fmt.Println("no diagnostics")
	return nil
}

func runLower(args []string) error {
	fs := flag.NewFlagSet("lower", flag.ExitOnError)
	fs.Parse(args)
	src, err := readSource(fs)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	if _, diags := check.Check(prog); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("%d diagnostic(s), not lowering", len(diags))
	}
	ops := ir.Lower(prog)
	out, err := ir.MarshalJSON(ops)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "run against the no-op dry-run provider")
	webTarget := fs.String("web-target", "", "host:port of a web automation sidecar")
	timeout := fs.Duration("timeout", 60*time.Second, "overall run timeout")
	fs.Parse(args)
	src, err := readSource(fs)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(src))
	if err != nil {
		return err
	}
	scope, diags := check.Check(prog)
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("%d diagnostic(s), refusing to run", len(diags))
	}
	ops := ir.Lower(prog)

	provider, err := buildProvider(*dryRun, *webTarget)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trace, runErr := interp.New(provider).WithSymbols(scope).Run(ctx, ops)
	fmt.Print(explain.Report(trace))
	if runErr != nil {
		return runErr
	}
	return nil
}

// buildProvider assembles the EffectProvider a run uses: the pure
// DryRun stub under --dry-run, otherwise a Hybrid pairing the
// sqlite-backed table provider with a RemoteWeb provider when
// --web-target names a sidecar.
func buildProvider(dryRun bool, webTarget string) (interp.EffectProvider, error) {
	if dryRun {
		return providers.NewDryRun(), nil
	}
	sqlProvider, err := providers.NewSQLTable()
	if err != nil {
		return nil, err
	}
	var web interp.EffectProvider
	if webTarget != "" {
		web = providers.NewRemote(webTarget)
	}
	return providers.NewHybrid(sqlProvider, web), nil
}

func runExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	fs.Parse(args)
	src, err := readSource(fs)
	if err != nil {
		return err
	}
	var trace []interp.TraceEntry
	if err := json.Unmarshal(src, &trace); err != nil {
		return fmt.Errorf("explain expects a JSON-encoded trace: %w", err)
	}
	fmt.Print(explain.Report(trace))
	return nil
}
