// tally CLI - REPL, example runner, disassembler and servers for the tally
// arithmetic language.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/tally/compiler"
	"github.com/chazu/tally/corpus"
	"github.com/chazu/tally/manifest"
	"github.com/chazu/tally/repl"
	"github.com/chazu/tally/server"
	"github.com/chazu/tally/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("tally")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// env is what every subcommand gets: resolved configuration and streams.
type env struct {
	cfg     *manifest.Manifest
	trace   bool
	grammar *compiler.Grammar

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// verbosity counts repeated -v flags. -v=N sets it, -v=false clears it.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	switch s {
	case "true":
		*v++
		return nil
	case "false":
		*v = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q", s)
	}
	*v = verbosity(n)
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tally", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to tally.toml (default: search upwards from the working directory)")
	trace := fs.Bool("trace", false, "Log every executed instruction")
	var verbose verbosity
	fs.Var(&verbose, "v", "Increase log verbosity (repeatable)")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	e := &env{
		cfg:     cfg,
		trace:   *trace || cfg.VM.Trace,
		grammar: compiler.DefaultGrammar(),
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}

	level := cfg.Log.Verbosity
	if verbose > 0 {
		level = int(verbose)
	}
	if e.trace && level < 2 {
		level = 2
	}
	commonlog.Configure(level, cfg.LogPath())
	if cfg.Dir != "" {
		log.Debugf("using %s", filepath.Join(cfg.Dir, manifest.FileName))
	}

	cmd, rest := "repl", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	switch cmd {
	case "repl":
		return cmdRepl(e, rest)
	case "test":
		return cmdTest(e, rest)
	case "run":
		return cmdRun(e, rest)
	case "disasm":
		return cmdDisasm(e, rest)
	case "serve":
		return cmdServe(e, rest)
	case "lsp":
		return cmdLSP(e, rest)
	case "remote":
		return cmdRemote(e, rest)
	case "config":
		return cmdConfig(e, rest)
	case "help":
		usage(stdout, fs)
		return 0
	default:
		fmt.Fprintf(stderr, "tally: unknown command %q\n", cmd)
		usage(stderr, fs)
		return 2
	}
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: tally [options] [command] [args...]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  repl                         Start the REPL (default)\n")
	fmt.Fprintf(w, "  test [-v] [files...]         Run example corpora (default: tally.toml corpus, else built-in)\n")
	fmt.Fprintf(w, "  run [-var n=v] (-e src | files...)\n")
	fmt.Fprintf(w, "                               Run source on one VM\n")
	fmt.Fprintf(w, "  disasm (-e src | files...)   Print bytecode listings\n")
	fmt.Fprintf(w, "  serve [-addr host:port]      Serve the evaluation service over Connect\n")
	fmt.Fprintf(w, "  lsp                          Run the language server on stdio\n")
	fmt.Fprintf(w, "  remote <url>                 REPL against a tally server\n")
	fmt.Fprintf(w, "  config                       Print the effective configuration\n")
	fmt.Fprintf(w, "\nOptions:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// loadConfig reads path, or searches for tally.toml from the working
// directory, falling back to defaults.
func loadConfig(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return manifest.Default(), nil
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func (e *env) replConfig() repl.Config {
	return repl.Config{
		Prompt: e.cfg.REPL.Prompt,
		Exit:   e.cfg.REPL.Exit,
		Banner: e.cfg.REPL.Banner,
	}
}

// ---------------------------------------------------------------------------
// repl / remote
// ---------------------------------------------------------------------------

func cmdRepl(e *env, args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(e.stderr, "repl: unexpected arguments %v\n", args)
		return 2
	}
	console := repl.NewConsole(e.stdin, e.stdout)
	local := repl.NewLocal(e.grammar, console, vm.WithTrace(e.trace))
	if err := repl.NewSession(e.replConfig(), console, local).Run(context.Background()); err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdRemote(e *env, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(e.stderr, "usage: tally remote <url>\n")
		return 2
	}
	ctx := context.Background()
	console := repl.NewConsole(e.stdin, e.stdout)
	remote, err := repl.NewRemote(ctx, server.NewClient(nil, args[0]), console)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
	defer remote.Close(ctx)

	log.Infof("remote session %s on %s", remote.SessionID(), args[0])
	if err := repl.NewSession(e.replConfig(), console, remote).Run(ctx); err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// test
// ---------------------------------------------------------------------------

func cmdTest(e *env, args []string) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	verbose := fs.Bool("v", false, "Also show the output of passing examples")
	input := fs.Int64("input", e.cfg.Corpus.Input, "Value answered for every undefined variable")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 {
		paths = e.cfg.CorpusPaths()
	}

	examples := corpus.Builtin()
	if len(paths) > 0 {
		var err error
		examples, err = corpus.LoadFiles(paths...)
		if err != nil {
			fmt.Fprintf(e.stderr, "Error: %v\n", err)
			return 1
		}
	}

	runner := corpus.NewRunner()
	runner.Grammar = e.grammar
	runner.Input = *input
	runner.Trace = e.trace

	reporter := corpus.Reporter{W: e.stdout, Color: repl.IsTerminal(e.stdout), Verbose: *verbose}
	if !reporter.Report(runner.RunAll(examples)).OK() {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func cmdRun(e *env, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	expr := fs.String("e", "", "Source to run instead of files")
	input := fs.String("input", "", "Answer undefined variables with this value instead of prompting")
	type binding struct {
		name  string
		value int64
	}
	var preset []binding
	fs.Func("var", "Bind `name=value` before running (repeatable)", func(s string) error {
		name, text, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("want name=value, got %q", s)
		}
		n, err := vm.ParseInput(text)
		if err != nil {
			return err
		}
		preset = append(preset, binding{name, n})
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sources, err := readSources(*expr, fs.Args())
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}

	var provider vm.InputProvider = vm.NewPrompter(e.stdin, e.stdout)
	if *input != "" {
		n, err := vm.ParseInput(*input)
		if err != nil {
			fmt.Fprintf(e.stderr, "Error: -input: %v\n", err)
			return 2
		}
		provider = vm.ConstInput(n)
	}

	machine := vm.New(vm.WithInput(provider), vm.WithOutput(e.stdout), vm.WithTrace(e.trace))
	for _, b := range preset {
		if err := machine.Bind(b.name, b.value); err != nil {
			fmt.Fprintf(e.stderr, "Error: -var: %v\n", err)
			return 2
		}
	}
	for _, src := range sources {
		prog, err := compiler.Compile(e.grammar, src.text)
		if err != nil {
			fmt.Fprintf(e.stderr, "%s: %s\n", src.name, compiler.Snippet(err, src.text))
			return 1
		}
		if err := machine.Eval(prog); err != nil {
			fmt.Fprintf(e.stderr, "%s: %v\n", src.name, err)
			return 1
		}
	}
	return 0
}

// ---------------------------------------------------------------------------
// disasm
// ---------------------------------------------------------------------------

func cmdDisasm(e *env, args []string) int {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	expr := fs.String("e", "", "Source to disassemble instead of files")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sources, err := readSources(*expr, fs.Args())
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}

	status := 0
	for i, src := range sources {
		prog, err := compiler.Compile(e.grammar, src.text)
		if err != nil {
			fmt.Fprintf(e.stderr, "%s: %s\n", src.name, compiler.Snippet(err, src.text))
			status = 1
			continue
		}
		if i > 0 {
			fmt.Fprintln(e.stdout)
		}
		fmt.Fprint(e.stdout, prog.DisassembleWithName(src.name))
	}
	return status
}

type source struct {
	name string
	text string
}

// readSources returns expr as a single source, or the contents of paths.
func readSources(expr string, paths []string) ([]source, error) {
	if expr != "" {
		if len(paths) > 0 {
			return nil, fmt.Errorf("-e and files are mutually exclusive")
		}
		return []source{{name: "-e", text: expr}}, nil
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input: give -e <source> or files")
	}
	sources := make([]source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source{name: p, text: string(data)})
	}
	return sources, nil
}

// ---------------------------------------------------------------------------
// serve / lsp / config
// ---------------------------------------------------------------------------

func cmdServe(e *env, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	addr := fs.String("addr", e.cfg.Server.Addr, "Listen address")
	sessionTTL := fs.Duration("session-ttl", e.cfg.Server.SessionTTL, "Destroy sessions idle for this long")
	programTTL := fs.Duration("program-ttl", e.cfg.Server.ProgramTTL, "Drop cached programs unused for this long")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *sessionTTL <= 0 || *programTTL <= 0 {
		fmt.Fprintf(e.stderr, "serve: TTLs must be positive\n")
		return 2
	}

	srv := server.New(
		server.WithGrammar(e.grammar),
		server.WithTrace(e.trace),
		server.WithSessionTTL(*sessionTTL),
		server.WithProgramTTL(*programTTL),
	)
	defer srv.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Noticef("shutting down with %d open sessions", srv.Sessions().Len())
		srv.Stop()
	}()

	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Fprintf(e.stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

func cmdLSP(e *env, args []string) int {
	if err := server.NewLSP(e.grammar).Run(); err != nil {
		fmt.Fprintf(e.stderr, "LSP error: %v\n", err)
		return 1
	}
	return 0
}

func cmdConfig(e *env, args []string) int {
	if err := e.cfg.Encode(e.stdout); err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
