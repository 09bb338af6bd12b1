package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"gomarie/pkg/compiler"
	"gomarie/pkg/config"
	"gomarie/pkg/cpu"
	"gomarie/pkg/diag"
	"gomarie/pkg/utils"
)

const (
	banner = "gomarie console. Enter source lines; :help lists commands."
	prompt = "marie> "
)

const help = `:run            compile, assemble and run the buffer
:show           print the native assembly of the buffer
:table          print the variable table
:list           print the buffer
:input v...     queue values for input instructions
:reset          clear the buffer and the input queue
:quit           leave
`

// session is the REPL state: the accepted source lines and queued input.
type session struct {
	lines []string
	input []int16
	cfg   config.Config
	color bool
	out   io.Writer
}

func (s *session) source() string {
	return strings.Join(s.lines, "\n")
}

// add appends line to the buffer when the buffer still compiles with it. A
// jump to a label that is not defined yet is accepted; every line is
// lowered so such a jump cannot mask another error.
func (s *session) add(line string) error {
	candidate := append(append([]string(nil), s.lines...), line)
	opts := s.cfg.CompileOptions()
	lines := compiler.SplitLines(strings.Join(candidate, "\n"))

	decl, err := compiler.Declare(lines, opts)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := compiler.Lower(l, decl, opts); err != nil && !errors.Is(err, compiler.ErrUndefinedLabel) {
			return err
		}
	}
	s.lines = candidate
	return nil
}

func (s *session) compile() (*compiler.Program, error) {
	return compiler.CompileSource(s.source(), s.cfg.CompileOptions())
}

func (s *session) run() error {
	_, words, err := compiler.Build(s.source(), s.cfg.CompileOptions())
	if err != nil {
		return err
	}
	vm := cpu.NewCPU()
	vm.Output = s.out
	if err := vm.Load(words); err != nil {
		return err
	}
	for _, v := range s.input {
		vm.PushInput(v)
	}
	s.input = nil
	if err := vm.RunSteps(s.cfg.MaxSteps); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	fmt.Fprintf(s.out, "halted after %d steps, AC=%d\n", vm.Steps, vm.Signed())
	return nil
}

// command executes a ':' command. It reports false when the REPL should
// exit.
func (s *session) command(line string) (bool, error) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":quit", ":q":
		return false, nil
	case ":help":
		fmt.Fprint(s.out, help)
	case ":run":
		return true, s.run()
	case ":show":
		prog, err := s.compile()
		if err != nil {
			return true, err
		}
		fmt.Fprint(s.out, prog.Emit())
	case ":table":
		prog, err := s.compile()
		if err != nil {
			return true, err
		}
		fmt.Fprint(s.out, prog.Table)
	case ":list":
		for i, l := range s.lines {
			fmt.Fprintf(s.out, "%4d | %s\n", i+1, l)
		}
	case ":input":
		for _, f := range fields[1:] {
			v, err := strconv.ParseInt(f, 10, 16)
			if err != nil {
				return true, fmt.Errorf("input value %q: %w", f, err)
			}
			s.input = append(s.input, int16(v))
		}
	case ":reset":
		s.lines = nil
		s.input = nil
	default:
		fmt.Fprintln(s.out, "unknown command. Type :help for a list.")
	}
	return true, nil
}

func (s *session) report(err error) {
	fmt.Fprint(os.Stderr, diag.Render(err, s.source(), s.color))
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("console: ")

	cfg := config.Load()
	s := &session{
		cfg:   cfg,
		color: diag.ColorEnabled(cfg.Color, os.Stderr),
		out:   os.Stdout,
	}

	if len(os.Args) > 1 {
		fullPath, _, err := utils.GetPathInfo(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to resolve %s: %v", os.Args[1], err)
		}
		data, err := os.ReadFile(fullPath)
		if err != nil {
			log.Fatalf("Failed to read source file: %v", err)
		}
		if _, err := compiler.CompileSource(string(data), cfg.CompileOptions()); err != nil {
			fmt.Fprint(os.Stderr, diag.Render(err, string(data), s.color))
			os.Exit(1)
		}
		s.lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if cfg.Verbose {
			log.Printf("loaded %d lines from %s", len(s.lines), fullPath)
		}
	}

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(cfg.History); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(cfg.History); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return
		}
		if err != nil {
			log.Printf("prompt: %v", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			more, err := s.command(line)
			if err != nil {
				s.report(err)
			}
			if !more {
				return
			}
			continue
		}

		if err := s.add(line); err != nil {
			candidate := strings.Join(append(append([]string(nil), s.lines...), line), "\n")
			fmt.Fprint(os.Stderr, diag.Render(err, candidate, s.color))
		}
	}
}
