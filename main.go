//go:build !js

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gomarie/pkg/asm"
	"gomarie/pkg/compiler"
	"gomarie/pkg/config"
	"gomarie/pkg/cpu"
	"gomarie/pkg/diag"
	"gomarie/pkg/utils"
)

// failure marks an error that is the program's fault rather than the
// command line's. It exits with status 1; anything else is a usage error.
type failure struct {
	err error
	src string
}

func (f *failure) Error() string { return f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

func fail(err error, src string) error { return &failure{err: err, src: src} }

type app struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("gomarie: ")

	a := &app{cfg: config.Load(), stdin: os.Stdin, stdout: os.Stdout}
	root := a.rootCmd()
	err := root.Execute()
	if err == nil {
		return
	}

	var f *failure
	if errors.As(err, &f) {
		fmt.Fprint(os.Stderr, diag.Render(f.err, f.src, diag.ColorEnabled(a.cfg.Color, os.Stderr)))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	fmt.Fprint(os.Stderr, root.UsageString())
	os.Exit(2)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gomarie",
		Short: "Compile pseudo-assembly for a single-accumulator machine",
		Long: `gomarie lowers a small pseudo-assembly language with variables,
numeral pools and pointer, address-of and offset addressing into native
assembly for a 4096-word single-accumulator machine, assembles it, and
runs it on a simulator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&a.cfg.Strict, "strict", a.cfg.Strict, "reject operands an instruction does not consume")
	root.PersistentFlags().IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "lower lines with this many goroutines")
	root.PersistentFlags().BoolVarP(&a.cfg.Verbose, "verbose", "v", a.cfg.Verbose, "log pipeline stages")

	root.AddCommand(a.buildCmd(), a.asmCmd(), a.runCmd(), a.inspectCmd())
	return root
}

func (a *app) logf(format string, args ...any) {
	if a.cfg.Verbose {
		log.Printf(format, args...)
	}
}

func readSource(path string) (string, error) {
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return "", fail(err, "")
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fail(fmt.Errorf("failed to read %q: %w", path, err), "")
	}
	return string(data), nil
}

func (a *app) compile(path string) (*compiler.Program, string, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, "", err
	}
	lines := compiler.SplitLines(src)
	a.logf("%s: %d source lines", path, len(lines))

	prog, err := compiler.Compile(lines, a.cfg.CompileOptions())
	if err != nil {
		return nil, src, fail(err, src)
	}
	a.logf("%s: %d variables, %d instructions, entry %s", path, prog.Table.Len(), len(prog.Instructions), prog.Entry)
	return prog, src, nil
}

// writeOutput writes data to path, or to stdout when path is "-".
func (a *app) writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(a.stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) buildCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "build source",
		Short: "Compile source to native assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := a.compile(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = utils.DefaultOutputPath(args[0], ".mas")
			}
			err = a.writeOutput(out, func(w io.Writer) error {
				_, err := prog.WriteTo(w)
				return err
			})
			if err != nil {
				return fail(err, "")
			}
			a.logf("wrote %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default: source with .mas extension, - for stdout)")
	return cmd
}

// writeImage stores words big-endian, one 16-bit word per memory cell.
func writeImage(w io.Writer, words []uint16) error {
	return binary.Write(w, binary.BigEndian, words)
}

func readImage(path string) ([]uint16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%s: odd image length %d", path, len(data))
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return words, nil
}

func (a *app) asmCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "asm native",
		Short: "Assemble native assembly into a memory image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			words, _, err := asm.Assemble(src)
			if err != nil {
				return fail(fmt.Errorf("assembly failed: %w", err), "")
			}
			if out == "" {
				out = utils.DefaultOutputPath(args[0], ".bin")
			}
			if err := a.writeOutput(out, func(w io.Writer) error { return writeImage(w, words) }); err != nil {
				return fail(err, "")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "assembled %d words -> %s\n", len(words), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default: input with .bin extension)")
	return cmd
}

// load turns path into a memory image: .bin files are read as images,
// .mas files are assembled, anything else is compiled first.
func (a *app) load(path string) ([]uint16, error) {
	switch {
	case filepath.Ext(path) == ".bin":
		words, err := readImage(path)
		if err != nil {
			return nil, fail(err, "")
		}
		return words, nil
	case utils.IsNative(path):
		src, err := readSource(path)
		if err != nil {
			return nil, err
		}
		words, _, err := asm.Assemble(src)
		if err != nil {
			return nil, fail(fmt.Errorf("assembly failed: %w", err), "")
		}
		return words, nil
	}

	prog, _, err := a.compile(path)
	if err != nil {
		return nil, err
	}
	words, _, err := asm.Assemble(prog.Emit())
	if err != nil {
		return nil, fail(fmt.Errorf("assembly failed: %w", err), "")
	}
	return words, nil
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run file",
		Short: "Run a source, native or image file on the simulator",
		Long: `Run loads file (compiling or assembling it as needed) and runs it
on the simulator. Input instructions read whitespace-separated integers from
stdin; Output instructions print one signed decimal per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := a.load(args[0])
			if err != nil {
				return err
			}

			vm := cpu.NewCPU()
			vm.Input = a.stdin
			vm.Output = a.stdout
			if err := vm.Load(words); err != nil {
				return fail(err, "")
			}
			err = vm.RunSteps(a.cfg.MaxSteps)
			a.logf("run complete (%s): PC=0x%03X AC=%d steps=%d", args[0], vm.PC, vm.Signed(), vm.Steps)
			if err != nil {
				return fail(fmt.Errorf("run failed: %w", err), "")
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&a.cfg.MaxSteps, "max-steps", a.cfg.MaxSteps, "stop after this many instructions")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect source",
		Short: "Print the variable table, lowered instructions and native text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, _, err := a.compile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.stdout, prog.Table)
			fmt.Fprintf(a.stdout, "\nInstructions (entry %s):\n%s\n", prog.Entry, prog.Listing())
			fmt.Fprint(a.stdout, prog.Emit())
			return nil
		},
	}
}
