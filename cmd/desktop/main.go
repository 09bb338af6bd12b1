package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"gomarie/pkg/asm"
	"gomarie/pkg/compiler"
	"gomarie/pkg/config"
	"gomarie/pkg/cpu"
	"gomarie/pkg/diag"
	"gomarie/pkg/grid"
	"gomarie/pkg/utils"
)

const (
	screenWidth  = 640
	screenHeight = 480

	memCols  = 64
	cellSize = 4
	memX     = 376
	memY     = 8

	maxOutputLines = 12
	maxVariables   = 20
)

var (
	colorPanel  = color.RGBA{0x18, 0x1c, 0x24, 0xff}
	colorCell   = color.RGBA{0x2e, 0x7d, 0x32, 0xff}
	colorVar    = color.RGBA{0x1e, 0x88, 0xe5, 0xff}
	colorPC     = color.RGBA{0xff, 0xc1, 0x07, 0xff}
	colorText   = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	colorStatus = color.RGBA{0xff, 0x8a, 0x65, 0xff}
)

// outputLog collects what Output instructions print, keeping the newest
// lines.
type outputLog struct {
	lines   []string
	partial string
}

func (o *outputLog) Write(p []byte) (int, error) {
	s := o.partial + string(p)
	parts := strings.Split(s, "\n")
	o.partial = parts[len(parts)-1]
	o.lines = append(o.lines, parts[:len(parts)-1]...)
	if len(o.lines) > maxOutputLines {
		o.lines = o.lines[len(o.lines)-maxOutputLines:]
	}
	return len(p), nil
}

type Game struct {
	vm            *cpu.CPU
	prog          *compiler.Program
	image         []uint16
	out           *outputLog
	face          text.Face
	stepsPerFrame int
	paused        bool
	pending       string
}

func newGame(prog *compiler.Program, words []uint16, stepsPerFrame int) *Game {
	g := &Game{
		prog:          prog,
		image:         words,
		face:          text.NewGoXFace(basicfont.Face7x13),
		stepsPerFrame: stepsPerFrame,
	}
	g.reset()
	return g
}

// reset reloads the program image and clears the output log.
func (g *Game) reset() {
	g.out = &outputLog{}
	g.vm = cpu.NewCPU()
	g.vm.Output = g.out
	_ = g.vm.Load(g.image)
	g.pending = ""
}

// submit pushes the typed number to the machine's input queue.
func (g *Game) submit() error {
	if g.pending == "" {
		return nil
	}
	v, err := strconv.ParseInt(g.pending, 10, 16)
	g.pending = ""
	if err != nil {
		return err
	}
	g.vm.PushInput(int16(v))
	return nil
}

func (g *Game) typeRune(r rune) {
	switch {
	case r >= '0' && r <= '9':
		g.pending += string(r)
	case r == '-' && g.pending == "":
		g.pending = "-"
	}
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		g.typeRune(r)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && g.pending != "" {
		g.pending = g.pending[:len(g.pending)-1]
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		if err := g.submit(); err != nil {
			log.Printf("input: %v", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.reset()
	}

	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			g.vm.Step()
		}
		return nil
	}

	for i := 0; i < g.stepsPerFrame; i++ {
		// Break early if the program finishes or waits for input
		if g.vm.Halted || g.vm.Waiting {
			break
		}
		g.vm.Step()
	}
	return nil
}

func (g *Game) status() string {
	switch {
	case g.vm.Fault != nil:
		return "FAULT: " + g.vm.Fault.Error()
	case g.vm.Halted:
		return "HALTED"
	case g.vm.Waiting:
		return "INPUT? " + g.pending + "_"
	case g.paused:
		return "PAUSED"
	default:
		return "RUNNING"
	}
}

func registerLines(vm *cpu.CPU) string {
	return fmt.Sprintf(
		"AC  %04X %6d\nPC  %03X\nIR  %04X %s\nMAR %03X\nMBR %04X\nIN  %04X\nOUT %04X\nsteps %d",
		vm.AC, int16(vm.AC), vm.PC, vm.IR, asm.Disassemble(vm.IR),
		vm.MAR, vm.MBR, vm.IN, vm.OUT, vm.Steps,
	)
}

func variableLines(vm *cpu.CPU, t *compiler.SymbolTable) string {
	var sb strings.Builder
	for i, v := range t.Variables() {
		if i == maxVariables {
			fmt.Fprintf(&sb, "... %d more\n", t.Len()-maxVariables)
			break
		}
		fmt.Fprintf(&sb, "%03X %-12s %6d\n", v.Address, v.Label(), int16(vm.ReadMem(v.Address)))
	}
	return sb.String()
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LineSpacing = 14
	text.Draw(screen, s, g.face, op)
}

func (g *Game) drawMemory(screen *ebiten.Image) {
	vars := g.prog.Table.Len()
	for i, w := range g.vm.Memory {
		var clr color.Color
		switch {
		case uint16(i) == g.vm.PC:
			clr = colorPC
		case i >= 1 && i <= vars:
			clr = colorVar
		case w != 0:
			clr = colorCell
		default:
			continue
		}
		x, y := grid.GetGridCoords(i, memCols)
		px := memX + x*cellSize
		py := memY + y*cellSize
		cell := image.Rect(px, py, px+cellSize-1, py+cellSize-1)
		screen.SubImage(cell).(*ebiten.Image).Fill(clr)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorPanel)

	g.drawText(screen, registerLines(g.vm), 8, 8, colorText)
	g.drawText(screen, g.status(), 8, 128, colorStatus)
	g.drawText(screen, variableLines(g.vm, g.prog.Table), 8, 152, colorText)

	g.drawMemory(screen)

	outY := memY + grid.Rows(cpu.MemoryWords, memCols)*cellSize + 8
	ebitenutil.DebugPrintAt(screen, "output:\n"+strings.Join(g.out.lines, "\n"), memX, outY)
	ebitenutil.DebugPrintAt(screen, "space pause  n step  r reset  digits+enter input", 8, screenHeight-20)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("desktop: ")

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <source>", os.Args[0])
	}
	cfg := config.Load()

	fullPath, _, err := utils.GetPathInfo(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to resolve %s: %v", os.Args[1], err)
	}
	sourceBytes, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}
	src := string(sourceBytes)

	prog, err := compiler.CompileSource(src, cfg.CompileOptions())
	if err != nil {
		fmt.Fprint(os.Stderr, diag.Render(err, src, diag.ColorEnabled(cfg.Color, os.Stderr)))
		os.Exit(1)
	}
	native := prog.Emit()
	words, _, err := asm.Assemble(native)
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}
	if cfg.Verbose {
		fmt.Print(native)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("gomarie front panel")

	if err := ebiten.RunGame(newGame(prog, words, cfg.StepsPerFrame)); err != nil {
		log.Fatal(err)
	}
}
