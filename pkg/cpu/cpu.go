package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	OpJNS      uint16 = 0x0
	OpLOAD     uint16 = 0x1
	OpSTORE    uint16 = 0x2
	OpADD      uint16 = 0x3
	OpSUBT     uint16 = 0x4
	OpINPUT    uint16 = 0x5
	OpOUTPUT   uint16 = 0x6
	OpHALT     uint16 = 0x7
	OpSKIPCOND uint16 = 0x8
	OpJUMP     uint16 = 0x9
	OpCLEAR    uint16 = 0xA
	OpADDI     uint16 = 0xB
	OpJUMPI    uint16 = 0xC
	OpLOADI    uint16 = 0xD
	OpSTOREI   uint16 = 0xE
)

// Skipcond operand bits 11-10.
const (
	SkipNegative uint16 = 0x000
	SkipZero     uint16 = 0x400
	SkipPositive uint16 = 0x800
)

const (
	MemoryWords = 4096
	AddrMask    = 0x0FFF
)

var ErrStepLimit = errors.New("step limit reached")

// CPU is a single-accumulator machine: 4096 16-bit words, one opcode
// nibble and a 12-bit address per instruction.
type CPU struct {
	AC  uint16
	PC  uint16
	IR  uint16
	MAR uint16
	MBR uint16
	IN  uint16
	OUT uint16

	Memory [MemoryWords]uint16

	Halted bool

	// Waiting is set when an INPUT finds no queued value and no reader.
	// PC still points at the INPUT so the next Step retries it.
	Waiting bool

	// Fault describes why the machine stopped on an illegal instruction.
	Fault error

	InputQueue []uint16

	// Input is consulted when InputQueue is empty; whitespace-separated
	// signed decimal integers.
	Input io.Reader

	// Output is where OUTPUT writes. If nil, os.Stdout is used.
	Output io.Writer

	Steps uint64

	scanner *bufio.Scanner
}

func NewCPU() *CPU {
	return &CPU{}
}

// Load copies a program image into memory starting at address 0.
func (c *CPU) Load(words []uint16) error {
	if len(words) > len(c.Memory) {
		return fmt.Errorf("program too large for memory: %d words > %d words", len(words), len(c.Memory))
	}
	copy(c.Memory[:], words)
	return nil
}

// PushInput queues a value for the next INPUT and wakes a waiting machine.
func (c *CPU) PushInput(val int16) {
	c.InputQueue = append(c.InputQueue, uint16(val))
	c.Waiting = false
}

// Signed returns AC as a two's complement value.
func (c *CPU) Signed() int16 { return int16(c.AC) }

func (c *CPU) ReadMem(addr uint16) uint16 {
	return c.Memory[addr&AddrMask]
}

func (c *CPU) WriteMem(addr uint16, val uint16) {
	c.Memory[addr&AddrMask] = val
}

func (c *CPU) outputSink() io.Writer {
	if c.Output != nil {
		return c.Output
	}
	return os.Stdout
}

func (c *CPU) nextInput() (uint16, bool) {
	if len(c.InputQueue) > 0 {
		val := c.InputQueue[0]
		c.InputQueue = c.InputQueue[1:]
		return val, true
	}
	if c.Input == nil {
		return 0, false
	}
	if c.scanner == nil {
		c.scanner = bufio.NewScanner(c.Input)
		c.scanner.Split(bufio.ScanWords)
	}
	for c.scanner.Scan() {
		v, err := strconv.ParseInt(c.scanner.Text(), 0, 16)
		if err != nil {
			continue
		}
		return uint16(int16(v)), true
	}
	return 0, false
}

func (c *CPU) Step() {
	if c.Halted {
		return
	}

	c.MAR = c.PC
	c.IR = c.ReadMem(c.MAR)
	opcode := c.IR >> 12
	operand := c.IR & AddrMask

	if opcode == OpINPUT {
		val, ok := c.nextInput()
		if !ok {
			c.Waiting = true
			return
		}
		c.Waiting = false
		c.IN = val
		c.AC = val
		c.PC = (c.PC + 1) & AddrMask
		c.Steps++
		return
	}

	c.PC = (c.PC + 1) & AddrMask
	c.Steps++

	switch opcode {
	case OpJNS:
		c.MBR = c.PC
		c.MAR = operand
		c.WriteMem(c.MAR, c.MBR)
		c.PC = (operand + 1) & AddrMask
	case OpLOAD:
		c.MAR = operand
		c.MBR = c.ReadMem(c.MAR)
		c.AC = c.MBR
	case OpSTORE:
		c.MAR = operand
		c.MBR = c.AC
		c.WriteMem(c.MAR, c.MBR)
	case OpADD:
		c.MAR = operand
		c.MBR = c.ReadMem(c.MAR)
		c.AC += c.MBR
	case OpSUBT:
		c.MAR = operand
		c.MBR = c.ReadMem(c.MAR)
		c.AC -= c.MBR
	case OpOUTPUT:
		c.OUT = c.AC
		fmt.Fprintf(c.outputSink(), "%d\n", int16(c.OUT))
	case OpHALT:
		c.Halted = true
	case OpSKIPCOND:
		ac := int16(c.AC)
		var skip bool
		switch operand & 0x0C00 {
		case SkipNegative:
			skip = ac < 0
		case SkipZero:
			skip = ac == 0
		case SkipPositive:
			skip = ac > 0
		}
		if skip {
			c.PC = (c.PC + 1) & AddrMask
		}
	case OpJUMP:
		c.PC = operand
	case OpCLEAR:
		c.AC = 0
	case OpADDI:
		c.MAR = c.ReadMem(operand)
		c.MBR = c.ReadMem(c.MAR)
		c.AC += c.MBR
	case OpJUMPI:
		c.PC = c.ReadMem(operand) & AddrMask
	case OpLOADI:
		c.MAR = c.ReadMem(operand)
		c.MBR = c.ReadMem(c.MAR)
		c.AC = c.MBR
	case OpSTOREI:
		c.MAR = c.ReadMem(operand)
		c.MBR = c.AC
		c.WriteMem(c.MAR, c.MBR)
	default:
		c.Fault = fmt.Errorf("illegal opcode 0x%X at 0x%03X", opcode, c.MAR)
		c.Halted = true
	}
}

func (c *CPU) Run() {
	for !c.Halted && !c.Waiting {
		c.Step()
	}
}

func EncodeInstruction(opcode, operand uint16) uint16 {
	return (opcode << 12) | (operand & AddrMask)
}

// RunUntilDone steps until the machine halts or waits for input.
func (c *CPU) RunUntilDone() {
	for {
		if c.Halted || c.Waiting {
			break
		}
		c.Step()
	}
}

// RunSteps runs until halt, executing at most max instructions. It fails
// with ErrStepLimit on a runaway program, with the machine's Fault on an
// illegal instruction, and with io.ErrUnexpectedEOF when the program waits
// for input that will never arrive.
func (c *CPU) RunSteps(max uint64) error {
	start := c.Steps
	for !c.Halted {
		if c.Steps-start >= max {
			return fmt.Errorf("%w: %d instructions", ErrStepLimit, max)
		}
		c.Step()
		if c.Waiting {
			return fmt.Errorf("input at 0x%03X: %w", c.PC, io.ErrUnexpectedEOF)
		}
	}
	return c.Fault
}
