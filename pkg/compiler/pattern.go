package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type PatternKind int

const (
	PatNumeral PatternKind = iota
	PatDirect
	PatPointer
	PatAddress
	PatOffsetVar
	PatOffsetNum
)

func (k PatternKind) String() string {
	switch k {
	case PatNumeral:
		return "numeral"
	case PatDirect:
		return "direct"
	case PatPointer:
		return "pointer"
	case PatAddress:
		return "address"
	case PatOffsetVar:
		return "offset-by-variable"
	case PatOffsetNum:
		return "offset-by-numeral"
	default:
		return "unknown"
	}
}

// Pattern is a classified reference token.
//
//	Numeral          $1_000      Value=1000, Digits="1000" (canonical decimal)
//	Direct           $x          Name="x"
//	Pointer          @p          Name="p"
//	Address          &x          Name="x"
//	OffsetByVar      @p[$i]      Name="p", Index="i"
//	OffsetByNumeral  @p[$4]      Name="p", Value=4, Digits="4"
type Pattern struct {
	Kind   PatternKind
	Token  string
	Name   string
	Index  string
	Digits string
	Value  int16
}

var (
	numeralPattern   = regexp.MustCompile(`^\$(\d[\d_]*)$`)
	directPattern    = regexp.MustCompile(`^\$([A-Za-z]\w*)$`)
	pointerPattern   = regexp.MustCompile(`^@([A-Za-z]\w*)$`)
	addressPattern   = regexp.MustCompile(`^&([A-Za-z]\w*)$`)
	offsetVarPattern = regexp.MustCompile(`^@([A-Za-z]\w*)\[\$([A-Za-z]\w*)\]$`)
	offsetNumPattern = regexp.MustCompile(`^@([A-Za-z]\w*)\[\$(\d[\d_]*)\]$`)
)

// Classify decides what a reference token means from its shape alone. The
// sigil picks Numeral, Direct, Pointer or Address; brackets pick the offset
// forms. Errors wrap ErrInvalidReference and carry no line.
func Classify(token string) (Pattern, error) {
	p := Pattern{Token: token}

	if m := numeralPattern.FindStringSubmatch(token); m != nil {
		digits, value, err := parseNumeral(m[1])
		if err != nil {
			return p, &CompileError{Kind: ErrInvalidReference, Token: token, Msg: err.Error()}
		}
		p.Kind, p.Digits, p.Value = PatNumeral, digits, value
		return p, nil
	}
	if m := directPattern.FindStringSubmatch(token); m != nil {
		p.Kind, p.Name = PatDirect, m[1]
		return p, nil
	}
	if m := pointerPattern.FindStringSubmatch(token); m != nil {
		p.Kind, p.Name = PatPointer, m[1]
		return p, nil
	}
	if m := addressPattern.FindStringSubmatch(token); m != nil {
		p.Kind, p.Name = PatAddress, m[1]
		return p, nil
	}
	if m := offsetVarPattern.FindStringSubmatch(token); m != nil {
		p.Kind, p.Name, p.Index = PatOffsetVar, m[1], m[2]
		return p, nil
	}
	if m := offsetNumPattern.FindStringSubmatch(token); m != nil {
		digits, value, err := parseNumeral(m[2])
		if err != nil {
			return p, &CompileError{Kind: ErrInvalidReference, Token: token, Msg: err.Error()}
		}
		p.Kind, p.Name, p.Digits, p.Value = PatOffsetNum, m[1], digits, value
		return p, nil
	}
	return p, &CompileError{Kind: ErrInvalidReference, Token: token}
}

// CanonicalName is the symbol table key this pattern names. For offset
// forms it is the base pointer.
func (p Pattern) CanonicalName() string {
	switch p.Kind {
	case PatNumeral:
		return NumeralName(p.Digits)
	case PatAddress:
		return AddressName(p.Name)
	default:
		return p.Name
	}
}

// IndexName is the symbol table key of an offset index: the index variable
// or the pooled numeral. Empty for non-offset patterns.
func (p Pattern) IndexName() string {
	switch p.Kind {
	case PatOffsetVar:
		return p.Index
	case PatOffsetNum:
		return NumeralName(p.Digits)
	default:
		return ""
	}
}

// IsOffset reports whether p is one of the bracketed forms.
func (p Pattern) IsOffset() bool {
	return p.Kind == PatOffsetVar || p.Kind == PatOffsetNum
}

// NumeralName is the pool key of a numeral literal: ":" + digits.
func NumeralName(digits string) string { return ":" + digits }

// AddressName is the key of the address-of shadow of name.
func AddressName(name string) string { return name + ":addr" }

func parseNumeral(lit string) (string, int16, error) {
	digits := strings.ReplaceAll(lit, "_", "")
	v, err := strconv.ParseInt(digits, 10, 16)
	if err != nil {
		return digits, 0, fmt.Errorf("numeral %s does not fit a signed 16-bit word", digits)
	}
	// Leading zeros name the same constant.
	return strconv.FormatInt(v, 10), int16(v), nil
}
