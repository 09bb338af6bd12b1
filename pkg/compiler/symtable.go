package compiler

import (
	"fmt"
	"strings"

	"gomarie/pkg/cpu"
)

// VarID is a stable index into a SymbolTable. References carry VarIDs
// instead of pointers so lowered instructions outlive table construction.
type VarID int

// NoVar marks an unused VarID slot, such as the index of a non-offset
// reference.
const NoVar VarID = -1

type Origin int

const (
	OriginDeclared Origin = iota // explicit `let`
	OriginNumeral                // pooled literal, key ":N"
	OriginAddress                // address-of shadow, key "x:addr"
	OriginReserved               // runtime temporary
)

func (o Origin) String() string {
	switch o {
	case OriginDeclared:
		return "declared"
	case OriginNumeral:
		return "numeral"
	case OriginAddress:
		return "address"
	case OriginReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// Reservation keys of the runtime temporaries used by indirect subtraction
// and offset addressing. They are materialized on first need, once.
const (
	ReservedTempAcc  = "temp_acc"
	ReservedTempAddr = "temp_addr"
)

// SubtractRoutine is the label of the linked runtime helper that performs
// reversed subtraction for indirect operands.
const SubtractRoutine = "subti"

func isReserved(name string) bool {
	return name == ReservedTempAcc || name == ReservedTempAddr || name == SubtractRoutine
}

// MaxVariables is the number of words left for the table once address 0
// holds the entry jump.
const MaxVariables = cpu.MemoryWords - 1

type Variable struct {
	ID       VarID
	Name     string // canonical name
	Value    int16  // default value
	Constant bool
	Address  uint16
	Origin   Origin
}

// Label is the name the variable carries in native assembly, where ':' is
// not a legal identifier character. Pool labels start with '_', which no
// source variable or code label can.
func (v Variable) Label() string {
	switch v.Origin {
	case OriginNumeral:
		return "_" + strings.TrimPrefix(v.Name, ":")
	case OriginAddress:
		return "_" + strings.TrimSuffix(v.Name, ":addr") + "_addr"
	default:
		return v.Name
	}
}

// SymbolTable is the ordered, append-only registry of program variables.
// Address 0 is reserved for the entry jump; the first variable lives at 1
// and every later one at the previous address plus one.
type SymbolTable struct {
	vars    []Variable
	byName  map[string]VarID
	byLabel map[string]VarID
	frozen  bool
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName:  make(map[string]VarID),
		byLabel: make(map[string]VarID),
	}
}

// Declare appends an explicit variable.
func (s *SymbolTable) Declare(name string, value int16, constant bool) (Variable, error) {
	return s.declare(name, value, constant, OriginDeclared)
}

func (s *SymbolTable) declare(name string, value int16, constant bool, origin Origin) (Variable, error) {
	if s.frozen {
		return Variable{}, &CompileError{Kind: ErrTableFrozen, Token: name}
	}
	if _, exists := s.byName[name]; exists {
		return Variable{}, &CompileError{Kind: ErrDuplicateDeclaration, Token: name}
	}
	if len(s.vars) >= MaxVariables {
		return Variable{}, &CompileError{
			Kind:  ErrAddressSpaceExhausted,
			Token: name,
			Msg:   fmt.Sprintf("at most %d variables fit beside the entry jump", MaxVariables),
		}
	}

	v := Variable{
		ID:       VarID(len(s.vars)),
		Name:     name,
		Value:    value,
		Constant: constant,
		Address:  uint16(len(s.vars) + 1),
		Origin:   origin,
	}
	if other, clash := s.byLabel[v.Label()]; clash {
		return Variable{}, &CompileError{
			Kind:  ErrDuplicateDeclaration,
			Token: name,
			Msg:   fmt.Sprintf("assembly label %s already used by %s", v.Label(), s.vars[other].Name),
		}
	}

	s.vars = append(s.vars, v)
	s.byName[name] = v.ID
	s.byLabel[v.Label()] = v.ID
	return v, nil
}

// Lookup finds a variable by canonical name without creating it.
func (s *SymbolTable) Lookup(name string) (Variable, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Variable{}, false
	}
	return s.vars[id], true
}

// LookupLabel finds a variable by its assembly label.
func (s *SymbolTable) LookupLabel(label string) (Variable, bool) {
	id, ok := s.byLabel[label]
	if !ok {
		return Variable{}, false
	}
	return s.vars[id], true
}

// LookupOrCreateConstant returns the pooled constant name, declaring it on
// first use. An existing entry must hold the same value.
func (s *SymbolTable) LookupOrCreateConstant(name string, value int16) (Variable, error) {
	if v, ok := s.Lookup(name); ok {
		if v.Value != value {
			return Variable{}, &CompileError{
				Kind:  ErrConstantConflict,
				Token: name,
				Msg:   fmt.Sprintf("holds %d, requested %d", v.Value, value),
			}
		}
		return v, nil
	}
	origin := OriginNumeral
	if strings.HasSuffix(name, ":addr") {
		origin = OriginAddress
	}
	return s.declare(name, value, true, origin)
}

// Reserve materializes the runtime temporary key, once.
func (s *SymbolTable) Reserve(key string) (Variable, error) {
	if v, ok := s.Lookup(key); ok {
		if v.Origin != OriginReserved {
			return Variable{}, &CompileError{Kind: ErrDuplicateDeclaration, Token: key, Msg: "name is reserved"}
		}
		return v, nil
	}
	return s.declare(key, 0, false, OriginReserved)
}

// Freeze ends the declaration pass. Later Declare calls fail.
func (s *SymbolTable) Freeze() { s.frozen = true }

func (s *SymbolTable) Frozen() bool { return s.frozen }

func (s *SymbolTable) Len() int { return len(s.vars) }

// At returns the variable with the given id. It panics on an id the table
// never handed out.
func (s *SymbolTable) At(id VarID) Variable {
	return s.vars[id]
}

// Variables returns a copy of the table in address order.
func (s *SymbolTable) Variables() []Variable {
	out := make([]Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

// String returns a dump of the table in address order.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.vars) == 0 {
		sb.WriteString("Variables: (empty)\n")
		return sb.String()
	}
	sb.WriteString("Variables:\n")
	for _, v := range s.vars {
		kind := "var"
		if v.Constant {
			kind = "const"
		}
		fmt.Fprintf(&sb, "  %04X  %-20s  %-6s %-9s label=%s value=%d\n",
			v.Address, v.Name, kind, v.Origin, v.Label(), v.Value)
	}
	return sb.String()
}
