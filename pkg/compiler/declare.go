package compiler

import (
	"regexp"
	"sort"
)

var letPattern = regexp.MustCompile(`^let\s+(const\s+)?(\$[A-Za-z]\w*)(?:\s*=\s*(\$\d[\d_]*|\$[A-Za-z]\w*))?$`)

// Declarations is the result of the declaration pass: the frozen table plus
// the code labels every later stage needs.
type Declarations struct {
	Table *SymbolTable

	// Labels maps each code label to the line that defines it.
	Labels map[string]int

	// attach maps the line number of an instruction statement to the label
	// it carries, after label-only lines have been folded forward.
	attach map[int]string

	// UsesSubtract is set when some indirect subtraction needs the
	// linked subtraction routine.
	UsesSubtract bool
}

// LabelAt returns the label attached to the instruction on line num.
func (d *Declarations) LabelAt(num int) string {
	return d.attach[num]
}

type numeralUse struct {
	name  string
	value int16
	line  SourceLine
	token string
}

type nameUse struct {
	name  string
	line  SourceLine
	token string
}

type declPass struct {
	table  *SymbolTable
	strict bool

	numerals map[string]numeralUse
	addrs    []nameUse
	addrSeen map[string]bool
	uses     []nameUse

	labels    map[string]int
	labelDefs []nameUse
	attach    map[int]string

	needTemps    bool
	usesSubtract bool
}

// Declare runs the declaration pass over lines: one forward scan that
// registers `let` declarations, records every reference, then materializes
// the numeral and address-of pools and the reserved temporaries, checks
// that every named variable was declared somewhere in the file, and
// freezes the table.
func Declare(lines []SourceLine, opts Options) (*Declarations, error) {
	p := &declPass{
		table:    NewSymbolTable(),
		strict:   opts.StrictArity,
		numerals: make(map[string]numeralUse),
		addrSeen: make(map[string]bool),
		labels:   make(map[string]int),
		attach:   make(map[int]string),
	}

	var pending *nameUse
	for _, line := range lines {
		st, err := parseStatement(line)
		if err != nil {
			return nil, err
		}

		if st.Keyword == KwLet {
			if st.Label != "" {
				return nil, newError(ErrMalformedDeclaration, line, st.Label+":", "declarations cannot carry a label")
			}
			if err := p.let(line); err != nil {
				return nil, err
			}
			continue
		}

		if st.Label != "" {
			if pending != nil {
				return nil, newError(ErrInvalidLabel, line, st.Label, "label %s already names this instruction", pending.name)
			}
			if prev, dup := p.labels[st.Label]; dup {
				return nil, newError(ErrDuplicateLabel, line, st.Label, "first defined on line %d", prev)
			}
			p.labels[st.Label] = line.Num
			p.labelDefs = append(p.labelDefs, nameUse{name: st.Label, line: line, token: st.Label})
			pending = &nameUse{name: st.Label, line: line}
		}
		if st.Keyword == KwNone {
			continue
		}
		if pending != nil {
			p.attach[line.Num] = pending.name
			pending = nil
		}

		if err := st.checkArity(p.strict); err != nil {
			return nil, err
		}
		if err := p.statement(st); err != nil {
			return nil, err
		}
	}
	if pending != nil {
		return nil, newError(ErrInvalidLabel, pending.line, pending.name, "label does not precede an instruction")
	}

	if err := p.finish(); err != nil {
		return nil, err
	}
	return &Declarations{
		Table:        p.table,
		Labels:       p.labels,
		attach:       p.attach,
		UsesSubtract: p.usesSubtract,
	}, nil
}

func (p *declPass) let(line SourceLine) error {
	m := letPattern.FindStringSubmatch(line.Content)
	if m == nil {
		return newError(ErrMalformedDeclaration, line, "", "expected `let [const] $name [= $value]`")
	}
	name := m[2][1:]
	if isReserved(name) {
		return newError(ErrMalformedDeclaration, line, m[2], "name is reserved")
	}

	var value int16
	if m[3] != "" {
		pat, err := Classify(m[3])
		if err != nil {
			return atLine(err, line)
		}
		switch pat.Kind {
		case PatNumeral:
			value = pat.Value
			p.numeral(pat, line)
		case PatDirect:
			src, ok := p.table.Lookup(pat.Name)
			if !ok || src.Origin != OriginDeclared {
				return newError(ErrUndeclaredVariable, line, m[3], "initializer must be declared on an earlier line")
			}
			value = src.Value
		}
	}

	if _, err := p.table.Declare(name, value, m[1] != ""); err != nil {
		return atLine(err, line)
	}
	return nil
}

func (p *declPass) statement(st Statement) error {
	for _, tok := range st.references() {
		pat, err := Classify(tok)
		if err != nil {
			return atLine(err, st.Line)
		}
		p.reference(pat, st.Line)
		if pat.IsOffset() {
			p.needTemps = true
		}
	}

	// Operands past the consumed ones never reach lowering, but a token
	// shaped like a reference must still name declared variables and
	// joins the numeral pool.
	for _, tok := range st.ignored() {
		if !hasSigil(tok) {
			continue
		}
		pat, err := Classify(tok)
		if err != nil {
			return atLine(err, st.Line)
		}
		p.reference(pat, st.Line)
	}

	switch st.Keyword {
	case KwSubt:
		pat, err := Classify(st.subtrahend())
		if err == nil && (pat.Kind == PatPointer || pat.IsOffset()) {
			p.usesSubtract = true
			p.needTemps = true
		}
	case KwSkipcond:
		if _, ok := parseCondition(st.Operands[0]); !ok {
			return newError(ErrInvalidReference, st.Line, st.Operands[0], "skipcond expects gt, lt, eq, 800, 000 or 400")
		}
	}
	return nil
}

func (p *declPass) reference(pat Pattern, line SourceLine) {
	switch pat.Kind {
	case PatNumeral:
		p.numeral(pat, line)
	case PatDirect, PatPointer:
		p.use(pat.Name, line, pat.Token)
	case PatAddress:
		// The shadow self-registers; the variable whose address it holds
		// must still be declared.
		p.use(pat.Name, line, pat.Token)
		if !p.addrSeen[pat.Name] {
			p.addrSeen[pat.Name] = true
			p.addrs = append(p.addrs, nameUse{name: pat.Name, line: line, token: pat.Token})
		}
	case PatOffsetVar:
		p.use(pat.Name, line, pat.Token)
		p.use(pat.Index, line, pat.Token)
	case PatOffsetNum:
		p.use(pat.Name, line, pat.Token)
		p.numeral(pat, line)
	}
}

func (p *declPass) numeral(pat Pattern, line SourceLine) {
	name := NumeralName(pat.Digits)
	if _, seen := p.numerals[name]; !seen {
		p.numerals[name] = numeralUse{name: name, value: pat.Value, line: line, token: pat.Token}
	}
}

func (p *declPass) use(name string, line SourceLine, token string) {
	p.uses = append(p.uses, nameUse{name: name, line: line, token: token})
}

func (p *declPass) finish() error {
	for _, u := range p.uses {
		v, ok := p.table.Lookup(u.name)
		if !ok || v.Origin != OriginDeclared {
			return newError(ErrUndeclaredVariable, u.line, u.token, "no `let $%s` in this file", u.name)
		}
	}

	pool := make([]numeralUse, 0, len(p.numerals))
	for _, n := range p.numerals {
		pool = append(pool, n)
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].value != pool[j].value {
			return pool[i].value < pool[j].value
		}
		return pool[i].name < pool[j].name
	})
	for _, n := range pool {
		if _, err := p.table.LookupOrCreateConstant(n.name, n.value); err != nil {
			return atLine(err, n.line)
		}
	}

	for _, a := range p.addrs {
		target, _ := p.table.Lookup(a.name)
		if _, err := p.table.LookupOrCreateConstant(AddressName(a.name), int16(target.Address)); err != nil {
			return atLine(err, a.line)
		}
	}

	if p.needTemps {
		for _, key := range []string{ReservedTempAcc, ReservedTempAddr} {
			if _, err := p.table.Reserve(key); err != nil {
				return err
			}
		}
	}

	for _, l := range p.labelDefs {
		if v, clash := p.table.LookupLabel(l.name); clash {
			return newError(ErrDuplicateLabel, l.line, l.name, "also the assembly label of variable %s", v.Name)
		}
	}

	p.table.Freeze()
	return nil
}
