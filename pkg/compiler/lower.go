package compiler

// Lower expands one non-declaration source line into native instructions.
// decl must come from a completed declaration pass over the same source.
// Declaration and label-only lines lower to nothing.
func Lower(line SourceLine, decl *Declarations, opts Options) ([]Instruction, error) {
	st, err := parseStatement(line)
	if err != nil {
		return nil, err
	}
	if err := st.checkArity(opts.StrictArity); err != nil {
		return nil, err
	}

	l := lowerer{decl: decl, table: decl.Table, st: st}
	out, err := l.lower()
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		out[0].Label = decl.LabelAt(line.Num)
	}
	return out, nil
}

type lowerer struct {
	decl  *Declarations
	table *SymbolTable
	st    Statement
}

func (l *lowerer) lower() ([]Instruction, error) {
	st := l.st
	switch st.Keyword {
	case KwNone, KwLet:
		return nil, nil

	case KwStore, KwLoad:
		ref, err := l.resolve(st.Operands[0])
		if err != nil {
			return nil, err
		}
		op := OpStore
		if st.Keyword == KwLoad {
			op = OpLoad
		}
		return []Instruction{l.ins(op, ref)}, nil

	case KwAdd, KwSubt:
		op := OpAdd
		if st.Keyword == KwSubt {
			op = OpSubt
		}
		return l.arith(op)

	case KwClear:
		return []Instruction{l.bare(OpClear)}, nil
	case KwInput:
		return []Instruction{l.bare(OpInput)}, nil
	case KwOutput:
		return []Instruction{l.bare(OpOutput)}, nil
	case KwHalt:
		return []Instruction{l.bare(OpHalt)}, nil

	case KwJump, KwJns:
		target := st.Operands[0]
		if _, ok := l.decl.Labels[target]; !ok {
			return nil, newError(ErrUndefinedLabel, st.Line, target, "")
		}
		op := OpJump
		if st.Keyword == KwJns {
			op = OpJns
		}
		ins := l.bare(op)
		ins.Target = target
		return []Instruction{ins}, nil

	case KwSkipcond:
		cond, ok := parseCondition(st.Operands[0])
		if !ok {
			return nil, newError(ErrInvalidReference, st.Line, st.Operands[0], "skipcond expects gt, lt, eq, 800, 000 or 400")
		}
		ins := l.bare(OpSkipcond)
		ins.Cond = cond
		return []Instruction{ins}, nil
	}
	return nil, newError(ErrUnknownInstruction, st.Line, st.Word, "")
}

// arith lowers add and subt by operand count:
//
//	op x          [Op(x)]
//	op dest src   [Load(src), Op(dest), Store(dest)]   dest := src OP dest
//	op dest a b   [Load(a), Op(b), Store(dest)]        dest := a OP b
func (l *lowerer) arith(op Op) ([]Instruction, error) {
	refs := make([]Reference, 0, 3)
	for _, tok := range l.st.references() {
		ref, err := l.resolve(tok)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	switch len(refs) {
	case 1:
		return []Instruction{l.ins(op, refs[0])}, nil
	case 2:
		dest, src := refs[0], refs[1]
		return []Instruction{l.ins(OpLoad, src), l.ins(op, dest), l.ins(OpStore, dest)}, nil
	default:
		dest, a, b := refs[0], refs[1], refs[2]
		return []Instruction{l.ins(OpLoad, a), l.ins(op, b), l.ins(OpStore, dest)}, nil
	}
}

// resolve classifies token and binds it to the frozen table.
func (l *lowerer) resolve(token string) (Reference, error) {
	pat, err := Classify(token)
	if err != nil {
		return Reference{}, atLine(err, l.st.Line)
	}

	switch pat.Kind {
	case PatNumeral:
		v, err := l.lookup(NumeralName(pat.Digits), token, false)
		return Direct(v.ID), err
	case PatDirect:
		v, err := l.lookup(pat.Name, token, true)
		return Direct(v.ID), err
	case PatPointer:
		v, err := l.lookup(pat.Name, token, true)
		return Pointer(v.ID), err
	case PatAddress:
		v, err := l.lookup(AddressName(pat.Name), token, false)
		return Address(v.ID), err
	case PatOffsetVar, PatOffsetNum:
		base, err := l.lookup(pat.Name, token, true)
		if err != nil {
			return Reference{}, err
		}
		index, err := l.lookup(pat.IndexName(), token, pat.Kind == PatOffsetVar)
		return Offset(base.ID, index.ID), err
	}
	return Reference{}, newError(ErrInvalidReference, l.st.Line, token, "")
}

func (l *lowerer) lookup(name, token string, declared bool) (Variable, error) {
	v, ok := l.table.Lookup(name)
	if !ok || (declared && v.Origin != OriginDeclared) {
		return Variable{}, newError(ErrUndeclaredVariable, l.st.Line, token, "")
	}
	return v, nil
}

func (l *lowerer) ins(op Op, ref Reference) Instruction {
	return Instruction{Op: op, Ref: ref, Line: l.st.Line.Num}
}

func (l *lowerer) bare(op Op) Instruction {
	return Instruction{Op: op, Ref: Reference{Var: NoVar, Index: NoVar}, Line: l.st.Line.Num}
}
