package typesystem

// Subst is a mapping from variable ids to types. Type variables map to
// arbitrary types; row variables map to TRow or RVar terms. The two
// populations share one id supply, so the key space never collides.
type Subst map[VarID]Type

// Apply applies the substitution to a type, chasing chains until the
// result contains no bound id.
func (s Subst) Apply(t Type) Type {
	if len(s) == 0 {
		return t
	}
	return applyWithCycleCheck(t, s, nil)
}

// Compose yields a substitution S with Apply(S, T) = Apply(s2, Apply(s1, T)).
// Bindings present in s1 shadow s2 for the same id.
func (s1 Subst) Compose(s2 Subst) Subst {
	out := make(Subst, len(s1)+len(s2))
	for k, v := range s2 {
		out[k] = v
	}
	for k, v := range s1 {
		out[k] = v.Apply(s2)
	}
	return out
}

// Bind extends the substitution in place with id -> t.
func (s Subst) Bind(id VarID, t Type) {
	s[id] = t
}

func applyWithCycleCheck(t Type, s Subst, visited map[VarID]bool) Type {
	if t == nil {
		return nil
	}

	switch typ := t.(type) {
	case TVar:
		if visited[typ.ID] {
			return typ
		}
		replacement, ok := s[typ.ID]
		if !ok {
			return typ
		}
		if tv, ok := replacement.(TVar); ok && tv.ID == typ.ID {
			return typ
		}
		next := copyVisited(visited)
		next[typ.ID] = true
		return applyWithCycleCheck(replacement, s, next)

	case RVar:
		if visited[typ.ID] {
			return typ
		}
		replacement, ok := s[typ.ID]
		if !ok {
			return typ
		}
		if rv, ok := replacement.(RVar); ok && rv.ID == typ.ID {
			return typ
		}
		// Instantiation renames every bound id to a fresh TVar; a renamed
		// row variable keeps its row kind.
		if tv, ok := replacement.(TVar); ok {
			replacement = RVar{ID: tv.ID}
		}
		next := copyVisited(visited)
		next[typ.ID] = true
		return applyWithCycleCheck(replacement, s, next)

	case TList:
		return TList{Elem: applyWithCycleCheck(typ.Elem, s, visited)}

	case TTuple:
		elems := make([]Type, len(typ.Elements))
		for i, e := range typ.Elements {
			elems[i] = applyWithCycleCheck(e, s, visited)
		}
		return TTuple{Elements: elems}

	case TRecord:
		fields := make([]Field, len(typ.Fields))
		for i, f := range typ.Fields {
			fields[i] = Field{Label: f.Label, Type: applyWithCycleCheck(f.Type, s, visited)}
		}
		return TRecord{Name: typ.Name, Fields: fields}

	case TSum:
		args := make([]Type, len(typ.Args))
		for i, a := range typ.Args {
			args[i] = applyWithCycleCheck(a, s, visited)
		}
		return TSum{Name: typ.Name, Args: args}

	case TRow:
		fields := make([]Field, len(typ.Fields))
		for i, f := range typ.Fields {
			fields[i] = Field{Label: f.Label, Type: applyWithCycleCheck(f.Type, s, visited)}
		}
		row := TRow{Fields: fields}
		if typ.Tail != nil {
			tail := applyWithCycleCheck(typ.Tail, s, visited)
			// A tail substituted to another row merges into this one.
			if inner, ok := tail.(TRow); ok {
				row.Fields = mergeRowFields(row.Fields, inner.Fields)
				row.Tail = inner.Tail
			} else {
				row.Tail = tail
			}
		}
		return row

	case TFunc:
		params := make([]Type, len(typ.Params))
		for i, p := range typ.Params {
			params[i] = applyWithCycleCheck(p, s, visited)
		}
		return TFunc{Params: params, Return: applyWithCycleCheck(typ.Return, s, visited)}

	case TScheme:
		return typ.Apply(s)

	default:
		// TCon, TAtom, TPid carry no variables.
		return t
	}
}

// mergeRowFields appends inner fields that are not already present.
// Explicit fields win over fields flowing in from a substituted tail.
func mergeRowFields(outer, inner []Field) []Field {
	out := make([]Field, len(outer), len(outer)+len(inner))
	copy(out, outer)
	for _, f := range inner {
		dup := false
		for _, o := range outer {
			if o.Label == f.Label {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}

func copyVisited(m map[VarID]bool) map[VarID]bool {
	out := make(map[VarID]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
