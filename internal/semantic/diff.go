package semantic

import "sort"

// diffOutlines compares two structural outlines and produces the ordered
// semantic changes between them. All lookups go through maps, so the cost is
// linear in the number of definitions.
func diffOutlines(before, after outline) []Change {
	var changes []Change

	changes = append(changes, diffImports(before, after)...)
	changes = append(changes, diffUnits(before, after)...)
	changes = append(changes, diffHooks(before, after)...)

	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].StartLine != changes[j].StartLine {
			return changes[i].StartLine < changes[j].StartLine
		}
		return changes[i].Target < changes[j].Target
	})
	return changes
}

func diffImports(before, after outline) []Change {
	beforeSet := make(map[string]bool, len(before.imports))
	for _, imp := range before.imports {
		beforeSet[imp.path] = true
	}
	afterSet := make(map[string]bool, len(after.imports))
	for _, imp := range after.imports {
		afterSet[imp.path] = true
	}

	var changes []Change
	for _, imp := range after.imports {
		if !beforeSet[imp.path] {
			changes = append(changes, Change{
				Type:         ChangeAddImport,
				Target:       imp.path,
				Location:     LocationFileTop,
				StartLine:    imp.line,
				EndLine:      imp.line,
				ContentAfter: imp.path,
			})
		}
	}
	for _, imp := range before.imports {
		if !afterSet[imp.path] {
			changes = append(changes, Change{
				Type:      ChangeRemoveImport,
				Target:    imp.path,
				Location:  LocationFileTop,
				StartLine: imp.line,
				EndLine:   imp.line,
			})
		}
	}
	return changes
}

func diffUnits(before, after outline) []Change {
	type key struct {
		kind unitKind
		name string
	}
	beforeUnits := make(map[key]unit, len(before.units))
	for _, u := range before.units {
		beforeUnits[key{u.kind, u.name}] = u
	}
	afterUnits := make(map[key]unit, len(after.units))
	for _, u := range after.units {
		afterUnits[key{u.kind, u.name}] = u
	}

	var changes []Change
	for _, u := range after.units {
		prev, existed := beforeUnits[key{u.kind, u.name}]
		switch {
		case !existed && u.kind == unitFunction:
			changes = append(changes, Change{
				Type:         ChangeAddFunction,
				Target:       u.name,
				Location:     FunctionLocation(u.name),
				StartLine:    u.startLine,
				EndLine:      u.endLine,
				ContentAfter: u.text,
			})
		case !existed && u.kind == unitType:
			changes = append(changes, Change{
				Type:         ChangeAddType,
				Target:       u.name,
				Location:     TypeLocation(u.name),
				StartLine:    u.startLine,
				EndLine:      u.endLine,
				ContentAfter: u.text,
			})
		case existed && u.kind == unitFunction && prev.text != u.text:
			changes = append(changes, Change{
				Type:         ChangeModifyFunction,
				Target:       u.name,
				Location:     FunctionLocation(u.name),
				StartLine:    u.startLine,
				EndLine:      u.endLine,
				ContentAfter: u.text,
			})
		}
	}
	for _, u := range before.units {
		if _, still := afterUnits[key{u.kind, u.name}]; still {
			continue
		}
		if u.kind != unitFunction {
			continue
		}
		changes = append(changes, Change{
			Type:      ChangeRemoveFunction,
			Target:    u.name,
			Location:  FunctionLocation(u.name),
			StartLine: u.startLine,
			EndLine:   u.endLine,
		})
	}
	return changes
}

// diffHooks reports hook calls newly introduced inside functions that exist
// in both versions. Hooks inside a brand-new function are already covered by
// that function's add change.
func diffHooks(before, after outline) []Change {
	if len(after.hooks) == 0 {
		return nil
	}

	beforeFuncs := make(map[string]bool, len(before.units))
	for _, u := range before.units {
		if u.kind == unitFunction {
			beforeFuncs[u.name] = true
		}
	}

	var changes []Change
	for fn, calls := range after.hooks {
		if !beforeFuncs[fn] {
			continue
		}
		prior := make(map[string]bool)
		for _, c := range before.hooks[fn] {
			prior[c.name] = true
		}
		for _, call := range calls {
			if prior[call.name] {
				continue
			}
			changes = append(changes, Change{
				Type:         ChangeAddHookCall,
				Target:       call.name,
				Location:     FunctionLocation(fn),
				StartLine:    call.line,
				EndLine:      call.line,
				ContentAfter: call.name,
			})
		}
	}
	return changes
}
