// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package installer

// Phase is one of the named install stages every action decomposes into.
type Phase string

const (
	PhaseFetch       Phase = "fetch"
	PhaseExtract     Phase = "extract"
	PhasePreinstall  Phase = "preinstall"
	PhaseBuild       Phase = "build"
	PhaseRemove      Phase = "remove"
	PhaseFinalize    Phase = "finalize"
	PhaseInstall     Phase = "install"
	PhasePostinstall Phase = "postinstall"
	PhaseTest        Phase = "test"
)

// phaseOrder fixes both the execution order of phases and whether each
// runs its entries in parallel or serially. Serial phases mutate the
// real node_modules; parallel phases work on staging subdirectories or
// distinct on-disk targets.
var phaseOrder = []struct {
	phase    Phase
	parallel bool
}{
	{PhaseFetch, true},
	{PhaseExtract, true},
	{PhasePreinstall, true},
	{PhaseBuild, true},
	{PhaseRemove, true},
	{PhaseFinalize, false},
	{PhaseInstall, false},
	{PhasePostinstall, false},
	{PhaseTest, true},
}

// phaseApplies maps each phase to the action kinds that participate in it.
var phaseApplies = map[Phase][]ActionKind{
	PhaseFetch:       {ActionAdd, ActionUpdate},
	PhaseExtract:     {ActionAdd, ActionUpdate},
	PhasePreinstall:  {ActionAdd, ActionUpdate},
	PhaseBuild:       {ActionAdd, ActionUpdate},
	PhaseRemove:      {ActionRemove, ActionUpdate},
	PhaseFinalize:    {ActionAdd, ActionUpdate, ActionMove},
	PhaseInstall:     {ActionAdd, ActionUpdate},
	PhasePostinstall: {ActionAdd, ActionUpdate},
	PhaseTest:        {ActionAdd, ActionUpdate},
}

// Plan is an action list decomposed into per-phase entries. Entries
// within one phase preserve the order the differ emitted.
type Plan struct {
	entries map[Phase][]Action
}

// Decompose expands each action into one entry per applicable lifecycle
// phase. The test phase participates only when npat is enabled.
func Decompose(actions []Action, npat bool) *Plan {
	p := &Plan{entries: make(map[Phase][]Action)}
	for _, po := range phaseOrder {
		if po.phase == PhaseTest && !npat {
			continue
		}
		kinds := phaseApplies[po.phase]
		for _, a := range actions {
			if kindIn(a.Kind, kinds) {
				p.entries[po.phase] = append(p.entries[po.phase], a)
			}
		}
	}
	return p
}

// Entries returns the actions participating in phase, in plan order.
func (p *Plan) Entries(phase Phase) []Action {
	return p.entries[phase]
}

// Empty reports whether the plan contains no work at all.
func (p *Plan) Empty() bool {
	for _, actions := range p.entries {
		if len(actions) > 0 {
			return false
		}
	}
	return true
}

func kindIn(kind ActionKind, kinds []ActionKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
