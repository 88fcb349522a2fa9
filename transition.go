package nestfsm

// transitionPlan holds the ordered action chains computed for one
// (source, target) pair. The exit chain runs child to parent, the entry
// chain parent to child; initial descent then resolves target to a leaf.
type transitionPlan struct {
	exit   []*state
	entry  []*state
	target *state
}

// planTransition computes the minimal exit and entry chains between a source
// leaf and an arbitrary target using the precomputed ancestor paths. The
// boundary is the lowest common ancestor, which is neither exited nor
// re-entered. A self-transition instead uses the target's parent as the
// boundary so the state exits and re-enters itself.
func (r *Registry) planTransition(source, target *state) transitionPlan {
	var lca *state
	if source == target {
		lca = target.parentState
	} else {
		lca = lowestCommonAncestor(source, target)
	}

	plan := transitionPlan{target: target}

	for _, s := range source.path {
		if s == lca {
			break
		}
		plan.exit = append(plan.exit, s)
	}

	below := 0
	for _, s := range target.path {
		if s == lca {
			break
		}
		below++
	}
	plan.entry = make([]*state, below)
	for i := 0; i < below; i++ {
		plan.entry[i] = target.path[below-1-i]
	}

	return plan
}

// lowestCommonAncestor returns the deepest state present in both ancestor
// paths. Paths are root-terminated chains, so it walks both from the root
// end while they agree. Two states of the same validated tree always share
// at least the root.
func lowestCommonAncestor(a, b *state) *state {
	i, j := len(a.path)-1, len(b.path)-1
	var lca *state
	for i >= 0 && j >= 0 && a.path[i] == b.path[j] {
		lca = a.path[i]
		i--
		j--
	}
	return lca
}

// performTransition runs one complete transition: the exit chain, then the
// entry chain, then initial descent to the final leaf. The entry phase is
// committed through a deferred guard so that it runs exactly once even if
// an exit action panics out of the chain; the "exit fully before any entry,
// then always settle on a leaf" contract never depends on the actions
// behaving. Returns whether any state was exited, so callers can tell a
// re-entered leaf apart from an untouched one even when the ids match.
func (m *Machine) performTransition(source, target *state) bool {
	plan := m.registry.planTransition(source, target)

	committed := false
	commit := func() {
		if committed {
			return
		}
		committed = true
		for _, s := range plan.entry {
			m.enterState(s)
		}
		m.descend(plan.target)
	}
	defer commit()

	for _, s := range plan.exit {
		m.exitState(s)
	}
	return len(plan.exit) > 0
}

// descend resolves a landing state to the machine's new current leaf by
// following default children downward. The landing state's own entry action
// is never run here; it was already performed by the entry chain or by a
// prior descent step. Chain completeness is guaranteed by Finalize, so the
// walk cannot fail at dispatch time.
func (m *Machine) descend(landing *state) {
	s := landing
	for s.kind == KindComposite {
		child := m.registry.states[s.defaultChild]
		m.enterState(child)
		s = child
	}
	m.current = s
	m.ctx.updateCurrentState(s.id)
}
