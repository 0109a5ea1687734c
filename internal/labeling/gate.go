package labeling

// FetchGate holds the one-shot latch for the initial fetch and the loading
// flag shown while any request is outstanding. Callers hold the session lock.
type FetchGate struct {
	started bool
	loading bool
}

// TryStart reports whether the initial fetch should run. It returns true
// exactly once; the latch is never reset.
func (g *FetchGate) TryStart() bool {
	if g.started {
		return false
	}
	g.started = true
	return true
}

func (g *FetchGate) Begin() { g.loading = true }

func (g *FetchGate) End() { g.loading = false }

func (g *FetchGate) Loading() bool { return g.loading }
