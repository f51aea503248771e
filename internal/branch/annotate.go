package branch

// Annotate returns a copy of nodes with the connector flags set. Nested
// preview lists are annotated as sequences of their own. Nothing else is
// changed and the input is left untouched.
//
//   - IsTerminal: the last node is terminal. A collapsed fork is terminal
//     unless a later node sits on the main line (no color) at its depth. Any
//     other node is terminal unless the next node shares its depth and color.
//   - HasPrevContext / HasNextContext: some earlier / later node, adjacent or
//     not, shares the node's depth and color.
func Annotate(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)

	seen := make(map[contextKey]bool)
	for i := range out {
		k := out[i].context()
		out[i].HasPrevContext = seen[k]
		seen[k] = true

		if out[i].Fork != nil && len(out[i].Fork.Nested) > 0 {
			f := *out[i].Fork
			f.Nested = Annotate(f.Nested)
			out[i].Fork = &f
		}
	}

	seen = make(map[contextKey]bool)
	mainLater := make(map[int]bool) // depths with a later main-line node
	for i := len(out) - 1; i >= 0; i-- {
		n := &out[i]
		k := n.context()
		n.HasNextContext = seen[k]

		switch {
		case i == len(out)-1:
			n.IsTerminal = true
		case n.IsCollapsedFork():
			n.IsTerminal = !mainLater[n.Depth]
		default:
			n.IsTerminal = out[i+1].context() != k
		}

		seen[k] = true
		if n.Color == nil {
			mainLater[n.Depth] = true
		}
	}
	return out
}
