// Package movement holds path helpers that look further ahead than a single
// best-cell choice.
package movement

import "apocalypse.sim/internal/sim/grid"

// Moore offsets in x-major order, the same order the grid enumerates.
var steps = []grid.Pos{
	{X: -1, Y: -1}, {X: -1, Y: 0}, {X: -1, Y: 1},
	{X: 0, Y: -1}, {X: 0, Y: 1},
	{X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
}

func distSq(a, b grid.Pos) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// DetourStep searches breadth-first, at most maxDepth moves deep, for a cell
// closer to target than start and returns the first move of the path to it.
// Cells for which open returns false are never entered. Among candidates the
// closest to target wins, then the shallowest, then the earliest first move.
func DetourStep(start, target grid.Pos, maxDepth int, open func(grid.Pos) bool) (grid.Pos, bool) {
	if maxDepth <= 0 || start == target {
		return grid.Pos{}, false
	}

	type node struct {
		p     grid.Pos
		depth int
		first int
	}

	seen := map[grid.Pos]bool{start: true}
	queue := make([]node, 0, 64)
	for i, s := range steps {
		np := start.Add(s)
		if !open(np) {
			continue
		}
		seen[np] = true
		queue = append(queue, node{p: np, depth: 1, first: i})
	}

	startDist := distSq(start, target)
	best := node{first: -1}
	bestDist := startDist

	for head := 0; head < len(queue); head++ {
		n := queue[head]
		if d := distSq(n.p, target); d < bestDist || (d == bestDist && best.first >= 0 && n.depth == best.depth && n.first < best.first) {
			if d < startDist {
				best = n
				bestDist = d
			}
		}
		if n.depth >= maxDepth {
			continue
		}
		for _, s := range steps {
			np := n.p.Add(s)
			if seen[np] || !open(np) {
				continue
			}
			seen[np] = true
			queue = append(queue, node{p: np, depth: n.depth + 1, first: n.first})
		}
	}

	if best.first < 0 {
		return grid.Pos{}, false
	}
	return start.Add(steps[best.first]), true
}
