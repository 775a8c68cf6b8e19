package game

import (
	"container/heap"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

// MovePathBudget bounds the search for player move requests.
const MovePathBudget = 40

type pathNode struct {
	point  model.Point
	g      int
	f      int
	seq    int
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

// Less orders by f, then by insertion so equal-f nodes pop first-in first-out.
func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath runs A* over the world's 4-connected walkable tiles. It returns
// the cells after start up to and including goal, or nil when the goal is not
// walkable or cannot be reached before the accumulated cost meets maxSteps.
func FindPath(w *World, start, goal model.Point, maxSteps int) []model.Point {
	if !w.Walkable(goal.X, goal.Y) {
		return nil
	}
	seq := 0
	open := &pathQueue{}
	heap.Push(open, &pathNode{point: start, f: heuristic(start, goal)})
	best := map[model.Point]int{start: 0}

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if current.point == goal {
			return reconstructPath(current)
		}
		if current.g > best[current.point] {
			continue // stale entry
		}
		if current.g >= maxSteps {
			continue
		}
		for _, next := range w.Neighbors(current.point.X, current.point.Y) {
			g := current.g + 1
			if prev, ok := best[next]; ok && g >= prev {
				continue
			}
			best[next] = g
			seq++
			heap.Push(open, &pathNode{
				point:  next,
				g:      g,
				f:      g + heuristic(next, goal),
				seq:    seq,
				parent: current,
			})
		}
	}
	return nil
}

func heuristic(a, b model.Point) int {
	return model.Manhattan(a.X, a.Y, b.X, b.Y)
}

// reconstructPath walks parents back to the start, which it omits.
func reconstructPath(end *pathNode) []model.Point {
	var path []model.Point
	for node := end; node.parent != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}
