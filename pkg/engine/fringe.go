package engine

// fringeItem is one entry of the priority fringe: a node seen but not yet
// visited, ordered by (distance, waitInputs, id) exactly as the original
// ArciDispatch's heap tuple.
type fringeItem struct {
	dist float64
	wait bool
	id   string
}

// fringeHeap implements container/heap.Interface.
type fringeHeap []fringeItem

func (h fringeHeap) Len() int { return len(h) }

func (h fringeHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	if h[i].wait != h[j].wait {
		return !h[i].wait // non-waiting sorts before waiting at equal distance
	}
	return h[i].id < h[j].id
}

func (h fringeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *fringeHeap) Push(x any) { *h = append(*h, x.(fringeItem)) }

func (h *fringeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
