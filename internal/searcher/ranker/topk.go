package ranker

import (
	"container/heap"
)

// topK keeps the best limit docs seen so far. With limit <= 0 it keeps
// everything.
type topK struct {
	limit int
	h     scoredDocHeap
}

func newTopK(limit int) *topK {
	t := &topK{limit: limit}
	if limit > 0 {
		t.h = make(scoredDocHeap, 0, limit+1)
	}
	return t
}

func (t *topK) offer(doc ScoredDoc) {
	if t.limit <= 0 {
		t.h = append(t.h, doc)
		return
	}
	if t.h.Len() == t.limit && !Less(doc, t.h[0]) {
		return
	}
	heap.Push(&t.h, doc)
	if t.h.Len() > t.limit {
		heap.Pop(&t.h)
	}
}

func (t *topK) sorted() []ScoredDoc {
	if t.limit <= 0 {
		out := []ScoredDoc(t.h)
		if out == nil {
			out = []ScoredDoc{}
		}
		Sort(out)
		return out
	}
	out := make([]ScoredDoc, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(ScoredDoc)
	}
	return out
}

// scoredDocHeap has the worst-ranked doc on top.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Less(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
