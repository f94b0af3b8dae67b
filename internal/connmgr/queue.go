package connmgr

import "container/heap"

// retryQueue is a min-heap of pending connState records ordered by
// nextRetry ascending. Push/Pop/Swap all keep each record's heapIndex in
// sync so the owning Manager can heap.Fix or heap.Remove an arbitrary
// entry, not just the root.
type retryQueue []*connState

var _ heap.Interface = (*retryQueue)(nil)

func (q retryQueue) Len() int { return len(q) }

func (q retryQueue) Less(i, j int) bool {
	return q[i].nextRetry.Before(q[j].nextRetry)
}

func (q retryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *retryQueue) Push(x any) {
	st := x.(*connState)
	st.heapIndex = len(*q)
	*q = append(*q, st)
}

func (q *retryQueue) Pop() any {
	old := *q
	n := len(old)
	st := old[n-1]
	old[n-1] = nil
	st.heapIndex = -1
	*q = old[:n-1]
	return st
}
