package connmgr

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/connmgr/pkg/types"
)

func addrN(n uint32) types.PeerAddr {
	return types.PeerAddr{Host: n, Port: 1}
}

func TestRetryQueue_OrdersByNextRetryAscending(t *testing.T) {
	now := time.Now()
	q := &retryQueue{}
	heap.Init(q)

	a := newConnState(addrN(1), types.PeerAddr{}, time.Second, "", nil, now.Add(3*time.Second))
	b := newConnState(addrN(2), types.PeerAddr{}, time.Second, "", nil, now.Add(1*time.Second))
	c := newConnState(addrN(3), types.PeerAddr{}, time.Second, "", nil, now.Add(2*time.Second))

	heap.Push(q, a)
	heap.Push(q, b)
	heap.Push(q, c)

	require.Equal(t, 3, q.Len())
	first := heap.Pop(q).(*connState)
	second := heap.Pop(q).(*connState)
	third := heap.Pop(q).(*connState)

	assert.Equal(t, b.addr, first.addr)
	assert.Equal(t, c.addr, second.addr)
	assert.Equal(t, a.addr, third.addr)
}

func TestRetryQueue_PopMaintainsHeapIndex(t *testing.T) {
	now := time.Now()
	q := &retryQueue{}
	heap.Init(q)

	st := newConnState(addrN(1), types.PeerAddr{}, time.Second, "", nil, now)
	heap.Push(q, st)
	assert.GreaterOrEqual(t, st.heapIndex, 0)

	popped := heap.Pop(q).(*connState)
	assert.Equal(t, -1, popped.heapIndex)
}

func TestRetryQueue_FixReordersAfterDeadlineChange(t *testing.T) {
	now := time.Now()
	q := &retryQueue{}
	heap.Init(q)

	a := newConnState(addrN(1), types.PeerAddr{}, time.Second, "", nil, now.Add(1*time.Second))
	b := newConnState(addrN(2), types.PeerAddr{}, time.Second, "", nil, now.Add(5*time.Second))
	heap.Push(q, a)
	heap.Push(q, b)

	// Move b's deadline earlier than a's and re-heapify.
	b.nextRetry = now.Add(200 * time.Millisecond)
	heap.Fix(q, b.heapIndex)

	top := heap.Pop(q).(*connState)
	assert.Equal(t, b.addr, top.addr)
}
