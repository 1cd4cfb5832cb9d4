package store

import "sync"

// notifier delivers snapshots to a single subscriber in order without ever
// blocking the writer. Pushes append to an unbounded queue; a dedicated
// goroutine drains it and invokes fn, so a slow consumer cannot deadlock a
// store mutation that holds the store lock.
type notifier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   [][]Document
	stopped bool
}

func newNotifier(fn func([]Document)) *notifier {
	n := &notifier{}
	n.cond = sync.NewCond(&n.mu)
	go n.run(fn)
	return n
}

func (n *notifier) push(docs []Document) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return
	}
	n.queue = append(n.queue, docs)
	n.cond.Signal()
}

func (n *notifier) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	n.cond.Signal()
}

func (n *notifier) run(fn func([]Document)) {
	for {
		n.mu.Lock()
		for len(n.queue) == 0 && !n.stopped {
			n.cond.Wait()
		}
		if n.stopped && len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		docs := n.queue[0]
		n.queue = n.queue[1:]
		n.mu.Unlock()

		fn(docs)
	}
}
