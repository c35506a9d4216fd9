package pdoflow

import (
	"container/list"

	"github.com/google/uuid"
)

// failureCache is the bounded, in-memory posting_id -> set<job_id>
// mapping described in spec.md §4.3/§9: strictly private to one
// Worker, never shared across processes. It is bounded by an LRU over
// postings (postingCap) and, within each posting, an LRU over job ids
// (jobCap), which in practice also reclaims the memory of postings
// that reached a terminal status, since a Worker has no independent
// channel to be told "this posting finished" other than no longer
// seeing its units in Claim results.
type failureCache struct {
	postingCap int
	jobCap     int

	order   *list.List // most-recently-used posting at the front
	entries map[uuid.UUID]*failureCacheEntry
}

type failureCacheEntry struct {
	elem  *list.Element
	order *list.List // most-recently-used job id at the front
	jobs  map[uuid.UUID]*list.Element
}

func newFailureCache(postingCap, jobCap int) *failureCache {
	return &failureCache{
		postingCap: postingCap,
		jobCap:     jobCap,
		order:      list.New(),
		entries:    make(map[uuid.UUID]*failureCacheEntry),
	}
}

func (c *failureCache) touch(postingId uuid.UUID) *failureCacheEntry {
	if e, ok := c.entries[postingId]; ok {
		c.order.MoveToFront(e.elem)
		return e
	}
	e := &failureCacheEntry{
		order: list.New(),
		jobs:  make(map[uuid.UUID]*list.Element),
	}
	e.elem = c.order.PushFront(postingId)
	c.entries[postingId] = e
	for c.order.Len() > c.postingCap {
		back := c.order.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(uuid.UUID)
		if evicted == postingId {
			break
		}
		c.order.Remove(back)
		delete(c.entries, evicted)
	}
	return e
}

// add records that jobId (owned by postingId) failed in this process.
func (c *failureCache) add(postingId, jobId uuid.UUID) {
	e := c.touch(postingId)
	if elem, ok := e.jobs[jobId]; ok {
		e.order.MoveToFront(elem)
		return
	}
	elem := e.order.PushFront(jobId)
	e.jobs[jobId] = elem
	for e.order.Len() > c.jobCap {
		back := e.order.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(uuid.UUID)
		if evicted == jobId {
			break
		}
		e.order.Remove(back)
		delete(e.jobs, evicted)
	}
}

// seen reports whether jobId was previously recorded as failed for
// postingId, without affecting LRU order (a read should not keep an
// entry alive forever on its own).
func (c *failureCache) seen(postingId, jobId uuid.UUID) bool {
	e, ok := c.entries[postingId]
	if !ok {
		return false
	}
	_, ok = e.jobs[jobId]
	return ok
}
