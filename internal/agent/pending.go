// ABOUTME: Tracks in-flight gateway requests and settles each exactly once.
// ABOUTME: Routes response frames by correlation id and expires requests on timeout.

package agent

import (
	"encoding/json"
	"sync"
	"time"
)

// outcome is the settled result of a single request.
type outcome struct {
	result json.RawMessage
	err    error
}

// pendingRequest is one in-flight call awaiting its response frame.
type pendingRequest struct {
	method string
	timer  stopper
	done   chan outcome
}

// pendingSet maps correlation ids to in-flight requests.
// Every settle path removes the entry under mu, so a request settles at most once.
type pendingSet struct {
	mu        sync.Mutex
	requests  map[string]*pendingRequest
	afterFunc afterFunc
}

func newPendingSet(af afterFunc) *pendingSet {
	return &pendingSet{
		requests:  make(map[string]*pendingRequest),
		afterFunc: af,
	}
}

// add registers a request and arms its timeout. The returned channel receives
// exactly one outcome.
func (p *pendingSet) add(id, method string, timeout time.Duration) <-chan outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	req := &pendingRequest{
		method: method,
		done:   make(chan outcome, 1),
	}
	p.requests[id] = req
	req.timer = p.afterFunc(timeout, func() {
		p.expire(id)
	})
	return req.done
}

// take removes and returns the entry for id, stopping its timer first.
func (p *pendingSet) take(id string) (*pendingRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests[id]
	if !ok {
		return nil, false
	}
	req.timer.Stop()
	delete(p.requests, id)
	return req, true
}

// resolve settles the request matching a response frame.
// Returns false when no request with that id is pending (late or unknown response).
func (p *pendingSet) resolve(frame *inboundFrame) bool {
	req, ok := p.take(frame.ID)
	if !ok {
		return false
	}
	if !frame.OK {
		req.done <- outcome{err: remoteErrorFrom(req.method, frame.Error)}
		return true
	}
	req.done <- outcome{result: frame.Result}
	return true
}

// fail settles one request with err. Returns false if it was already settled.
func (p *pendingSet) fail(id string, err error) bool {
	req, ok := p.take(id)
	if !ok {
		return false
	}
	req.done <- outcome{err: err}
	return true
}

// expire is the timeout path.
func (p *pendingSet) expire(id string) {
	p.mu.Lock()
	req, ok := p.requests[id]
	if ok {
		delete(p.requests, id)
	}
	p.mu.Unlock()

	if ok {
		req.done <- outcome{err: &TimeoutError{Method: req.method}}
	}
}

// failAll settles every in-flight request with err.
func (p *pendingSet) failAll(err error) int {
	p.mu.Lock()
	reqs := p.requests
	p.requests = make(map[string]*pendingRequest)
	for _, req := range reqs {
		req.timer.Stop()
	}
	p.mu.Unlock()

	for _, req := range reqs {
		req.done <- outcome{err: err}
	}
	return len(reqs)
}

// len reports the number of in-flight requests.
func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}
