// Package memory provides an in-process TranscriptionProvider for local
// development and tests. Jobs complete when a result is scripted via
// SetResult, never on their own.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/forgemedia/portal/internal/portal"
)

type job struct {
	sourceURL   string
	callbackURL string
	result      *portal.PollResult
}

// Provider is a scripted TranscriptionProvider. Safe for concurrent use.
type Provider struct {
	mu   sync.Mutex
	next int
	jobs map[string]*job
	fail bool
}

// New returns an empty Provider.
func New() *Provider {
	return &Provider{jobs: make(map[string]*job)}
}

// FailNext makes subsequent Start and Poll calls return
// ErrProviderUnavailable until cleared.
func (p *Provider) FailNext(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

// Start registers a job and returns a synthetic handle.
func (p *Provider) Start(_ context.Context, sourceURL, callbackURL string) (portal.StartResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return portal.StartResult{}, fmt.Errorf("%w: scripted failure", portal.ErrProviderUnavailable)
	}
	p.next++
	handle := fmt.Sprintf("ext-%d", p.next)
	p.jobs[handle] = &job{sourceURL: sourceURL, callbackURL: callbackURL}
	return portal.StartResult{Handle: handle}, nil
}

// Poll reports the scripted result for a handle, or in_progress if none has
// been set yet.
func (p *Provider) Poll(_ context.Context, handle string) (portal.PollResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return portal.PollResult{}, fmt.Errorf("%w: scripted failure", portal.ErrProviderUnavailable)
	}
	j, ok := p.jobs[handle]
	if !ok {
		return portal.PollResult{}, fmt.Errorf("%w: unknown handle %q", portal.ErrProviderUnavailable, handle)
	}
	if j.result == nil {
		return portal.PollResult{Status: portal.ProviderInProgress}, nil
	}
	return *j.result, nil
}

// SetResult scripts the poll result for a handle.
func (p *Provider) SetResult(handle string, res portal.PollResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if j, ok := p.jobs[handle]; ok {
		j.result = &res
	}
}

// CallbackURL returns the callback URL recorded at Start, for tests that
// simulate the provider's completion POST.
func (p *Provider) CallbackURL(handle string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if j, ok := p.jobs[handle]; ok {
		return j.callbackURL
	}
	return ""
}
