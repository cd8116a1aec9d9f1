// Package lifecycle releases acquired resources in reverse order of
// acquisition, exactly once, on every exit path.
package lifecycle

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat", "lifecycle")

// ReleaseFunc releases one resource
type ReleaseFunc func() error

type resource struct {
	name    string
	release ReleaseFunc
}

// Scope owns resources acquired during startup. Callers register a release
// function right after each successful acquisition and defer Close.
type Scope struct {
	mu        sync.Mutex
	resources []resource
	closed    bool
	closeErr  error
}

// NewScope returns an empty scope
func NewScope() *Scope {
	return &Scope{}
}

// Add registers a release function. Adding to a closed scope releases the
// resource immediately.
func (s *Scope) Add(name string, release ReleaseFunc) error {
	if release == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		logger.KV(xlog.WARNING, "status", "scope_closed", "resource", name)
		return errors.Wrapf(release(), "release %s", name)
	}
	s.resources = append(s.resources, resource{name: name, release: release})
	s.mu.Unlock()
	return nil
}

// Len returns the number of resources still held
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// Close releases every resource in reverse order of registration. Every
// release function runs even if an earlier one fails; the errors are
// combined. Later calls return the result of the first.
func (s *Scope) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closeErr
	}
	s.closed = true

	var errs []error
	for i := len(s.resources) - 1; i >= 0; i-- {
		r := s.resources[i]
		if err := r.release(); err != nil {
			logger.KV(xlog.ERROR, "status", "release_failed", "resource", r.name, "err", err.Error())
			errs = append(errs, errors.Wrapf(err, "release %s", r.name))
			continue
		}
		logger.KV(xlog.DEBUG, "status", "released", "resource", r.name)
	}
	s.resources = nil
	if len(errs) > 0 {
		s.closeErr = errors.Join(errs...)
	}
	return s.closeErr
}
