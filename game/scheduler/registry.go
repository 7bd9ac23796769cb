package scheduler

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/wricardo/grid-shooter/game/service"
)

// ErrLoopNotRunning is returned when no loop is running for a session
var ErrLoopNotRunning = errors.New("clock not running")

type running struct {
	loop   *Loop
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry runs at most one loop per session
type Registry struct {
	svc   Service
	loops map[string]*running
	mu    sync.Mutex
}

// NewRegistry creates an empty registry for the service
func NewRegistry(svc Service) *Registry {
	return &Registry{
		svc:   svc,
		loops: make(map[string]*running),
	}
}

// Start launches a loop for the session unless one is already running.
// It returns the running loop either way.
func (r *Registry) Start(sessionID string, onChange func(*service.ActionResult)) *Loop {
	key := strings.ToLower(sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if rn, ok := r.loops[key]; ok {
		return rn.loop
	}

	ctx, cancel := context.WithCancel(context.Background())
	rn := &running{
		loop:   NewLoop(r.svc, sessionID, onChange),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.loops[key] = rn

	go func() {
		defer close(rn.done)
		if err := rn.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Clock for session %s stopped: %v", sessionID, err)
		}
		r.mu.Lock()
		if r.loops[key] == rn {
			delete(r.loops, key)
		}
		r.mu.Unlock()
	}()

	log.Printf("Clock started for session %s", sessionID)
	return rn.loop
}

// Get returns the running loop for the session
func (r *Registry) Get(sessionID string) (*Loop, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.loops[strings.ToLower(sessionID)]
	if !ok {
		return nil, false
	}
	return rn.loop, true
}

// Running reports whether a loop is running for the session
func (r *Registry) Running(sessionID string) bool {
	_, ok := r.Get(sessionID)
	return ok
}

// Stop cancels the session's loop and waits for it to exit
func (r *Registry) Stop(sessionID string) error {
	r.mu.Lock()
	rn, ok := r.loops[strings.ToLower(sessionID)]
	r.mu.Unlock()
	if !ok {
		return ErrLoopNotRunning
	}

	rn.cancel()
	<-rn.done
	log.Printf("Clock stopped for session %s", sessionID)
	return nil
}

// StopAll cancels every running loop
func (r *Registry) StopAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.loops))
	for id := range r.loops {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(id)
	}
}
