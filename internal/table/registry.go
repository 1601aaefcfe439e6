package table

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"chainjack/internal/chain"
	"chainjack/internal/submit"
)

// Registry indexes instances by game id. It never synchronizes them: each
// instance's memory is private and instances share nothing but the chain
// client.
type Registry struct {
	client  chain.Client
	journal submit.Journal
	opts    Options
	log     zerolog.Logger

	mu        sync.Mutex
	instances map[string]*Instance
	selector  *Selector
}

func NewRegistry(client chain.Client, journal submit.Journal, opts Options, log zerolog.Logger) *Registry {
	return &Registry{
		client:    client,
		journal:   journal,
		opts:      opts,
		log:       log,
		instances: map[string]*Instance{},
		selector:  NewSelector(),
	}
}

func (r *Registry) Selector() *Selector { return r.selector }

// Get returns the running instance for a game id, if any.
func (r *Registry) Get(gameID string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[gameID]
	return inst, ok
}

// Select makes gameID the displayed instance: the previously selected
// instance is stopped (its polling and timers released) and a fresh one is
// started for the new id. Re-selecting the current id is a no-op.
func (r *Registry) Select(ctx context.Context, gameID string) *Instance {
	r.mu.Lock()
	prevID := r.selector.Current()
	if prevID == gameID {
		if inst, ok := r.instances[gameID]; ok {
			r.mu.Unlock()
			return inst
		}
	}
	var prev *Instance
	if prevID != "" {
		prev = r.instances[prevID]
		delete(r.instances, prevID)
	}
	inst := newInstance(gameID, r.client, r.journal, r.opts, r.log)
	r.instances[gameID] = inst
	inst.start(ctx)
	r.mu.Unlock()

	// Stop outside the lock; stop waits for the instance loop to exit.
	if prev != nil {
		prev.stop()
	}
	r.selector.Select(gameID)
	r.log.Info().Str("game_id", gameID).Str("previous", prevID).Msg("game selected")
	return inst
}

// Deselect stops the displayed instance without selecting another.
func (r *Registry) Deselect() {
	r.mu.Lock()
	prevID := r.selector.Current()
	var prev *Instance
	if prevID != "" {
		prev = r.instances[prevID]
		delete(r.instances, prevID)
	}
	r.mu.Unlock()
	if prev != nil {
		prev.stop()
	}
	r.selector.Select("")
}

// Shutdown stops every running instance.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	insts := make([]*Instance, 0, len(r.instances))
	for id, inst := range r.instances {
		insts = append(insts, inst)
		delete(r.instances, id)
	}
	r.mu.Unlock()
	for _, inst := range insts {
		inst.stop()
	}
}
