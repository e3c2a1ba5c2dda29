//
// Copyright (C) 2026 The toolmesh authors. All rights reserved.
//
// toolmesh is licensed under the Apache License Version 2.0.
//
//

package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/toolmesh/toolmesh/log"
	"github.com/toolmesh/toolmesh/registry"
)

// Factory constructs a fresh workflow instance from a source. Hot-reload
// tears the old instance down and calls the factory again; instances are
// never patched in place.
type Factory func() (Workflow, error)

// ModuleStat records the outcome of loading one source.
type ModuleStat struct {
	Source   string        `json:"source"`
	Name     string        `json:"name,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LoadStats aggregates module load outcomes. One module's failure never
// prevents the others from loading; it is recorded here instead.
type LoadStats struct {
	Loaded  int          `json:"loaded"`
	Failed  int          `json:"failed"`
	Modules []ModuleStat `json:"modules"`
}

type moduleState struct {
	workflow Workflow
	binding  *Binding
}

// Loader owns workflow lifecycles. Sources are keyed by a stable identifier;
// each source has a factory and at most one live instance whose registrations
// the loader tracks through the instance's Binding.
type Loader struct {
	reg      *registry.Registry
	poolSize int

	mu        sync.Mutex
	factories map[string]Factory
	order     []string
	active    map[string]*moduleState
	locks     map[string]*sync.Mutex
	stats     LoadStats
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPoolSize bounds the worker pool used by LoadAll. Default is 4.
func WithPoolSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.poolSize = n
		}
	}
}

// NewLoader creates a Loader that populates reg.
func NewLoader(reg *registry.Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		reg:       reg,
		poolSize:  4,
		factories: make(map[string]Factory),
		active:    make(map[string]*moduleState),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterSource registers a factory under a stable source identifier.
// Re-registering a source replaces its factory; the live instance, if any,
// is untouched until the next Reload.
func (l *Loader) RegisterSource(sourceID string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.factories[sourceID]; !ok {
		l.order = append(l.order, sourceID)
	}
	l.factories[sourceID] = f
}

// HasSource reports whether a source identifier is registered.
func (l *Loader) HasSource(sourceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.factories[sourceID]
	return ok
}

// sourceLock returns the mutex serializing lifecycle operations for one
// source, so two overlapping reloads of the same module cannot interleave.
func (l *Loader) sourceLock(sourceID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[sourceID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sourceID] = lock
	}
	return lock
}

// LoadAll loads every registered source through a bounded worker pool and
// returns the aggregated stats. Already loaded sources are left alone.
func (l *Loader) LoadAll(ctx context.Context) LoadStats {
	l.mu.Lock()
	l.stats = LoadStats{}
	sources := make([]string, len(l.order))
	copy(sources, l.order)
	l.mu.Unlock()

	pool, err := ants.NewPool(l.poolSize)
	if err != nil {
		// Fall back to sequential loading; correctness does not depend on the pool.
		log.Warnf("loader: worker pool unavailable, loading sequentially: %v", err)
		for _, sourceID := range sources {
			_ = l.Load(ctx, sourceID)
		}
		return l.Stats()
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, sourceID := range sources {
		sourceID := sourceID
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			_ = l.Load(ctx, sourceID)
		}); err != nil {
			wg.Done()
			_ = l.Load(ctx, sourceID)
		}
	}
	wg.Wait()

	stats := l.Stats()
	log.Infof("workflows loaded: %d (failed: %d)", stats.Loaded, stats.Failed)
	return stats
}

// Load constructs and initializes the source's workflow if it is not already
// active.
func (l *Loader) Load(ctx context.Context, sourceID string) error {
	lock := l.sourceLock(sourceID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	factory, ok := l.factories[sourceID]
	_, alreadyActive := l.active[sourceID]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown workflow source %q", sourceID)
	}
	if alreadyActive {
		return nil
	}

	wf, err := factory()
	if err != nil {
		l.recordFailure(sourceID, "", 0, err)
		return fmt.Errorf("construct workflow %q: %w", sourceID, err)
	}
	return l.initInstance(ctx, sourceID, wf)
}

// initInstance runs Init on a freshly constructed instance and activates it.
// Callers must hold the source lock.
func (l *Loader) initInstance(ctx context.Context, sourceID string, wf Workflow) error {
	if sw, ok := wf.(Switchable); ok && !sw.Enabled() {
		log.Infof("workflow %q is disabled, skipping", wf.Name())
		return nil
	}

	binding := newBinding(wf.Name(), l.reg)
	start := time.Now()
	err := safeInit(ctx, wf, binding)
	duration := time.Since(start)

	if err != nil {
		// Remove whatever the failed Init managed to register.
		binding.teardown()
		l.recordFailure(sourceID, wf.Name(), duration, err)
		log.Errorf("workflow %q failed to load: %v", wf.Name(), err)
		return &registry.Error{Kind: registry.ErrModuleLoadFailure, Message: err.Error()}
	}

	l.mu.Lock()
	l.active[sourceID] = &moduleState{workflow: wf, binding: binding}
	l.stats.Loaded++
	l.stats.Modules = append(l.stats.Modules, ModuleStat{Source: sourceID, Name: wf.Name(), Duration: duration})
	l.mu.Unlock()

	log.Infof("workflow %q loaded in %s (%d tools)", wf.Name(), duration, len(binding.OwnedTools()))
	return nil
}

// safeInit isolates a panicking Init the same way an erroring one is.
func safeInit(ctx context.Context, wf Workflow, b *Binding) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("init panicked: %v", rec)
		}
	}()
	return wf.Init(ctx, b)
}

// Reload tears down the live instance, removes every name it owned and
// initializes a fresh instance from the (possibly changed) factory. The
// teardown and re-registration run under the source lock, so no registry
// read observes the half-reloaded module.
func (l *Loader) Reload(ctx context.Context, sourceID string) error {
	lock := l.sourceLock(sourceID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	factory, ok := l.factories[sourceID]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("unknown workflow source %q", sourceID)
	}
	state := l.active[sourceID]
	delete(l.active, sourceID)
	l.mu.Unlock()

	if state != nil {
		l.teardownState(ctx, state)
	}

	wf, err := factory()
	if err != nil {
		l.recordFailure(sourceID, "", 0, err)
		return fmt.Errorf("construct workflow %q: %w", sourceID, err)
	}
	return l.initInstance(ctx, sourceID, wf)
}

// Unload tears down the source's live instance and removes its registrations.
func (l *Loader) Unload(ctx context.Context, sourceID string) error {
	lock := l.sourceLock(sourceID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	state := l.active[sourceID]
	delete(l.active, sourceID)
	l.mu.Unlock()
	if state == nil {
		return nil
	}

	l.teardownState(ctx, state)
	log.Infof("workflow %q unloaded", state.workflow.Name())
	return nil
}

func (l *Loader) teardownState(ctx context.Context, state *moduleState) {
	if err := safeCleanup(ctx, state.workflow); err != nil {
		log.Errorf("workflow %q cleanup failed: %v", state.workflow.Name(), err)
	}
	state.binding.teardown()
}

func safeCleanup(ctx context.Context, wf Workflow) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("cleanup panicked: %v", rec)
		}
	}()
	return wf.Cleanup(ctx)
}

func (l *Loader) recordFailure(sourceID, name string, duration time.Duration, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.Failed++
	l.stats.Modules = append(l.stats.Modules, ModuleStat{Source: sourceID, Name: name, Duration: duration, Err: err})
}

// Stats returns a copy of the load statistics accumulated since the last
// LoadAll.
func (l *Loader) Stats() LoadStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := l.stats
	stats.Modules = make([]ModuleStat, len(l.stats.Modules))
	copy(stats.Modules, l.stats.Modules)
	return stats
}

// Active returns the live workflows sorted by descending priority.
func (l *Loader) Active() []Workflow {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Workflow, 0, len(l.active))
	for _, state := range l.active {
		out = append(out, state.workflow)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() > out[j].Priority() })
	return out
}

// Infos lists the live workflows for status endpoints.
func (l *Loader) Infos() []Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Info, 0, len(l.active))
	for _, state := range l.active {
		enabled := true
		if sw, ok := state.workflow.(Switchable); ok {
			enabled = sw.Enabled()
		}
		out = append(out, Info{
			Name:        state.workflow.Name(),
			Description: state.workflow.Description(),
			Priority:    state.workflow.Priority(),
			Enabled:     enabled,
			ToolCount:   len(state.binding.OwnedTools()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// findByName locates an active module by workflow name.
func (l *Loader) findByName(name string) (string, *moduleState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sourceID, state := range l.active {
		if state.workflow.Name() == name {
			return sourceID, state
		}
	}
	return "", nil
}
