package model

import (
	"fmt"
	"iter"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/wnxd/xamldbg/debugger"
	"github.com/wnxd/xamldbg/host"
)

// Thread is a target thread that carries a framework core instance.
type Thread struct {
	t *Target
	host.Thread
	Core debugger.TypedAddress
}

// Threads lists the threads whose core TLS slot is populated.
func Threads(t *Target) ([]*Thread, error) {
	all, err := t.Dbg.Threads()
	if err != nil {
		return nil, err
	}
	var threads []*Thread
	for _, th := range all {
		xt, err := NewThread(t, th)
		if err != nil {
			if errors.Is(err, debugger.ErrSymbolUnavailable) {
				return nil, err
			}
			log.WithError(err).WithField("thread", th.ID()).Debug("no framework core")
			continue
		}
		if xt != nil {
			threads = append(threads, xt)
		}
	}
	return threads, nil
}

// NewThread returns nil without error when the thread has no core.
func NewThread(t *Target, th host.Thread) (*Thread, error) {
	core, err := t.TLSValue(th, "core")
	if err != nil {
		return nil, err
	}
	if core.IsNil() {
		return nil, nil
	}
	ta, err := t.Typed(core.Address(), "DXamlCore")
	if err != nil {
		return nil, err
	}
	return &Thread{t: t, Thread: th, Core: ta}, nil
}

func (th *Thread) CoreServices() (debugger.TypedAddress, error) {
	return th.Core.Follow("CoreServices", "CCoreServices")
}

func (th *Thread) ContentRoots() ([]*ContentRoot, error) {
	cs, err := th.CoreServices()
	if err != nil {
		return nil, err
	}
	coordinator, err := cs.Follow("ContentRootCoordinator", "CContentRootCoordinator")
	if err != nil || coordinator.IsNil() {
		return nil, err
	}
	items, err := th.t.Vector(coordinator, "Roots")
	if err != nil {
		return nil, err
	}
	roots := make([]*ContentRoot, 0, len(items))
	for _, item := range items {
		root, err := NewContentRoot(th.t, item.Address())
		if err != nil {
			return roots, err
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func (th *Thread) Islands() (*IslandCollection, error) {
	cs, err := th.CoreServices()
	if err != nil {
		return nil, err
	}
	islands, err := cs.Follow("Islands", "xvector")
	if err != nil {
		return nil, err
	}
	if islands.IsNil() {
		return &IslandCollection{}, nil
	}
	return NewIslandCollection(th.t, islands)
}

func (th *Thread) ErrorContexts() iter.Seq[*ErrorContext] {
	return ThreadErrorContexts(th.t, th.Thread)
}

func (th *Thread) WarningContexts() iter.Seq[*WarningContext] {
	return ThreadWarningContexts(th.t, th.Thread)
}

// ThreadErrorContexts walks the error context list of any thread, whether or
// not it carries a core.
func ThreadErrorContexts(t *Target, th host.Thread) iter.Seq[*ErrorContext] {
	return func(yield func(*ErrorContext) bool) {
		head, err := t.TLSValue(th, "errorContext")
		if err != nil {
			log.WithError(err).Debug("error context unavailable")
			return
		}
		for c := range ErrorContexts(t, head) {
			if !yield(c) {
				return
			}
		}
	}
}

func ThreadWarningContexts(t *Target, th host.Thread) iter.Seq[*WarningContext] {
	return func(yield func(*WarningContext) bool) {
		head, err := t.TLSValue(th, "warningContext")
		if err != nil {
			log.WithError(err).Debug("warning context unavailable")
			return
		}
		for c := range WarningContexts(t, head) {
			if !yield(c) {
				return
			}
		}
	}
}

func (th *Thread) String() string {
	return fmt.Sprintf("thread %d core=%#x", th.ID(), th.Core.Addr)
}
