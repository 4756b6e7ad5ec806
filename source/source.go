// Package source describes capture sources (cameras, screens, audio
// devices, windows) without implementing any platform backend: real
// enumerators are an external collaborator registered at process start.
package source

import (
	"context"
	"fmt"
	"sync"
)

// Kind identifies a category of capturable source.
type Kind int

const (
	KindCamera Kind = iota
	KindScreen
	KindAudio
	KindWindow
)

// Descriptor identifies one enumerable capture source.
type Descriptor struct {
	ID      string
	Name    string
	Kind    Kind
	Index   int
	Default bool
}

// Enumerator lists the available sources of a given kind.
type Enumerator interface {
	List(ctx context.Context, kind Kind) ([]Descriptor, error)
}

// ErrEnumerationUnavailable is returned by List when no Enumerator has been
// registered for the requested Kind.
type ErrEnumerationUnavailable struct{ Kind Kind }

func (e *ErrEnumerationUnavailable) Error() string {
	return fmt.Sprintf("source: enumeration unavailable for kind %d", e.Kind)
}

var (
	mu         sync.RWMutex
	registered = map[Kind]Enumerator{}
)

// Register installs the Enumerator backend for a Kind. Platform capture
// backends call this from an init() or explicit setup step; core pipeline
// code never does.
func Register(kind Kind, enumerator Enumerator) {
	mu.Lock()
	defer mu.Unlock()
	registered[kind] = enumerator
}

// List enumerates sources of the given kind using whichever Enumerator is
// currently registered, or returns ErrEnumerationUnavailable.
func List(ctx context.Context, kind Kind) ([]Descriptor, error) {
	mu.RLock()
	e, ok := registered[kind]
	mu.RUnlock()
	if !ok {
		return nil, &ErrEnumerationUnavailable{Kind: kind}
	}
	return e.List(ctx, kind)
}
