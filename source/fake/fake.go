// Package fake provides a deterministic, in-process source.Enumerator used
// by tests and the example cmd/ binaries, standing in for a real platform
// capture backend.
package fake

import (
	"context"
	"fmt"

	"github.com/mycrl/mirror/source"
)

// Enumerator returns a fixed, deterministic set of descriptors per kind.
type Enumerator struct{}

func (Enumerator) List(_ context.Context, kind source.Kind) ([]source.Descriptor, error) {
	switch kind {
	case source.KindScreen:
		return []source.Descriptor{{ID: "screen-0", Name: "Primary Display", Kind: kind, Index: 0, Default: true}}, nil
	case source.KindCamera:
		return []source.Descriptor{{ID: "camera-0", Name: "Fake Camera", Kind: kind, Index: 0, Default: true}}, nil
	case source.KindAudio:
		return []source.Descriptor{{ID: "audio-0", Name: "Fake Microphone", Kind: kind, Index: 0, Default: true}}, nil
	case source.KindWindow:
		return []source.Descriptor{{ID: "window-0", Name: "Fake Window", Kind: kind, Index: 0, Default: true}}, nil
	default:
		return nil, fmt.Errorf("fake: unknown kind %d", kind)
	}
}

// Register installs Enumerator for every source.Kind; call from a cmd/
// binary or test's setup to exercise the pipeline without real hardware.
func Register() {
	source.Register(source.KindScreen, Enumerator{})
	source.Register(source.KindCamera, Enumerator{})
	source.Register(source.KindAudio, Enumerator{})
	source.Register(source.KindWindow, Enumerator{})
}
