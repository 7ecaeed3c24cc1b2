package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubHandle struct{ done bool }

func (h stubHandle) Finished() bool { return h.done }

func TestStateOf(t *testing.T) {
	tests := []struct {
		name   string
		handle Handle
		want   State
	}{
		{"no handle", nil, StateIdle},
		{"finished", stubHandle{done: true}, StateIdle},
		{"running", stubHandle{done: false}, StatePlaying},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StateOf(tt.handle)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, "unknown", got.String())
		})
	}
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "track_started", EventTrackStarted.String())
	assert.Equal(t, "track_failed", EventTrackFailed.String())
	assert.Equal(t, "track_skipped", EventTrackSkipped.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
