// internal/room/view.go
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/realtime"
)

// View is a renderer's mirror of a room, built only from received broadcasts.
// It never mutates the state it receives.
type View struct {
	mu            sync.RWMutex
	state         *RoomState
	strokes       []StrokePayload
	hostConnected bool
}

func NewView() *View {
	return &View{hostConnected: true}
}

// Apply folds one envelope into the view and reports whether anything changed.
// States at or below the current version are ignored, so redeliveries are no-ops.
func (v *View) Apply(env realtime.Envelope) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch env.Type {
	case realtime.KindRoomState:
		var next RoomState
		if err := json.Unmarshal(env.Payload, &next); err != nil {
			return false, err
		}
		if v.state != nil && next.Version <= v.state.Version {
			return false, nil
		}
		if drawerOf(v.state) != drawerOf(&next) {
			v.strokes = nil
		}
		v.state = &next
		return true, nil

	case realtime.KindStrokeBatch:
		var stroke StrokePayload
		if err := env.Decode(&stroke); err != nil {
			return false, err
		}
		if drawer := drawerOf(v.state); drawer == uuid.Nil || stroke.DrawerUserID != drawer {
			return false, nil
		}
		v.strokes = append(v.strokes, stroke)
		return true, nil

	case realtime.KindClearCanvas:
		changed := len(v.strokes) > 0
		v.strokes = nil
		return changed, nil

	case realtime.KindHostStatus:
		var status HostStatusPayload
		if err := env.Decode(&status); err != nil {
			return false, err
		}
		changed := v.hostConnected != status.Connected
		v.hostConnected = status.Connected
		return changed, nil
	}
	// Discrete actions only take effect through the next state broadcast.
	return false, nil
}

// State returns the latest state, or nil before the first broadcast.
func (v *View) State() *RoomState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *View) Strokes() []StrokePayload {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]StrokePayload(nil), v.strokes...)
}

func (v *View) HostConnected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hostConnected
}

// Remaining is the countdown to show at now, zero when no timer runs.
func (v *View) Remaining(now time.Time) time.Duration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state == nil || v.state.Timer == nil {
		return 0
	}
	return v.state.Timer.Remaining(now)
}

// Prompt is what viewer should see of the drawing prompt.
func (v *View) Prompt(viewer uuid.UUID) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state == nil {
		return ""
	}
	p := v.state.Pictionary()
	if p == nil {
		return ""
	}
	if viewer == p.DrawerUserID || v.state.Phase() == PhasePictionaryReveal {
		return p.PromptFull
	}
	return p.PromptMasked
}

// ForViewer tailors a ROOM_STATE envelope to viewer: while a drawing is live,
// only the drawer receives the real prompt. Other envelopes pass unchanged.
func ForViewer(env realtime.Envelope, viewer uuid.UUID) realtime.Envelope {
	if env.Type != realtime.KindRoomState {
		return env
	}
	var s RoomState
	if err := json.Unmarshal(env.Payload, &s); err != nil {
		return env
	}
	p := s.Pictionary()
	if p == nil || s.Phase() == PhasePictionaryReveal || p.DrawerUserID == viewer {
		return env
	}
	p.PromptFull = ""
	raw, err := json.Marshal(s)
	if err != nil {
		return env
	}
	env.Payload = raw
	return env
}

func drawerOf(s *RoomState) uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	if p := s.Pictionary(); p != nil {
		return p.DrawerUserID
	}
	return uuid.Nil
}
