// internal/room/presence.go
package room

import (
	"github.com/google/uuid"
	"github.com/rodrigobarba653/babygame/internal/realtime"
)

// applySync reconciles the roster with a full presence snapshot. Known players
// keep their points and join time; only name and relationship are refreshed.
// Players missing from the snapshot stay until their leave grace runs out.
func (c *Coordinator) applySync(snapshot []realtime.Presence) {
	inSnapshot := make(map[uuid.UUID]realtime.Presence, len(snapshot))
	for _, p := range snapshot {
		inSnapshot[p.UserID] = p
	}

	roster := make([]Player, 0, len(snapshot)+len(c.state.Players))
	for _, existing := range c.state.Players {
		if p, ok := inSnapshot[existing.UserID]; ok {
			existing.Name = p.Name
			existing.Relationship = p.Relationship
			c.cancel(leaveSlot(existing.UserID))
		} else if !c.pending(leaveSlot(existing.UserID)) {
			c.scheduleRemoval(existing.UserID)
		}
		roster = append(roster, existing)
	}
	for _, p := range snapshot {
		if _, known := c.state.Player(p.UserID); known {
			continue
		}
		roster = append(roster, c.admit(p))
	}

	c.present = make(map[uuid.UUID]bool, len(snapshot))
	for id := range inSnapshot {
		c.present[id] = true
	}
	c.state.Players = roster

	if c.present[c.state.HostID] {
		c.cancel(slotHost)
		if c.hostAway {
			c.hostAway = false
			c.logger.Info("host reconnected")
			c.emit(realtime.KindHostStatus, HostStatusPayload{Connected: true})
		}
	}

	c.publish()
	c.checkAllGuessed()
}

// admit builds the roster entry of a newcomer, restoring the score of a
// player who left earlier and came back.
func (c *Coordinator) admit(p realtime.Presence) Player {
	if prev, ok := c.retired[p.UserID]; ok {
		delete(c.retired, p.UserID)
		prev.Name = p.Name
		prev.Relationship = p.Relationship
		return prev
	}
	joinedAt := p.JoinedAt
	if joinedAt == 0 {
		joinedAt = c.now().UnixMilli()
	}
	return Player{
		UserID:       p.UserID,
		Name:         p.Name,
		Relationship: p.Relationship,
		Points:       max(0, p.Points),
		JoinedAt:     joinedAt,
	}
}

func (c *Coordinator) applyLeave(userID uuid.UUID) {
	delete(c.present, userID)
	if userID == c.state.HostID {
		c.schedule(slotHost, c.settings.PresenceGrace, c.declareHostAway)
		return
	}
	if _, ok := c.state.Player(userID); ok {
		c.scheduleRemoval(userID)
	}
}

func (c *Coordinator) scheduleRemoval(userID uuid.UUID) {
	if userID == c.state.HostID {
		return
	}
	c.schedule(leaveSlot(userID), c.settings.PresenceGrace, func() {
		c.removePlayer(userID)
	})
}

func (c *Coordinator) declareHostAway() {
	if c.present[c.state.HostID] || c.hostAway {
		return
	}
	c.hostAway = true
	c.logger.Warn("host disconnected")
	c.emit(realtime.KindHostStatus, HostStatusPayload{Connected: false})
}

// removePlayer drops a player confirmed gone, keeping the score aside in case
// they come back.
func (c *Coordinator) removePlayer(userID uuid.UUID) {
	if c.present[userID] {
		return
	}
	for i, p := range c.state.Players {
		if p.UserID != userID {
			continue
		}
		c.retired[userID] = p
		c.state.Players = append(c.state.Players[:i:i], c.state.Players[i+1:]...)
		c.logger.WithField("user", userID).Info("player left")
		c.publish()
		c.checkAllGuessed()
		c.checkDrawerGone()
		return
	}
}
