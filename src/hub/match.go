package hub

import "github.com/trendlab/pulse/src/types"

// relevant encodes the per-event-type matching rules. It is a pure function
// of the event and a connection's identity and interest set.
//
// An event matching zero connections is normal: it is still cached for
// reconnecting clients, just not transmitted.
func relevant(ev types.Event, userID string, interests map[string]struct{}) bool {
	has := func(topic string) bool {
		_, ok := interests[topic]
		return ok
	}

	switch ev.Type {
	case types.EventArchetypeUpdate:
		return (ev.TopicID != "" && has(ev.TopicID)) || has(types.TopicAllArchetypes)
	case types.EventTrendUpdate:
		return has(types.TopicTrends) || has(types.TopicAllUpdates)
	case types.EventUserActivity:
		return (userID != "" && userID == ev.UserID) || has(types.TopicUserActivity)
	case types.EventModerationAction:
		return has(types.TopicModeration) || has(types.TopicAdminUpdates)
	case types.EventSystemMetric:
		return has(types.TopicSystemMetrics)
	default:
		return false
	}
}

// matchTargets returns the clients whose current subscriptions make them
// recipients of ev. The registry lock is held only while collecting; sends
// happen outside it.
func (h *Hub) matchTargets(ev types.Event) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets []*Client
	for _, c := range h.conns {
		if c.matches(ev) {
			targets = append(targets, c)
		}
	}
	return targets
}
