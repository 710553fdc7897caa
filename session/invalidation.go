package session

import "github.com/R3E-Network/widget_layer/platform/bus"

// subscribeInvalidation attaches the session to the cross-context identity
// acknowledgment topic. An inbound acknowledgment means another context
// changed the identity; the session re-resolves and, once settled,
// publishes onInvalidate with the refreshed data so dependent widgets can
// react.
//
// The subscription handle is stored on the session; a second call is a
// no-op, so repeated construction paths cannot stack duplicate
// subscriptions.
func (s *Session) subscribeInvalidation() {
	s.mu.Lock()
	if s.ackSub != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	sub := s.bus.Subscribe(bus.TopicIdentityAck, func(bus.Event) {
		s.refresh(func(d Data, err error) {
			if err != nil {
				s.log.Error("session: invalidation re-resolve failed", "error", err)
				return
			}
			s.bus.Publish(bus.TopicSessionInvalidate, s.channelID, d)
		})
	})

	s.mu.Lock()
	s.ackSub = sub
	s.mu.Unlock()
}
