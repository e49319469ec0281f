package dialer

// Store owns the session and call collections.
//
// It deliberately carries no lock of its own: every access runs inside the
// Engine's serialization mutex, which is what makes the slot-count and
// single-winner invariants enforceable. Construct one per Engine and do not
// share it.
type Store struct {
	sessions map[string]*Session
	calls    map[string]*Call
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		calls:    make(map[string]*Call),
	}
}

func (s *Store) putSession(sess *Session) { s.sessions[sess.ID] = sess }

func (s *Store) session(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Store) putCall(c *Call) { s.calls[c.ID] = c }

func (s *Store) call(id string) (*Call, bool) {
	c, ok := s.calls[id]
	return c, ok
}

func (s *Store) sessionsByAgent(agentID string) []*Session {
	var out []*Session
	for _, sess := range s.sessions {
		if sess.AgentID == agentID {
			out = append(out, sess)
		}
	}
	return out
}
