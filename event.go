package fsm

// EventSpec declares one from/to variant of an event.
//
// An empty From, or a From containing WildcardState, makes the variant legal
// from any state. An empty To makes it a no-op: hooks run but the state does
// not change. Several specs may share a Name; together they form one event.
type EventSpec struct {
	Name EventID
	From []StateID
	To   StateID
}

// anyState reports whether the spec applies to every state
func (e EventSpec) anyState() bool {
	if len(e.From) == 0 {
		return true
	}
	for _, s := range e.From {
		if s == WildcardState {
			return true
		}
	}
	return false
}

func (e EventSpec) noop() bool {
	return e.To == ""
}
