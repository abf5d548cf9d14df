package call

// Turn is one attributed utterance in a conversation.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript accumulates finalized turns in arrival order. It never mutates,
// reorders, or deduplicates prior entries: if the transport emits two final
// transcripts for the same utterance, both are kept verbatim.
//
// Transcript is not safe for concurrent use on its own; the owning session
// serializes access behind its mutex.
type Transcript struct {
	turns []Turn
}

func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Latest returns the most recently appended turn, or false if none exist.
func (t *Transcript) Latest() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// All returns a copy of the full ordered sequence. Safe to call before any
// turns exist; the result is never nil.
func (t *Transcript) All() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int { return len(t.turns) }
