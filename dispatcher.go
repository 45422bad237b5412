package xproto

import "encoding/json"

// ItemKind tags one element of a ReplyStream.
type ItemKind int

const (
	// KindMeta carries column definitions, result-set boundaries,
	// warnings, generated ids, or affected-row counts.
	KindMeta ItemKind = iota
	// KindRow carries one data row.
	KindRow
	// KindNotice carries an out-of-band notice. A notice carrying a
	// session-state change is applied to the Session first and is still
	// surfaced as KindNotice.
	KindNotice
	// KindDone marks the terminal frame; the ReplyStream is exhausted
	// once this is returned.
	KindDone
)

// ReplyItem is one pulled element of a ReplyStream, replacing the source
// driver's push-based row_sink/meta_sink callbacks with an explicit
// tagged-variant iterator (spec.md §9's redesign note).
type ReplyItem struct {
	Kind    ItemKind
	Message Message
}

// ReplyStream is the finite, non-restartable sequence of Messages scoped
// to one outstanding request (spec.md §3). At most one ReplyStream may be
// open per Session at a time; Session.Submit enforces that.
type ReplyStream struct {
	session *Session
	conn    *Connection
	done    bool
	err     error
}

// Next pulls the next item from the stream. Once a KindDone item (or a
// non-nil error) is returned, the stream is exhausted and further Next
// calls return (ReplyItem{}, err) immediately, where err is the error the
// stream ended with (nil after a clean terminal frame). An Error frame
// ends the stream and closes the Session.
//
// Notice frames carrying a session-state change are applied to the
// Session and then surfaced to the caller as KindNotice too (spec.md
// §4.5: applied "before the terminal frame is delivered", which a
// pull-based caller trivially satisfies by construction — it cannot see
// the terminal item before this one returns).
func (rs *ReplyStream) Next() (ReplyItem, error) {
	if rs.done {
		return ReplyItem{}, rs.err
	}

	msg, err := rs.conn.Receive()
	if err != nil {
		rs.done = true
		rs.err = err
		rs.session.onStreamError(err)
		return ReplyItem{}, err
	}

	if msg.Type == TypeNotice {
		if change, ok := parseSessionStateChange(msg.Payload); ok {
			rs.session.applyStateChange(change)
		}
		return ReplyItem{Kind: KindNotice, Message: msg}, nil
	}

	if msg.Type == TypeError {
		rs.done = true
		serr := decodeErrorPayload(msg.Payload)
		rs.err = serr
		rs.session.onStreamError(serr)
		return ReplyItem{Kind: KindDone, Message: msg}, serr
	}

	if isTerminal(msg.Type) {
		rs.done = true
		rs.session.onStreamTerminal()
		return ReplyItem{Kind: KindDone, Message: msg}, nil
	}

	if msg.Type == TypeResultsetRow {
		return ReplyItem{Kind: KindRow, Message: msg}, nil
	}

	return ReplyItem{Kind: KindMeta, Message: msg}, nil
}

// Drain consumes the remainder of the stream, discarding items, and
// returns the first error encountered (if any). Useful for callers that
// only care that a statement completed.
func (rs *ReplyStream) Drain() error {
	for {
		item, err := rs.Next()
		if item.Kind == KindDone || err != nil {
			if _, ok := err.(*ServerError); ok {
				return err
			}
			return err
		}
	}
}

// ForEach adapts the pull-based ReplyStream back into the source
// driver's push style for callers migrating incrementally: rowSink is
// invoked once per KindRow item, metaSink once per KindMeta item.
// noticeSink (may be nil) is invoked once per KindNotice item, including
// notices whose session-state change was already applied.
func (rs *ReplyStream) ForEach(rowSink, metaSink func(Message), noticeSink func(Message)) error {
	for {
		item, err := rs.Next()
		switch item.Kind {
		case KindRow:
			if rowSink != nil {
				rowSink(item.Message)
			}
		case KindMeta:
			if metaSink != nil {
				metaSink(item.Message)
			}
		case KindNotice:
			if noticeSink != nil {
				noticeSink(item.Message)
			}
		case KindDone:
			return err
		}
		if err != nil {
			return err
		}
	}
}

// sessionStateChange is the decoded form of a Notice.Frame carrying a
// session-state change (spec.md §4.5). Real payloads are protobuf
// (Mysqlx.Notice.SessionStateChanged); see wire.go's header comment for
// why this core uses a JSON placeholder encoding instead.
type sessionStateChange struct {
	Param string `json:"param"`
	Value any    `json:"value"`
}

func parseSessionStateChange(payload []byte) (sessionStateChange, bool) {
	var sc struct {
		Type string `json:"type"`
		sessionStateChange
	}
	if err := json.Unmarshal(payload, &sc); err != nil || sc.Type != "session_state_change" {
		return sessionStateChange{}, false
	}
	return sc.sessionStateChange, true
}
