package xproto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The X Protocol's capability and error payloads are protobuf messages
// (Mysqlx.Connection.Capabilities, Mysqlx.Error) per the canonical schema
// catalog spec.md §6 defers to. Hand-authoring generated-style protobuf
// structs without that .proto catalog would be fabrication rather than
// grounding (see DESIGN.md), so this core's wire encoding for those two
// payload shapes is a JSON placeholder: a real deployment swaps
// decodeCapabilitiesPayload/decodeErrorPayload/encodeCapabilitiesSetPayload
// for generated protobuf marshal/unmarshal calls without touching any
// other file — the state machine only depends on the Capabilities map and
// ServerError struct these functions produce.

// decodeCapabilitiesPayload turns a CapabilitiesGet/Capabilities reply
// payload into a Capabilities map. Per spec.md §9's open question, any
// non-Error response is treated as authoritative and preserved verbatim,
// including an empty map.
func decodeCapabilitiesPayload(payload []byte) (Capabilities, error) {
	if len(payload) == 0 {
		return Capabilities{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, &ProtocolError{Err: fmt.Errorf("decoding capabilities payload: %w", err)}
	}
	return Capabilities(m), nil
}

// encodeCapabilitiesSetPayload renders a CapabilitiesSet request body.
func encodeCapabilitiesSetPayload(caps map[string]any) []byte {
	b, _ := json.Marshal(caps)
	return b
}

// decodeErrorPayload extracts the SQLSTATE, numeric code, and message
// from an Error frame's payload, mirroring the structured fields the
// teacher's parseMySQLError pulls out of a raw ERR_Packet rather than
// just stringifying the whole payload.
func decodeErrorPayload(payload []byte) *ServerError {
	var e struct {
		Code     int    `json:"code"`
		SQLState string `json:"sql_state"`
		Message  string `json:"msg"`
	}
	if err := json.Unmarshal(payload, &e); err != nil {
		return &ServerError{Message: string(payload)}
	}
	return &ServerError{SQLState: e.SQLState, Code: e.Code, Message: e.Message}
}

// encodeAuthenticateStartPayload renders an AuthenticateStart request
// body: the mechanism name, a NUL separator, then the mechanism's
// initial response bytes.
func encodeAuthenticateStartPayload(mechanism string, authData []byte) []byte {
	buf := make([]byte, 0, len(mechanism)+1+len(authData))
	buf = append(buf, mechanism...)
	buf = append(buf, 0)
	buf = append(buf, authData...)
	return buf
}

// splitAuthenticateStartPayload is the server-side inverse, used only by
// test doubles that need to confirm what the client sent.
func splitAuthenticateStartPayload(payload []byte) (mechanism string, authData []byte) {
	idx := bytes.IndexByte(payload, 0)
	if idx < 0 {
		return string(payload), nil
	}
	return string(payload[:idx]), payload[idx+1:]
}
