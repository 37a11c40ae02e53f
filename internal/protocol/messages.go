// Package protocol defines the WebSocket message types and structures used
// for the video-call signaling channel. All messages are serialized as JSON
// and follow a consistent envelope format with a type discriminator. SDP and
// ICE payloads are carried as raw JSON and never inspected.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeCallInvite   = "call_invite"
	TypeCallJoined   = "call_joined"
	TypeVideoOffer   = "video_offer"
	TypeVideoAnswer  = "video_answer"
	TypeIceCandidate = "ice_candidate"
	TypeVideoCallEnd = "video_call_end"
	TypeTyping       = "typing"
	TypePing         = "ping"
)

// Server -> Client message types. Relayed events (call_joined, video_offer,
// video_answer, ice_candidate) reuse the client-side constants; the server
// variants below are the ones with no inbound counterpart.
const (
	TypeConnected      = "connected"
	TypeRoomJoined     = "room_joined"
	TypeCallInvited    = "call_invited"
	TypeVideoCallEnded = "video_call_ended"
	TypeUserTyping     = "user_typing"
	TypeNotification   = "notification"
	TypeRateLimited    = "rate_limited"
	TypeError          = "error"
	TypePong           = "pong"
)

// NotificationIncomingCall is the Kind of the out-of-room fan-out delivered
// to a peer who has not yet navigated into the call room.
const NotificationIncomingCall = "incoming-call"

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinRoomMsg subscribes the connection to a match's signaling room.
type JoinRoomMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// LeaveRoomMsg removes the connection from a match's signaling room.
type LeaveRoomMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// CallInviteMsg announces that the sender is starting a call for the match.
type CallInviteMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// CallJoinedMsg tells the room the sender is ready to receive an offer.
type CallJoinedMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// VideoOfferMsg carries an opaque SDP offer for the room's other member.
type VideoOfferMsg struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	Offer   json.RawMessage `json:"offer"`
}

// VideoAnswerMsg carries an opaque SDP answer.
type VideoAnswerMsg struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id"`
	Answer  json.RawMessage `json:"answer"`
}

// IceCandidateMsg carries an opaque ICE candidate.
type IceCandidateMsg struct {
	Type      string          `json:"type"`
	MatchID   string          `json:"match_id"`
	Candidate json.RawMessage `json:"candidate"`
}

// VideoCallEndMsg announces the end of the call to the whole room.
type VideoCallEndMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// TypingMsg indicates whether the sender is currently typing in the match chat.
type TypingMsg struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id"`
	IsTyping bool   `json:"is_typing"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// ConnectedMsg is sent once after a successful authenticated upgrade.
type ConnectedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	ConnID string `json:"conn_id"`
}

// RoomJoinedMsg confirms room membership to the joining connection.
type RoomJoinedMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// CallInvitedMsg is the room broadcast that a call is starting.
type CallInvitedMsg struct {
	Type       string `json:"type"`
	MatchID    string `json:"match_id"`
	FromUserID string `json:"from_user_id"`
}

// ServerCallJoinedMsg relays a peer's readiness to receive an offer.
type ServerCallJoinedMsg struct {
	Type       string `json:"type"`
	MatchID    string `json:"match_id"`
	FromUserID string `json:"from_user_id"`
}

// ServerVideoOfferMsg relays an SDP offer, tagged with the sender.
type ServerVideoOfferMsg struct {
	Type       string          `json:"type"`
	MatchID    string          `json:"match_id"`
	Offer      json.RawMessage `json:"offer"`
	FromUserID string          `json:"from_user_id"`
}

// ServerVideoAnswerMsg relays an SDP answer, tagged with the sender.
type ServerVideoAnswerMsg struct {
	Type       string          `json:"type"`
	MatchID    string          `json:"match_id"`
	Answer     json.RawMessage `json:"answer"`
	FromUserID string          `json:"from_user_id"`
}

// ServerIceCandidateMsg relays an ICE candidate, tagged with the sender.
type ServerIceCandidateMsg struct {
	Type       string          `json:"type"`
	MatchID    string          `json:"match_id"`
	Candidate  json.RawMessage `json:"candidate"`
	FromUserID string          `json:"from_user_id"`
}

// VideoCallEndedMsg tells every room member, sender included, to reset call UI.
type VideoCallEndedMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id"`
}

// UserTypingMsg relays a peer's typing indicator.
type UserTypingMsg struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// NotificationMsg is a direct, room-independent delivery to a specific user,
// e.g. an incoming call while they are on another screen.
type NotificationMsg struct {
	Type       string `json:"type"`
	Kind       string `json:"kind"`
	MatchID    string `json:"match_id"`
	FromUserID string `json:"from_user_id"`
}

// RateLimitedMsg tells the client it exceeded the signaling rate limit.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg communicates an error condition to the originating connection only.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoinRoom:
		var m JoinRoomMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeLeaveRoom:
		var m LeaveRoomMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCallInvite:
		var m CallInviteMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCallJoined:
		var m CallJoinedMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeVideoOffer:
		var m VideoOfferMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeVideoAnswer:
		var m VideoAnswerMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeIceCandidate:
		var m IceCandidateMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeVideoCallEnd:
		var m VideoCallEndMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
