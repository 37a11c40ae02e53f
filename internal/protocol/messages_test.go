package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseClientMessage_JoinRoom(t *testing.T) {
	data := []byte(`{"type":"join_room","match_id":"m1"}`)

	msgType, msg, err := ParseClientMessage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeJoinRoom {
		t.Errorf("expected type %q, got %q", TypeJoinRoom, msgType)
	}
	join, ok := msg.(JoinRoomMsg)
	if !ok {
		t.Fatalf("expected JoinRoomMsg, got %T", msg)
	}
	if join.MatchID != "m1" {
		t.Errorf("expected match_id m1, got %q", join.MatchID)
	}
}

func TestParseClientMessage_OfferPayloadIsOpaque(t *testing.T) {
	// The SDP blob must survive parsing byte-for-byte; the server never
	// interprets it.
	sdp := `{"type":"offer","sdp":"v=0\r\no=- 46117 2 IN IP4 127.0.0.1"}`
	data := []byte(`{"type":"video_offer","match_id":"m1","offer":` + sdp + `}`)

	_, msg, err := ParseClientMessage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	offer, ok := msg.(VideoOfferMsg)
	if !ok {
		t.Fatalf("expected VideoOfferMsg, got %T", msg)
	}
	if string(offer.Offer) != sdp {
		t.Errorf("offer payload altered:\n got %s\nwant %s", offer.Offer, sdp)
	}
}

func TestParseClientMessage_UnknownType(t *testing.T) {
	_, _, err := ParseClientMessage([]byte(`{"type":"make_coffee"}`))
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestParseClientMessage_MissingType(t *testing.T) {
	_, _, err := ParseClientMessage([]byte(`{"match_id":"m1"}`))
	if err == nil {
		t.Fatal("expected error for missing type field")
	}
}

func TestParseClientMessage_ServerOnlyTypeRejected(t *testing.T) {
	_, _, err := ParseClientMessage([]byte(`{"type":"connected"}`))
	if err == nil {
		t.Fatal("expected error for server-only message type")
	}
}

func TestParseClientMessage_InvalidJSON(t *testing.T) {
	_, _, err := ParseClientMessage([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNewServerMessage_InjectsType(t *testing.T) {
	data, err := NewServerMessage(TypeRoomJoined, RoomJoinedMsg{MatchID: "m1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["type"] != TypeRoomJoined {
		t.Errorf("expected type %q, got %v", TypeRoomJoined, decoded["type"])
	}
	if decoded["match_id"] != "m1" {
		t.Errorf("expected match_id m1, got %v", decoded["match_id"])
	}
}

func TestNewServerMessage_TypingRelayKeepsFields(t *testing.T) {
	data, err := NewServerMessage(TypeUserTyping, UserTypingMsg{
		MatchID:  "m1",
		UserID:   "u2",
		IsTyping: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded UserTypingMsg
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.Type != TypeUserTyping || decoded.UserID != "u2" || !decoded.IsTyping {
		t.Errorf("unexpected decoded message: %+v", decoded)
	}
}
