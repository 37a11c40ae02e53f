package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/skillswap/swap-app/internal/match"
	"github.com/skillswap/swap-app/internal/metrics"
	"github.com/skillswap/swap-app/internal/protocol"
	"github.com/skillswap/swap-app/internal/ws"
)

// MatchGetter looks up matches for call invite validation.
type MatchGetter interface {
	Get(ctx context.Context, matchID string) (*match.Match, error)
}

// Sender delivers a frame to every local connection of a user. Satisfied by
// *ws.Server.
type Sender interface {
	SendToUser(userID string, data []byte) int
}

const lookupTimeout = 3 * time.Second

// Relay owns the signaling message handlers. Room traffic always travels
// through the backplane, even on a single instance: the publisher's own
// subscription delivers to its local room members, and peer instances deliver
// to theirs. That keeps exactly one delivery path regardless of how many
// instances host the room's members.
type Relay struct {
	matches MatchGetter
	sender  Sender
	bus     Backplane
	rooms   *Rooms

	mu       sync.Mutex
	userRefs map[string]int // userID -> local connection count
}

// NewRelay creates a Relay. The sender is typically the ws.Server; the bus
// is the NATS client in production or a LocalBus in tests.
func NewRelay(matches MatchGetter, sender Sender, bus Backplane) *Relay {
	return &Relay{
		matches:  matches,
		sender:   sender,
		bus:      bus,
		rooms:    NewRooms(),
		userRefs: make(map[string]int),
	}
}

// Rooms exposes the room registry, e.g. for the health endpoint.
func (r *Relay) Rooms() *Rooms {
	return r.rooms
}

// Register wires the relay's handlers into the dispatcher.
func (r *Relay) Register(d *ws.MessageDispatcher) {
	register := func(msgType string, handler ws.MessageHandler) {
		d.Register(msgType, func(conn *ws.Connection, msg interface{}) {
			metrics.SignalMessagesTotal.WithLabelValues(msgType).Inc()
			handler(conn, msg)
		})
	}

	register(protocol.TypeJoinRoom, r.handleJoinRoom)
	register(protocol.TypeLeaveRoom, r.handleLeaveRoom)
	register(protocol.TypeCallInvite, r.handleCallInvite)
	register(protocol.TypeCallJoined, r.handleCallJoined)
	register(protocol.TypeVideoOffer, r.handleVideoOffer)
	register(protocol.TypeVideoAnswer, r.handleVideoAnswer)
	register(protocol.TypeIceCandidate, r.handleIceCandidate)
	register(protocol.TypeVideoCallEnd, r.handleVideoCallEnd)
	register(protocol.TypeTyping, r.handleTyping)
}

// OnConnect subscribes the user's direct-delivery subject when their first
// local connection arrives. The subscription is shared by all of the user's
// connections on this instance.
func (r *Relay) OnConnect(conn *ws.Connection) {
	r.mu.Lock()
	r.userRefs[conn.UserID]++
	first := r.userRefs[conn.UserID] == 1
	r.mu.Unlock()

	if !first {
		return
	}

	userID := conn.UserID
	err := r.bus.SubscribeUser(userID, func(data []byte) {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("signaling: bad user event for %s: %v", userID, err)
			return
		}
		r.sender.SendToUser(userID, ev.Frame)
	})
	if err != nil {
		log.Printf("signaling: subscribe user %s: %v", userID, err)
	}
}

// OnDisconnect clears the connection's room memberships and releases the
// user subscription when their last local connection drops.
func (r *Relay) OnDisconnect(conn *ws.Connection) {
	for _, matchID := range r.rooms.DropConn(conn.ID) {
		if err := r.bus.UnsubscribeRoom(matchID); err != nil {
			log.Printf("signaling: unsubscribe room %s: %v", matchID, err)
		}
	}

	r.mu.Lock()
	r.userRefs[conn.UserID]--
	last := r.userRefs[conn.UserID] <= 0
	if last {
		delete(r.userRefs, conn.UserID)
	}
	r.mu.Unlock()

	if last {
		if err := r.bus.UnsubscribeUser(conn.UserID); err != nil {
			log.Printf("signaling: unsubscribe user %s: %v", conn.UserID, err)
		}
	}
}

func (r *Relay) handleJoinRoom(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.JoinRoomMsg)
	if m.MatchID == "" {
		r.sendError(conn, "bad_request", "match_id is required")
		return
	}

	if r.rooms.Join(m.MatchID, conn) {
		matchID := m.MatchID
		err := r.bus.SubscribeRoom(matchID, func(data []byte) {
			r.deliverRoomEvent(matchID, data)
		})
		if err != nil {
			log.Printf("signaling: subscribe room %s: %v", matchID, err)
		}
	}

	r.send(conn, protocol.TypeRoomJoined, protocol.RoomJoinedMsg{MatchID: m.MatchID})
	log.Printf("signaling: conn=%s user=%s joined room %s", conn.ID, conn.UserID, m.MatchID)
}

func (r *Relay) handleLeaveRoom(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.LeaveRoomMsg)
	if r.rooms.Leave(m.MatchID, conn.ID) {
		if err := r.bus.UnsubscribeRoom(m.MatchID); err != nil {
			log.Printf("signaling: unsubscribe room %s: %v", m.MatchID, err)
		}
	}
}

// handleCallInvite is the one relay event validated against the match store:
// it is what rings the other user, so the caller must be a participant of a
// real match. The invite goes both to the room (peer already on the match
// screen) and to the partner's user subject (peer anywhere else in the app).
func (r *Relay) handleCallInvite(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.CallInviteMsg)

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	mt, err := r.matches.Get(ctx, m.MatchID)
	if err != nil {
		if errors.Is(err, match.ErrNotFound) {
			r.sendError(conn, "match_not_found", "Match not found")
		} else {
			log.Printf("signaling: match lookup for invite %s: %v", m.MatchID, err)
			r.sendError(conn, "internal_error", "could not validate match")
		}
		return
	}
	if !mt.IsParticipant(conn.UserID) {
		r.sendError(conn, "access_denied", "Access denied")
		return
	}

	r.relayToRoom(conn, m.MatchID, false, protocol.TypeCallInvited, protocol.CallInvitedMsg{
		MatchID:    m.MatchID,
		FromUserID: conn.UserID,
	})

	frame, err := protocol.NewServerMessage(protocol.TypeNotification, protocol.NotificationMsg{
		Kind:       protocol.NotificationIncomingCall,
		MatchID:    m.MatchID,
		FromUserID: conn.UserID,
	})
	if err != nil {
		log.Printf("signaling: build invite notification: %v", err)
		return
	}
	r.publishUser(mt.Partner(conn.UserID), frame)
}

func (r *Relay) handleCallJoined(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.CallJoinedMsg)
	r.relayToRoom(conn, m.MatchID, false, protocol.TypeCallJoined, protocol.ServerCallJoinedMsg{
		MatchID:    m.MatchID,
		FromUserID: conn.UserID,
	})
}

func (r *Relay) handleVideoOffer(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.VideoOfferMsg)
	r.relayToRoom(conn, m.MatchID, false, protocol.TypeVideoOffer, protocol.ServerVideoOfferMsg{
		MatchID:    m.MatchID,
		Offer:      m.Offer,
		FromUserID: conn.UserID,
	})
}

func (r *Relay) handleVideoAnswer(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.VideoAnswerMsg)
	r.relayToRoom(conn, m.MatchID, false, protocol.TypeVideoAnswer, protocol.ServerVideoAnswerMsg{
		MatchID:    m.MatchID,
		Answer:     m.Answer,
		FromUserID: conn.UserID,
	})
}

func (r *Relay) handleIceCandidate(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.IceCandidateMsg)
	r.relayToRoom(conn, m.MatchID, false, protocol.TypeIceCandidate, protocol.ServerIceCandidateMsg{
		MatchID:    m.MatchID,
		Candidate:  m.Candidate,
		FromUserID: conn.UserID,
	})
}

// handleVideoCallEnd includes the sender so every participant's call UI
// resets from the same event.
func (r *Relay) handleVideoCallEnd(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.VideoCallEndMsg)
	r.relayToRoom(conn, m.MatchID, true, protocol.TypeVideoCallEnded, protocol.VideoCallEndedMsg{
		MatchID: m.MatchID,
	})
}

func (r *Relay) handleTyping(conn *ws.Connection, msg interface{}) {
	m := msg.(protocol.TypingMsg)
	r.relayToRoom(conn, m.MatchID, false, protocol.TypeUserTyping, protocol.UserTypingMsg{
		MatchID:  m.MatchID,
		UserID:   conn.UserID,
		IsTyping: m.IsTyping,
	})
}

// relayToRoom encodes the server message once and publishes it on the room's
// backplane subject. Delivery to local members happens in deliverRoomEvent
// when the publish loops back through the subscription.
func (r *Relay) relayToRoom(from *ws.Connection, matchID string, includeSender bool, msgType string, payload interface{}) {
	frame, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("signaling: build %s frame: %v", msgType, err)
		return
	}

	ev, err := json.Marshal(Event{
		MatchID:       matchID,
		FromConnID:    from.ID,
		IncludeSender: includeSender,
		Frame:         frame,
	})
	if err != nil {
		log.Printf("signaling: encode %s event: %v", msgType, err)
		return
	}

	if err := r.bus.PublishRoom(matchID, ev); err != nil {
		log.Printf("signaling: publish %s to room %s: %v", msgType, matchID, err)
	}
}

// deliverRoomEvent writes a room event's frame to the local members of the
// room, skipping the originating connection unless the event includes it.
// The sender exclusion is by connection ID, so on instances that do not host
// the sender it never matches and all members receive the frame.
func (r *Relay) deliverRoomEvent(matchID string, data []byte) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("signaling: bad room event for %s: %v", matchID, err)
		return
	}

	for _, member := range r.rooms.Members(matchID) {
		if member.ID == ev.FromConnID && !ev.IncludeSender {
			continue
		}
		if err := member.WriteMessage(ev.Frame); err != nil {
			log.Printf("signaling: write to conn=%s in room %s: %v", member.ID, matchID, err)
		}
	}
}

// publishUser wraps a frame in an Event and publishes it on the user's
// direct-delivery subject.
func (r *Relay) publishUser(userID string, frame []byte) {
	ev, err := json.Marshal(Event{Frame: frame})
	if err != nil {
		log.Printf("signaling: encode user event: %v", err)
		return
	}
	if err := r.bus.PublishUser(userID, ev); err != nil {
		log.Printf("signaling: publish to user %s: %v", userID, err)
	}
}

func (r *Relay) send(conn *ws.Connection, msgType string, payload interface{}) {
	frame, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("signaling: build %s: %v", msgType, err)
		return
	}
	if err := conn.WriteMessage(frame); err != nil {
		log.Printf("signaling: send %s to conn=%s: %v", msgType, conn.ID, err)
	}
}

func (r *Relay) sendError(conn *ws.Connection, code, message string) {
	frame, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("signaling: build error message: %v", err)
		return
	}
	if err := conn.WriteMessage(frame); err != nil {
		log.Printf("signaling: send error to conn=%s: %v", conn.ID, err)
	}
}
