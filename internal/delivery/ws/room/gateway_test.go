package ws_room

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepair/core/internal/model"
	storage_room "github.com/codepair/core/internal/storage/room"
	usecase_room "github.com/codepair/core/internal/usecase/room"
)

type gatewayFixture struct {
	hub     *Hub
	gateway *Gateway
	usecase *usecase_room.Usecase
}

func newGatewayFixture() *gatewayFixture {
	hub := NewHub()
	uc := usecase_room.New(storage_room.New())
	return &gatewayFixture{
		hub:     hub,
		gateway: NewGateway(hub, uc),
		usecase: uc,
	}
}

func (f *gatewayFixture) connect() *Client {
	client := NewClient(nil, f.hub)
	f.hub.Register(client)
	return client
}

func (f *gatewayFixture) join(c *Client, roomID, userID, username string) {
	f.gateway.HandleMessage(c, frame(EventJoinRoom, fmt.Sprintf(
		`{"roomId":%q,"userId":%q,"username":%q}`, roomID, userID, username)))
}

func frame(eventType, payload string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"payload":%s}`, eventType, payload))
}

type receivedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// recv pops the next enqueued event for the client, failing if none is
// pending.
func recv(t *testing.T, c *Client) receivedEvent {
	t.Helper()
	select {
	case raw := <-c.send:
		var event receivedEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	default:
		t.Fatal("no event enqueued for client")
		return receivedEvent{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected event enqueued: %s", raw)
	default:
	}
}

func TestJoinSendsSnapshotToJoinerAndNoticeToOthers(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()

	f.join(a, "r1", "u1", "alice")

	state := recv(t, a)
	assert.Equal(t, EventRoomState, state.Type)
	var snapshot model.RoomSnapshot
	require.NoError(t, json.Unmarshal(state.Payload, &snapshot))
	assert.Equal(t, model.LanguageJavaScript, snapshot.Language)
	assert.Equal(t, model.LanguageJavaScript.StarterTemplate(), snapshot.Code)
	assert.Len(t, snapshot.Users, 1)

	f.join(b, "r1", "u2", "bob")

	state = recv(t, b)
	assert.Equal(t, EventRoomState, state.Type)
	require.NoError(t, json.Unmarshal(state.Payload, &snapshot))
	assert.Len(t, snapshot.Users, 2)

	joined := recv(t, a)
	assert.Equal(t, EventUserJoined, joined.Type)
	var user model.User
	require.NoError(t, json.Unmarshal(joined.Payload, &user))
	assert.Equal(t, "u2", user.UserID)

	// The joiner never gets its own join notice.
	assertNoEvent(t, b)
}

func TestSecondJoinIsRejectedWithErrorEvent(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	f.join(a, "r1", "u1", "alice")
	recv(t, a) // room-state

	f.join(a, "r2", "u1", "alice")

	event := recv(t, a)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, 1, f.hub.RoomSize("r1"))
	assert.Zero(t, f.hub.RoomSize("r2"))
}

func TestMalformedJoinIsDroppedSilently(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()

	f.gateway.HandleMessage(a, []byte(`not json`))
	f.gateway.HandleMessage(a, frame(EventJoinRoom, `{"userId":"u1"}`))
	f.gateway.HandleMessage(a, frame(EventJoinRoom, `{"roomId":"r1"}`))
	f.gateway.HandleMessage(a, frame("no-such-event", `{}`))

	assertNoEvent(t, a)
}

func TestCodeChangeFansOutToOthersOnly(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()
	f.join(a, "r1", "u1", "alice")
	f.join(b, "r1", "u2", "bob")
	drain(a)
	drain(b)

	f.gateway.HandleMessage(a, frame(EventCodeChange, `{"roomId":"r1","code":"x"}`))

	update := recv(t, b)
	assert.Equal(t, EventCodeUpdate, update.Type)
	var dto codeUpdateDTO
	require.NoError(t, json.Unmarshal(update.Payload, &dto))
	assert.Equal(t, "x", dto.Code)

	// The sender never receives its own echo.
	assertNoEvent(t, a)
}

func TestCodeChangeRequiresMatchingRoom(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()
	f.join(a, "r1", "u1", "alice")
	f.join(b, "r2", "u2", "bob")
	drain(a)
	drain(b)

	f.gateway.HandleMessage(a, frame(EventCodeChange, `{"roomId":"r2","code":"x"}`))

	assertNoEvent(t, b)
}

func TestCodeChangeBeforeJoinIsDropped(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()

	f.gateway.HandleMessage(a, frame(EventCodeChange, `{"roomId":"r1","code":"x"}`))

	assertNoEvent(t, a)
}

func TestLanguageChangeReachesEveryoneIncludingSender(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()
	f.join(a, "r1", "u1", "alice")
	f.join(b, "r1", "u2", "bob")
	drain(a)
	drain(b)

	f.gateway.HandleMessage(a, frame(EventLanguageChange, `{"roomId":"r1","language":"python"}`))

	for _, client := range []*Client{a, b} {
		langUpdate := recv(t, client)
		assert.Equal(t, EventLanguageUpdate, langUpdate.Type)
		var lang languageUpdateDTO
		require.NoError(t, json.Unmarshal(langUpdate.Payload, &lang))
		assert.Equal(t, model.LanguagePython, lang.Language)

		codeUpdate := recv(t, client)
		assert.Equal(t, EventCodeUpdate, codeUpdate.Type)
		var code codeUpdateDTO
		require.NoError(t, json.Unmarshal(codeUpdate.Payload, &code))
		assert.Equal(t, model.LanguagePython.StarterTemplate(), code.Code)
	}
}

func TestCursorPositionIsRelayedWithSenderConnID(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()
	f.join(a, "r1", "u1", "alice")
	f.join(b, "r1", "u2", "bob")
	drain(a)
	drain(b)

	f.gateway.HandleMessage(a, frame(EventCursorPosition, `{"roomId":"r1","position":{"line":3,"col":7}}`))

	update := recv(t, b)
	assert.Equal(t, EventCursorUpdate, update.Type)
	var dto cursorUpdateDTO
	require.NoError(t, json.Unmarshal(update.Payload, &dto))
	assert.Equal(t, string(a.ID), dto.UserID)
	assert.JSONEq(t, `{"line":3,"col":7}`, string(dto.Position))

	assertNoEvent(t, a)
}

func TestDisconnectNotifiesRemainingMembers(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()
	f.join(a, "r1", "u1", "alice")
	f.join(b, "r1", "u2", "bob")
	drain(a)
	drain(b)

	f.gateway.Disconnect(b)
	f.hub.Unregister(b)

	left := recv(t, a)
	assert.Equal(t, EventUserLeft, left.Type)
	var dto userLeftDTO
	require.NoError(t, json.Unmarshal(left.Payload, &dto))
	assert.Equal(t, "u2", dto.UserID)

	assert.Equal(t, 1, f.hub.RoomSize("r1"))
}

func TestDisconnectBeforeJoinEmitsNothing(t *testing.T) {
	f := newGatewayFixture()
	a := f.connect()
	b := f.connect()
	f.join(a, "r1", "u1", "alice")
	drain(a)

	f.gateway.Disconnect(b)
	f.hub.Unregister(b)

	assertNoEvent(t, a)
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
