package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/auth"
)

type fakePresence struct {
	typing map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{typing: make(map[string]bool)}
}

func (f *fakePresence) AddOnline(ctx context.Context, userID, channelID string) error { return nil }
func (f *fakePresence) RemoveOnline(ctx context.Context, userID string) error         { return nil }

func (f *fakePresence) SetTyping(ctx context.Context, conversationID, userID string) error {
	f.typing[conversationID+"/"+userID] = true
	return nil
}

func (f *fakePresence) RemoveTyping(ctx context.Context, conversationID, userID string) error {
	delete(f.typing, conversationID+"/"+userID)
	return nil
}

func newTestGateway(t *testing.T) (*Gateway, *Hub, *fakePresence) {
	t.Helper()
	log := zap.NewNop().Sugar()
	hub := NewHub(log)
	pres := newFakePresence()
	g := NewGateway(hub, pres, auth.NewVerifier("secret"), GatewayConfig{}, log)
	return g, hub, pres
}

func TestTypingIsTargetedNotBroadcast(t *testing.T) {
	g, hub, pres := newTestGateway(t)

	sender := testClient("u1", "ch-1")
	recipient := testClient("u2", "ch-2")
	bystander := testClient("u3", "ch-3")
	hub.Register(sender)
	hub.Register(recipient)
	hub.Register(bystander)

	g.handleInbound(sender, []byte(`{"event":"typing","payload":{"conversationId":"conv-1","recipientId":"u2"}}`))

	assert.True(t, pres.typing["conv-1/u1"])

	events := drain(t, recipient)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].Event)
	assert.JSONEq(t, `{"conversationId":"conv-1","userId":"u1","username":"u1-name"}`, string(events[0].Payload))

	assert.Empty(t, drain(t, sender))
	assert.Empty(t, drain(t, bystander))
}

func TestStopTypingClearsMarker(t *testing.T) {
	g, hub, pres := newTestGateway(t)

	sender := testClient("u1", "ch-1")
	recipient := testClient("u2", "ch-2")
	hub.Register(sender)
	hub.Register(recipient)

	g.handleInbound(sender, []byte(`{"event":"typing","payload":{"conversationId":"conv-1","recipientId":"u2"}}`))
	g.handleInbound(sender, []byte(`{"event":"stopTyping","payload":{"conversationId":"conv-1","recipientId":"u2"}}`))

	assert.False(t, pres.typing["conv-1/u1"])

	events := drain(t, recipient)
	require.Len(t, events, 2)
	assert.Equal(t, EventUserStoppedTyping, events[1].Event)
	assert.JSONEq(t, `{"conversationId":"conv-1","userId":"u1"}`, string(events[1].Payload))
}

func TestMalformedInboundFramesAreDropped(t *testing.T) {
	g, hub, _ := newTestGateway(t)

	sender := testClient("u1", "ch-1")
	recipient := testClient("u2", "ch-2")
	hub.Register(sender)
	hub.Register(recipient)

	g.handleInbound(sender, []byte(`not json`))
	g.handleInbound(sender, []byte(`{"event":"typing","payload":{"conversationId":"","recipientId":"u2"}}`))
	g.handleInbound(sender, []byte(`{"event":"somethingElse","payload":{}}`))

	assert.Empty(t, drain(t, recipient))
}
