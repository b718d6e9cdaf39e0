package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/auth"
)

// presenceStore is the slice of the ephemeral store the gateway needs.
type presenceStore interface {
	AddOnline(ctx context.Context, userID, channelID string) error
	RemoveOnline(ctx context.Context, userID string) error
	SetTyping(ctx context.Context, conversationID, userID string) error
	RemoveTyping(ctx context.Context, conversationID, userID string) error
}

type GatewayConfig struct {
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	ReadDeadline   time.Duration
	MaxMessageSize int64
}

// Gateway authenticates incoming websocket connections and runs their
// lifecycle: register in the hub, record presence, relay typing signals,
// clean up on disconnect. A connection that fails credential verification is
// closed before it ever becomes active.
type Gateway struct {
	hub      *Hub
	presence presenceStore
	verifier *auth.Verifier
	cfg      GatewayConfig
	log      *zap.SugaredLogger
}

func NewGateway(hub *Hub, presence presenceStore, verifier *auth.Verifier, cfg GatewayConfig, log *zap.SugaredLogger) *Gateway {
	return &Gateway{hub: hub, presence: presence, verifier: verifier, cfg: cfg, log: log}
}

type statusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type typingEventPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Username       string `json:"username,omitempty"`
}

// Handle returns the fiber-websocket connection handler.
func (g *Gateway) Handle() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		claims, err := g.verifier.Parse(conn.Query("token"))
		if err != nil {
			g.log.Debugw("handshake rejected", "err", err)
			_ = conn.Close()
			return
		}

		client := NewClient(conn, claims.UserID, claims.Username, uuid.New().String())
		first := g.hub.Register(client)

		ctx := context.Background()
		if err := g.presence.AddOnline(ctx, client.UserID, client.ChannelID); err != nil {
			// presence is best-effort; the connection stays up without it
			g.log.Warnw("presence add degraded", "user", client.UserID, "err", err)
		}
		if first {
			// the connecting user does not need to hear about themselves
			g.hub.EmitToOthers(client.UserID, EventUserStatusChanged, statusPayload{UserID: client.UserID, IsOnline: true})
		}
		g.log.Infow("connection active", "user", client.UserID, "channel", client.ChannelID)

		go client.writePump(g.cfg.PingInterval, g.cfg.WriteDeadline)
		g.readLoop(client)

		last := g.hub.Unregister(client)
		client.Close()
		if last {
			if err := g.presence.RemoveOnline(ctx, client.UserID); err != nil {
				g.log.Warnw("presence remove degraded", "user", client.UserID, "err", err)
			}
			g.hub.EmitToOthers(client.UserID, EventUserStatusChanged, statusPayload{UserID: client.UserID, IsOnline: false})
		}
		g.log.Infow("connection closed", "user", client.UserID, "channel", client.ChannelID)
	}
}

func (g *Gateway) readLoop(client *Client) {
	conn := client.Conn
	conn.SetReadLimit(g.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.cfg.ReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.cfg.ReadDeadline))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		g.handleInbound(client, data)
	}
}

// handleInbound dispatches one client frame. Unknown events are dropped.
func (g *Gateway) handleInbound(client *Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	switch env.Event {
	case EventTyping, EventStopTyping:
		var p TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return
		}
		if p.ConversationID == "" || p.RecipientID == "" {
			return
		}
		g.relayTyping(client, env.Event, p)
	default:
	}
}

func (g *Gateway) relayTyping(client *Client, event string, p TypingPayload) {
	ctx := context.Background()
	if event == EventTyping {
		if err := g.presence.SetTyping(ctx, p.ConversationID, client.UserID); err != nil {
			g.log.Warnw("typing marker degraded", "user", client.UserID, "err", err)
		}
		g.hub.EmitToUser(p.RecipientID, EventUserTyping, typingEventPayload{
			ConversationID: p.ConversationID,
			UserID:         client.UserID,
			Username:       client.Username,
		})
		return
	}
	if err := g.presence.RemoveTyping(ctx, p.ConversationID, client.UserID); err != nil {
		g.log.Warnw("typing marker degraded", "user", client.UserID, "err", err)
	}
	g.hub.EmitToUser(p.RecipientID, EventUserStoppedTyping, typingEventPayload{
		ConversationID: p.ConversationID,
		UserID:         client.UserID,
	})
}
