package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Mohammad-Harkous/chat-app-backend/internal/models"
	"github.com/Mohammad-Harkous/chat-app-backend/internal/repository"
)

var errStoreDown = errors.New("store down")

type fakeConvRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Conversation
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{byID: make(map[string]*models.Conversation)}
}

func (r *fakeConvRepo) Create(_ context.Context, conv *models.Conversation) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv.ID = primitive.NewObjectID()
	conv.CreatedAt = time.Now().UTC()
	r.byID[conv.ID.Hex()] = conv
	return conv, nil
}

func (r *fakeConvRepo) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return conv, nil
}

func (r *fakeConvRepo) FindByParticipants(_ context.Context, a, b string) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if (c.Participant1ID == a && c.Participant2ID == b) ||
			(c.Participant1ID == b && c.Participant2ID == a) {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeConvRepo) ListForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Conversation
	for _, c := range r.byID {
		if c.HasParticipant(userID) && !c.DeletedFor(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessageAt, out[j].LastMessageAt
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
	return out, nil
}

func (r *fakeConvRepo) SetLastMessageAt(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		t := at
		c.LastMessageAt = &t
	}
	return nil
}

func (r *fakeConvRepo) AddDeletedBy(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.DeletedFor(userID) {
		c.DeletedBy = append(c.DeletedBy, userID)
	}
	return nil
}

func (r *fakeConvRepo) RemoveDeletedBy(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	kept := c.DeletedBy[:0]
	for _, v := range c.DeletedBy {
		if v != userID {
			kept = append(kept, v)
		}
	}
	c.DeletedBy = kept
	return nil
}

type fakeMsgRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.Message
	byConv map[string][]*models.Message // chronological
	clock  time.Time
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{
		byID:   make(map[string]*models.Message),
		byConv: make(map[string][]*models.Message),
		clock:  time.Now().UTC(),
	}
}

func (r *fakeMsgRepo) Insert(_ context.Context, msg *models.Message) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	r.clock = r.clock.Add(time.Millisecond)
	msg.CreatedAt = r.clock
	r.byID[msg.ID.Hex()] = msg
	r.byConv[msg.ConversationID] = append(r.byConv[msg.ConversationID], msg)
	return msg, nil
}

func (r *fakeMsgRepo) GetByID(_ context.Context, id string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return msg, nil
}

func (r *fakeMsgRepo) ListRecent(_ context.Context, conversationID string, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.byConv[conversationID]
	start := len(msgs) - limit
	if start < 0 {
		start = 0
	}
	out := make([]*models.Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out, nil
}

func (r *fakeMsgRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	msg.IsRead = true
	return nil
}

func (r *fakeMsgRepo) FindUnreadBySender(_ context.Context, conversationID, senderID string) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.byConv[conversationID] {
		if m.SenderID == senderID && !m.IsRead {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMsgRepo) MarkManyRead(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if m, ok := r.byID[id]; ok && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users   map[string]*models.User
	friends map[string]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*models.User),
		friends: make(map[string]bool),
	}
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (r *fakeUserRepo) addUser(username string) string {
	u := &models.User{ID: primitive.NewObjectID(), Username: username}
	r.users[u.ID.Hex()] = u
	return u.ID.Hex()
}

func (r *fakeUserRepo) befriend(a, b string) {
	r.friends[pairKey(a, b)] = true
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetManyByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *fakeUserRepo) AreFriends(_ context.Context, a, b string) (bool, error) {
	return r.friends[pairKey(a, b)], nil
}

type fakePresenceStore struct {
	mu      sync.Mutex
	online  map[string]bool
	unread  map[string]int64 // user|conv
	failing bool
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{
		online: make(map[string]bool),
		unread: make(map[string]int64),
	}
}

func (p *fakePresenceStore) key(userID, convID string) string { return userID + "|" + convID }

func (p *fakePresenceStore) IsOnline(_ context.Context, userID string) (bool, error) {
	if p.failing {
		return false, errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID], nil
}

func (p *fakePresenceStore) OnlineCount(_ context.Context) (int64, error) {
	if p.failing {
		return 0, errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for _, on := range p.online {
		if on {
			n++
		}
	}
	return n, nil
}

func (p *fakePresenceStore) IncrementUnread(_ context.Context, userID, convID string) (int64, error) {
	if p.failing {
		return 0, errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unread[p.key(userID, convID)]++
	return p.unread[p.key(userID, convID)], nil
}

func (p *fakePresenceStore) DecrementUnread(_ context.Context, userID, convID string) (int64, error) {
	if p.failing {
		return 0, errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	k := p.key(userID, convID)
	if p.unread[k] > 0 {
		p.unread[k]--
	}
	return p.unread[k], nil
}

func (p *fakePresenceStore) ResetUnread(_ context.Context, userID, convID string) error {
	if p.failing {
		return errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.unread, p.key(userID, convID))
	return nil
}

func (p *fakePresenceStore) GetUnread(_ context.Context, userID, convID string) (int64, error) {
	if p.failing {
		return 0, errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unread[p.key(userID, convID)], nil
}

func (p *fakePresenceStore) GetAllUnread(_ context.Context, userID string) (map[string]int64, error) {
	if p.failing {
		return nil, errStoreDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64)
	for k, n := range p.unread {
		if n > 0 && strings.HasPrefix(k, userID+"|") {
			out[strings.TrimPrefix(k, userID+"|")] = n
		}
	}
	return out, nil
}

type fakeMessageCache struct {
	mu      sync.Mutex
	lists   map[string][]*models.Message // newest-first
	failing bool
}

func newFakeMessageCache() *fakeMessageCache {
	return &fakeMessageCache{lists: make(map[string][]*models.Message)}
}

func (c *fakeMessageCache) Put(_ context.Context, convID string, msg *models.Message) error {
	if c.failing {
		return errStoreDown
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append([]*models.Message{msg}, c.lists[convID]...)
	if len(list) > 50 {
		list = list[:50]
	}
	c.lists[convID] = list
	return nil
}

func (c *fakeMessageCache) Get(_ context.Context, convID string, limit int) ([]*models.Message, error) {
	if c.failing {
		return nil, errStoreDown
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.lists[convID]
	if limit > len(list) {
		limit = len(list)
	}
	out := make([]*models.Message, limit)
	for i := 0; i < limit; i++ {
		out[i] = list[limit-1-i]
	}
	return out, nil
}

func (c *fakeMessageCache) Invalidate(_ context.Context, convID string) error {
	if c.failing {
		return errStoreDown
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, convID)
	return nil
}

func (c *fakeMessageCache) size(convID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lists[convID])
}

type emission struct {
	UserID  string
	Event   string
	Payload any
}

type fakeNotifier struct {
	mu        sync.Mutex
	emissions []emission
}

func (n *fakeNotifier) EmitToUser(userID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emissions = append(n.emissions, emission{UserID: userID, Event: event, Payload: payload})
}

func (n *fakeNotifier) countTo(userID, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.emissions {
		if e.UserID == userID && e.Event == event {
			count++
		}
	}
	return count
}

func (n *fakeNotifier) lastTo(userID, event string) (emission, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.emissions) - 1; i >= 0; i-- {
		if n.emissions[i].UserID == userID && n.emissions[i].Event == event {
			return n.emissions[i], true
		}
	}
	return emission{}, false
}

type fakeEventPublisher struct {
	mu      sync.Mutex
	sent    []*models.Message
	deleted []string
}

func (p *fakeEventPublisher) MessageSent(_ context.Context, msg *models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
}

func (p *fakeEventPublisher) ConversationDeleted(_ context.Context, conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, conversationID)
}
