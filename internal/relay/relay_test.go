package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"omdraw/internal/models"
	"omdraw/internal/repository"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockStore) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockStore) UpsertRoomBySlug(ctx context.Context, slug, adminID string) (*models.Room, error) {
	args := m.Called(ctx, slug, adminID)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockStore) FindRoomBySlug(ctx context.Context, slug string) (*models.Room, error) {
	args := m.Called(ctx, slug)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockStore) CreateChat(ctx context.Context, roomID uint, message, senderID string) error {
	return m.Called(ctx, roomID, message, senderID).Error(0)
}

type staticVerifier map[string]string

func (v staticVerifier) Verify(token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newTestRelay(store HistoryStore) *Relay {
	return New(Config{SendBuffer: 8}, NewRegistry(), store, staticVerifier{}, zerolog.Nop())
}

func register(r *Relay, userID string) *Connection {
	c := NewConnection(userID, 8, nil)
	r.Registry().Add(c)
	return c
}

func drain(c *Connection) []string {
	var out []string
	for {
		select {
		case frame := <-c.send:
			out = append(out, string(frame))
		default:
			return out
		}
	}
}

// provisioned sets up a store that already knows every user and room.
func provisioned() *mockStore {
	store := &mockStore{}
	store.On("FindUserByID", mock.Anything, mock.Anything).Return(&models.User{}, nil)
	store.On("UpsertRoomBySlug", mock.Anything, mock.Anything, mock.Anything).Return(&models.Room{ID: 1}, nil)
	return store
}

func TestRelay_DuplicateJoinIsIdempotent(t *testing.T) {
	r := newTestRelay(provisioned())
	c := register(r, "u1")

	r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"r1"}`))
	r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"r1"}`))

	assert.Equal(t, []string{"r1"}, c.Rooms())

	r.HandleMessage(context.Background(), c, []byte(`{"type":"leave_room","roomId":"r1"}`))
	assert.Empty(t, c.Rooms(), "one leave undoes any number of joins")

	r.HandleMessage(context.Background(), c, []byte(`{"type":"leave_room","roomId":"r1"}`))
	assert.Empty(t, c.Rooms())
}

func TestRelay_JoinProvisionsPlaceholderUserAndRoom(t *testing.T) {
	store := &mockStore{}
	store.On("FindUserByID", mock.Anything, "guest-7").Return(nil, repository.ErrNotFound)
	store.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.ID == "guest-7" && u.Email == "temp_guest-7@example.com" && u.Name == "Temporary User"
	})).Return(nil)
	store.On("UpsertRoomBySlug", mock.Anything, "board", "guest-7").Return(&models.Room{ID: 3, Slug: "board"}, nil)

	r := newTestRelay(store)
	c := register(r, "guest-7")
	r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"board"}`))

	store.AssertExpectations(t)
	assert.True(t, c.InRoom("board"))
}

func TestRelay_ProvisioningFailureKeepsMembership(t *testing.T) {
	store := &mockStore{}
	store.On("FindUserByID", mock.Anything, "u1").Return(nil, errors.New("connection refused"))
	store.On("UpsertRoomBySlug", mock.Anything, "r1", "u1").Return(nil, errors.New("connection refused"))

	r := newTestRelay(store)
	c := register(r, "u1")
	r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"r1"}`))

	assert.True(t, c.InRoom("r1"))
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	assert.Empty(t, drain(c), "failures are never reported to the sender")
}

func TestRelay_ChatBroadcastIsScopedToRoom(t *testing.T) {
	store := provisioned()
	store.On("FindRoomBySlug", mock.Anything, "r1").Return(&models.Room{ID: 11, Slug: "r1"}, nil)
	store.On("CreateChat", mock.Anything, uint(11), `{"shape":{"type":"rect"}}`, "ua").Return(nil)

	r := newTestRelay(store)
	a := register(r, "ua")
	b := register(r, "ub")
	r.HandleMessage(context.Background(), a, []byte(`{"type":"join_room","roomId":"r1"}`))
	r.HandleMessage(context.Background(), b, []byte(`{"type":"join_room","roomId":"r2"}`))

	r.HandleMessage(context.Background(), a, []byte(`{"type":"chat","roomId":"r1","message":"{\"shape\":{\"type\":\"rect\"}}"}`))

	frames := drain(a)
	require.Len(t, frames, 1)
	assert.Equal(t, "chat", gjson.Get(frames[0], "type").String())
	assert.Equal(t, "r1", gjson.Get(frames[0], "roomId").String())
	assert.Equal(t, `{"shape":{"type":"rect"}}`, gjson.Get(frames[0], "message").String())
	assert.Empty(t, drain(b))
	store.AssertCalled(t, "CreateChat", mock.Anything, uint(11), `{"shape":{"type":"rect"}}`, "ua")
}

func TestRelay_ChatReachesEveryMemberConnection(t *testing.T) {
	store := provisioned()
	store.On("FindRoomBySlug", mock.Anything, "r1").Return(&models.Room{ID: 1}, nil)
	store.On("CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	r := newTestRelay(store)
	sender := register(r, "u")
	sameUserOtherTab := register(r, "u")
	outsider := register(r, "v")
	for _, c := range []*Connection{sender, sameUserOtherTab} {
		r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"r1"}`))
	}

	frame := []byte(`{"type":"chat","roomId":"r1","message":"m"}`)
	r.HandleMessage(context.Background(), outsider, frame)

	assert.Len(t, drain(sender), 1)
	assert.Len(t, drain(sameUserOtherTab), 1)
	assert.Empty(t, drain(outsider), "sending to a room doesn't require membership, receiving does")
}

func TestRelay_ChatForUnknownRoomIsDropped(t *testing.T) {
	store := provisioned()
	store.On("FindRoomBySlug", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	r := newTestRelay(store)
	c := register(r, "u")
	r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"ghost"}`))
	r.HandleMessage(context.Background(), c, []byte(`{"type":"chat","roomId":"ghost","message":"m"}`))

	assert.Empty(t, drain(c))
	store.AssertNotCalled(t, "CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRelay_PersistenceFailureStillBroadcasts(t *testing.T) {
	store := provisioned()
	store.On("FindRoomBySlug", mock.Anything, "r1").Return(&models.Room{ID: 1}, nil)
	store.On("CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	r := newTestRelay(store)
	c := register(r, "u")
	r.HandleMessage(context.Background(), c, []byte(`{"type":"join_room","roomId":"r1"}`))
	r.HandleMessage(context.Background(), c, []byte(`{"type":"chat","roomId":"r1","message":"m"}`))

	assert.Len(t, drain(c), 1)
	_, open := r.Registry().Get(c.ID)
	assert.True(t, open)
}

func TestRelay_MalformedFramesAreIgnored(t *testing.T) {
	store := &mockStore{}
	r := newTestRelay(store)
	c := register(r, "u")

	for _, raw := range []string{
		`garbage`,
		`{"type":"dance","roomId":"r1"}`,
		`{"type":"join_room"}`,
		`{"type":"chat","message":"m"}`,
	} {
		r.HandleMessage(context.Background(), c, []byte(raw))
	}

	assert.Empty(t, c.Rooms())
	store.AssertExpectations(t)
	_, open := r.Registry().Get(c.ID)
	assert.True(t, open)
}

func TestRelay_SlowMemberIsDisconnected(t *testing.T) {
	r := newTestRelay(provisioned())
	slow := NewConnection("u", 1, nil)
	r.Registry().Add(slow)
	slow.Join("r1")

	assert.Equal(t, 1, r.Broadcast("r1", []byte("one")))
	assert.Equal(t, 0, r.Broadcast("r1", []byte("two")))

	_, open := r.Registry().Get(slow.ID)
	assert.False(t, open)
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow connection not closed")
	}
}

func TestRelay_SweepClosesIdleConnections(t *testing.T) {
	r := New(Config{IdleTimeout: time.Minute}, NewRegistry(), &mockStore{}, staticVerifier{}, zerolog.Nop())
	idle := register(r, "idle")
	busy := register(r, "busy")

	later := time.Now().Add(2 * time.Minute)
	busy.lastActive.Store(later.UnixNano())

	assert.Equal(t, 1, r.Sweep(later))
	_, ok := r.Registry().Get(idle.ID)
	assert.False(t, ok)
	_, ok = r.Registry().Get(busy.ID)
	assert.True(t, ok)
}

func TestRelay_ShutdownClosesEverything(t *testing.T) {
	r := newTestRelay(&mockStore{})
	a := register(r, "a")
	b := register(r, "b")

	r.Shutdown()
	r.Shutdown()

	assert.Zero(t, r.Registry().Len())
	assert.False(t, a.Enqueue([]byte("x")))
	assert.False(t, b.Enqueue([]byte("x")))
}
