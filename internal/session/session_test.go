package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
	"github.com/DeweyHur/online-trpg/internal/inputmode"
)

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemStore(seed ...*domain.Session) *memStore {
	m := &memStore{sessions: make(map[string]*domain.Session)}
	for _, s := range seed {
		m.sessions[s.ID] = s.Clone()
	}
	return m
}

func (m *memStore) Create(ctx context.Context, llmKey, startingPrompt string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &domain.Session{ID: "sess_test", GeminiAPIKey: llmKey, Players: domain.NewRoster(), CreatedAt: time.Now()}
	m.sessions[s.ID] = s
	return s.Clone(), nil
}

func (m *memStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) Update(ctx context.Context, id string, patch *domain.SessionPatch) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if err := patch.Apply(s); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (m *memStore) get(id string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Clone()
}

type scriptedGM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	priors  []int
	// during runs while the reply is being generated.
	during func(ctx context.Context)
}

func (g *scriptedGM) Generate(ctx context.Context, prompt, llmKey string, prior []domain.Message) (string, error) {
	if g.during != nil {
		g.during(ctx)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.priors = append(g.priors, len(prior))
	return g.reply, g.err
}

func (g *scriptedGM) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

type recordingView struct {
	mu        sync.Mutex
	delivered []domain.Message
	notices   []engine.Notice
}

func (v *recordingView) Deliver(msg domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.delivered = append(v.delivered, msg)
}

func (v *recordingView) Rerender([]domain.Message) {}

func (v *recordingView) UpdateMembers([]engine.Member) {}

func (v *recordingView) Notify(n engine.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func tavern() *domain.Session {
	return &domain.Session{
		ID:           "sess_tavern",
		GeminiAPIKey: "key",
		Players:      domain.NewRoster("m1", "Alice", "m2", "Bob"),
		TurnOrder:    []string{"Alice", "Bob"},
		CurrentTurn:  "Alice",
		ChatHistory: []domain.Message{
			domain.NewMessage(domain.RoleUser, domain.AuthorSystem, "setup"),
			domain.NewMessage(domain.RoleModel, domain.AuthorGM, "A tavern at dusk."),
		},
		CharacterStats: domain.CharacterStats{
			"Alice": domain.NewStatSheet("HP", "10/10"),
			"Bob":   domain.NewStatSheet("HP", "8/8"),
		},
	}
}

func newClient(t *testing.T, store *memStore, gm *scriptedGM) (*Client, *recordingView) {
	t.Helper()
	view := &recordingView{}
	c := New(store, gm, view, Options{PollInterval: time.Hour})
	t.Cleanup(c.Leave)
	return c, view
}

func TestCreateSeedsOpeningScene(t *testing.T) {
	store := newMemStore()
	gm := &scriptedGM{reply: "Lanterns sway over a crowded room."}
	c, _ := newClient(t, store, gm)

	s, err := c.Create(context.Background(), "key", "A tavern at dusk")
	require.NoError(t, err)

	stored := store.get(s.ID)
	require.Len(t, stored.ChatHistory, 2)
	assert.Equal(t, domain.AuthorSystem, stored.ChatHistory[0].Author)
	assert.Contains(t, stored.ChatHistory[0].Text(), "A tavern at dusk")
	assert.Equal(t, domain.RoleModel, stored.ChatHistory[1].Role)
	assert.Equal(t, "Lanterns sway over a crowded room.", stored.ChatHistory[1].Text())
	assert.Empty(t, stored.CurrentTurn)
	assert.Equal(t, engine.StatePolling, c.Status().State)

	c.Leave()
	assert.Equal(t, engine.StateIdle, c.Status().State)
	assert.Nil(t, c.Game())
}

func TestCreateWithoutReplyStoresNothing(t *testing.T) {
	store := newMemStore()
	gm := &scriptedGM{err: &domain.CompletionError{Status: 400, Message: "API key not valid"}}
	c, view := newClient(t, store, gm)

	_, err := c.Create(context.Background(), "bad", "A tavern at dusk")

	var cerr *domain.CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Empty(t, store.sessions)
	require.Len(t, view.notices, 1)
	assert.Equal(t, engine.NoticeError, view.notices[0].Kind)
}

func TestJoinRecoversTurnFromHistory(t *testing.T) {
	s := tavern()
	s.CurrentTurn = ""
	s.ChatHistory = append(s.ChatHistory, domain.NewMessage(domain.RoleModel, domain.AuthorGM, "Bob steps up. ${Turn=Bob}"))
	store := newMemStore(s)
	c, _ := newClient(t, store, &scriptedGM{})

	_, err := c.Join(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, "Bob", store.get(s.ID).CurrentTurn)
	assert.Equal(t, "Bob", c.Game().CurrentTurn())
}

func TestJoinUnknownSession(t *testing.T) {
	c, view := newClient(t, newMemStore(), &scriptedGM{})

	_, err := c.Join(context.Background(), "sess_missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Len(t, view.notices, 1)
}

func TestJoinAsNewCharacter(t *testing.T) {
	store := newMemStore(tavern())
	gm := &scriptedGM{}
	c, _ := newClient(t, store, gm)
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)

	require.NoError(t, c.JoinAs(context.Background(), "Cara"))
	c.Game().WaitStats()

	stored := store.get("sess_tavern")
	assert.Equal(t, []string{"Alice", "Bob", "Cara"}, stored.TurnOrder)
	assert.True(t, stored.Players.Contains("Cara"))
	last := stored.ChatHistory[len(stored.ChatHistory)-1]
	assert.Equal(t, domain.AuthorSystem, last.Author)
	assert.Contains(t, last.Text(), "Cara")

	prompts := gm.calls()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Cara")
	assert.Equal(t, "Cara", c.Game().Identity())
}

func TestSendActionAsksGM(t *testing.T) {
	store := newMemStore(tavern())
	gm := &scriptedGM{reply: "The door creaks. Bob, your move. ${Turn=Bob}"}
	c, view := newClient(t, store, gm)
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)
	require.NoError(t, c.JoinAs(context.Background(), "Alice"))
	require.Equal(t, inputmode.Action, c.Game().Mode())

	require.NoError(t, c.SendAction(context.Background(), "I open the door"))

	stored := store.get("sess_tavern")
	require.Len(t, stored.ChatHistory, 4)
	assert.Equal(t, "Alice", stored.ChatHistory[2].Author)
	assert.Equal(t, domain.AuthorGM, stored.ChatHistory[3].Author)
	assert.Equal(t, "Bob", stored.CurrentTurn)
	assert.Len(t, view.delivered, 2)
	assert.Equal(t, inputmode.Chat, c.Game().Mode())

	prompts := gm.calls()
	require.Len(t, prompts, 1)
	assert.True(t, strings.HasSuffix(prompts[0], "Alice: I open the door"))
	assert.Equal(t, 2, gm.priors[0])
}

func TestSendActionSurvivesPollDuringGMReply(t *testing.T) {
	store := newMemStore(tavern())
	gm := &scriptedGM{reply: "The door creaks."}
	c, view := newClient(t, store, gm)
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)
	require.NoError(t, c.JoinAs(context.Background(), "Alice"))

	gm.during = func(ctx context.Context) {
		_, err := store.Update(ctx, "sess_tavern", domain.NewPatch().SetChatHistory(append(tavern().ChatHistory,
			domain.NewMessage(domain.RoleUser, "Bob", "I keep watch"))))
		require.NoError(t, err)
		require.NoError(t, c.engine.Refresh(ctx))
	}

	require.NoError(t, c.SendAction(context.Background(), "I open the door"))

	var got []string
	for _, m := range store.get("sess_tavern").ChatHistory {
		got = append(got, m.Author+": "+m.Text())
	}
	assert.Equal(t, []string{
		"SYSTEM: setup",
		"GM: A tavern at dusk.",
		"Bob: I keep watch",
		"Alice: I open the door",
		"GM: The door creaks.",
	}, got)
	assert.Empty(t, c.Game().Pending())

	var shown []string
	for _, m := range view.delivered {
		shown = append(shown, m.Text())
	}
	assert.Equal(t, []string{"I open the door", "I keep watch", "The door creaks."}, shown)
}

func TestSendActionInChatModeSkipsGM(t *testing.T) {
	store := newMemStore(tavern())
	gm := &scriptedGM{}
	c, _ := newClient(t, store, gm)
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)
	require.NoError(t, c.JoinAs(context.Background(), "Bob"))

	require.NoError(t, c.SendAction(context.Background(), "anyone got a map?"))

	assert.Len(t, store.get("sess_tavern").ChatHistory, 3)
	assert.Empty(t, gm.calls())
}

func TestSendActionGMFailureKeepsUserMessage(t *testing.T) {
	store := newMemStore(tavern())
	gm := &scriptedGM{err: &domain.CompletionError{Status: 503, Message: "overloaded"}}
	c, view := newClient(t, store, gm)
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)
	require.NoError(t, c.JoinAs(context.Background(), "Alice"))

	require.NoError(t, c.SendAction(context.Background(), "I wait"))

	assert.Len(t, store.get("sess_tavern").ChatHistory, 3)
	require.Len(t, view.notices, 2)
	assert.Equal(t, engine.NoticeError, view.notices[1].Kind)
}

func TestSendActionRequiresCharacter(t *testing.T) {
	c, _ := newClient(t, newMemStore(tavern()), &scriptedGM{})
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)

	assert.ErrorIs(t, c.SendAction(context.Background(), "hello"), ErrNoCharacter)
}

func TestRemovePlayer(t *testing.T) {
	store := newMemStore(tavern())
	c, _ := newClient(t, store, &scriptedGM{})
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)
	require.NoError(t, c.JoinAs(context.Background(), "Alice"))

	assert.Error(t, c.RemovePlayer(context.Background(), "Alice"))
	var merr *domain.MembershipError
	assert.True(t, errors.As(c.RemovePlayer(context.Background(), "Ghost"), &merr))

	require.NoError(t, c.RemovePlayer(context.Background(), "Bob"))
	stored := store.get("sess_tavern")
	assert.Equal(t, []string{"Alice"}, stored.TurnOrder)
	assert.False(t, stored.Players.Contains("Bob"))
	assert.False(t, stored.CharacterStats.Has("Bob"))
	assert.Equal(t, "Bob has left the adventure.", stored.ChatHistory[len(stored.ChatHistory)-1].Text())
}

func TestAdvanceAndModes(t *testing.T) {
	store := newMemStore(tavern())
	c, _ := newClient(t, store, &scriptedGM{})
	_, err := c.Join(context.Background(), "sess_tavern")
	require.NoError(t, err)
	require.NoError(t, c.JoinAs(context.Background(), "Alice"))

	m, err := c.SetMode("chat")
	require.NoError(t, err)
	assert.Equal(t, inputmode.Chat, m)

	m, err = c.SetMode("auto")
	require.NoError(t, err)
	assert.Equal(t, inputmode.Action, m)

	_, err = c.SetMode("shout")
	assert.Error(t, err)

	require.NoError(t, c.Advance(context.Background()))
	assert.Equal(t, "Bob", store.get("sess_tavern").CurrentTurn)
	assert.Equal(t, inputmode.Chat, c.Game().Mode())
}

func TestOperationsOutsideSession(t *testing.T) {
	c, _ := newClient(t, newMemStore(), &scriptedGM{})

	assert.ErrorIs(t, c.SendAction(context.Background(), "hi"), engine.ErrNoSession)
	assert.ErrorIs(t, c.JoinAs(context.Background(), "Rin"), engine.ErrNoSession)
	assert.ErrorIs(t, c.Advance(context.Background()), engine.ErrNoSession)
	assert.Nil(t, c.Members())
}
