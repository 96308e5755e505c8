package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DeweyHur/online-trpg/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	session *domain.Session
	getErr  error
	gets    int
	patches []*domain.SessionPatch

	// hold, when set, parks Get until it is closed.
	hold chan struct{}
	held chan struct{}
}

func newFakeStore(s *domain.Session) *fakeStore {
	return &fakeStore{session: s.Clone()}
}

func (f *fakeStore) Create(ctx context.Context, llmKey, startingPrompt string) (*domain.Session, error) {
	return nil, errors.New("not supported")
}

func (f *fakeStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	f.gets++
	hold, held := f.hold, f.held
	f.mu.Unlock()
	if hold != nil {
		held <- struct{}{}
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.session == nil || f.session.ID != id {
		return nil, domain.ErrSessionNotFound
	}
	return f.session.Clone(), nil
}

func (f *fakeStore) Update(ctx context.Context, id string, patch *domain.SessionPatch) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if err := patch.Apply(f.session); err != nil {
		return nil, err
	}
	return f.session.Clone(), nil
}

// blockGets parks every Get until release is called. entered receives one
// value per parked call.
func (f *fakeStore) blockGets() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	f.held = make(chan struct{}, 4)
	hold := f.hold
	return f.held, func() { close(hold) }
}

func (f *fakeStore) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

// edit mutates the stored session as another client would.
func (f *fakeStore) edit(fn func(s *domain.Session)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.session)
}

func (f *fakeStore) updates() []*domain.SessionPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.SessionPatch(nil), f.patches...)
}

func (f *fakeStore) current() *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Clone()
}

type fakeView struct {
	mu        sync.Mutex
	delivered []domain.Message
	rerenders int
	members   [][]Member
	notices   []Notice
}

func (v *fakeView) Deliver(msg domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.delivered = append(v.delivered, msg)
}

func (v *fakeView) Rerender(history []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rerenders++
}

func (v *fakeView) UpdateMembers(members []Member) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.members = append(v.members, members)
}

func (v *fakeView) Notify(n Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *fakeView) rerenderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rerenders
}

func (v *fakeView) texts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.delivered))
	for _, m := range v.delivered {
		out = append(out, m.Text())
	}
	return out
}

type fakeCompletion struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (c *fakeCompletion) Generate(ctx context.Context, prompt, llmKey string, prior []domain.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if llmKey == "" {
		return "", fmt.Errorf("missing key")
	}
	return c.reply, nil
}

func (c *fakeCompletion) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

type probe bool

func (p probe) Composing() bool { return bool(p) }
