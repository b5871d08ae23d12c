package otp_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/otp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMailer records every message. The test message builder puts the
// plaintext code into the HTML body so tests can read it back.
type fakeMailer struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	err  error
}

func (m *fakeMailer) SendEmail(_ context.Context, params email.SendEmailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, params)
	return nil
}

func (m *fakeMailer) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) lastCode(t *testing.T, recipient string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].SendTo == recipient {
			return m.sent[i].BodyHTML
		}
	}
	t.Fatalf("no email sent to %s", recipient)
	return ""
}

func codeInBody(_ context.Context, purpose otp.Purpose, code string, _ otp.IssueParams, _ time.Duration) (otp.Message, error) {
	return otp.Message{Subject: "code for " + string(purpose), HTML: code}, nil
}

// MockIdentity is a mock implementation of otp.IdentityProvider.
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) FindSubject(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockIdentity) SetCredential(ctx context.Context, subjectID, password string) error {
	args := m.Called(ctx, subjectID, password)
	return args.Error(0)
}

// flakyStore wraps a Store and fails the next N writes with a version
// conflict, simulating a concurrent writer.
type flakyStore struct {
	otp.Store
	mu        sync.Mutex
	conflicts int
	getErr    error
}

func (s *flakyStore) Get(ctx context.Context, purpose otp.Purpose, recipient string) (*otp.Record, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, purpose, recipient)
}

func (s *flakyStore) Put(ctx context.Context, rec *otp.Record, expected int64) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return otp.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.Store.Put(ctx, rec, expected)
}

var errBackendDown = errors.New("backend down")

type harness struct {
	svc      *otp.Service
	store    *otp.MemoryStore
	clock    *fakeClock
	mailer   *fakeMailer
	identity *MockIdentity
}

func newHarness(t *testing.T, opts ...otp.Option) *harness {
	t.Helper()

	h := &harness{
		clock:    newFakeClock(),
		mailer:   &fakeMailer{},
		identity: &MockIdentity{},
	}
	h.store = otp.NewMemoryStore(otp.WithMemoryClock(h.clock.Now))

	base := []otp.Option{
		otp.WithClock(h.clock.Now),
		otp.WithMessageBuilder(codeInBody),
	}
	h.svc = otp.NewService(h.store, h.mailer, h.identity, append(base, opts...)...)
	return h
}

func (h *harness) record(t *testing.T, purpose otp.Purpose, recipient string) *otp.Record {
	t.Helper()
	rec, err := h.store.Get(context.Background(), purpose, recipient)
	require.NoError(t, err)
	return rec
}

func (h *harness) absent(t *testing.T, purpose otp.Purpose, recipient string) {
	t.Helper()
	_, err := h.store.Get(context.Background(), purpose, recipient)
	require.ErrorIs(t, err, otp.ErrRecordNotFound)
}

// wrongCode returns a code of the same length that differs from code.
func wrongCode(code string) string {
	if code == "1111" {
		return "2222"
	}
	return "1111"
}
