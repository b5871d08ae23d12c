package otp_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/environment"
	"github.com/dmitrymomot/storefront/pkg/otp"
)

func TestIssue(t *testing.T) {
	t.Parallel()

	t.Run("stores only the salted hash of the sent code", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "A@X.com", otp.IssueParams{}))

		code := h.mailer.lastCode(t, "a@x.com")
		rec := h.record(t, otp.PurposeSignup, "a@x.com")

		assert.Len(t, code, 4)
		assert.Equal(t, 0, rec.Attempts)
		assert.Equal(t, h.clock.Now(), rec.CreatedAt)
		assert.Equal(t, h.clock.Now().Add(10*time.Minute), rec.ExpiresAt)
		assert.Nil(t, rec.VerifiedAt)
		assert.Equal(t, otp.HashCode(code, rec.Salt), rec.CodeHash)

		for i := range 10000 {
			other := fmt.Sprintf("%04d", i)
			if other == code {
				continue
			}
			require.NotEqual(t, rec.CodeHash, otp.HashCode(other, rec.Salt), "collision for %s", other)
		}
	})

	t.Run("reset uses the short ttl", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)

		require.NoError(t, h.svc.Issue(context.Background(), otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))

		rec := h.record(t, otp.PurposePasswordReset, "b@x.com")
		assert.Equal(t, h.clock.Now().Add(time.Minute), rec.ExpiresAt)
		assert.Empty(t, rec.SubjectID)
	})

	t.Run("reset for unknown account", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "ghost@x.com").Return("", otp.ErrSubjectNotFound)

		err := h.svc.Issue(context.Background(), otp.PurposePasswordReset, "ghost@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrAccountNotFound)
		assert.Equal(t, otp.ClassNotFound, otp.Classify(err))
		assert.Equal(t, 0, h.mailer.count())
		h.absent(t, otp.PurposePasswordReset, "ghost@x.com")
	})

	t.Run("identity provider failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("", errBackendDown)

		err := h.svc.Issue(context.Background(), otp.PurposePasswordReset, "b@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrIdentityUnavailable)
		assert.Equal(t, otp.ClassStorage, otp.Classify(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		for _, recipient := range []string{"", "   ", "not-an-email"} {
			err := h.svc.Issue(ctx, otp.PurposeSignup, recipient, otp.IssueParams{})
			assert.ErrorIs(t, err, otp.ErrInvalidInput, recipient)
			assert.Equal(t, otp.ClassValidation, otp.Classify(err))
		}

		err := h.svc.Issue(ctx, otp.Purpose("login"), "a@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrInvalidPurpose)
		assert.Equal(t, 0, h.mailer.count())
	})

	t.Run("any address accepted as input is delivered", func(t *testing.T) {
		t.Parallel()
		mailer := &fakeMailer{}
		gateway := email.NewGateway(environment.Production, email.WithProvider("primary", mailer))
		store := otp.NewMemoryStore()
		svc := otp.NewService(store, gateway, &MockIdentity{}, otp.WithMessageBuilder(codeInBody))
		ctx := context.Background()

		for _, recipient := range []string{"o'brien@example.com", "a@b.c", "élodie@example.com"} {
			require.NoError(t, svc.Issue(ctx, otp.PurposeSignup, recipient, otp.IssueParams{}), recipient)
			assert.NotEmpty(t, mailer.lastCode(t, recipient))
			_, err := store.Get(ctx, otp.PurposeSignup, recipient)
			assert.NoError(t, err, recipient)
		}
	})

	t.Run("recipient is kept verbatim after trim and lowercase", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		for _, recipient := range []string{"john..doe@example.com", ".jane@example.com", "jane.@example.com"} {
			err := h.svc.Issue(ctx, otp.PurposeSignup, recipient, otp.IssueParams{})
			assert.ErrorIs(t, err, otp.ErrInvalidInput, recipient)
		}
		assert.Equal(t, 0, h.mailer.count())
		h.absent(t, otp.PurposeSignup, "john.doe@example.com")
		h.absent(t, otp.PurposeSignup, "jane@example.com")

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "  First.Last@Example.com ", otp.IssueParams{}))
		assert.NotEmpty(t, h.mailer.lastCode(t, "first.last@example.com"))
		h.record(t, otp.PurposeSignup, "first.last@example.com")
	})

	t.Run("storage failure", func(t *testing.T) {
		t.Parallel()
		store := &flakyStore{Store: otp.NewMemoryStore(), getErr: errBackendDown}
		svc := otp.NewService(store, &fakeMailer{}, &MockIdentity{}, otp.WithMessageBuilder(codeInBody))

		err := svc.Issue(context.Background(), otp.PurposeSignup, "a@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrStorage)
		assert.ErrorIs(t, err, errBackendDown)
		assert.Equal(t, otp.ClassStorage, otp.Classify(err))
	})

	t.Run("losing a concurrent write is throttled", func(t *testing.T) {
		t.Parallel()
		mailer := &fakeMailer{}
		store := &flakyStore{Store: otp.NewMemoryStore(), conflicts: 1}
		svc := otp.NewService(store, mailer, &MockIdentity{}, otp.WithMessageBuilder(codeInBody))

		err := svc.Issue(context.Background(), otp.PurposeSignup, "a@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrThrottled)
		assert.Equal(t, 0, mailer.count())
	})
}

func TestIssue_Throttle(t *testing.T) {
	t.Parallel()

	t.Run("second issue within the interval is rejected", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "c@x.com", otp.IssueParams{}))
		first := h.record(t, otp.PurposeSignup, "c@x.com")

		h.clock.Advance(10 * time.Second)
		err := h.svc.Issue(ctx, otp.PurposeSignup, "c@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrThrottled)
		assert.Equal(t, otp.ClassRateLimit, otp.Classify(err))

		assert.Equal(t, first.CodeHash, h.record(t, otp.PurposeSignup, "c@x.com").CodeHash)
		assert.Equal(t, 1, h.mailer.count())
	})

	t.Run("issue after the interval replaces the record", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "c@x.com", otp.IssueParams{}))
		firstCode := h.mailer.lastCode(t, "c@x.com")
		first := h.record(t, otp.PurposeSignup, "c@x.com")

		h.clock.Advance(60 * time.Second)
		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "c@x.com", otp.IssueParams{}))

		second := h.record(t, otp.PurposeSignup, "c@x.com")
		assert.NotEqual(t, first.Salt, second.Salt)
		assert.Equal(t, 0, second.Attempts)
		assert.Equal(t, h.clock.Now(), second.CreatedAt)

		if secondCode := h.mailer.lastCode(t, "c@x.com"); secondCode != firstCode {
			assert.ErrorIs(t, h.svc.Verify(ctx, otp.PurposeSignup, "c@x.com", firstCode), otp.ErrInvalidCode)
		}
	})

	t.Run("expired reset record never throttles", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, otp.WithConfig(otp.Config{ResetTTL: 30 * time.Second, SignupTTL: 30 * time.Second}))
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))
		h.clock.Advance(30 * time.Second)
		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))
		assert.Equal(t, 2, h.mailer.count())
	})

	t.Run("unexpired reset record throttles", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))
		h.clock.Advance(30 * time.Second)
		assert.ErrorIs(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}), otp.ErrThrottled)
	})

	t.Run("expired signup record still throttles", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, otp.WithConfig(otp.Config{SignupTTL: 30 * time.Second}))
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		h.clock.Advance(31 * time.Second)
		assert.ErrorIs(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}), otp.ErrThrottled)
	})

	t.Run("purposes throttle independently", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "a@x.com").Return("user-1", nil)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "a@x.com", otp.IssueParams{}))
	})
}

func TestIssue_DeliveryFailure(t *testing.T) {
	t.Parallel()

	t.Run("undelivered record is removed", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.mailer.setErr(errors.New("smtp down"))

		err := h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrDeliveryFailed)
		assert.Equal(t, otp.ClassDelivery, otp.Classify(err))
		h.absent(t, otp.PurposeSignup, "a@x.com")

		h.mailer.setErr(nil)
		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}), "retry is not throttled")
	})

	t.Run("undelivered record can be kept", func(t *testing.T) {
		t.Parallel()
		cfg := otp.DefaultConfig()
		cfg.DeleteOnDeliveryFailure = false
		h := newHarness(t, otp.WithConfig(cfg))
		ctx := context.Background()
		h.mailer.setErr(errors.New("smtp down"))

		assert.ErrorIs(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}), otp.ErrDeliveryFailed)
		h.record(t, otp.PurposeSignup, "a@x.com")

		h.mailer.setErr(nil)
		assert.ErrorIs(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}), otp.ErrThrottled)
	})

	t.Run("render failure counts as delivery failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, otp.WithMessageBuilder(func(context.Context, otp.Purpose, string, otp.IssueParams, time.Duration) (otp.Message, error) {
			return otp.Message{}, errors.New("template broken")
		}))

		err := h.svc.Issue(context.Background(), otp.PurposeSignup, "a@x.com", otp.IssueParams{})
		assert.ErrorIs(t, err, otp.ErrDeliveryFailed)
		assert.Equal(t, 0, h.mailer.count())
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	t.Run("signup code verifies exactly once", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		require.NoError(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code))
		h.absent(t, otp.PurposeSignup, "a@x.com")

		err := h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code)
		assert.ErrorIs(t, err, otp.ErrNoCodeRequested)
		assert.Equal(t, otp.ClassNotFound, otp.Classify(err))
	})

	t.Run("submitted code and email are normalized", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		require.NoError(t, h.svc.Verify(ctx, otp.PurposeSignup, " A@X.COM ", "  "+code+"\n"))
	})

	t.Run("no code requested", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		assert.ErrorIs(t, h.svc.Verify(context.Background(), otp.PurposeSignup, "a@x.com", "1234"), otp.ErrNoCodeRequested)
	})

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		assert.ErrorIs(t, h.svc.Verify(ctx, otp.PurposeSignup, "", "1234"), otp.ErrInvalidInput)
		assert.ErrorIs(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", "   "), otp.ErrInvalidInput)
		assert.ErrorIs(t, h.svc.Verify(ctx, otp.Purpose(""), "a@x.com", "1234"), otp.ErrInvalidPurpose)
	})

	t.Run("five wrong codes then the ceiling", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		for i := 1; i <= 5; i++ {
			err := h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", wrongCode(code))
			require.ErrorIs(t, err, otp.ErrInvalidCode)
			assert.Equal(t, otp.ClassValidation, otp.Classify(err))
			assert.Equal(t, i, h.record(t, otp.PurposeSignup, "a@x.com").Attempts)
		}

		err := h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code)
		assert.ErrorIs(t, err, otp.ErrTooManyAttempts)
		assert.Equal(t, otp.ClassRateLimit, otp.Classify(err))
		h.absent(t, otp.PurposeSignup, "a@x.com")
	})

	t.Run("correct code after four misses succeeds", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		for range 4 {
			require.ErrorIs(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", wrongCode(code)), otp.ErrInvalidCode)
		}
		require.NoError(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code))
	})

	t.Run("expired code fails and is deleted", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		h.clock.Advance(10 * time.Minute)
		h.record(t, otp.PurposeSignup, "a@x.com")

		h.clock.Advance(time.Second)
		err := h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code)
		assert.ErrorIs(t, err, otp.ErrCodeExpired)
		assert.Equal(t, otp.ClassExpired, otp.Classify(err))
		h.absent(t, otp.PurposeSignup, "a@x.com")
	})

	t.Run("code is still valid exactly at expiry", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		h.clock.Advance(10 * time.Minute)
		require.NoError(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code))
	})

	t.Run("expiry wins over the ceiling", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")
		for range 5 {
			require.ErrorIs(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", wrongCode(code)), otp.ErrInvalidCode)
		}

		h.clock.Advance(11 * time.Minute)
		assert.ErrorIs(t, h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", code), otp.ErrCodeExpired)
	})

	t.Run("retries after a lost version race", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		mailer := &fakeMailer{}
		mem := otp.NewMemoryStore(otp.WithMemoryClock(clock.Now))
		store := &flakyStore{Store: mem}
		svc := otp.NewService(store, mailer, &MockIdentity{}, otp.WithClock(clock.Now), otp.WithMessageBuilder(codeInBody))
		ctx := context.Background()

		require.NoError(t, svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := mailer.lastCode(t, "a@x.com")

		store.conflicts = 2
		require.ErrorIs(t, svc.Verify(ctx, otp.PurposeSignup, "a@x.com", wrongCode(code)), otp.ErrInvalidCode)

		rec, err := mem.Get(ctx, otp.PurposeSignup, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, 1, rec.Attempts)

		store.conflicts = 3
		assert.ErrorIs(t, svc.Verify(ctx, otp.PurposeSignup, "a@x.com", wrongCode(code)), otp.ErrStorage)
	})

	t.Run("concurrent misses are all counted", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposeSignup, "a@x.com", otp.IssueParams{}))
		code := h.mailer.lastCode(t, "a@x.com")

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			invalid int
		)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if errors.Is(h.svc.Verify(ctx, otp.PurposeSignup, "a@x.com", wrongCode(code)), otp.ErrInvalidCode) {
					mu.Lock()
					invalid++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, invalid, h.record(t, otp.PurposeSignup, "a@x.com").Attempts)
	})
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	issueAndVerify := func(t *testing.T, h *harness, recipient string) {
		t.Helper()
		ctx := context.Background()
		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, recipient, otp.IssueParams{}))
		require.NoError(t, h.svc.Verify(ctx, otp.PurposePasswordReset, recipient, h.mailer.lastCode(t, recipient)))
	}

	t.Run("end to end", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", "newpass1").Return(nil).Once()

		issueAndVerify(t, h, "b@x.com")

		rec := h.record(t, otp.PurposePasswordReset, "b@x.com")
		require.NotNil(t, rec.VerifiedAt)
		assert.Equal(t, h.clock.Now(), *rec.VerifiedAt)
		assert.Equal(t, "user-1", rec.SubjectID)

		h.clock.Advance(30 * time.Second)
		require.NoError(t, h.svc.CompleteReset(ctx, "b@x.com", "newpass1"))

		h.identity.AssertExpectations(t)
		h.absent(t, otp.PurposePasswordReset, "b@x.com")
	})

	t.Run("grace window is measured from verification", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", "newpass1").Return(nil).Once()

		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))
		h.clock.Advance(50 * time.Second)
		require.NoError(t, h.svc.Verify(ctx, otp.PurposePasswordReset, "b@x.com", h.mailer.lastCode(t, "b@x.com")))

		h.clock.Advance(60 * time.Second)
		require.NoError(t, h.svc.CompleteReset(ctx, "b@x.com", "newpass1"))
	})

	t.Run("lapsed session is deleted", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)

		issueAndVerify(t, h, "b@x.com")
		h.clock.Advance(61 * time.Second)

		err := h.svc.CompleteReset(context.Background(), "b@x.com", "newpass1")
		assert.ErrorIs(t, err, otp.ErrSessionExpired)
		assert.Equal(t, otp.ClassExpired, otp.Classify(err))
		h.absent(t, otp.PurposePasswordReset, "b@x.com")
		h.identity.AssertNotCalled(t, "SetCredential", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("short password keeps the session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", "newpass1").Return(nil).Once()

		issueAndVerify(t, h, "b@x.com")

		err := h.svc.CompleteReset(ctx, "b@x.com", "12345")
		assert.ErrorIs(t, err, otp.ErrPasswordTooShort)
		assert.Equal(t, otp.ClassValidation, otp.Classify(err))
		h.record(t, otp.PurposePasswordReset, "b@x.com")

		require.NoError(t, h.svc.CompleteReset(ctx, "b@x.com", "newpass1"))
	})

	t.Run("overlong password keeps the session", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", "newpass1").Return(nil).Once()

		issueAndVerify(t, h, "b@x.com")

		err := h.svc.CompleteReset(ctx, "b@x.com", strings.Repeat("p", otp.MaxPasswordBytes+8))
		assert.ErrorIs(t, err, otp.ErrPasswordTooLong)
		assert.Equal(t, otp.ClassValidation, otp.Classify(err))
		h.record(t, otp.PurposePasswordReset, "b@x.com")

		require.NoError(t, h.svc.CompleteReset(ctx, "b@x.com", "newpass1"))
		h.identity.AssertNotCalled(t, "SetCredential", mock.Anything, "user-1", strings.Repeat("p", otp.MaxPasswordBytes+8))
	})

	t.Run("password at the byte limit is accepted", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		// 24 three-byte runes is exactly the limit in bytes.
		pw := strings.Repeat("€", otp.MaxPasswordBytes/3)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", pw).Return(nil).Once()

		issueAndVerify(t, h, "b@x.com")

		require.NoError(t, h.svc.CompleteReset(context.Background(), "b@x.com", pw))
		assert.ErrorIs(t, h.svc.CompleteReset(context.Background(), "b@x.com", pw+"x"), otp.ErrPasswordTooLong)
	})

	t.Run("short password after the window still fails validation first", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)

		issueAndVerify(t, h, "b@x.com")
		h.clock.Advance(2 * time.Minute)

		assert.ErrorIs(t, h.svc.CompleteReset(context.Background(), "b@x.com", "123"), otp.ErrPasswordTooShort)
		h.record(t, otp.PurposePasswordReset, "b@x.com")
	})

	t.Run("unverified reset is not authorized", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)

		assert.ErrorIs(t, h.svc.CompleteReset(ctx, "b@x.com", "newpass1"), otp.ErrResetNotAuthorized)

		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))
		assert.ErrorIs(t, h.svc.CompleteReset(ctx, "b@x.com", "newpass1"), otp.ErrResetNotAuthorized)
		h.record(t, otp.PurposePasswordReset, "b@x.com")
	})

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()

		assert.ErrorIs(t, h.svc.CompleteReset(ctx, "", "newpass1"), otp.ErrInvalidInput)
		assert.ErrorIs(t, h.svc.CompleteReset(ctx, "b@x.com", ""), otp.ErrInvalidInput)
	})

	t.Run("account removed before verification", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		ctx := context.Background()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil).Once()
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("", otp.ErrSubjectNotFound)

		require.NoError(t, h.svc.Issue(ctx, otp.PurposePasswordReset, "b@x.com", otp.IssueParams{}))
		err := h.svc.Verify(ctx, otp.PurposePasswordReset, "b@x.com", h.mailer.lastCode(t, "b@x.com"))
		assert.ErrorIs(t, err, otp.ErrAccountNotFound)
		h.absent(t, otp.PurposePasswordReset, "b@x.com")
	})

	t.Run("identity failure after claim", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", "newpass1").Return(errBackendDown)

		issueAndVerify(t, h, "b@x.com")

		err := h.svc.CompleteReset(context.Background(), "b@x.com", "newpass1")
		assert.ErrorIs(t, err, otp.ErrIdentityUnavailable)
		h.absent(t, otp.PurposePasswordReset, "b@x.com")
	})

	t.Run("verified reset is consumed once under concurrency", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.identity.On("FindSubject", mock.Anything, "b@x.com").Return("user-1", nil)
		h.identity.On("SetCredential", mock.Anything, "user-1", "newpass1").Return(nil)

		issueAndVerify(t, h, "b@x.com")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := h.svc.CompleteReset(context.Background(), "b@x.com", "newpass1")
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, otp.ErrResetNotAuthorized)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		h.identity.AssertNumberOfCalls(t, "SetCredential", 1)
	})
}

func TestError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("%w: %w", otp.ErrStorage, errBackendDown)
	e, ok := otp.AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "otp.storage_unavailable", e.Reason)
	assert.Equal(t, "storage", e.Class.String())
	assert.Equal(t, otp.ClassUnknown, otp.Classify(errBackendDown))

	_, ok = otp.AsError(errBackendDown)
	assert.False(t, ok)
}
