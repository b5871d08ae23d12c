package functions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/modules/functions"
	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/otp"
	"github.com/dmitrymomot/storefront/pkg/upload"
)

const testAPIKey = "secret-key"

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

func (m *fakeMailer) last(t *testing.T) email.SendEmailParams {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	return m.sent[len(m.sent)-1]
}

// codeInBody puts the plaintext code into the HTML so tests can read it.
func codeInBody(_ context.Context, _ otp.Purpose, code string, _ otp.IssueParams, _ time.Duration) (otp.Message, error) {
	return otp.Message{Subject: "Your code", HTML: code}, nil
}

// MockSigner is a mock implementation of functions.URLSigner.
type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Sign(ctx context.Context, req upload.Request) (*upload.SignedUpload, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*upload.SignedUpload), args.Error(1)
	}
	return nil, args.Error(1)
}

type app struct {
	router   http.Handler
	mailer   *fakeMailer
	identity *auth.IdentityService
	users    *auth.MemoryStorage
}

type appOption func(*functions.RouterOptions)

func newApp(t *testing.T, opts ...appOption) *app {
	t.Helper()

	mailer := &fakeMailer{}
	users := auth.NewMemoryStorage()
	identity := auth.NewIdentityService(users, auth.WithBcryptCost(bcrypt.MinCost))
	svc := otp.NewService(otp.NewMemoryStore(), mailer, identity, otp.WithMessageBuilder(codeInBody))

	errorHandler := handler.NewErrorHandler(logger.Discard(), functions.OTPErrorMapper)
	ro := functions.RouterOptions{
		OTP:           functions.NewOTPService(svc, errorHandler),
		Notifications: functions.NewNotificationService(mailer, errorHandler),
		Uploads:       functions.NewUploadService(nil, errorHandler),
		APIKey:        testAPIKey,
	}
	for _, opt := range opts {
		opt(&ro)
	}

	return &app{router: functions.Router(ro), mailer: mailer, identity: identity, users: users}
}

func (a *app) post(t *testing.T, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func requireFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) handler.JSONResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.False(t, body.OK)
	require.NotNil(t, body.Error)
	require.Equal(t, code, body.Error.Code)
	require.NotEmpty(t, body.Error.Message)
	return body
}

func requireOK(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func (a *app) passwordMatches(t *testing.T, email, password string) bool {
	t.Helper()
	user, err := a.users.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	return bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) == nil
}
