package contact

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeVerifier struct {
	result *Verification
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(_ context.Context, _, _ string) (*Verification, error) {
	f.calls++
	return f.result, f.err
}

type fakeMailer struct {
	sent []Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, email Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func score(v float64) *float64 { return &v }

func testContactConfig() config.ContactConfig {
	return config.ContactConfig{
		Receiver:  "owner@example.com",
		Recaptcha: config.RecaptchaConfig{MinScore: 0.5},
		SMTP:      config.SMTPConfig{Username: "mailer@example.com", FromName: "ATSQuick Contact"},
	}
}

func validMessage() types.ContactMessage {
	return types.ContactMessage{
		Name:           "Ada Lovelace",
		Email:          "ada@example.com",
		Message:        "I'd like a demo.",
		RecaptchaToken: "token",
	}
}

func newTestService(verifier BotVerifier, mailer Mailer) *Service {
	logger := errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
	return NewServiceWith(verifier, mailer, testContactConfig(), logger)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *types.ContactMessage)
		code    string
		message string
	}{
		{name: "missing name", mutate: func(m *types.ContactMessage) { m.Name = "" }, code: errors.ErrCodeMissingFields, message: MessageMissingFields},
		{name: "blank email", mutate: func(m *types.ContactMessage) { m.Email = "   " }, code: errors.ErrCodeMissingFields, message: MessageMissingFields},
		{name: "missing message", mutate: func(m *types.ContactMessage) { m.Message = "" }, code: errors.ErrCodeMissingFields, message: MessageMissingFields},
		{name: "missing token", mutate: func(m *types.ContactMessage) { m.RecaptchaToken = "" }, code: errors.ErrCodeMissingToken, message: MessageMissingToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{result: &Verification{Success: true}}
			mailer := &fakeMailer{}
			msg := validMessage()
			tt.mutate(&msg)

			err := newTestService(verifier, mailer).Submit(context.Background(), msg, "")
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Zero(t, verifier.calls, "validation happens before verification")
			assert.Empty(t, mailer.sent)
		})
	}
}

func TestSubmitBotChecks(t *testing.T) {
	tests := []struct {
		name    string
		result  *Verification
		code    string
		message string
	}{
		{name: "verification failed", result: &Verification{Success: false}, code: errors.ErrCodeBotCheckFailed, message: MessageVerificationFailed},
		{name: "score 0.4 rejected", result: &Verification{Success: true, Score: score(0.4)}, code: errors.ErrCodeBotScoreTooLow, message: MessageScoreTooLow},
		{name: "score at threshold accepted", result: &Verification{Success: true, Score: score(0.5)}},
		{name: "no score accepted", result: &Verification{Success: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			err := newTestService(&fakeVerifier{result: tt.result}, mailer).Submit(context.Background(), validMessage(), "")

			if tt.code == "" {
				require.NoError(t, err)
				assert.Len(t, mailer.sent, 1)
				return
			}
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Empty(t, mailer.sent)
		})
	}
}

func TestSubmitComposesEmail(t *testing.T) {
	mailer := &fakeMailer{}
	msg := validMessage()
	msg.Message = "<script>alert(1)</script>\nsecond line"

	err := newTestService(&fakeVerifier{result: &Verification{Success: true, Score: score(0.9)}}, mailer).
		Submit(context.Background(), msg, "203.0.113.5")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	email := mailer.sent[0]
	assert.Equal(t, "ATSQuick Contact", email.FromName)
	assert.Equal(t, "mailer@example.com", email.From)
	assert.Equal(t, "owner@example.com", email.To)
	assert.Equal(t, "ada@example.com", email.ReplyTo)
	assert.Equal(t, "New contact message from Ada Lovelace", email.Subject)
	assert.Contains(t, email.HTMLBody, "&lt;script&gt;alert(1)&lt;/script&gt;<br>second line")
	assert.Contains(t, email.HTMLBody, "I&#39;d like")
	assert.NotContains(t, email.HTMLBody, "<script>")
}

func TestSubmitPropagatesFailures(t *testing.T) {
	verifierErr := errors.NewNetworkError(errors.ErrCodeVerifierFailed, "verification request failed", nil)
	err := newTestService(&fakeVerifier{err: verifierErr}, &fakeMailer{}).Submit(context.Background(), validMessage(), "")
	assert.Equal(t, errors.ErrCodeVerifierFailed, errors.CodeOf(err))

	mailErr := errors.NewNetworkError(errors.ErrCodeDeliveryFailed, "SMTP delivery failed", stderrors.New("connection refused"))
	err = newTestService(&fakeVerifier{result: &Verification{Success: true}}, &fakeMailer{err: mailErr}).
		Submit(context.Background(), validMessage(), "")
	assert.Equal(t, errors.ErrCodeDeliveryFailed, errors.CodeOf(err))
}

func TestRecaptchaVerifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "site-secret", r.PostForm.Get("secret"))
		assert.Equal(t, "client-token", r.PostForm.Get("response"))
		assert.Equal(t, "198.51.100.7", r.PostForm.Get("remoteip"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "score": 0.4, "action": "contact", "hostname": "atsquick.dev"}`))
	}))
	defer server.Close()

	verifier := NewRecaptchaVerifier(config.RecaptchaConfig{SecretKey: "site-secret", VerifyURL: server.URL})
	result, err := verifier.Verify(context.Background(), "client-token", "198.51.100.7")
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, result.Score)
	assert.InDelta(t, 0.4, *result.Score, 1e-9)
	assert.Equal(t, errors.ErrCodeBotScoreTooLow, errors.CodeOf(checkVerification(result, 0.5)))
}

func TestRecaptchaVerifierFailures(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewRecaptchaVerifier(config.RecaptchaConfig{VerifyURL: server.URL}).Verify(context.Background(), "t", "")
		assert.Equal(t, errors.ErrCodeVerifierFailed, errors.CodeOf(err))
	})

	t.Run("not json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html></html>"))
		}))
		defer server.Close()

		_, err := NewRecaptchaVerifier(config.RecaptchaConfig{VerifyURL: server.URL}).Verify(context.Background(), "t", "")
		assert.Equal(t, errors.ErrCodeVerifierFailed, errors.CodeOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewRecaptchaVerifier(config.RecaptchaConfig{VerifyURL: url}).Verify(context.Background(), "t", "")
		assert.Equal(t, errors.ErrCodeVerifierFailed, errors.CodeOf(err))
	})
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(Email{
		FromName: "ATSQuick Contact",
		From:     "mailer@example.com",
		To:       "owner@example.com",
		ReplyTo:  "ada@example.com",
		Subject:  "New contact message from Ada",
		HTMLBody: renderBody("Ada", "ada@example.com", "Hello"),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, `"ATSQuick Contact" <mailer@example.com>`)
	assert.Contains(t, raw, "owner@example.com")
	assert.Contains(t, raw, "Reply-To:")
	assert.Contains(t, raw, "ada@example.com")
	assert.Contains(t, raw, "Subject: New contact message from Ada")
	assert.Contains(t, raw, "text/html")
}

func TestBuildMessageRejectsBadAddresses(t *testing.T) {
	_, err := buildMessage(Email{From: "", To: "owner@example.com"})
	assert.Error(t, err)

	_, err = buildMessage(Email{From: "mailer@example.com", To: "owner@example.com", ReplyTo: "not an address"})
	assert.Error(t, err)
}

func TestTLSPolicy(t *testing.T) {
	assert.Equal(t, mail.TLSMandatory, tlsPolicy("mandatory"))
	assert.Equal(t, mail.NoTLS, tlsPolicy("none"))
	assert.Equal(t, mail.TLSOpportunistic, tlsPolicy(""))
	assert.Equal(t, mail.TLSOpportunistic, tlsPolicy("OPPORTUNISTIC"))
}
