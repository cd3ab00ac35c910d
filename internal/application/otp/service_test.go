package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-wallet-otp/internal/domain"
	"github.com/go-wallet-otp/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(email string) (string, error) {
	args := m.Called(email)
	return args.String(0), args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	args := m.Called(ctx, email)
	if r, _ := args.Get(0).(*domain.OTPRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) Put(ctx context.Context, rec *domain.OTPRecord) error {
	return m.Called(ctx, rec).Error(0)
}
func (m *mockStore) Delete(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequence returns a generator yielding the given codes in order.
func sequence(codes ...string) func() (string, error) {
	var i int32 = -1
	return func() (string, error) {
		n := atomic.AddInt32(&i, 1)
		if int(n) >= len(codes) {
			return "", fmt.Errorf("sequence exhausted")
		}
		return codes[n], nil
	}
}

// --- builder ---

type fixture struct {
	svc    Service
	store  *memory.OTPStore
	mailer *mockMailer
	clock  *fakeClock
}

func newFixture(codes ...string) *fixture {
	f := &fixture{
		store:  memory.NewOTPStore(),
		mailer: &mockMailer{},
		clock:  &fakeClock{now: time.Date(2024, 8, 23, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = NewService(ServiceDeps{
		Store:    f.store,
		Mailer:   f.mailer,
		Clock:    f.clock,
		Generate: sequence(codes...),
	})
	return f
}

// --- RequestOTP ---

func TestRequestOTP_MissingEmail_ReturnsBadRequest(t *testing.T) {
	f := newFixture("123456")
	err := f.svc.RequestOTP(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Zero(t, f.store.Len())
	f.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestOTP_HappyPath(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, "a@b.com", MailSubject,
		"Your OTP for wallet creation is: 123456\n\nThis code will expire in 5 minutes.").Return(nil)

	require.NoError(t, f.svc.RequestOTP(context.Background(), "a@b.com"))

	rec, err := f.store.Get(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", rec.Code)
	assert.Equal(t, f.clock.Now().Add(300000*time.Millisecond), rec.ExpiresAt)
	f.mailer.AssertExpectations(t)
}

func TestRequestOTP_MailerGetsDeadline(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "a@b.com", MailSubject, mock.Anything).Return(nil)

	require.NoError(t, f.svc.RequestOTP(context.Background(), "a@b.com"))
	f.mailer.AssertExpectations(t)
}

func TestRequestOTP_MailFailure_KeepsRecord(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, "a@b.com", MailSubject, mock.Anything).
		Return(errors.New("535 authentication failed"))

	err := f.svc.RequestOTP(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMailDispatch))

	// The code stays verifiable even though the mail never arrived.
	v, err := f.svc.VerifyOTP(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", v.Email)
}

func TestRequestOTP_StoreFailure_SkipsMail(t *testing.T) {
	st := &mockStore{}
	st.On("Put", mock.Anything, mock.AnythingOfType("*domain.OTPRecord")).Return(errors.New("boom"))
	ml := &mockMailer{}

	svc := NewService(ServiceDeps{Store: st, Mailer: ml, Generate: sequence("123456")})
	err := svc.RequestOTP(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrMailDispatch))
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestOTP_GeneratorFailure(t *testing.T) {
	f := newFixture()
	err := f.svc.RequestOTP(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.Zero(t, f.store.Len())
}

func TestRequestOTP_ReissueInvalidatesPreviousCode(t *testing.T) {
	f := newFixture("111111", "222222")
	f.mailer.On("SendEmail", mock.Anything, "a@b.com", MailSubject, mock.Anything).Return(nil)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	_, err := f.svc.VerifyOTP(ctx, "a@b.com", "111111")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = f.svc.VerifyOTP(ctx, "a@b.com", "222222")
	assert.NoError(t, err)
}

// --- VerifyOTP ---

func TestVerifyOTP_MissingFields_ReturnsBadRequest(t *testing.T) {
	st := &mockStore{}
	svc := NewService(ServiceDeps{Store: st})

	_, err := svc.VerifyOTP(context.Background(), "", "123456")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	_, err = svc.VerifyOTP(context.Background(), "a@b.com", "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	st.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestVerifyOTP_NoRecord_ReturnsNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.VerifyOTP(context.Background(), "a@b.com", "123456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_StoreFailure_IsNotNotFound(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@b.com").Return(nil, errors.New("throttled"))

	svc := NewService(ServiceDeps{Store: st})
	_, err := svc.VerifyOTP(context.Background(), "a@b.com", "123456")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_CorrectCode_SucceedsOnce(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	v, err := f.svc.VerifyOTP(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), v.VerifiedAt)
	assert.Empty(t, v.Token)

	_, err = f.svc.VerifyOTP(ctx, "a@b.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_Expired_DeletesRecord(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	f.clock.Advance(5*time.Minute + time.Millisecond)

	_, err := f.svc.VerifyOTP(ctx, "a@b.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrExpired))
	assert.Zero(t, f.store.Len())

	_, err = f.svc.VerifyOTP(ctx, "a@b.com", "123456")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_AtExactExpiry_StillValid(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	f.clock.Advance(5 * time.Minute)

	_, err := f.svc.VerifyOTP(ctx, "a@b.com", "123456")
	assert.NoError(t, err)
}

func TestVerifyOTP_Expired_WrongCodeStillExpires(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	f.clock.Advance(10 * time.Minute)

	_, err := f.svc.VerifyOTP(ctx, "a@b.com", "999999")
	assert.True(t, errors.Is(err, domain.ErrExpired))
	assert.Zero(t, f.store.Len())
}

func TestVerifyOTP_Mismatch_KeepsRecord(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	for _, wrong := range []string{"654321", " 123456", "123456 ", "0123456", "12345"} {
		_, err := f.svc.VerifyOTP(ctx, "a@b.com", wrong)
		assert.True(t, errors.Is(err, domain.ErrUnauthorized), wrong)
	}
	assert.Equal(t, 1, f.store.Len())

	_, err := f.svc.VerifyOTP(ctx, "a@b.com", "123456")
	assert.NoError(t, err)
}

func TestVerifyOTP_Scenario(t *testing.T) {
	f := newFixture("482913")
	f.mailer.On("SendEmail", mock.Anything, "a@b.com", MailSubject, mock.Anything).Return(nil)
	ctx := context.Background()
	start := f.clock.Now()

	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))
	rec, err := f.store.Get(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, start.Add(300000*time.Millisecond), rec.ExpiresAt)

	f.clock.Advance(time.Second)
	_, err = f.svc.VerifyOTP(ctx, "a@b.com", "000000")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	f.clock.Advance(time.Second)
	v, err := f.svc.VerifyOTP(ctx, "a@b.com", "482913")
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Second), v.VerifiedAt)

	f.clock.Advance(time.Second)
	_, err = f.svc.VerifyOTP(ctx, "a@b.com", "482913")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyOTP_WithSigner_AttachesToken(t *testing.T) {
	ml := &mockMailer{}
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sg := &mockSigner{}
	sg.On("Sign", "a@b.com").Return("signed.jwt.token", nil)

	svc := NewService(ServiceDeps{Store: memory.NewOTPStore(), Mailer: ml, Signer: sg, Generate: sequence("123456")})
	ctx := context.Background()
	require.NoError(t, svc.RequestOTP(ctx, "a@b.com"))

	v, err := svc.VerifyOTP(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "signed.jwt.token", v.Token)
	sg.AssertExpectations(t)
}

func TestVerifyOTP_SignerFailure_StillVerifies(t *testing.T) {
	ml := &mockMailer{}
	ml.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	sg := &mockSigner{}
	sg.On("Sign", "a@b.com").Return("", errors.New("no key"))

	svc := NewService(ServiceDeps{Store: memory.NewOTPStore(), Mailer: ml, Signer: sg, Generate: sequence("123456")})
	ctx := context.Background()
	require.NoError(t, svc.RequestOTP(ctx, "a@b.com"))

	v, err := svc.VerifyOTP(ctx, "a@b.com", "123456")
	require.NoError(t, err)
	assert.Empty(t, v.Token)
}

func TestVerifyOTP_ConcurrentCorrectCode_SucceedsExactlyOnce(t *testing.T) {
	f := newFixture("123456")
	f.mailer.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestOTP(ctx, "a@b.com"))

	var ok, notFound int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyOTP(ctx, "a@b.com", "123456")
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrNotFound):
				atomic.AddInt32(&notFound, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(31), notFound)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "5 minutes", humanDuration(5*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "90 seconds", humanDuration(90*time.Second))
}
