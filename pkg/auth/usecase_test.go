package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/artem13815/accounts/pkg/auth"
	"github.com/artem13815/accounts/pkg/auth/authtest"
	"github.com/artem13815/accounts/pkg/auth/mocks"
	"github.com/artem13815/accounts/pkg/security/jwt"
	"github.com/artem13815/accounts/pkg/security/password"
)

type countingIssuer struct {
	inner auth.TokenIssuer
	calls int
}

func (c *countingIssuer) Issue(ctx context.Context, userID uuid.UUID) (auth.SessionToken, error) {
	c.calls++
	return c.inner.Issue(ctx, userID)
}

type recordedOutcomes []string

func (r *recordedOutcomes) ObserveAuth(operation, outcome string) {
	*r = append(*r, operation+":"+outcome)
}

type fixture struct {
	hasher  *password.BcryptHasher
	codec   *jwt.Codec
	issuer  *countingIssuer
	metrics *recordedOutcomes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher, err := password.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := jwt.NewCodec("test-secret", "accounts", time.Hour)
	require.NoError(t, err)
	return &fixture{hasher: hasher, codec: codec, issuer: &countingIssuer{inner: codec}, metrics: &recordedOutcomes{}}
}

func (f *fixture) service(repo auth.UserRepository) auth.AuthUseCase {
	logger, _ := logtest.NewNullLogger()
	return auth.NewAuthService(repo, f.hasher, f.issuer, auth.WithLogger(logger), auth.WithMetrics(f.metrics))
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)

	var stored auth.User
	repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(auth.User{}, auth.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u auth.User) error {
		stored = u
		return nil
	})

	res, err := f.service(repo).Register(context.Background(), " alice ", " A@X.com ", "pw123456")
	require.NoError(t, err)

	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.False(t, res.User.IsAdmin)
	assert.NotEqual(t, uuid.Nil, res.User.ID)
	assert.Equal(t, stored.ID, res.User.ID)
	assert.NotEqual(t, "pw123456", stored.PasswordHash)
	assert.True(t, f.hasher.Verify("pw123456", stored.PasswordHash))

	sub, err := f.codec.Verify(res.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), sub)
	assert.Equal(t, []string{"register:success"}, []string(*f.metrics))
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	svc := f.service(repo)

	cases := []struct{ username, email, password string }{
		{"", "a@x.com", "pw"},
		{"   ", "a@x.com", "pw"},
		{"alice", "", "pw"},
		{"alice", "a@x.com", ""},
	}
	for _, tc := range cases {
		_, err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
		var verr auth.ValidationError
		require.ErrorAs(t, err, &verr)
	}
	assert.Zero(t, f.issuer.calls)
}

func TestRegister_ConflictFastPath(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(auth.User{ID: uuid.New(), Email: "a@x.com"}, nil)

	_, err := f.service(repo).Register(context.Background(), "alice", "a@x.com", "pw123456")
	require.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	assert.Zero(t, f.issuer.calls)
	assert.Equal(t, []string{"register:conflict"}, []string(*f.metrics))
}

func TestRegister_ConflictFromRepository(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(auth.User{}, auth.ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(auth.ErrUserAlreadyExists)

	_, err := f.service(repo).Register(context.Background(), "alice", "a@x.com", "pw123456")
	require.ErrorIs(t, err, auth.ErrUserAlreadyExists)
	assert.Zero(t, f.issuer.calls)
}

func TestRegister_RepositoryFailure(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	boom := errors.New("boom")
	repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(auth.User{}, boom)

	_, err := f.service(repo).Register(context.Background(), "alice", "a@x.com", "pw123456")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrUserAlreadyExists)
}

func TestRegister_TwiceKeepsFirstHash(t *testing.T) {
	f := newFixture(t)
	repo := authtest.NewMemoryRepository()
	svc := f.service(repo)

	first, err := svc.Register(context.Background(), "alice", "a@x.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "mallory", "a@x.com", "other-pass")
	require.ErrorIs(t, err, auth.ErrUserAlreadyExists)

	stored, err := repo.GetByID(context.Background(), first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, first.User.PasswordHash, stored.PasswordHash)
	assert.Equal(t, "alice", stored.Username)
	assert.True(t, f.hasher.Verify("pw123456", stored.PasswordHash))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	repo := authtest.NewMemoryRepository()
	svc := f.service(repo)

	reg, err := svc.Register(context.Background(), "alice", "a@x.com", "pw123456")
	require.NoError(t, err)
	callsAfterRegister := f.issuer.calls

	t.Run("success", func(t *testing.T) {
		res, err := svc.Login(context.Background(), "A@x.com", "pw123456")
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID, res.User.ID)
		sub, err := f.codec.Verify(res.Token.Value)
		require.NoError(t, err)
		assert.Equal(t, reg.User.ID.String(), sub)
	})

	t.Run("wrong password", func(t *testing.T) {
		before := f.issuer.calls
		res, err := svc.Login(context.Background(), "a@x.com", "wrong")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Empty(t, res.Token.Value)
		assert.Empty(t, res.User.PasswordHash)
		assert.Equal(t, before, f.issuer.calls)
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		before := f.issuer.calls
		_, err := svc.Login(context.Background(), "nobody@x.com", "pw123456")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Equal(t, before, f.issuer.calls)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(context.Background(), "", "pw123456")
		var verr auth.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	assert.Equal(t, callsAfterRegister+1, f.issuer.calls)
}

func TestLogin_RepositoryFailure(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	boom := errors.New("connection reset")
	repo.EXPECT().GetByEmail(gomock.Any(), "a@x.com").Return(auth.User{}, boom)

	_, err := f.service(repo).Login(context.Background(), "a@x.com", "pw123456")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRepositoryResolver(t *testing.T) {
	repo := authtest.NewMemoryRepository()
	admin := auth.User{ID: uuid.New(), Email: "root@x.com", IsAdmin: true}
	require.NoError(t, repo.Create(context.Background(), admin))
	resolver := auth.NewRepositoryResolver(repo)

	identity, err := resolver.ResolveIdentity(context.Background(), admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: admin.ID, IsAdmin: true}, identity)

	_, err = resolver.ResolveIdentity(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = resolver.ResolveIdentity(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

type countingHasher struct {
	inner    auth.PasswordHasher
	hashes   int
	verifies int
}

func (h *countingHasher) Hash(password string) (string, error) {
	h.hashes++
	return h.inner.Hash(password)
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.verifies++
	return h.inner.Verify(password, hash)
}

func TestLogin_UnknownEmailUsesPrecomputedHash(t *testing.T) {
	f := newFixture(t)
	hasher := &countingHasher{inner: f.hasher}
	logger, _ := logtest.NewNullLogger()
	svc := auth.NewAuthService(authtest.NewMemoryRepository(), hasher, f.issuer, auth.WithLogger(logger))
	assert.Equal(t, 1, hasher.hashes, "placeholder is hashed at construction")

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), "ghost@x.com", "whatever")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	assert.Equal(t, 1, hasher.hashes, "login never hashes")
	assert.Equal(t, 3, hasher.verifies)
}
