package user_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/testutil"
)

type fakeMailer struct {
	mu          sync.Mutex
	resetTokens []string
	banned      []string
}

func (f *fakeMailer) SendPasswordResetEmail(_ context.Context, email, _, token string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetTokens = append(f.resetTokens, token)
	return nil
}

func (f *fakeMailer) SendAccountBannedEmail(_ context.Context, email, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned = append(f.banned, email)
	return nil
}

type accountsFixture struct {
	svc    *user.Service
	admin  *user.AdminService
	mailer *fakeMailer
}

func newAccounts(t *testing.T) accountsFixture {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	cfg := testutil.Config()
	mailer := &fakeMailer{}
	return accountsFixture{
		svc:    user.NewService(db, rdb, cfg, mailer, logger.Discard()),
		admin:  user.NewAdminService(db, rdb, cfg, mailer, logger.Discard()),
		mailer: mailer,
	}
}

const strongPassword = "Tr1ckyHorse"

func TestRegisterAndLogin(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "Ada@Example.com", Password: strongPassword, FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)

	login, err := f.svc.Login(ctx, &user.LoginRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = f.svc.Login(ctx, &user.LoginRequest{Email: "ada@example.com", Password: "Wrong1234x"})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, &user.RegisterRequest{Email: "ADA@example.com", Password: strongPassword})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Register(ctx, &user.RegisterRequest{Email: "bob@example.com", Password: "short"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRefreshTokenIssuesNewPair(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)

	refreshed, err := f.svc.RefreshToken(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, refreshed.User.ID)

	_, err = f.svc.RefreshToken(ctx, reg.AccessToken)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))
	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	require.Len(t, f.mailer.resetTokens, 1)
	token := f.mailer.resetTokens[0]

	require.NoError(t, f.svc.ResetPassword(ctx, token, "N3wPassphrase"))
	err = f.svc.ResetPassword(ctx, token, "An0therPhrase")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Login(ctx, &user.LoginRequest{Email: "ada@example.com", Password: "N3wPassphrase"})
	assert.NoError(t, err)
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, reg.User.ID, "Wrong1234x", "N3wPassphrase")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	require.NoError(t, f.svc.ChangePassword(ctx, reg.User.ID, strongPassword, "N3wPassphrase"))
}

func TestUpdateProfile(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)

	first, phone := "Ada", "555-0100"
	updated, err := f.svc.UpdateProfile(ctx, reg.User.ID, &user.UpdateProfileRequest{FirstName: &first, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "555-0100", updated.Phone)
}

func TestBanBlocksLoginAndMarksTokens(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	admin, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "admin@shop.example", Password: strongPassword})
	require.NoError(t, err)
	reg, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)

	banned, err := f.admin.Ban(ctx, admin.User.ID, reg.User.ID, "spam")
	require.NoError(t, err)
	assert.True(t, banned.IsBanned())
	assert.Equal(t, []string{"ada@example.com"}, f.mailer.banned)

	isBanned, err := f.admin.IsBanned(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.True(t, isBanned)

	_, err = f.svc.Login(ctx, &user.LoginRequest{Email: "ada@example.com", Password: strongPassword})
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	_, err = f.svc.RefreshToken(ctx, reg.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	_, err = f.admin.Unban(ctx, reg.User.ID)
	require.NoError(t, err)
	isBanned, err = f.admin.IsBanned(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.False(t, isBanned)

	_, err = f.svc.Login(ctx, &user.LoginRequest{Email: "ada@example.com", Password: strongPassword})
	assert.NoError(t, err)
}

func TestAdminCannotBanSelf(t *testing.T) {
	f := newAccounts(t)
	_, err := f.admin.Ban(context.Background(), 7, 7, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestListUsersFiltersByStatus(t *testing.T) {
	f := newAccounts(t)
	ctx := context.Background()

	admin, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "admin@shop.example", Password: strongPassword})
	require.NoError(t, err)
	reg, err := f.svc.Register(ctx, &user.RegisterRequest{Email: "ada@example.com", Password: strongPassword})
	require.NoError(t, err)
	_, err = f.admin.Ban(ctx, admin.User.ID, reg.User.ID, "")
	require.NoError(t, err)

	list, err := f.admin.ListUsers(ctx, &user.UserListRequest{Status: "banned"})
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "ada@example.com", list.Users[0].Email)
	assert.Equal(t, int64(1), list.Pagination.Total)
}

var _ user.Mailer = (*fakeMailer)(nil)
