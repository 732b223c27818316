package user_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

const pwd = "Tr1cky!Pass"

type recordingMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *recordingMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

func newService() (*user.Service, *recordingMailer) {
	validate, translator := core.NewValidator()
	mailer := &recordingMailer{}
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo, validate, translator, mailer, core.NewTestConfig()), mailer
}

func newUser(name, username, email string) user.NewUser {
	return user.NewUser{Name: name, Username: username, Email: email, Password: pwd, PasswordConfirm: pwd}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	return vErr.FieldMap()
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	usr, err := svc.Create(ctx, newUser(" Amani Wanjiru ", " AWanjiru ", "Amani@Uni.edu"))
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "Amani Wanjiru", usr.Name)
	assert.Equal(t, "awanjiru", usr.Username)
	assert.Equal(t, "amani@uni.edu", usr.Email)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(pwd))

	tests := []struct {
		name      string
		edit      func(nu *user.NewUser)
		wantField string
		wantMsg   string
	}{
		{name: "no name", edit: func(nu *user.NewUser) { nu.Name = "  " }, wantField: "name"},
		{name: "no username nor email", edit: func(nu *user.NewUser) { nu.Username, nu.Email = "", "" }, wantField: "email"},
		{name: "bad email", edit: func(nu *user.NewUser) { nu.Email = "nope" }, wantField: "email"},
		{name: "confirm mismatch", edit: func(nu *user.NewUser) { nu.PasswordConfirm = "Other!Pass9" }, wantField: "password_confirm"},
		{name: "bad role", edit: func(nu *user.NewUser) { nu.Roles = []string{"root:"} }, wantField: "roles", wantMsg: "invalid roles"},
		{name: "username taken", edit: func(nu *user.NewUser) { nu.Username = "awanjiru" }, wantField: "username"},
		{name: "email taken", edit: func(nu *user.NewUser) { nu.Email = "AMANI@uni.edu" }, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := newUser("Baraka Otieno", "botieno", "baraka@uni.edu")
			tt.edit(&nu)
			_, err := svc.Create(ctx, nu)
			fields := fieldErrors(t, err)
			require.Contains(t, fields, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, fields[tt.wantField])
			}
		})
	}

	t.Run("admin roles", func(t *testing.T) {
		nu := newUser("Dean", "dean", "")
		nu.Roles = []string{user.RoleAdminDean}
		usr, err := svc.Create(ctx, nu)
		require.NoError(t, err)
		assert.True(t, usr.IsAdmin())
		assert.Equal(t, 29, user.MaxRolePriority(usr.Roles))
	})
}

func TestPasswordPolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	tests := []struct {
		pwd     string
		wantMsg string
	}{
		{pwd: "Sh0rt!", wantMsg: "password must contain at least 8 characters"},
		{pwd: "With Sp4ce!", wantMsg: "password must not contain whitespace"},
		{pwd: "1234567890", wantMsg: "password cannot be entirely numeric"},
		{pwd: "alllowercase1!", wantMsg: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{pwd: "Chemundu1!", wantMsg: "password cannot be similar to user attributes"},
		{pwd: "Passw0rd!", wantMsg: "password is too common"},
	}
	for _, tt := range tests {
		t.Run(tt.pwd, func(t *testing.T) {
			nu := newUser("Wanjiku Chemundu", "chemundu", "w@uni.edu")
			nu.Password, nu.PasswordConfirm = tt.pwd, tt.pwd
			_, err := svc.Create(ctx, nu)
			assert.Equal(t, tt.wantMsg, fieldErrors(t, err)["password"])
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	usr, err := svc.Create(ctx, newUser("Amani", "amani", "amani@uni.edu"))
	require.NoError(t, err)
	assert.True(t, usr.LastLogin.IsZero())

	got, err := svc.Authenticate(ctx, " AMANI@uni.edu ", pwd)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.False(t, got.LastLogin.IsZero())

	_, err = svc.Authenticate(ctx, "amani", "wrong")
	assert.Equal(t, user.ErrInvalidCredentials, err)
	_, err = svc.Authenticate(ctx, "ghost", pwd)
	assert.Equal(t, user.ErrInvalidCredentials, err)

	_, err = svc.SetActive(ctx, usr.ID, false)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "amani", pwd)
	assert.Equal(t, user.ErrInvalidCredentials, err)

	_, err = svc.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_SetPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	usr, err := svc.Create(ctx, newUser("Amani", "amani", ""))
	require.NoError(t, err)

	_, err = svc.SetPassword(ctx, usr.ID, user.SetUserPassword{Password: "weak", PasswordConfirm: "weak"})
	assert.Contains(t, fieldErrors(t, err), "password")

	newPwd := "N3w&Better"
	got, err := svc.SetPassword(ctx, usr.ID, user.SetUserPassword{Password: newPwd, PasswordConfirm: newPwd})
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))
	assert.Error(t, got.CheckPassword(pwd))
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	svc, mailer := newService()

	usr, err := svc.Create(ctx, newUser("Amani", "amani", "amani@uni.edu"))
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@uni.edu"))
	assert.Empty(t, mailer.sent)

	require.NoError(t, svc.RequestPasswordReset(ctx, " Amani@uni.edu"))
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "amani@uni.edu", msg.To[0].Address)
	require.NoError(t, msg.Render())
	data := msg.TemplateData.(map[string]string)
	assert.Contains(t, msg.TextContent, data["Token"])

	newPwd := "N3w&Better"
	rp := user.ResetUserPassword{UID: data["UID"], Token: "bad-token", Password: newPwd, PasswordConfirm: newPwd}
	_, err = svc.ResetPassword(ctx, rp)
	assert.Equal(t, user.ErrInvalidResetLink, err)

	rp.Token = data["Token"]
	got, err := svc.ResetPassword(ctx, rp)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword(newPwd))

	// the token dies with the old password
	_, err = svc.ResetPassword(ctx, rp)
	assert.Equal(t, user.ErrInvalidResetLink, err)
}

func TestQueryFilter(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	for _, nu := range []user.NewUser{
		newUser("Amani", "amani", ""),
		newUser("Baraka", "baraka", "baraka@uni.edu"),
	} {
		_, err := svc.Create(ctx, nu)
		require.NoError(t, err)
	}
	dean := newUser("Dean Kariuki", "kariuki", "")
	dean.Roles = []string{user.RoleAdminDean}
	_, err := svc.Create(ctx, dean)
	require.NoError(t, err)

	all, err := svc.Query(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	admins, err := svc.Query(ctx, &user.QueryFilter{Role: "ADMIN:"})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "kariuki", admins[0].Username)

	found, err := svc.Query(ctx, &user.QueryFilter{Search: "uni.edu"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "baraka", found[0].Username)
}
