package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/tests"
)

func Test_userApi_login(t *testing.T) {
	a := setup(t)
	repo := a.env.UserRepo
	amani := testutil.CreateUser(t, repo, "Amani", "amani", "amani@uni.edu", pwd, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, repo, "Gone", "gone", "gone@uni.edu", pwd, nil, false)

	invalidCreds := marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()})

	a.run(t, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, user.LoginUser{Username: "amani", Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{
			name: "inactive user", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, user.LoginUser{Username: "gone", Password: pwd}),
			wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, user.LoginUser{Username: "nobody", Password: pwd}),
			wantCode: http.StatusBadRequest, wantData: invalidCreds,
		},
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/v1/users/login", "", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body httpErr
		decodeJSON(t, rec, &body)
		assert.Equal(t, "invalid input", body.Error)
		assert.Contains(t, body.Fields, "username")
		assert.Contains(t, body.Fields, "password")
	})

	for _, login := range []string{"amani", " AMANI@uni.edu "} {
		t.Run("success with "+login, func(t *testing.T) {
			rec := a.do(http.MethodPost, "/v1/users/login", "", marchallObj(t, user.LoginUser{Username: login, Password: pwd}))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp echoapi.LoginResponse
			decodeData(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, amani.ID, resp.User.ID)
			assert.False(t, resp.User.LastLogin.IsZero())

			rec = a.do(http.MethodGet, "/v1/users/me", resp.Token)
			require.Equal(t, http.StatusOK, rec.Code)
			var me user.User
			decodeData(t, rec, &me)
			assert.Equal(t, "amani", me.Username)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	a := setup(t)

	nu := user.NewUser{
		Name:            "Baraka",
		Username:        "baraka",
		Email:           "baraka@uni.edu",
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{user.RoleAdminRegistrar},
	}
	rec := a.do(http.MethodPost, "/v1/users/register", "", marchallObj(t, nu))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.User.IsActive)
	assert.True(t, resp.User.IsStudent(), "roles cannot be self granted")
	assert.False(t, resp.User.IsAdmin())

	t.Run("duplicate", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/v1/users/register", "", marchallObj(t, nu))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body httpErr
		decodeJSON(t, rec, &body)
		assert.Contains(t, body.Fields, "username")
	})

	t.Run("weak password", func(t *testing.T) {
		weak := nu
		weak.Username, weak.Email = "other", "other@uni.edu"
		weak.Password, weak.PasswordConfirm = "password", "password"
		rec := a.do(http.MethodPost, "/v1/users/register", "", marchallObj(t, weak))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body httpErr
		decodeJSON(t, rec, &body)
		assert.Contains(t, body.Fields, "password")
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	a := setup(t)
	repo := a.env.UserRepo
	amani := testutil.CreateUser(t, repo, "Amani", "amani", "amani@uni.edu", pwd, nil, true)
	gone := testutil.CreateUser(t, repo, "Gone", "gone", "gone@uni.edu", pwd, nil, true)
	goneToken := getToken(t, a, gone)
	_, err := a.env.Users.SetActive(context.Background(), gone.ID, false)
	require.NoError(t, err)

	a.run(t, []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/users/token-refresh",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "invalid token", method: http.MethodPost, path: "/v1/users/token-refresh", token: "not.a.jwt",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/token-refresh", token: goneToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	rec := a.do(http.MethodPost, "/v1/users/token-refresh", getToken(t, a, amani))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.TokenResponse
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
}

func Test_userApi_setPassword(t *testing.T) {
	a := setup(t)
	amani := testutil.CreateUser(t, a.env.UserRepo, "Amani", "amani", "amani@uni.edu", pwd, nil, true)
	token := getToken(t, a, amani)

	newPwd := "N3w&Better"
	rec := a.do(http.MethodPut, "/v1/users/me/password", token, marchallObj(t, user.SetUserPassword{Password: newPwd, PasswordConfirm: "typo"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/v1/users/me/password", token, marchallObj(t, user.SetUserPassword{Password: newPwd, PasswordConfirm: newPwd}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := a.env.Users.Authenticate(context.Background(), "amani", newPwd)
	assert.NoError(t, err)
}

func Test_userApi_passwordReset(t *testing.T) {
	a := setup(t)
	amani := testutil.CreateUser(t, a.env.UserRepo, "Amani", "amani", "amani@uni.edu", pwd, nil, true)

	rec := a.do(http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"not-an-email"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown addresses get the same answer
	rec = a.do(http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"nobody@uni.edu"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.env.Mailer.Sent())

	rec = a.do(http.MethodPost, "/v1/users/password-reset", "", []byte(`{"email":"Amani@uni.edu"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	var msg echoapi.MessageResponse
	decodeData(t, rec, &msg)
	assert.Contains(t, msg.Message, "instructions to reset your password")

	sent := a.env.Mailer.Sent()
	require.Len(t, sent, 1)
	data := sent[0].TemplateData.(map[string]string)
	assert.Equal(t, user.EncodeUID(amani), data["UID"])

	newPwd := "N3w&Better"
	rp := user.ResetUserPassword{UID: data["UID"], Token: "bad-token", Password: newPwd, PasswordConfirm: newPwd}
	a.run(t, []httpTest{
		{
			name: "bad token", method: http.MethodPost, path: "/v1/users/password-reset-confirm", body: marchallObj(t, rp),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrInvalidResetLink.Error()}),
		},
	})

	rp.Token = data["Token"]
	rec = a.do(http.MethodPost, "/v1/users/password-reset-confirm", "", marchallObj(t, rp))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/users/login", "", marchallObj(t, user.LoginUser{Username: "amani", Password: newPwd}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_admin(t *testing.T) {
	a := setup(t)
	repo := a.env.UserRepo
	student := testutil.CreateUser(t, repo, "Hero", "hero", "hero@uni.edu", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, repo, "Admin", "admin", "admin@uni.edu", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher", "teacher@uni.edu", "", []string{user.RoleTeacher}, true)
	naughty := testutil.CreateUser(t, repo, "N Dog", "ndog", "ndog@uni.edu", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, a, admin)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	a.run(t, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/users", token: getToken(t, a, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "roles", path: "/v1/users/roles", token: adminToken, wantData: marchallData(t, user.Roles)},
		{
			name: "bad is_active", path: "/v1/users?is_active=maybe", token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid input", Fields: map[string]string{"is_active": "is_active must be true or false"}}),
		},
		{
			name: "cannot deactivate self", method: http.MethodPut, path: "/v1/users/" + admin.ID + "/active", token: adminToken,
			body: marchallObj(t, echoapi.ActiveRequest{}), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "delete unknown", method: http.MethodDelete, path: "/v1/users/unknown", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	})

	ids := func(t *testing.T, path string) []string {
		rec := a.do(http.MethodGet, path, adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var users []user.User
		decodeData(t, rec, &users)
		var got []string
		for _, usr := range users {
			got = append(got, usr.ID)
		}
		return got
	}

	t.Run("query", func(t *testing.T) {
		assert.ElementsMatch(t, []string{student.ID, admin.ID, teacher.ID, naughty.ID}, ids(t, "/v1/users"))
		assert.ElementsMatch(t, []string{naughty.ID}, ids(t, "/v1/users?is_active=false"))
		assert.ElementsMatch(t, []string{teacher.ID}, ids(t, "/v1/users?role="+user.RoleTeacher))
		assert.ElementsMatch(t, []string{student.ID}, ids(t, "/v1/users?search=HERO"))
		assert.Empty(t, ids(t, "/v1/users?search=lol"))
	})

	t.Run("create", func(t *testing.T) {
		nu := user.NewUser{Name: "Dean", Username: "dean", Password: pwd, PasswordConfirm: pwd, Roles: []string{user.RoleAdminDean}}
		rec := a.do(http.MethodPost, "/v1/users", adminToken, marchallObj(t, nu))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "an admin cannot grant a higher role")

		nu = user.NewUser{Name: "Lecturer", Username: "lecturer", Password: pwd, PasswordConfirm: pwd, Roles: []string{user.RoleTeacher}}
		rec = a.do(http.MethodPost, "/v1/users", adminToken, marchallObj(t, nu))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created user.User
		decodeData(t, rec, &created)
		assert.True(t, created.IsTeacher())
	})

	t.Run("set active", func(t *testing.T) {
		rec := a.do(http.MethodPut, "/v1/users/"+naughty.ID+"/active", adminToken, marchallObj(t, echoapi.ActiveRequest{IsActive: true}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decodeData(t, rec, &usr)
		assert.True(t, usr.IsActive)
	})

	t.Run("delete", func(t *testing.T) {
		rec := a.do(http.MethodDelete, "/v1/users/"+student.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = a.do(http.MethodGet, "/v1/users/me", getToken(t, a, student))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "tokens of deleted users are rejected")
	})
}

func Test_userApi_rateLimit(t *testing.T) {
	counter := new(fakeCounter)
	a := setup(t, func(deps *echoapi.ServerDeps) {
		deps.LoginLimiter = counter
		deps.Conf.Server.LoginRateLimit = 2
	})
	body := marchallObj(t, user.LoginUser{Username: "nobody", Password: pwd})

	for i, want := range []string{"1", "0"} {
		rec := a.do(http.MethodPost, "/v1/users/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "attempt %d", i+1)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := a.do(http.MethodPost, "/v1/users/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// authed endpoints are not limited
	usr := testutil.CreateUser(t, a.env.UserRepo, "Amani", "amani", "", pwd, nil, true)
	rec = a.do(http.MethodGet, "/v1/users/me", getToken(t, a, usr))
	assert.Equal(t, http.StatusOK, rec.Code)
}
