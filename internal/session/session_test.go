package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(role Role) User {
	return User{ID: uuid.NewString(), Email: "jane@example.com", Name: "Jane", Role: role}
}

func Test_Store_StateMachine(t *testing.T) {
	s := NewStore(nil)
	assert.Equal(t, StateAnonymous, s.State())
	_, _, ok := s.Current()
	assert.False(t, ok)

	// anonymous -> authenticated
	first := testUser(RoleUser)
	s.Login(first, Session{UserID: first.ID, Token: "t1"})
	assert.True(t, s.IsAuthenticated())
	u, sess, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, first, u)
	assert.Equal(t, "t1", sess.Token)

	// login while authenticated replaces
	second := testUser(RoleAdmin)
	s.Login(second, Session{UserID: second.ID, Token: "t2"})
	u, sess, _ = s.Current()
	assert.Equal(t, second.ID, u.ID)
	assert.Equal(t, "t2", sess.Token)

	// authenticated -> anonymous
	s.Logout()
	assert.Equal(t, StateAnonymous, s.State())
	_, _, ok = s.Current()
	assert.False(t, ok)

	// logout when anonymous stays anonymous
	s.Logout()
	assert.False(t, s.IsAuthenticated())
}

func Test_User_HasPermission(t *testing.T) {
	testCases := []struct {
		role       Role
		permission string
		expected   bool
	}{
		{role: RoleAdmin, permission: "users:delete", expected: true},
		{role: RoleManager, permission: "catalog:write", expected: true},
		{role: RoleManager, permission: "orders:read", expected: true},
		{role: RoleManager, permission: "orders:write", expected: false},
		{role: RoleManager, permission: PermissionPlaceOrder, expected: true},
		{role: RoleUser, permission: PermissionPlaceOrder, expected: true},
		{role: RoleUser, permission: "catalog:read", expected: false},
		{role: Role("guest"), permission: "catalog:read", expected: false},
		{role: Role("guest"), permission: PermissionPlaceOrder, expected: false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.role)+" "+tc.permission, func(t *testing.T) {
			assert.Equal(t, tc.expected, User{Role: tc.role}.HasPermission(tc.permission))
		})
	}
}

func Test_Issuer_IssueAndVerify(t *testing.T) {
	// given
	issuer := NewIssuer("secret", "storefront", 15*time.Minute, 24*time.Hour)
	user := testUser(RoleManager)

	// when
	sess, err := issuer.Issue(user)
	require.NoError(t, err)
	claims, err := issuer.Verify(sess.Token)

	// then
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, RoleManager, claims.Role)
	assert.Equal(t, user.Email, claims.User().Email)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), sess.ExpiresAt, 2*time.Second)
}

func Test_Issuer_VerifyRejects(t *testing.T) {
	issuer := NewIssuer("secret", "storefront", time.Minute, time.Hour)
	sess, err := issuer.Issue(testUser(RoleUser))
	require.NoError(t, err)

	expired := NewIssuer("secret", "storefront", time.Minute, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue(testUser(RoleUser))
	require.NoError(t, err)

	testCases := []struct {
		name  string
		token string
		by    *Issuer
	}{
		{name: "garbage", token: "not-a-jwt", by: issuer},
		{name: "refresh token used as access", token: sess.RefreshToken, by: issuer},
		{name: "other secret", token: sess.Token, by: NewIssuer("other", "storefront", time.Minute, time.Hour)},
		{name: "other issuer", token: sess.Token, by: NewIssuer("secret", "elsewhere", time.Minute, time.Hour)},
		{name: "expired", token: old.Token, by: issuer},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.by.Verify(tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = issuer.Verify(old.Token)
	assert.True(t, IsExpired(err))
}

func Test_Issuer_Refresh(t *testing.T) {
	// given
	issuer := NewIssuer("secret", "storefront", time.Minute, time.Hour)
	user := testUser(RoleUser)
	sess, err := issuer.Issue(user)
	require.NoError(t, err)

	// when
	refreshed, next, err := issuer.Refresh(sess.RefreshToken)

	// then
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.ID)
	assert.Equal(t, user.Name, refreshed.Name)
	assert.NotEqual(t, sess.Token, next.Token)

	_, _, err = issuer.Refresh(sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens cannot refresh")
}

func Test_Directory_Authenticate(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	user := testUser(RoleUser)
	dir := NewDirectory([]Account{{User: user, PasswordHash: hash}})

	testCases := []struct {
		name          string
		form          LoginForm
		expectedErr   error
		expectInvalid bool
	}{
		{name: "Success", form: LoginForm{Email: "jane@example.com", Password: "secret1"}},
		{name: "Success - email case folded", form: LoginForm{Email: "Jane@Example.com", Password: "secret1"}},
		{name: "Error - wrong password", form: LoginForm{Email: "jane@example.com", Password: "secret2"}, expectedErr: ErrInvalidCredentials},
		{name: "Error - unknown email", form: LoginForm{Email: "joe@example.com", Password: "secret1"}, expectedErr: ErrInvalidCredentials},
		{name: "Error - short password", form: LoginForm{Email: "jane@example.com", Password: "12345"}, expectInvalid: true},
		{name: "Error - malformed email", form: LoginForm{Email: "jane", Password: "secret1"}, expectInvalid: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := dir.Authenticate(context.Background(), tc.form)
			switch {
			case tc.expectInvalid:
				var verrs validator.ValidationErrors
				assert.ErrorAs(t, err, &verrs)
			case tc.expectedErr != nil:
				assert.ErrorIs(t, err, tc.expectedErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, user, got)
			}
		})
	}
}

func Test_LoadAccounts(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, []byte(`[{"id":"`+uuid.NewString()+`","email":"a@b.co","name":"Ann","role":"admin","passwordHash":"$2a$10$x"}]`), 0o600))
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`[{"id":"1","email":"a@b.co","name":"Ann","role":"root","passwordHash":"h"}]`), 0o600))

	accounts, err := LoadAccounts(valid)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, RoleAdmin, accounts[0].Role)
	assert.Equal(t, 1, NewDirectory(accounts).Len())

	_, err = LoadAccounts(invalid)
	assert.ErrorContains(t, err, "invalid accounts file")
}
