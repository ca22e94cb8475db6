package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/store"
	"clubcast/internal/app/clubcast/vault"
	"clubcast/internal/app/clubcast/web"
)

// stubPrompt answers every question with canned values.
type stubPrompt struct {
	confirm bool
	choice  int
}

func (s *stubPrompt) Confirm(string) (bool, error)         { return s.confirm, nil }
func (s *stubPrompt) Choose(string, []string) (int, error) { return s.choice, nil }

func loginPortal(t *testing.T, goodPassword string) *web.Session {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><form action="/do-login"></form></body></html>`))
	})
	mux.HandleFunc("/do-login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostForm.Get("Username"))
		if r.PostForm.Get("Password") == goodPassword {
			_, _ = w.Write([]byte(`{"LoginStatus": true}`))
			return
		}
		_, _ = w.Write([]byte(`{"LoginStatus": false}`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	session, err := web.NewSession(ts.URL, "test-agent")
	require.NoError(t, err)
	return session
}

func newGateway(t *testing.T, goodPassword string) *Gateway {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	vlt, err := vault.Open(filepath.Join(t.TempDir(), "key"))
	require.NoError(t, err)

	session := loginPortal(t, goodPassword)
	return &Gateway{
		Store:    st,
		Vault:    vlt,
		Session:  session,
		LoginURL: session.AbsURL("/login"),
	}
}

func TestLoginWithCreatesAccount(t *testing.T) {
	g := newGateway(t, "sekrit")

	created, updated, err := g.LoginWith("fan", "sekrit", "/tmp/downloads")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, updated)

	acc, err := g.Store.FindAccount("fan")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "/tmp/downloads", acc.DownloadDir)

	stored, err := g.Vault.Decode(acc.Password)
	require.NoError(t, err)
	assert.Equal(t, "sekrit", stored)
}

func TestLoginWithBadCredentials(t *testing.T) {
	g := newGateway(t, "sekrit")

	_, _, err := g.LoginWith("fan", "wrong", "/tmp/downloads")
	require.Error(t, err)
	assert.ErrorIs(t, err, content.ErrBadCredentials)

	acc, err := g.Store.FindAccount("fan")
	require.NoError(t, err)
	assert.Nil(t, acc, "rejected credentials are never stored")
}

func TestLoginWithUnchangedPassword(t *testing.T) {
	g := newGateway(t, "sekrit")

	_, _, err := g.LoginWith("fan", "sekrit", "/tmp/downloads")
	require.NoError(t, err)

	created, updated, err := g.LoginWith("fan", "sekrit", "/tmp/elsewhere")
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, updated)

	acc, err := g.Store.FindAccount("fan")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/downloads", acc.DownloadDir, "repeat login does not rewrite the account")
}

func TestLoginWithPasswordChange(t *testing.T) {
	g := newGateway(t, "sekrit")

	_, _, err := g.LoginWith("fan", "sekrit", "/tmp/downloads")
	require.NoError(t, err)

	// the portal now accepts a rotated password
	g.Session = loginPortal(t, "rotated")
	g.LoginURL = g.Session.AbsURL("/login")

	// declined confirmation keeps the stored credential
	g.Prompt = &stubPrompt{confirm: false}
	created, updated, err := g.LoginWith("fan", "rotated", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, updated)

	g.Prompt = &stubPrompt{confirm: true}
	created, updated, err = g.LoginWith("fan", "rotated", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, updated)

	acc, err := g.Store.FindAccount("fan")
	require.NoError(t, err)
	stored, err := g.Vault.Decode(acc.Password)
	require.NoError(t, err)
	assert.Equal(t, "rotated", stored)
}

func TestResolveNoAccount(t *testing.T) {
	g := newGateway(t, "sekrit")

	_, err := g.Resolve("")
	assert.ErrorIs(t, err, content.ErrNoAccount)

	_, err = g.Resolve("stranger")
	assert.ErrorIs(t, err, content.ErrNoAccount)
}

func TestResolveSingleAccount(t *testing.T) {
	g := newGateway(t, "sekrit")
	_, _, err := g.LoginWith("fan", "sekrit", "/tmp/downloads")
	require.NoError(t, err)

	acc, err := g.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "fan", acc.Username)

	acc, err = g.Resolve("fan")
	require.NoError(t, err)
	assert.Equal(t, "fan", acc.Username)
}

func TestResolveAmbiguous(t *testing.T) {
	g := newGateway(t, "sekrit")
	_, _, err := g.LoginWith("alice", "sekrit", "")
	require.NoError(t, err)
	_, _, err = g.LoginWith("bob", "sekrit", "")
	require.NoError(t, err)

	_, err = g.Resolve("")
	assert.ErrorIs(t, err, content.ErrAccountAmbiguous, "no prompt, no way to pick")

	g.Prompt = &stubPrompt{choice: 1}
	acc, err := g.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "bob", acc.Username)
}

func TestLoginRoundTrip(t *testing.T) {
	g := newGateway(t, "sekrit")
	_, _, err := g.LoginWith("fan", "sekrit", "/tmp/downloads")
	require.NoError(t, err)

	acc, err := g.Login("")
	require.NoError(t, err)
	assert.Equal(t, "fan", acc.Username)
}
