// Package auth establishes the authenticated portal session for one
// invocation and keeps the stored account in step with it.
package auth

import (
	"encoding/json"
	"fmt"
	"net/url"

	log "github.com/go-pkgz/lgr"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/store"
	"clubcast/internal/app/clubcast/vault"
	"clubcast/internal/app/clubcast/web"
)

// Prompter covers the interactive questions the gateway may need to
// ask. A nil Prompter turns every question into an error.
type Prompter interface {
	Confirm(label string) (bool, error)
	Choose(label string, options []string) (int, error)
}

// Gateway logs the subscriber in and hands back the account in use.
type Gateway struct {
	Store    *store.Store
	Vault    *vault.Vault
	Session  *web.Session
	Prompt   Prompter
	LoginURL string
}

type loginResponse struct {
	LoginStatus bool `json:"LoginStatus"`
}

// Resolve picks the account to act as. With an explicit username the
// stored row must exist; without one a single stored row wins and
// multiple rows require an interactive selection.
func (g *Gateway) Resolve(username string) (*content.Account, error) {
	if username != "" {
		acc, err := g.Store.FindAccount(username)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			return nil, &content.AuthError{Err: content.ErrNoAccount}
		}
		return acc, nil
	}

	accounts, err := g.Store.Accounts()
	if err != nil {
		return nil, err
	}
	switch len(accounts) {
	case 0:
		return nil, &content.AuthError{Err: content.ErrNoAccount}
	case 1:
		return &accounts[0], nil
	}

	if g.Prompt == nil {
		return nil, &content.AuthError{Err: content.ErrAccountAmbiguous}
	}
	options := make([]string, len(accounts))
	for i, acc := range accounts {
		options[i] = acc.Username
	}
	idx, err := g.Prompt.Choose("Enter account number", options)
	if err != nil || idx < 0 || idx >= len(accounts) {
		return nil, &content.AuthError{Err: content.ErrAccountAmbiguous}
	}
	return &accounts[idx], nil
}

// Login resolves the account and authenticates the session with its
// stored credential.
func (g *Gateway) Login(username string) (*content.Account, error) {
	acc, err := g.Resolve(username)
	if err != nil {
		return nil, err
	}

	password, err := g.Vault.Decode(acc.Password)
	if err != nil {
		return nil, &content.AuthError{Err: err}
	}
	if err := g.submit(acc.Username, password); err != nil {
		return nil, err
	}
	return acc, nil
}

// LoginWith authenticates with an explicit credential pair and keeps
// the account table in step: an unknown username is stored after a
// successful login, a changed password is stored only after the user
// confirms the change.
func (g *Gateway) LoginWith(username, password, defaultDir string) (created, updated bool, err error) {
	existing, err := g.Store.FindAccount(username)
	if err != nil {
		return false, false, err
	}

	if err := g.submit(username, password); err != nil {
		return false, false, err
	}

	if existing == nil {
		enc, err := g.Vault.Encode(password)
		if err != nil {
			return false, false, err
		}
		acc := &content.Account{Username: username, Password: enc, DownloadDir: defaultDir}
		if err := g.Store.SaveAccount(acc); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	stored, err := g.Vault.Decode(existing.Password)
	if err == nil && stored == password {
		return false, false, nil
	}

	if g.Prompt == nil {
		return false, false, nil
	}
	ok, err := g.Prompt.Confirm("Confirm password change for account")
	if err != nil || !ok {
		return false, false, err
	}
	enc, err := g.Vault.Encode(password)
	if err != nil {
		return false, false, err
	}
	existing.Password = enc
	if err := g.Store.SaveAccount(existing); err != nil {
		return false, false, err
	}
	return false, true, nil
}

// submit performs the two-step portal login: discover the form action
// on the login page, then post the credentials and check the reported
// status.
func (g *Gateway) submit(username, password string) error {
	doc, err := g.Session.Document(g.LoginURL)
	if err != nil {
		return &content.AuthError{Err: err}
	}

	action, ok := doc.Find("form").First().Attr("action")
	if !ok {
		return &content.AuthError{Err: &content.ParseError{Element: "login form"}}
	}

	body, err := g.Session.PostForm(g.Session.AbsURL(action), url.Values{
		"Username":   {username},
		"Password":   {password},
		"RememberMe": {"true"},
	})
	if err != nil {
		return &content.AuthError{Err: err}
	}

	var res loginResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return &content.AuthError{Err: fmt.Errorf("unexpected login response: %w", err)}
	}
	if !res.LoginStatus {
		return &content.AuthError{Err: content.ErrBadCredentials}
	}

	log.Printf("[DEBUG] logged in as %s", username)
	return nil
}
