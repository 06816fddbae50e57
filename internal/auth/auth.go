// Package auth holds the credentials used to authenticate against the game backend.
package auth

import (
	"encoding/base64"
	"sync/atomic"
)

type Credentials struct {
	Username string
	Password string
}

// HeaderValue is the Basic Authorization header value for the credentials
func (c Credentials) HeaderValue() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

type credentialsWithHeader struct {
	credentials Credentials
	header      string
}

// Manager stores the current credential pair.
//
// Every write swaps in a new immutable value, so concurrent readers always see a
// consistent username/password/header triple.
type Manager struct {
	current atomic.Pointer[credentialsWithHeader]
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) SetCredentials(username, password string) {
	creds := Credentials{Username: username, Password: password}
	m.current.Store(&credentialsWithHeader{
		credentials: creds,
		header:      creds.HeaderValue(),
	})
}

// Clear removes the stored credentials (logout)
func (m *Manager) Clear() {
	m.current.Store(nil)
}

func (m *Manager) Snapshot() (Credentials, bool) {
	current := m.current.Load()
	if current == nil {
		return Credentials{}, false
	}
	return current.credentials, true
}

func (m *Manager) HeaderValue() (string, bool) {
	current := m.current.Load()
	if current == nil {
		return "", false
	}
	return current.header, true
}

func (m *Manager) Username() string {
	creds, _ := m.Snapshot()
	return creds.Username
}
