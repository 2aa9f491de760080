package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iliyamo/venue-reservation/internal/model"
)

// CredentialStore persists the bearer credential between runs.
type CredentialStore interface {
	Load() (string, error) // "" when nothing is stored
	Save(credential string) error
	Clear() error
}

// Context is the process-wide session. Components that need identity get a
// *Context explicitly; there is no ambient lookup.
type Context struct {
	mu         sync.RWMutex
	store      CredentialStore
	resolver   *Resolver
	credential string
	claims     Claims
	lastErr    error
}

func NewContext(store CredentialStore, resolver *Resolver) *Context {
	return &Context{store: store, resolver: resolver, claims: Claims{Principal: model.Anonymous}}
}

// Init loads the stored credential. An expired or unreadable credential is
// wiped and the session degrades to anonymous; the reason is kept in
// LastError and never returned as a failure.
func (c *Context) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	raw, err := c.store.Load()
	if err != nil {
		c.lastErr = errors.Join(model.ErrInvalidCredential, err)
		_ = c.store.Clear()
		return
	}
	if raw == "" {
		return
	}
	claims, err := c.resolver.Resolve(raw)
	if err != nil {
		c.lastErr = err
		_ = c.store.Clear()
		return
	}
	c.credential, c.claims = raw, claims
}

// SignIn resolves and stores a freshly issued credential. A credential that
// does not resolve is rejected and leaves the session anonymous.
func (c *Context) SignIn(credential string) (model.Principal, error) {
	credential = strings.TrimSpace(credential)
	claims, err := c.resolver.Resolve(credential)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && claims.Principal.IsAnonymous() {
		err = model.ErrInvalidCredential
	}
	if err != nil {
		c.reset()
		c.lastErr = err
		_ = c.store.Clear()
		return model.Anonymous, err
	}
	if err := c.store.Save(credential); err != nil {
		return model.Anonymous, err
	}
	c.credential, c.claims, c.lastErr = credential, claims, nil
	return claims.Principal, nil
}

// Clear logs out: the stored credential is removed and the session becomes anonymous.
func (c *Context) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	return c.store.Clear()
}

// Principal returns the current principal, expiring the session lazily.
func (c *Context) Principal() model.Principal {
	c.expireIfNeeded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.claims.Principal
}

// Credential returns the bearer token to attach to requests, or "".
func (c *Context) Credential() string {
	c.expireIfNeeded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential
}

// LastError reports why the most recent Init or SignIn fell back to anonymous.
func (c *Context) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Invalidate drops the credential after the server rejected it.
func (c *Context) Invalidate(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.lastErr = reason
	_ = c.store.Clear()
}

func (c *Context) expireIfNeeded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.credential == "" || c.claims.ExpiresAt.IsZero() {
		return
	}
	if !c.resolver.now().Before(c.claims.ExpiresAt) {
		c.reset()
		c.lastErr = model.ErrExpiredCredential
		_ = c.store.Clear()
	}
}

func (c *Context) reset() {
	c.credential = ""
	c.claims = Claims{Principal: model.Anonymous}
}

// MemoryStore keeps the credential in process memory only.
type MemoryStore struct {
	mu  sync.Mutex
	val string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.val, nil
}

func (m *MemoryStore) Save(credential string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.val = credential
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.val = ""
	return nil
}

// FileStore keeps the credential in a 0600 file.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (string, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (f FileStore) Save(credential string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, []byte(credential), 0o600)
}

func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
