package realtime

import (
	"context"
	"errors"
	"strings"
	"sync"

	"newsboard/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

// Client is one connection to the database with its own auth state, the
// equivalent of a browser's database handle.
type Client struct {
	*Database

	mu      sync.Mutex
	auth    *AuthData
	nextID  int
	authFns map[int]func(*AuthData)
}

func (d *Database) NewClient() *Client {
	return &Client{
		Database: d,
		authFns:  make(map[int]func(*AuthData)),
	}
}

// CreateUser registers an email/password account. It does not log in.
func (c *Client) CreateUser(ctx context.Context, creds Credentials) error {
	email := strings.TrimSpace(creds.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return newError(CodeInvalidEmail, "createUser", err)
	}
	if creds.Password == "" {
		return newError(CodeInvalidPassword, "createUser", errors.New("empty password"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), c.hashCost)
	if err != nil {
		return newError(CodeInvalidPassword, "createUser", err)
	}

	account := &models.Account{
		UID:      uuid.NewString(),
		Email:    email,
		Password: string(hash),
	}
	if err := c.storage.CreateAccount(ctx, account); err != nil {
		return wrap("createUser", err)
	}
	c.logger.Info("Account created", "uid", account.UID)
	return nil
}

// AuthWithPassword logs the client in and notifies auth listeners.
func (c *Client) AuthWithPassword(ctx context.Context, creds Credentials) (*AuthData, error) {
	account, err := c.storage.AccountByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, ErrNotFound) {
		return nil, newError(CodeInvalidUser, "auth", err)
	}
	if err != nil {
		return nil, wrap("auth", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(creds.Password)); err != nil {
		return nil, newError(CodeInvalidPassword, "auth", err)
	}

	auth := &AuthData{UID: account.UID, Email: account.Email, Provider: "password"}
	c.setAuth(auth)
	return auth, nil
}

// Unauth logs out. Auth listeners are notified even when the client was not
// logged in, so a logout always completes.
func (c *Client) Unauth() {
	c.setAuth(nil)
}

// Auth returns the current auth state, nil when logged out.
func (c *Client) Auth() *AuthData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

// OnAuth registers fn for auth state changes. fn runs in the goroutine that
// changed the state.
func (c *Client) OnAuth(fn func(*AuthData)) (off func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.authFns[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.authFns, id)
		c.mu.Unlock()
	}
}

func (c *Client) setAuth(auth *AuthData) {
	c.mu.Lock()
	c.auth = auth
	fns := make([]func(*AuthData), 0, len(c.authFns))
	for _, fn := range c.authFns {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(auth)
	}
}
