package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateUserAndAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newTestDB(t).NewClient()

	var states []*AuthData
	off := c.OnAuth(func(a *AuthData) { states = append(states, a) })
	defer off()

	creds := Credentials{Email: "Ann@Example.com", Password: "hunter2"}
	require.NoError(t, c.CreateUser(ctx, creds))
	require.Nil(t, c.Auth(), "creating an account does not log in")

	err := c.CreateUser(ctx, Credentials{Email: "ann@example.com", Password: "other"})
	require.Equal(t, CodeEmailTaken, Code(err))

	auth, err := c.AuthWithPassword(ctx, creds)
	require.NoError(t, err)
	require.NotEmpty(t, auth.UID)
	require.Equal(t, "ann@example.com", auth.Email)
	require.Equal(t, auth, c.Auth())

	c.Unauth()
	require.Nil(t, c.Auth())
	require.Len(t, states, 2)
	require.Equal(t, auth.UID, states[0].UID)
	require.Nil(t, states[1])
}

func TestCreateUserValidation(t *testing.T) {
	t.Parallel()
	c := newTestDB(t).NewClient()

	err := c.CreateUser(context.Background(), Credentials{Email: "not-an-email", Password: "pw"})
	require.Equal(t, CodeInvalidEmail, Code(err))

	err = c.CreateUser(context.Background(), Credentials{Email: "a@b.co"})
	require.Equal(t, CodeInvalidPassword, Code(err))
}

func TestAuthFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := newTestDB(t).NewClient()
	require.NoError(t, c.CreateUser(ctx, Credentials{Email: "bob@example.com", Password: "right"}))

	_, err := c.AuthWithPassword(ctx, Credentials{Email: "bob@example.com", Password: "wrong"})
	require.Equal(t, CodeInvalidPassword, Code(err))

	_, err = c.AuthWithPassword(ctx, Credentials{Email: "nobody@example.com", Password: "right"})
	require.Equal(t, CodeInvalidUser, Code(err))

	require.Nil(t, c.Auth())
}

func TestClientsHaveSeparateAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	a, b := db.NewClient(), db.NewClient()

	creds := Credentials{Email: "c@example.com", Password: "pw"}
	require.NoError(t, a.CreateUser(ctx, creds))
	_, err := a.AuthWithPassword(ctx, creds)
	require.NoError(t, err)

	require.NotNil(t, a.Auth())
	require.Nil(t, b.Auth())
}
