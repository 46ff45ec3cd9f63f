package actions

import (
	"context"
	"strings"

	"newsboard/internal/models"
	"newsboard/internal/realtime"
	"newsboard/internal/utils"
)

func intentError(intent Intent, code string) error {
	return &realtime.Error{Code: code, Op: string(intent)}
}

// Register checks the username, creates the account and logs in with the
// username so the profile gets created.
//
// The username check and the account creation are separate operations: two
// concurrent registrations of one name can both pass the check.
func (d *Dispatcher) Register(ctx context.Context, username string, creds realtime.Credentials) error {
	username = strings.TrimSpace(username)
	d.emit(IntentRegister, RegisterPayload{Username: username, Email: creds.Email})

	if username == "" {
		d.LoginError(CodeNoUsername)
		return intentError(IntentRegister, CodeNoUsername)
	}

	taken, err := d.usernameTaken(ctx, username)
	if err != nil {
		d.LoginError(realtime.Code(err))
		return err
	}
	if taken {
		d.LoginError(CodeUsernameTaken)
		return intentError(IntentRegister, CodeUsernameTaken)
	}

	if err := d.db.CreateUser(ctx, creds); err != nil {
		d.logger.Warn("Account creation failed", "username", username, "error", err)
		d.LoginError(realtime.Code(err))
		return err
	}
	return d.Login(ctx, creds, username)
}

func (d *Dispatcher) usernameTaken(ctx context.Context, username string) (bool, error) {
	snap, err := d.db.Get(ctx, UsersRef.OrderByChild("username").EqualTo(username))
	if err != nil {
		return false, err
	}
	return snap.Exists(), nil
}

// Login authenticates. username is only set during registration and makes
// the profile get created; returning users get their profile through the
// auth watcher.
func (d *Dispatcher) Login(ctx context.Context, creds realtime.Credentials, username string) error {
	d.emit(IntentLogin, LoginPayload{Email: creds.Email, Username: username})

	auth, err := d.db.AuthWithPassword(ctx, creds)
	if err != nil {
		d.LoginError(realtime.Code(err))
		return err
	}
	d.logger.Info("Logged in", "uid", auth.UID)

	if username != "" {
		// 新用户首次登录
		return d.CreateProfile(ctx, auth.UID, username, auth.Email)
	}
	return nil
}

// CreateProfile writes users/<uid>.
func (d *Dispatcher) CreateProfile(ctx context.Context, uid, username, email string) error {
	d.emit(IntentCreateProfile, ProfilePayload{UID: uid, Username: username, Email: email})

	profile := &models.Profile{
		Username: username,
		MD5Hash:  utils.EmailHash(email),
		Upvoted:  map[string]bool{},
	}
	if err := d.db.Set(ctx, UsersRef.Child(uid), profile); err != nil {
		d.LoginError(realtime.Code(err))
		return err
	}
	d.UpdateProfile(uid, profile)
	return nil
}

func (d *Dispatcher) UpdateProfile(uid string, profile *models.Profile) {
	d.emit(IntentUpdateProfile, ProfileUpdate{UID: uid, Profile: profile})
}

// Logout de-authenticates. Completion is reported by the auth watcher as
// logout.completed.
func (d *Dispatcher) Logout() {
	d.emit(IntentLogout, nil)
	d.db.Unauth()
}

// WatchAuth starts the auth watcher: on login it attaches a live listener on
// the user's profile that re-emits updateProfile, on logout it detaches the
// profile listeners and emits logout.completed. Call once per dispatcher.
func (d *Dispatcher) WatchAuth() {
	off := d.db.OnAuth(d.onAuth)

	d.mu.Lock()
	d.offAuth = off
	d.mu.Unlock()
}

func (d *Dispatcher) onAuth(auth *realtime.AuthData) {
	if auth == nil {
		d.subs.DetachProfiles()
		d.emit(IntentLogoutCompleted, nil)
		return
	}

	uid := auth.UID
	l := d.db.On(UsersRef.Child(uid).Query(), func(snap realtime.Snapshot) {
		var profile *models.Profile
		if snap.Exists() {
			profile = &models.Profile{}
			if err := snap.Val(profile); err != nil {
				d.logger.Error("Bad profile document", "uid", uid, "error", err)
				return
			}
		}
		d.UpdateProfile(uid, profile)
	})
	d.subs.AttachProfile(uid, l)
}

func (d *Dispatcher) LoginError(code string) {
	intentErrorsTotal.WithLabelValues(string(IntentLoginError), code).Inc()
	d.emit(IntentLoginError, ErrorPayload{Code: code})
}
