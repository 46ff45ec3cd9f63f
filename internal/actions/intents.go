package actions

import "newsboard/internal/models"

// Intent is the name of a dispatcher operation. Observers receive every
// invoked intent as an Event.
type Intent string

const (
	// user
	IntentLogin           Intent = "login"
	IntentLogout          Intent = "logout"
	IntentLogoutCompleted Intent = "logout.completed"
	IntentRegister        Intent = "register"
	IntentCreateProfile   Intent = "createProfile"
	IntentUpdateProfile   Intent = "updateProfile"
	// post
	IntentUpvotePost   Intent = "upvotePost"
	IntentDownvotePost Intent = "downvotePost"
	IntentSubmitPost   Intent = "submitPost"
	IntentDeletePost   Intent = "deletePost"
	IntentSetSortBy    Intent = "setSortBy"
	// comment
	IntentUpvoteComment      Intent = "upvoteComment"
	IntentDownvoteComment    Intent = "downvoteComment"
	IntentUpdateCommentCount Intent = "updateCommentCount"
	IntentAddComment         Intent = "addComment"
	IntentDeleteComment      Intent = "deleteComment"
	// listeners
	IntentListenToProfile        Intent = "listenToProfile"
	IntentListenToPost           Intent = "listenToPost"
	IntentListenToPosts          Intent = "listenToPosts"
	IntentStopListeningToProfile Intent = "stopListeningToProfile"
	IntentStopListeningToPosts   Intent = "stopListeningToPosts"
	IntentStopListeningToPost    Intent = "stopListeningToPost"
	// errors
	IntentLoginError Intent = "loginError"
	IntentPostError  Intent = "postError"
	// ui
	IntentShowOverlay Intent = "showOverlay"
	IntentGoToPost    Intent = "goToPost"
)

// Dispatcher-detected registration failures.
const (
	CodeNoUsername    = "NO_USERNAME"
	CodeUsernameTaken = "USERNAME_TAKEN"
)

// Event is one invoked intent.
type Event struct {
	Intent  Intent `json:"intent"`
	Payload any    `json:"payload,omitempty"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ProfilePayload struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileUpdate carries a profile snapshot; Profile is nil while the
// profile node does not exist.
type ProfileUpdate struct {
	UID     string          `json:"uid"`
	Profile *models.Profile `json:"profile"`
}

type VotePayload struct {
	UserID string `json:"userId"`
	ItemID string `json:"itemId"`
}

type PostRef struct {
	PostID string `json:"postId"`
}

type SortBy struct {
	Value string `json:"value"`
}

type CommentCount struct {
	PostID string `json:"postId"`
	Delta  int    `json:"delta"`
}

type CommentRef struct {
	CommentID string `json:"commentId"`
	PostID    string `json:"postId"`
}

type UserRef struct {
	UID string `json:"uid"`
}

type Page struct {
	Page int `json:"page"`
}

type ErrorPayload struct {
	Code string `json:"code"`
}

type Overlay struct {
	Kind string `json:"kind"`
}
