package models

// Profile 用户资料，存储在 users/<uid> 下
type Profile struct {
	Username string          `json:"username"`
	MD5Hash  string          `json:"md5hash"` // gravatar
	Upvoted  map[string]bool `json:"upvoted"` // 已点赞的帖子/评论 ID
}

// HasUpvoted reports whether the item (post or comment id) is upvoted.
func (p *Profile) HasUpvoted(id string) bool {
	if p == nil {
		return false
	}
	return p.Upvoted[id]
}
