package models

// Post 存储在 posts/<id> 下的文档，ID 即 push key
type Post struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	URL          string `json:"url,omitempty"` // Optional
	Body         string `json:"body,omitempty"`
	Author       string `json:"author"`
	AuthorID     string `json:"authorId"`
	Time         int64  `json:"time"` // 毫秒时间戳，newest 排序字段
	Upvotes      int    `json:"upvotes"`
	CommentCount int    `json:"commentCount"`

	// 非存储字段，广播时填充
	BodyHTML string `json:"bodyHtml,omitempty"`
}

// Stored returns the copy that is written to the database.
func (p Post) Stored() Post {
	p.ID = ""
	p.BodyHTML = ""
	return p
}
