package models

type Comment struct {
	ID        string `json:"id,omitempty"`
	PostID    string `json:"postId"`
	PostTitle string `json:"postTitle,omitempty"`
	Body      string `json:"body"`
	Author    string `json:"author"`
	AuthorID  string `json:"authorId"`
	Time      int64  `json:"time"`
	Upvotes   int    `json:"upvotes"`

	BodyHTML string `json:"bodyHtml,omitempty"`
}

func (c Comment) Stored() Comment {
	c.ID = ""
	c.BodyHTML = ""
	return c
}
