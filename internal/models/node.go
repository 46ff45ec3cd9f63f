package models

import (
	"time"
)

// Node 实时数据库中的一个子节点: collection/key -> JSON 文档
type Node struct {
	Collection string    `gorm:"primaryKey;size:64" json:"collection"`
	Key        string    `gorm:"primaryKey;size:64" json:"key"`
	Value      string    `gorm:"type:jsonb;not null" json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Node) TableName() string {
	return "nodes"
}

// Account 邮箱密码账户，Password 为 bcrypt 哈希
type Account struct {
	UID       string    `gorm:"primaryKey;size:64" json:"uid"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
