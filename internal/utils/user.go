package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// EmailHash 计算 gravatar 使用的邮箱 md5
func EmailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// GravatarURL returns the avatar url for a profile hash.
func GravatarURL(hash string, size int) string {
	if size <= 0 {
		size = 80
	}
	return "https://www.gravatar.com/avatar/" + hash + "?d=identicon&s=" + IntToString(size)
}
