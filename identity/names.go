// Package identity 外观与身份同步：皮肤目录、显示名规范化与本地偏好持久化
package identity

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxNameRunes 显示名最大字符数
const MaxNameRunes = 24

// SanitizeName 去除首尾空白与控制字符并截断；结果可能为空
func SanitizeName(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > MaxNameRunes {
		cleaned = strings.TrimSpace(string(runes[:MaxNameRunes]))
	}
	return cleaned
}

// DefaultName 未设置名字的远端玩家按幽灵槽位显示为 "Player N"（本地玩家为 Player 1）
func DefaultName(slot int) string {
	return fmt.Sprintf("Player %d", slot+2)
}

// DisplayName 有名字用名字，否则回退到槽位默认名
func DisplayName(name string, slot int) string {
	if name != "" {
		return name
	}
	return DefaultName(slot)
}
