// Package prompt 破冰提示语资源。
//
// 提示语在包初始化时从内嵌文件解析一次，之后只读共享。
package prompt

import (
	_ "embed"
	"strings"
)

//go:embed prompts.txt
var raw string

var prompts = parse(raw)

// All 返回全部提示语的副本，调用方可自由修改
func All() []string {
	out := make([]string, len(prompts))
	copy(out, prompts)
	return out
}

// Count 提示语数量
func Count() int { return len(prompts) }

func parse(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
