package utils

import (
	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff 生成 old 与 new 之间的 unified diff，内容相同时返回空字符串
func UnifiedDiff(filename string, old, new []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(old)),
		B:        difflib.SplitLines(string(new)),
		FromFile: filename + " (当前)",
		ToFile:   filename + " (生成)",
		Context:  3,
	})
}
