package utils

import (
	"fmt"
	"os"

	"golang.org/x/tools/imports"
)

// Format 使用 goimports 格式化源码，同时整理 import
// filename 用于定位包目录以解析 import，不要求文件存在
func Format(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("格式化 %s 失败: %w", filename, err)
	}
	return out, nil
}

// WriteFormat 格式化源码并写入文件
func WriteFormat(filename string, src []byte) error {
	out, err := Format(filename, src)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, out, 0644)
}

// CheckSyntax 只检查语法，不修改 imports
func CheckSyntax(filename string, src []byte) error {
	_, err := imports.Process(filename, src, &imports.Options{
		Fragment:   true,
		AllErrors:  true,
		Comments:   true,
		FormatOnly: true,
	})
	return err
}
