package fieldnames

import (
	"errors"
	"fmt"
	"go/token"
	"reflect"
	"strings"
	"unicode"

	"github.com/fatih/structtag"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// TagKey 字段选项所在的标签名
const TagKey = "field_names"

const (
	optSkip = "skip"
	optDesc = "desc"
)

// knownOptions 可识别的选项名
var knownOptions = []string{optSkip, optDesc}

// FieldOptions 字段选项，零值即默认值
type FieldOptions struct {
	Skip        bool
	Description string
}

// FieldDeclaration 解析选项后的字段
type FieldDeclaration struct {
	Name        string
	Skip        bool
	Description string
	Pos         token.Position
}

// ParseFieldOptions 从字段标签中解析 field_names 选项
// 没有 field_names 标签时返回默认值
// 标签中涉及 field_names 却无法解析，或 field_names 出现多次时返回错误
func ParseFieldOptions(tag reflect.StructTag) (FieldOptions, error) {
	raw := string(tag)
	tags, err := structtag.Parse(raw)
	if err != nil {
		if strings.Contains(raw, TagKey) {
			return FieldOptions{}, fmt.Errorf("标签格式错误: %w，应为 %s:\"...\"", err, TagKey)
		}
		// 与本工具无关的标签错误交给 go vet
		return FieldOptions{}, nil
	}
	if tags == nil {
		return FieldOptions{}, nil
	}

	var found []*structtag.Tag
	for _, t := range tags.Tags() {
		switch {
		case t.Key == TagKey:
			found = append(found, t)
		case trimKeyPrefix(t.Key) == TagKey:
			return FieldOptions{}, fmt.Errorf("标签键 %q 格式错误，多个标签之间应使用空格分隔", t.Key)
		}
	}

	switch len(found) {
	case 0:
		return FieldOptions{}, nil
	case 1:
		return parseOptions(found[0].Value())
	default:
		return FieldOptions{}, fmt.Errorf("%s 标签重复 %d 次", TagKey, len(found))
	}
}

// trimKeyPrefix 去掉标签键前面误写的分隔符，如 `json:"a",field_names:"skip"`
func trimKeyPrefix(key string) string {
	return strings.TrimLeftFunc(key, func(r rune) bool {
		return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// option 一个选项条目
type option struct {
	key      string
	value    string
	hasValue bool
}

// parseOptions 解析 key 或 key=value 逗号分隔列表
func parseOptions(value string) (FieldOptions, error) {
	var opts FieldOptions

	entries, err := splitOptions(value)
	if err != nil {
		return opts, err
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.key] {
			return opts, fmt.Errorf("选项 %q 重复", e.key)
		}
		seen[e.key] = true

		switch e.key {
		case optSkip:
			if !e.hasValue {
				opts.Skip = true
				continue
			}
			skip, err := cast.ToBoolE(e.value)
			if err != nil {
				return opts, fmt.Errorf("选项 skip 的值 %q 不是布尔值", e.value)
			}
			opts.Skip = skip
		case optDesc:
			if !e.hasValue {
				return opts, errors.New("选项 desc 需要一个值，如 desc=描述")
			}
			opts.Description = e.value
		default:
			return opts, fmt.Errorf("未知选项 %q，可用选项: %s", e.key, strings.Join(knownOptions, ", "))
		}
	}

	return opts, nil
}

// splitOptions 将选项文本切分为条目
// 值可以用单引号包裹以包含逗号，单引号内 \' 表示一个单引号
func splitOptions(value string) ([]option, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var (
		entries []option
		cur     option
		buf     strings.Builder
		inValue bool
		quoted  bool // 当前值是否已用单引号包裹
	)

	finish := func() error {
		if inValue {
			if !quoted {
				cur.value = strings.TrimSpace(buf.String())
			}
		} else {
			cur.key = strings.TrimSpace(buf.String())
		}
		if cur.key == "" {
			if inValue {
				return errors.New("选项缺少名称")
			}
			return errors.New("存在空选项")
		}
		entries = append(entries, cur)
		cur = option{}
		buf.Reset()
		inValue, quoted = false, false
		return nil
	}

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == ',':
			if err := finish(); err != nil {
				return nil, err
			}
		case c == '=' && !inValue:
			cur.key = strings.TrimSpace(buf.String())
			cur.hasValue = true
			buf.Reset()
			inValue = true
		case c == '\'' && inValue && !quoted && strings.TrimSpace(buf.String()) == "":
			end, text, err := readQuoted(value, i+1)
			if err != nil {
				return nil, fmt.Errorf("选项 %q: %w", cur.key, err)
			}
			cur.value = text
			quoted = true
			i = end
			// 引号后只允许空白，直到逗号或结尾
			for i+1 < len(value) && value[i+1] != ',' {
				if value[i+1] != ' ' && value[i+1] != '\t' {
					return nil, fmt.Errorf("选项 %q: 引号后存在多余字符", cur.key)
				}
				i++
			}
		default:
			buf.WriteByte(c)
		}
	}
	if err := finish(); err != nil {
		return nil, err
	}

	return entries, nil
}

// readQuoted 从 start 开始读取单引号字符串内容，返回结束引号的下标
func readQuoted(s string, start int) (int, string, error) {
	var sb strings.Builder
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '\'' || s[i+1] == '\\') {
				sb.WriteByte(s[i+1])
				i++
				continue
			}
			sb.WriteByte(s[i])
		case '\'':
			return i, sb.String(), nil
		default:
			sb.WriteByte(s[i])
		}
	}
	return 0, "", errors.New("单引号未闭合")
}

// ParseFields 为声明中的每个字段解析选项，保持声明顺序
// 出错时继续解析其余字段，所有字段错误合并返回，整个声明被拒绝
func ParseFields(decl *RecordDeclaration) ([]FieldDeclaration, error) {
	fields := make([]FieldDeclaration, 0, len(decl.Fields))

	var errs error
	for _, raw := range decl.Fields {
		opts, err := ParseFieldOptions(raw.Tag)
		if err != nil {
			errs = multierr.Append(errs, syntaxError(raw.Pos, decl.Identifier, raw.Name, err))
			continue
		}
		fields = append(fields, FieldDeclaration{
			Name:        raw.Name,
			Skip:        opts.Skip,
			Description: opts.Description,
			Pos:         raw.Pos,
		})
	}

	if errs != nil {
		return nil, errs
	}
	return fields, nil
}
