package fieldnames

import (
	"errors"
	"fmt"
	"go/token"

	"go.uber.org/multierr"
)

// ErrorKind 诊断错误类型
type ErrorKind int

const (
	KindShape            ErrorKind = iota + 1 // 声明不是具名字段结构体
	KindAnnotationSyntax                      // 字段标签语法错误
	KindParam                                 // 类型注解参数错误
)

func (k ErrorKind) String() string {
	switch k {
	case KindShape:
		return "ShapeError"
	case KindAnnotationSyntax:
		return "AnnotationSyntaxError"
	case KindParam:
		return "ParamError"
	default:
		return "UnknownError"
	}
}

var (
	ErrShape            = errors.New("shape error")
	ErrAnnotationSyntax = errors.New("annotation syntax error")
	ErrParam            = errors.New("param error")
)

// Diagnostic 带源码位置的诊断信息，代替生成结果返回给调用方
type Diagnostic struct {
	Kind    ErrorKind
	Pos     token.Position // 出错的声明或字段位置
	Type    string         // 类型名
	Field   string         // 字段名，类型级错误为空
	Message string
}

func (d *Diagnostic) Error() string {
	scope := d.Type
	if d.Field != "" {
		scope += "." + d.Field
	}
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s [%s]: %s", d.Pos, d.Kind, scope, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Kind, scope, d.Message)
}

// Unwrap 返回与 Kind 对应的哨兵错误，便于 errors.Is 判断
func (d *Diagnostic) Unwrap() error {
	switch d.Kind {
	case KindShape:
		return ErrShape
	case KindAnnotationSyntax:
		return ErrAnnotationSyntax
	case KindParam:
		return ErrParam
	default:
		return nil
	}
}

func shapeError(pos token.Position, typeName, field, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: KindShape, Pos: pos, Type: typeName, Field: field, Message: fmt.Sprintf(format, args...)}
}

func syntaxError(pos token.Position, typeName, field string, err error) *Diagnostic {
	return &Diagnostic{Kind: KindAnnotationSyntax, Pos: pos, Type: typeName, Field: field, Message: err.Error()}
}

func paramError(pos token.Position, typeName, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: KindParam, Pos: pos, Type: typeName, Message: fmt.Sprintf(format, args...)}
}

// Diagnostics 展开聚合错误中的所有诊断信息
func Diagnostics(err error) []*Diagnostic {
	var result []*Diagnostic
	for _, e := range multierr.Errors(err) {
		var d *Diagnostic
		if errors.As(e, &d) {
			result = append(result, d)
		}
	}
	return result
}
