package fieldnames

import (
	"fmt"
	"go/ast"
	"go/token"
	"slices"
	"strconv"
	"strings"

	"github.com/donutnomad/gg"
	"go.uber.org/multierr"
)

const (
	DefaultFieldsMethod = "Fields"
	DefaultDescsMethod  = "Descs"
)

// EmitOptions 生成方法的名称
type EmitOptions struct {
	FieldsMethod string
	DescsMethod  string
}

// withDefaults 填充空的方法名
func (o EmitOptions) withDefaults() EmitOptions {
	if o.FieldsMethod == "" {
		o.FieldsMethod = DefaultFieldsMethod
	}
	if o.DescsMethod == "" {
		o.DescsMethod = DefaultDescsMethod
	}
	return o
}

// validate 检查方法名是合法标识符、互不相同且不与字段同名
func (o EmitOptions) validate(decl *RecordDeclaration) error {
	var errs error
	fieldNames := decl.FieldNames()
	for _, name := range []string{o.FieldsMethod, o.DescsMethod} {
		switch {
		case !token.IsIdentifier(name) || name == "_":
			errs = multierr.Append(errs, paramError(decl.Pos, decl.Identifier, "方法名 %q 不是合法的 Go 标识符", name))
		case slices.Contains(fieldNames, name):
			errs = multierr.Append(errs, paramError(decl.Pos, decl.Identifier, "方法名 %q 与字段同名，请通过 fields/descs 参数改名", name))
		}
	}
	if o.FieldsMethod == o.DescsMethod {
		errs = multierr.Append(errs, paramError(decl.Pos, decl.Identifier, "fields 与 descs 方法名相同: %q", o.FieldsMethod))
	}
	return errs
}

// Emit 将投影结果渲染为类型上的两个方法
// 方法的接收者使用原类型的类型参数，返回定长字符串数组
func Emit(body *gg.Group, decl *RecordDeclaration, lists ProjectedLists, opts EmitOptions) {
	opts = opts.withDefaults()
	recv := decl.ReceiverType()
	n := lists.Len()

	body.AddLine()
	body.Append(gg.LineComment("%s returns the visible field names of %s in declaration order.", opts.FieldsMethod, decl.Identifier))
	body.Append(gg.S("func (%s) %s() [%d]string {\n\treturn %s\n}", recv, opts.FieldsMethod, n, arrayLiteral(lists.Names)))

	body.AddLine()
	body.Append(gg.LineComment("%s returns the descriptions of the visible fields of %s, aligned with %s.", opts.DescsMethod, decl.Identifier, opts.FieldsMethod))
	body.Append(gg.S("func (%s) %s() [%d]string {\n\treturn %s\n}", recv, opts.DescsMethod, n, arrayLiteral(lists.Descriptions)))
}

// arrayLiteral 渲染定长字符串数组字面量
func arrayLiteral(values []string) string {
	if len(values) == 0 {
		return "[0]string{}"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d]string{\n", len(values))
	for _, v := range values {
		sb.WriteString("\t\t")
		sb.WriteString(strconv.Quote(v))
		sb.WriteString(",\n")
	}
	sb.WriteString("\t}")
	return sb.String()
}

// Fragment 一个类型声明的生成结果
type Fragment struct {
	Decl   *RecordDeclaration
	Fields []FieldDeclaration
	Lists  ProjectedLists
	Code   *gg.Generator
}

// Derive 对单个类型声明执行完整流程：构造声明 -> 解析字段选项 -> 投影 -> 生成
// 任一步骤失败时返回诊断错误，不返回任何生成结果
// 不读写文件，不使用共享状态，可并发调用
func Derive(fset *token.FileSet, pkgName string, spec *ast.TypeSpec, opts EmitOptions) (*Fragment, error) {
	decl, err := NewRecordDeclaration(fset, spec)
	if err != nil {
		return nil, err
	}

	opts = opts.withDefaults()
	if err := opts.validate(decl); err != nil {
		return nil, err
	}

	fields, err := ParseFields(decl)
	if err != nil {
		return nil, err
	}

	lists := Project(fields)

	gen := gg.New()
	gen.SetPackage(pkgName)
	Emit(gen.Body(), decl, lists, opts)

	return &Fragment{
		Decl:   decl,
		Fields: fields,
		Lists:  lists,
		Code:   gen,
	}, nil
}
