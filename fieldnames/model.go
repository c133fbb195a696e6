package fieldnames

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"reflect"
	"strconv"
	"strings"
)

// TypeParam 泛型类型参数
type TypeParam struct {
	Name       string // 参数名
	Constraint string // 约束的源码文本，原样保留
}

// RawField 具名字段及其原始标签
type RawField struct {
	Name string
	Tag  reflect.StructTag // 去掉反引号/引号后的标签内容
	Pos  token.Position
}

// RecordDeclaration 具名字段结构体声明
// 构造后不再修改
type RecordDeclaration struct {
	Identifier string
	TypeParams []TypeParam
	Fields     []RawField
	Pos        token.Position
}

// NewRecordDeclaration 从类型声明构造 RecordDeclaration
// 只接受具名字段结构体，其他形状返回 ShapeError 诊断
func NewRecordDeclaration(fset *token.FileSet, spec *ast.TypeSpec) (*RecordDeclaration, error) {
	if spec == nil || spec.Name == nil {
		return nil, shapeError(token.Position{}, "", "", "缺少类型声明")
	}

	name := spec.Name.Name
	if fset == nil {
		return nil, shapeError(token.Position{}, name, "", "缺少 FileSet，无法定位源码")
	}
	pos := fset.Position(spec.Name.Pos())

	if spec.Assign.IsValid() {
		return nil, shapeError(pos, name, "", "类型别名不受支持，只支持具名字段结构体")
	}

	st, ok := spec.Type.(*ast.StructType)
	if !ok {
		return nil, shapeError(pos, name, "", "%s 不受支持，只支持具名字段结构体", describeType(spec.Type))
	}
	if st.Fields == nil {
		return nil, shapeError(pos, name, "", "结构体缺少字段列表")
	}

	decl := &RecordDeclaration{
		Identifier: name,
		TypeParams: typeParams(fset, spec.TypeParams),
		Pos:        pos,
	}

	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			return nil, shapeError(fset.Position(field.Pos()), name, exprString(fset, field.Type),
				"嵌入字段没有字段名，无法生成")
		}

		tag, err := fieldTag(field)
		if err != nil {
			return nil, syntaxError(fset.Position(field.Tag.Pos()), name, field.Names[0].Name, err)
		}

		for _, ident := range field.Names {
			decl.Fields = append(decl.Fields, RawField{
				Name: ident.Name,
				Tag:  tag,
				Pos:  fset.Position(ident.Pos()),
			})
		}
	}

	return decl, nil
}

// ShortTypeParams 返回接收者使用的类型参数列表，如 [K, V]
func (d *RecordDeclaration) ShortTypeParams() string {
	if len(d.TypeParams) == 0 {
		return ""
	}
	names := make([]string, len(d.TypeParams))
	for i, p := range d.TypeParams {
		names[i] = p.Name
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// LongTypeParams 返回带约束的类型参数列表，如 [K comparable, V any]
func (d *RecordDeclaration) LongTypeParams() string {
	if len(d.TypeParams) == 0 {
		return ""
	}
	parts := make([]string, len(d.TypeParams))
	for i, p := range d.TypeParams {
		parts[i] = p.Name + " " + p.Constraint
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ReceiverType 返回方法接收者类型，如 Pair[K, V]
func (d *RecordDeclaration) ReceiverType() string {
	return d.Identifier + d.ShortTypeParams()
}

// FieldNames 返回全部字段名（包括将被跳过的字段）
func (d *RecordDeclaration) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// typeParams 解析类型参数，K, V any 展开为两个参数
func typeParams(fset *token.FileSet, list *ast.FieldList) []TypeParam {
	if list == nil {
		return nil
	}

	var params []TypeParam
	for _, field := range list.List {
		constraint := exprString(fset, field.Type)
		for _, name := range field.Names {
			params = append(params, TypeParam{Name: name.Name, Constraint: constraint})
		}
	}
	return params
}

// fieldTag 去掉字段标签字面量的引号
func fieldTag(field *ast.Field) (reflect.StructTag, error) {
	if field.Tag == nil {
		return "", nil
	}
	s, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return "", err
	}
	return reflect.StructTag(s), nil
}

// exprString 打印表达式的源码文本
func exprString(fset *token.FileSet, expr ast.Expr) string {
	if expr == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, expr); err != nil {
		return ""
	}
	return buf.String()
}

// describeType 描述不受支持的类型形状
func describeType(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.InterfaceType:
		return "接口类型"
	case *ast.FuncType:
		return "函数类型"
	case *ast.MapType:
		return "map 类型"
	case *ast.ArrayType:
		return "数组/切片类型"
	case *ast.ChanType:
		return "channel 类型"
	case *ast.StarExpr:
		return "指针类型"
	default:
		return "非结构体类型"
	}
}
