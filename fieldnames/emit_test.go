package fieldnames

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/donutnomad/fieldnames/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// typeCheck 将源码与生成代码放在同一个包中做类型检查
func typeCheck(t *testing.T, sources ...string) {
	t.Helper()

	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(sources))
	for i, src := range sources {
		f, err := parser.ParseFile(fset, "", src, parser.ParseComments)
		require.NoError(t, err, "源码 %d 解析失败:\n%s", i, src)
		files = append(files, f)
	}

	var conf types.Config
	_, err := conf.Check("models", fset, files, nil)
	require.NoError(t, err)
}

// derive 解析源码并对指定类型执行 Derive，返回格式化后的生成代码
func derive(t *testing.T, src, name string, opts EmitOptions) (*Fragment, string) {
	t.Helper()

	fset, spec := parseTypeSpec(t, src, name)
	frag, err := Derive(fset, "models", spec, opts)
	require.NoError(t, err)

	out, err := utils.Format("models_fieldnames.go", frag.Code.Bytes())
	require.NoError(t, err)
	return frag, string(out)
}

func TestArrayLiteral(t *testing.T) {
	assert.Equal(t, "[0]string{}", arrayLiteral(nil))
	assert.Equal(t, "[2]string{\n\t\t\"ID\",\n\t\t\"Name\",\n\t}", arrayLiteral([]string{"ID", "Name"}))
	assert.Equal(t, "[1]string{\n\t\t\"say \\\"hi\\\"\\n\",\n\t}", arrayLiteral([]string{"say \"hi\"\n"}))
}

func TestDerive_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantNames []string
		wantDescs []string
	}{
		{
			name: "no options",
			src: `package models

type Greeting struct {
	Hello string
	World string
}
`,
			wantNames: []string{"Hello", "World"},
			wantDescs: []string{"", ""},
		},
		{
			name: "skip",
			src: `package models

type Greeting struct {
	Hello  string
	Hidden bool ` + "`field_names:\"skip\"`" + `
	World  string
}
`,
			wantNames: []string{"Hello", "World"},
			wantDescs: []string{"", ""},
		},
		{
			name: "desc",
			src: `package models

type Greeting struct {
	A int ` + "`field_names:\"desc=first\"`" + `
	B int ` + "`field_names:\"desc=second\"`" + `
}
`,
			wantNames: []string{"A", "B"},
			wantDescs: []string{"first", "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag, code := derive(t, tt.src, "Greeting", EmitOptions{})
			assert.Equal(t, tt.wantNames, frag.Lists.Names)
			assert.Equal(t, tt.wantDescs, frag.Lists.Descriptions)
			typeCheck(t, tt.src, code)
		})
	}
}

func TestDerive_Rejections(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		is   error
	}{
		{
			name: "embedded fields only",
			src: `package models

type Base struct{}
type Other struct{}

type Greeting struct {
	Base
	Other
}
`,
			kind: KindShape,
			is:   ErrShape,
		},
		{
			name: "unknown option",
			src: `package models

type Greeting struct {
	Hello string ` + "`field_names:\"unknownoption\"`" + `
}
`,
			kind: KindAnnotationSyntax,
			is:   ErrAnnotationSyntax,
		},
		{
			name: "malformed skip tag",
			src: `package models

type Greeting struct {
	Secret string ` + "`json:\"secret\" field_names: \"skip\"`" + `
	Hello  string
}
`,
			kind: KindAnnotationSyntax,
			is:   ErrAnnotationSyntax,
		},
		{
			name: "repeated tag key",
			src: `package models

type Greeting struct {
	Secret string ` + "`field_names:\"desc=a\" field_names:\"skip\"`" + `
	Hello  string
}
`,
			kind: KindAnnotationSyntax,
			is:   ErrAnnotationSyntax,
		},
		{
			name: "not a struct",
			src:  "package models\n\ntype Greeting map[string]string\n",
			kind: KindShape,
			is:   ErrShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fset, spec := parseTypeSpec(t, tt.src, "Greeting")
			frag, err := Derive(fset, "models", spec, EmitOptions{})
			assert.Nil(t, frag)
			requireKind(t, err, tt.kind)
			assert.True(t, errors.Is(err, tt.is))
		})
	}
}

func TestDerive_Output(t *testing.T) {
	src := `package models

type User struct {
	ID       int64
	Name     string ` + "`field_names:\"desc='Display name, shown in UI'\"`" + `
	Password string ` + "`field_names:\"skip,desc=ignored\"`" + `
}
`
	_, code := derive(t, src, "User", EmitOptions{})

	assert.Contains(t, code, "package models")
	assert.Contains(t, code, "func (User) Fields() [2]string {\n\treturn [2]string{\n\t\t\"ID\",\n\t\t\"Name\",\n\t}\n}")
	assert.Contains(t, code, "func (User) Descs() [2]string {\n\treturn [2]string{\n\t\t\"\",\n\t\t\"Display name, shown in UI\",\n\t}\n}")
	assert.NotContains(t, code, "Password")
	assert.NotContains(t, code, "ignored")

	typeCheck(t, src, code, `package models

var (
	_ [2]string = User{}.Fields()
	_ [2]string = (*User)(nil).Descs()
)
`)
}

func TestDerive_Empty(t *testing.T) {
	src := `package models

type Empty struct{}

type AllSkipped struct {
	A int ` + "`field_names:\"skip\"`" + `
}
`
	for _, name := range []string{"Empty", "AllSkipped"} {
		t.Run(name, func(t *testing.T) {
			frag, code := derive(t, src, name, EmitOptions{})
			assert.Equal(t, 0, frag.Lists.Len())
			assert.Contains(t, code, "func ("+name+") Fields() [0]string {\n\treturn [0]string{}\n}")
			assert.Contains(t, code, "func ("+name+") Descs() [0]string {\n\treturn [0]string{}\n}")
		})
	}
}

func TestDerive_Generic(t *testing.T) {
	src := `package models

type Pair[K comparable, V any] struct {
	Key   K ` + "`field_names:\"desc=key\"`" + `
	Value V ` + "`field_names:\"desc=value\"`" + `
}
`
	frag, code := derive(t, src, "Pair", EmitOptions{})
	assert.Equal(t, "[K comparable, V any]", frag.Decl.LongTypeParams())
	assert.Contains(t, code, "func (Pair[K, V]) Fields() [2]string")
	assert.Contains(t, code, "func (Pair[K, V]) Descs() [2]string")

	typeCheck(t, src, code, `package models

var _ [2]string = Pair[string, int]{}.Fields()
`)
}

func TestDerive_CustomMethodNames(t *testing.T) {
	src := `package models

type User struct {
	Fields string
	Descs  string
}
`
	_, code := derive(t, src, "User", EmitOptions{FieldsMethod: "ColumnNames", DescsMethod: "ColumnDescs"})
	assert.Contains(t, code, "func (User) ColumnNames() [2]string")
	assert.Contains(t, code, "func (User) ColumnDescs() [2]string")
	typeCheck(t, src, code)
}

func TestDerive_ParamErrors(t *testing.T) {
	src := `package models

type User struct {
	ID     int64
	Fields string
}
`
	tests := []struct {
		name  string
		opts  EmitOptions
		count int
	}{
		{"default collides with field", EmitOptions{}, 1},
		{"invalid identifier", EmitOptions{FieldsMethod: "Field-Names", DescsMethod: "Descs"}, 1},
		{"blank identifier", EmitOptions{FieldsMethod: "_", DescsMethod: "Descs"}, 1},
		{"keyword", EmitOptions{FieldsMethod: "func", DescsMethod: "Descs"}, 1},
		{"same names", EmitOptions{FieldsMethod: "Names", DescsMethod: "Names"}, 1},
		{"both collide", EmitOptions{FieldsMethod: "ID", DescsMethod: "Fields"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fset, spec := parseTypeSpec(t, src, "User")
			frag, err := Derive(fset, "models", spec, tt.opts)
			assert.Nil(t, frag)
			diags := requireKind(t, err, KindParam)
			assert.Len(t, diags, tt.count)
			assert.True(t, errors.Is(err, ErrParam))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	src := `package models

type User struct {
	ID   int64  ` + "`field_names:\"desc=主键\"`" + `
	Name string ` + "`field_names:\"desc=名称\"`" + `
}
`
	fset, spec := parseTypeSpec(t, src, "User")
	first, err := Derive(fset, "models", spec, EmitOptions{})
	require.NoError(t, err)
	second, err := Derive(fset, "models", spec, EmitOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Code.Bytes(), second.Code.Bytes())
}
