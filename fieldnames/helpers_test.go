package fieldnames

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"
)

// parseTypeSpec 解析源码并返回指定名称的类型声明
func parseTypeSpec(t *testing.T, src, name string) (*token.FileSet, *ast.TypeSpec) {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "models.go", src, parser.ParseComments)
	require.NoError(t, err)

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == name {
				return fset, ts
			}
		}
	}
	t.Fatalf("类型 %s 不存在", name)
	return nil, nil
}

// mustDecl 解析源码并构造 RecordDeclaration
func mustDecl(t *testing.T, src, name string) *RecordDeclaration {
	t.Helper()
	fset, spec := parseTypeSpec(t, src, name)
	decl, err := NewRecordDeclaration(fset, spec)
	require.NoError(t, err)
	return decl
}

// requireKind 断言错误中包含指定类型的诊断，并返回全部诊断
func requireKind(t *testing.T, err error, kind ErrorKind) []*Diagnostic {
	t.Helper()
	require.Error(t, err)
	diags := Diagnostics(err)
	require.NotEmpty(t, diags, "错误中没有诊断信息: %v", err)
	for _, d := range diags {
		require.Equal(t, kind, d.Kind, "诊断: %v", d)
	}
	return diags
}
