package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams 覆盖所有支持的参数类型
type testParams struct {
	Fields  string  `param:"name=fields,required=false,default=Fields,description=字段名方法"`
	Descs   string  `param:"name=descs,required=false,default=Descs,description=描述方法\\, 可含逗号"`
	Limit   int     `param:"name=limit,required=false,default=10,description=数量"`
	Width   uint    `param:"name=width,required=false,description=宽度"`
	Enable  bool    `param:"name=enable,required=false,default=false,description=启用"`
	Ratio   float64 `param:"name=ratio,required=false,default=0.5,description=比例"`
	Ignored string  // 没有 tag，应该被忽略
}

func TestParseParamsFromStruct(t *testing.T) {
	params := ParseParamsFromStruct(testParams{})
	require.Len(t, params, 6)

	assert.Equal(t, ParamDef{Name: "fields", Default: "Fields", Description: "字段名方法"}, params[0])
	// 反斜杠转义逗号
	assert.Equal(t, "描述方法, 可含逗号", params[1].Description)
	assert.Equal(t, "10", params[2].Default)
	assert.Empty(t, params[3].Default)

	// 指针与值得到相同结果
	assert.Equal(t, params, ParseParamsFromStruct(&testParams{}))

	assert.Empty(t, ParseParamsFromStruct(struct{}{}))
	assert.Nil(t, ParseParamsFromStruct(nil))
	assert.Nil(t, ParseParamsFromStruct("not a struct"))
}

func TestParseParamsFromStruct_Required(t *testing.T) {
	type requiredParams struct {
		Name string `param:"name=name,required=true,description=必填"`
		Flag string `param:"name=flag,required=1,description=数字形式的布尔值"`
	}

	params := ParseParamsFromStruct(requiredParams{})
	require.Len(t, params, 2)
	assert.True(t, params[0].Required)
	assert.True(t, params[1].Required)
}

func TestParseAnnotationParams(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    testParams
	}{
		{
			name:    "反引号格式",
			comment: "// @Test(fields=`Names`)",
			want:    testParams{Fields: "Names", Descs: "Descs", Limit: 10, Ratio: 0.5},
		},
		{
			name:    "双引号格式",
			comment: `// @Test(fields="Names")`,
			want:    testParams{Fields: "Names", Descs: "Descs", Limit: 10, Ratio: 0.5},
		},
		{
			name:    "多个参数",
			comment: "// @Test(fields=Keys, descs=`Labels`, limit=20, width=3, enable=true, ratio=1.5)",
			want:    testParams{Fields: "Keys", Descs: "Labels", Limit: 20, Width: 3, Enable: true, Ratio: 1.5},
		},
		{
			name:    "参数名不区分大小写",
			comment: "// @Test(FIELDS=Keys)",
			want:    testParams{Fields: "Keys", Descs: "Descs", Limit: 10, Ratio: 0.5},
		},
		{
			name:    "无参数使用默认值",
			comment: "// @Test()",
			want:    testParams{Fields: "Fields", Descs: "Descs", Limit: 10, Ratio: 0.5},
		},
	}

	paramDefs := ParseParamsFromStruct(testParams{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			annotations := ParseAnnotations(tt.comment)
			require.NotEmpty(t, annotations, "未解析到注解")

			var params testParams
			require.NoError(t, ParseAnnotationParams(annotations[0], &params, paramDefs))
			assert.Equal(t, tt.want, params)
		})
	}
}

func TestParseAnnotationParams_Errors(t *testing.T) {
	type requiredParams struct {
		Name string `param:"name=name,required=true,description=必填"`
	}

	tests := []struct {
		name     string
		comment  string
		target   any
		defs     []ParamDef
		contains string
	}{
		{
			name:     "缺少必填参数",
			comment:  "// @Test",
			target:   &requiredParams{},
			defs:     ParseParamsFromStruct(requiredParams{}),
			contains: "缺少必填参数 name",
		},
		{
			name:     "整数无效",
			comment:  "// @Test(limit=abc)",
			target:   &testParams{},
			defs:     ParseParamsFromStruct(testParams{}),
			contains: "limit",
		},
		{
			name:     "布尔值无效",
			comment:  "// @Test(enable=maybe)",
			target:   &testParams{},
			defs:     ParseParamsFromStruct(testParams{}),
			contains: "enable",
		},
		{
			name:     "非指针",
			comment:  "// @Test",
			target:   testParams{},
			contains: "非 nil 指针",
		},
		{
			name:     "不是结构体",
			comment:  "// @Test",
			target:   new(string),
			contains: "结构体",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			annotations := ParseAnnotations(tt.comment)
			require.NotEmpty(t, annotations)

			err := ParseAnnotationParams(annotations[0], tt.target, tt.defs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestBaseGenerator_NewParams(t *testing.T) {
	gen := NewBaseGeneratorWithParamsStruct("test", []string{"Test"}, []TargetKind{TargetStruct}, testParams{})

	p1, ok := gen.NewParams().(*testParams)
	require.True(t, ok)
	p2, ok := gen.NewParams().(*testParams)
	require.True(t, ok)

	// 每次返回新的实例
	assert.NotSame(t, p1, p2)
	p1.Fields = "Names"
	assert.Empty(t, p2.Fields)

	assert.Nil(t, NewBaseGenerator("plain", []string{"Plain"}, []TargetKind{TargetStruct}).NewParams())
	assert.Equal(t, 100, gen.Priority())
	gen.SetPriority(5)
	assert.Equal(t, 5, gen.Priority())
}

func TestParseTargetParams(t *testing.T) {
	gen := &testGenerator{
		BaseGenerator: *NewBaseGeneratorWithParamsStruct("test", []string{"Test"}, []TargetKind{TargetStruct}, testParams{}),
	}

	target := &AnnotatedTarget{
		Target:      &Target{Kind: TargetStruct, Name: "User"},
		Annotations: ParseAnnotations("// @Test(fields=Keys)"),
	}
	require.NoError(t, parseTargetParams(gen, target))

	params, ok := target.ParsedParams.(testParams)
	require.True(t, ok)
	assert.Equal(t, "Keys", params.Fields)
	assert.Equal(t, "Descs", params.Descs)

	// 无对应注解时不解析
	other := &AnnotatedTarget{Target: &Target{Kind: TargetStruct}, Annotations: ParseAnnotations("// @Other")}
	require.NoError(t, parseTargetParams(gen, other))
	assert.Nil(t, other.ParsedParams)
}

func TestUnknownParams(t *testing.T) {
	defs := ParseParamsFromStruct(testParams{})

	ann := ParseAnnotations("// @Test(feilds=Names, Descs=Labels, output=x.go, zz=1)")[0]
	assert.Equal(t, []string{"feilds", "zz"}, UnknownParams(ann, defs))

	ann = ParseAnnotations("// @Test(fields=Names)")[0]
	assert.Empty(t, UnknownParams(ann, defs))

	assert.Nil(t, UnknownParams(nil, defs))
}
