package fieldnames

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/fieldnames/plugin"
	"github.com/donutnomad/gg"
)

const (
	generatorName  = "fieldnames"
	annotationName = "FieldNames"
	defaultOutput  = "$FILE_fieldnames.go"
)

// Params 定义 FieldNames 注解支持的参数
type Params struct {
	Fields string `param:"name=fields,required=false,default=Fields,description=返回字段名数组的方法名"`
	Descs  string `param:"name=descs,required=false,default=Descs,description=返回字段描述数组的方法名"`
}

// Generator 实现 plugin.Generator 接口
type Generator struct {
	plugin.BaseGenerator
}

func NewGenerator() *Generator {
	gen := &Generator{
		BaseGenerator: *plugin.NewBaseGeneratorWithParamsStruct(
			generatorName,
			[]string{annotationName},
			// 接收所有类型声明，非结构体由 Derive 报告 ShapeError 而不是被静默忽略
			[]plugin.TargetKind{plugin.TargetStruct, plugin.TargetInterface, plugin.TargetType},
			Params{},
		),
	}
	gen.SetPriority(10)
	return gen
}

// paramNames 注解可用的参数名
func (g *Generator) paramNames() []string {
	names := []string{"output"}
	for _, def := range g.ParamDefs() {
		names = append(names, def.Name)
	}
	return names
}

// fileFragment 单个输出文件中的一个类型
type fileFragment struct {
	pkgName  string
	fragment *Fragment
}

// Generate 执行代码生成
func (g *Generator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()

	if len(ctx.Targets) == 0 {
		return result, nil
	}

	// key: 输出路径
	fileTargets := make(map[string][]*fileFragment)

	for _, at := range ctx.Targets {
		ann := plugin.GetAnnotation(at.Annotations, annotationName)
		if ann == nil {
			continue
		}

		if unknown := plugin.UnknownParams(ann, g.ParamDefs()); len(unknown) > 0 {
			result.AddError(paramError(at.Target.Position, at.Target.Name, "@%s 不支持参数 %s，可用参数: %s",
				annotationName, strings.Join(unknown, ", "), strings.Join(g.paramNames(), ", ")))
			result.Skipped++
			continue
		}

		var params Params
		if at.ParsedParams != nil {
			var ok bool
			params, ok = at.ParsedParams.(Params)
			if !ok {
				result.AddError(fmt.Errorf("ParsedParams 类型断言失败: %T", at.ParsedParams))
				continue
			}
		}

		fragment, err := Derive(at.Target.Fset, at.Target.PackageName, at.Target.Spec, EmitOptions{
			FieldsMethod: params.Fields,
			DescsMethod:  params.Descs,
		})
		if err != nil {
			var diag *Diagnostic
			if !errors.As(err, &diag) {
				err = fmt.Errorf("%s: 处理类型 %s 失败: %w", at.Target.Position, at.Target.Name, err)
			}
			result.AddError(err)
			result.Skipped++
			continue
		}

		outputPath, err := plugin.GetOutputPath(at.Target, ann, defaultOutput, ctx.GetPackageConfig(at.Target), g.Name(), ctx.DefaultOutput)
		if err != nil {
			result.AddError(fmt.Errorf("%s: %w", at.Target.Position, err))
			continue
		}

		fileTargets[outputPath] = append(fileTargets[outputPath], &fileFragment{
			pkgName:  at.Target.PackageName,
			fragment: fragment,
		})

		if ctx.Verbose {
			fmt.Printf("[fieldnames] 处理类型 %s -> %s\n", fragment.Decl.ReceiverType(), outputPath)
			fmt.Printf("[fieldnames] %s", spew.Sdump(fragment.Lists))
		}
	}

	// 按输出路径排序，确保生成顺序一致
	outputPaths := make([]string, 0, len(fileTargets))
	for outputPath := range fileTargets {
		outputPaths = append(outputPaths, outputPath)
	}
	slices.Sort(outputPaths)

	for _, outputPath := range outputPaths {
		gen, err := g.generateDefinition(fileTargets[outputPath])
		if err != nil {
			result.AddError(fmt.Errorf("生成 %s 失败: %w", outputPath, err))
			continue
		}
		result.AddDefinition(outputPath, gen)
	}

	return result, nil
}

// generateDefinition 将同一输出文件的多个类型合并为一个 gg 定义
// 类型按名称排序
func (g *Generator) generateDefinition(targets []*fileFragment) (*gg.Generator, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("没有目标需要生成")
	}

	pkgName := targets[0].pkgName
	for _, t := range targets[1:] {
		if t.pkgName != pkgName {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, t.pkgName)
		}
	}

	slices.SortFunc(targets, func(a, b *fileFragment) int {
		return strings.Compare(a.fragment.Decl.Identifier, b.fragment.Decl.Identifier)
	})

	gen := gg.New()
	gen.SetPackage(pkgName)
	for _, t := range targets {
		gen.Merge(t.fragment.Code)
	}
	return gen, nil
}
