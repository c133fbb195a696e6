package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/donutnomad/fieldnames/internal/utils"
	"github.com/donutnomad/gg"
	"github.com/samber/lo"
)

// GeneratedHeader 生成文件的头部注释
const GeneratedHeader = "Code generated by fieldnames. DO NOT EDIT."

// ErrStale check 模式下存在过期的生成文件
var ErrStale = errors.New("生成文件已过期")

// RunOptions 运行选项
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Verbose  bool
	Output   string // 命令行指定的默认输出路径（最低优先级）
	Async    bool   // 是否异步执行生成器
	Check    bool   // 只比较不写入，输出 diff
}

// RunStats 运行统计信息
type RunStats struct {
	ScanDuration     time.Duration // 扫描耗时
	GenerateDuration time.Duration // 生成耗时
	TotalDuration    time.Duration // 总耗时
	TargetCount      int           // 目标数量
	FileCount        int           // 生成（或 check 模式下比较）的文件数量
	StaleCount       int           // check 模式下内容不一致的文件数量
	ErrorCount       int           // 错误数量
}

// Run 使用默认选项运行代码生成
func Run(ctx context.Context, registry *Registry, patterns ...string) error {
	_, err := RunWithOptions(ctx, &RunOptions{
		Registry: registry,
		Patterns: patterns,
	})
	return err
}

// RunWithOptions 运行代码生成并返回统计信息
// 1. 扫描指定路径的注解
// 2. 将目标分发给对应的生成器
// 3. 执行生成器
// 4. 合并同一文件的 gg 定义并写入文件
func RunWithOptions(ctx context.Context, opts *RunOptions) (*RunStats, error) {
	totalStart := time.Now()
	stats := &RunStats{}

	registry := opts.Registry
	if registry == nil {
		registry = globalRegistry
	}

	annotations := registry.Annotations()
	if len(annotations) == 0 {
		return nil, fmt.Errorf("没有已注册的生成器")
	}

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	// 扫描
	scanStart := time.Now()
	scanner := NewScanner(
		WithAnnotationFilter(annotations...),
		WithScannerVerbose(opts.Verbose),
	)
	result, err := scanner.Scan(ctx, patterns...)
	if err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}
	stats.ScanDuration = time.Since(scanStart)
	stats.TargetCount = len(result.All())

	if stats.TargetCount == 0 {
		if opts.Verbose {
			fmt.Println("没有找到任何带注解的目标")
		}
		stats.TotalDuration = time.Since(totalStart)
		return stats, nil
	}
	if opts.Verbose {
		fmt.Printf("找到 %d 个带注解的目标 (扫描耗时: %v)\n", stats.TargetCount, stats.ScanDuration)
	}

	generateStart := time.Now()
	dispatch := registry.DispatchTargets(result)

	// 按优先级排序生成器名称（优先级数字越小越靠前，同优先级按名称）
	genNames := lo.Keys(dispatch)
	slices.SortFunc(genNames, func(a, b string) int {
		genA, _ := registry.GetByName(a)
		genB, _ := registry.GetByName(b)
		if d := genA.Priority() - genB.Priority(); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})

	// 先串行解析所有目标的参数（避免并发修改共享数据）
	var allErrors []error
	for _, genName := range genNames {
		gen, _ := registry.GetByName(genName)
		dispatch[genName] = lo.Filter(dispatch[genName], func(target *AnnotatedTarget, _ int) bool {
			if err := parseTargetParams(gen, target); err != nil {
				allErrors = append(allErrors, fmt.Errorf("%s: %w", target.Target.Position, err))
				return false
			}
			return true
		})
	}

	genResults := executeGenerators(genNames, func(genName string) (*GenerateResult, error) {
		gen, _ := registry.GetByName(genName)
		targets := dispatch[genName]
		if opts.Verbose {
			fmt.Printf("执行生成器: %s (开始处理 %d 个目标)\n", genName, len(targets))
		}

		start := time.Now()
		res, err := gen.Generate(&GenerateContext{
			Targets:        targets,
			PackageConfigs: result.PackageConfigs,
			DefaultOutput:  opts.Output,
			Verbose:        opts.Verbose,
		})
		if opts.Verbose {
			fmt.Printf("执行生成器: %s (耗时: %v)\n", genName, time.Since(start))
		}
		return res, err
	}, opts.Async)

	// 按优先级顺序收集 gg 定义，按输出文件分组
	fileDefinitions := make(map[string][]*gg.Generator)
	fileGenNames := make(map[string][]string)
	for i, genName := range genNames {
		item := genResults[i]
		if item.err != nil {
			allErrors = append(allErrors, fmt.Errorf("生成器 %s 执行失败: %w", genName, item.err))
			continue
		}
		if item.result == nil {
			continue
		}
		paths := lo.Keys(item.result.Definitions)
		slices.Sort(paths)
		for _, path := range paths {
			fileDefinitions[path] = append(fileDefinitions[path], item.result.Definitions[path])
			fileGenNames[path] = append(fileGenNames[path], genName)
		}
		allErrors = append(allErrors, item.result.Errors...)
	}

	// 合并同一文件的定义并写入
	paths := lo.Keys(fileDefinitions)
	slices.Sort(paths)
	for _, path := range paths {
		merged, err := mergeDefinitions(fileDefinitions[path], fileGenNames[path])
		if err != nil {
			allErrors = append(allErrors, fmt.Errorf("合并文件 %s 的定义失败: %w", path, err))
			continue
		}

		if opts.Check {
			stale, err := checkGGFile(path, merged)
			if err != nil {
				allErrors = append(allErrors, fmt.Errorf("比较文件 %s 失败: %w", path, err))
				continue
			}
			stats.FileCount++
			if stale {
				stats.StaleCount++
			}
			continue
		}

		if err := writeGGFile(path, merged); err != nil {
			allErrors = append(allErrors, fmt.Errorf("写入文件 %s 失败: %w", path, err))
			continue
		}
		stats.FileCount++
		fmt.Printf("生成文件: %s\n", path)
	}

	stats.GenerateDuration = time.Since(generateStart)
	stats.TotalDuration = time.Since(totalStart)
	stats.ErrorCount = len(allErrors)

	if len(allErrors) > 0 {
		for _, e := range allErrors {
			fmt.Fprintf(os.Stderr, "错误: %v\n", e)
		}
		return stats, fmt.Errorf("生成过程中出现 %d 个错误", len(allErrors))
	}
	if stats.StaleCount > 0 {
		return stats, fmt.Errorf("%w: %d 个文件需要重新生成", ErrStale, stats.StaleCount)
	}

	return stats, nil
}

// parseTargetParams 将目标上属于该生成器的注解参数解析到参数结构体
func parseTargetParams(gen Generator, target *AnnotatedTarget) error {
	paramsProto := gen.NewParams()
	if paramsProto == nil {
		return nil
	}

	var targetAnn *Annotation
	for _, name := range gen.Annotations() {
		if targetAnn = GetAnnotation(target.Annotations, name); targetAnn != nil {
			break
		}
	}
	if targetAnn == nil {
		return nil
	}

	if err := ParseAnnotationParams(targetAnn, paramsProto, gen.ParamDefs()); err != nil {
		return fmt.Errorf("解析参数失败: %w", err)
	}

	val := reflect.ValueOf(paramsProto)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("NewParams() 必须返回指针类型, 得到: %T", paramsProto)
	}
	target.ParsedParams = val.Elem().Interface()
	return nil
}

// genResultItem 单个生成器的执行结果
type genResultItem struct {
	result *GenerateResult
	err    error
}

// executeGenerators 执行生成器，返回结果与 genNames 一一对应
func executeGenerators(genNames []string, fn func(string) (*GenerateResult, error), async bool) []genResultItem {
	items := make([]genResultItem, len(genNames))

	if !async {
		for i, name := range genNames {
			items[i].result, items[i].err = fn(name)
		}
		return items
	}

	var wg sync.WaitGroup
	for i, name := range genNames {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items[i].result, items[i].err = fn(name)
		}()
	}
	wg.Wait()
	return items
}

// mergeDefinitions 合并多个 gg.Generator 定义到一个文件，每个生成器的输出前加分隔符
func mergeDefinitions(definitions []*gg.Generator, genNames []string) (*gg.Generator, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("没有定义需要合并")
	}

	merged := gg.New()
	// 头部注释与 package 之间空一行，避免成为包文档
	merged.SetHeader("%s\n", GeneratedHeader)

	var pkgName string
	for _, def := range definitions {
		if def.PackageName() == "" {
			continue
		}
		if pkgName == "" {
			pkgName = def.PackageName()
		} else if pkgName != def.PackageName() {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, def.PackageName())
		}
	}
	if pkgName != "" {
		merged.SetPackage(pkgName)
	}

	// 不手动收集 imports，Merge 会正确处理 imports 和别名
	for i, def := range definitions {
		if len(definitions) > 1 {
			genName := "unknown"
			if i < len(genNames) {
				genName = genNames[i]
			}
			merged.Body().AddLine()
			merged.Body().AddString(fmt.Sprintf("// ================ %s ================", genName))
		}
		merged.Merge(def)
	}

	return merged, nil
}

// writeGGFile 将 gg 定义格式化后写入文件
func writeGGFile(path string, gen *gg.Generator) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return utils.WriteFormat(path, gen.Bytes())
}

// checkGGFile 比较生成内容与磁盘上的文件，不一致时打印 unified diff
func checkGGFile(path string, gen *gg.Generator) (bool, error) {
	want, err := utils.Format(path, gen.Bytes())
	if err != nil {
		return false, err
	}

	got, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	if bytes.Equal(got, want) {
		return false, nil
	}

	diff, err := utils.UnifiedDiff(path, got, want)
	if err != nil {
		return true, err
	}
	fmt.Print(diff)
	return true, nil
}

// GetOutputPath 根据注解参数和默认规则计算输出路径
// 优先级：注解参数 > 包级插件配置 > 包级默认配置 > 命令行参数 > 生成器默认文件名
// 模板变量：
//   - $FILE: 源文件名（不含 .go 后缀）
//   - $PACKAGE: 包名
//   - {{ .File }} {{ .Package }} {{ .Type }}: text/template 语法，可使用 sprig 函数
func GetOutputPath(target *Target, ann *Annotation, defaultFileName string, pkgConfig *PackageConfig, pluginName string, cmdOutput string) (string, error) {
	output := ""
	if ann != nil {
		output = ann.GetParam("output")
	}
	if output == "" {
		output = pkgConfig.GetPluginOutput(strings.ToLower(pluginName))
	}
	if output == "" {
		output = cmdOutput
	}
	if output == "" {
		output = defaultFileName
	}
	if output == "" {
		output = "generate.go"
	}

	output, err := renderOutputTemplate(output, target)
	if err != nil {
		return "", err
	}

	if !strings.HasSuffix(output, ".go") {
		output += ".go"
	}
	if filepath.IsAbs(output) {
		return output, nil
	}
	// 相对于源文件目录
	return filepath.Join(filepath.Dir(target.FilePath), output), nil
}

// outputTemplateData 输出路径模板的数据
type outputTemplateData struct {
	File    string // 源文件名（不含 .go 后缀）
	Package string // 包名
	Type    string // 类型名
}

// renderOutputTemplate 替换 $FILE/$PACKAGE 变量并渲染 {{ }} 模板
func renderOutputTemplate(output string, target *Target) (string, error) {
	data := outputTemplateData{
		File:    strings.TrimSuffix(filepath.Base(target.FilePath), ".go"),
		Package: target.PackageName,
		Type:    target.Name,
	}

	output = strings.ReplaceAll(output, "$FILE", data.File)
	output = strings.ReplaceAll(output, "$PACKAGE", data.Package)

	if !strings.Contains(output, "{{") {
		return output, nil
	}

	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(output)
	if err != nil {
		return "", fmt.Errorf("解析输出路径模板 %q 失败: %w", output, err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("渲染输出路径模板 %q 失败: %w", output, err)
	}
	return buf.String(), nil
}
