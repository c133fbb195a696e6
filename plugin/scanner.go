package plugin

import (
	"bufio"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// DirectivePrefix 包级配置指令前缀，支持 //go:fieldnames: 和 // go:fieldnames:
const DirectivePrefix = "go:fieldnames:"

// Scanner 两阶段并行注解扫描器
// 第一阶段：快速文本匹配，找出可能包含注解的文件
// 第二阶段：对匹配的文件进行 AST 解析
type Scanner struct {
	workers int
	verbose bool

	// 注解过滤器（可选）
	annotationFilter []string
}

// ScannerOption 扫描器选项
type ScannerOption func(*Scanner)

func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithScannerVerbose(v bool) ScannerOption {
	return func(s *Scanner) {
		s.verbose = v
	}
}

func WithAnnotationFilter(annotations ...string) ScannerOption {
	return func(s *Scanner) {
		s.annotationFilter = annotations
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quickMatchRegex 快速匹配注解的正则
var quickMatchRegex = regexp.MustCompile(`@(\w+)`)

// directiveRegex 匹配包级配置指令
var directiveRegex = regexp.MustCompile(regexp.QuoteMeta(DirectivePrefix) + `\s*(.*)`)

// Scan 扫描指定路径
// 支持: ./... ./pkg/... ./pkg /abs/path/... file.go
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	allFiles, err := collectFiles(patterns)
	if err != nil {
		return nil, err
	}

	empty := &ScanResult{PackageConfigs: make(map[string]*PackageConfig)}
	if len(allFiles) == 0 {
		return empty, nil
	}

	// ========== 第一阶段：快速匹配 ==========
	matchedFiles, err := s.quickMatch(ctx, allFiles)
	if err != nil {
		return nil, err
	}
	if len(matchedFiles) == 0 {
		return empty, nil
	}

	// ========== 第二阶段：AST 解析 ==========
	return s.parseFiles(ctx, matchedFiles)
}

// runParallel 使用 s.workers 个 worker 并行处理文件
// ctx 取消后停止派发，返回 ctx.Err()
func runParallel[R any](ctx context.Context, workers int, files []string, fn func(string) R) ([]R, error) {
	fileCh := make(chan string)
	resultCh := make(chan R, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range fileCh {
				resultCh <- fn(file)
			}
		}()
	}

	var cancelled bool
dispatch:
	for _, file := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		case fileCh <- file:
		}
	}
	close(fileCh)
	wg.Wait()
	close(resultCh)

	if cancelled {
		return nil, ctx.Err()
	}

	results := make([]R, 0, len(files))
	for r := range resultCh {
		results = append(results, r)
	}
	return results, nil
}

// quickMatch 第一阶段：快速文本匹配
func (s *Scanner) quickMatch(ctx context.Context, files []string) ([]string, error) {
	type matchResult struct {
		file    string
		matched bool
	}

	results, err := runParallel(ctx, s.workers, files, func(file string) matchResult {
		matched, err := s.QuickMatchFile(file)
		if err != nil && s.verbose {
			fmt.Printf("读取文件失败 %s: %v\n", file, err)
		}
		return matchResult{file: file, matched: matched && err == nil}
	})
	if err != nil {
		return nil, err
	}

	var matchedFiles []string
	for _, r := range results {
		if r.matched {
			matchedFiles = append(matchedFiles, r.file)
		}
	}
	slices.Sort(matchedFiles)
	return matchedFiles, nil
}

// QuickMatchFile 快速检查文件是否包含注解或 go:fieldnames: 配置
// 用于 dev 模式判断文件是否需要触发代码生成
func (s *Scanner) QuickMatchFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if strings.Contains(trimmed, DirectivePrefix) {
			return true, nil
		}

		for _, match := range quickMatchRegex.FindAllStringSubmatch(trimmed, -1) {
			if len(s.annotationFilter) == 0 || slices.Contains(s.annotationFilter, match[1]) {
				return true, nil
			}
		}
	}

	return false, scanner.Err()
}

// fileResult 单个文件的解析结果
type fileResult struct {
	file      string
	types     []*AnnotatedTarget
	pkgConfig *PackageConfig
	err       error
}

// parseFiles 第二阶段：AST 解析
func (s *Scanner) parseFiles(ctx context.Context, files []string) (*ScanResult, error) {
	results, err := runParallel(ctx, s.workers, files, s.parseFile)
	if err != nil {
		return nil, err
	}

	// 按文件路径排序，保证输出稳定
	slices.SortFunc(results, func(a, b fileResult) int {
		return strings.Compare(a.file, b.file)
	})

	result := &ScanResult{
		PackageConfigs: make(map[string]*PackageConfig),
	}
	for _, r := range results {
		if r.err != nil {
			if s.verbose {
				fmt.Printf("跳过无法解析的文件 %s: %v\n", r.file, r.err)
			}
			continue
		}
		result.Types = append(result.Types, r.types...)
		if r.pkgConfig != nil {
			mergePackageConfig(result.PackageConfigs, r.pkgConfig)
		}
	}

	return result, nil
}

// mergePackageConfig 合并同一包内多个文件的配置，后发现的配置覆盖先前的
func mergePackageConfig(configs map[string]*PackageConfig, cfg *PackageConfig) {
	existing, ok := configs[cfg.PackageDir]
	if !ok {
		configs[cfg.PackageDir] = cfg
		return
	}

	if cfg.DefaultOutput != "" {
		if existing.DefaultOutput != "" && existing.DefaultOutput != cfg.DefaultOutput {
			fmt.Printf("警告: 包 %s 中存在多个不同的默认输出配置，使用后发现的配置\n", cfg.PackageDir)
		}
		existing.DefaultOutput = cfg.DefaultOutput
	}
	for k, v := range cfg.PluginOutputs {
		if old, ok := existing.PluginOutputs[k]; ok && old != v {
			fmt.Printf("警告: 包 %s 中插件 %s 存在多个不同的输出配置，使用后发现的配置\n", cfg.PackageDir, k)
		}
		existing.PluginOutputs[k] = v
	}
}

// parseFile AST 解析单个文件
func (s *Scanner) parseFile(filePath string) fileResult {
	result := fileResult{file: filePath}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		result.err = err
		return result
	}

	result.pkgConfig = parsePackageConfig(file, filePath)

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		result.types = append(result.types, s.parseTypeDecl(fset, filePath, file.Name.Name, genDecl)...)
	}

	return result
}

// parseTypeDecl 解析类型声明
// 分组声明 type ( ... ) 中，每个 spec 的注释优先；没有注释时使用整个分组的注释
func (s *Scanner) parseTypeDecl(fset *token.FileSet, filePath, packageName string, decl *ast.GenDecl) []*AnnotatedTarget {
	var targets []*AnnotatedTarget

	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		doc := typeSpec.Doc
		if doc == nil && len(decl.Specs) == 1 {
			doc = decl.Doc
		}
		if doc == nil {
			continue
		}

		annotations := ParseAnnotations(doc.Text())
		if len(s.annotationFilter) > 0 {
			annotations = FilterByNames(annotations, s.annotationFilter...)
		}
		if len(annotations) == 0 {
			continue
		}

		targets = append(targets, &AnnotatedTarget{
			Target: &Target{
				Kind:        kindOf(typeSpec),
				Name:        typeSpec.Name.Name,
				PackageName: packageName,
				FilePath:    filePath,
				Position:    fset.Position(typeSpec.Name.Pos()),
				Fset:        fset,
				Spec:        typeSpec,
			},
			Annotations: annotations,
		})
	}

	return targets
}

// kindOf 判断类型声明的目标类型，别名一律视为 TargetType
func kindOf(spec *ast.TypeSpec) TargetKind {
	if spec.Assign.IsValid() {
		return TargetType
	}
	switch spec.Type.(type) {
	case *ast.StructType:
		return TargetStruct
	case *ast.InterfaceType:
		return TargetInterface
	default:
		return TargetType
	}
}

// collectFiles 收集所有需要扫描的文件
func collectFiles(patterns []string) ([]string, error) {
	var files []string
	err := walkPatterns(patterns, nil, func(path string) {
		files = append(files, path)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// CollectDirs 收集路径模式匹配的所有包目录
// 文件模式取其所在目录，dev 模式据此添加文件监听
func CollectDirs(patterns []string) ([]string, error) {
	var dirs []string
	err := walkPatterns(patterns, func(dir string) {
		dirs = append(dirs, dir)
	}, nil)
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// walkPatterns 展开路径模式，对每个目录和源文件各回调一次（绝对路径，已去重）
// 支持单个文件、目录，以及 dir/... 递归模式
func walkPatterns(patterns []string, onDir, onFile func(path string)) error {
	seenDirs := make(map[string]bool)
	seenFiles := make(map[string]bool)

	visitDir := func(dir string) {
		if onDir != nil && !seenDirs[dir] {
			seenDirs[dir] = true
			onDir(dir)
		}
	}
	visitFile := func(path string) {
		if onFile != nil && !seenFiles[path] {
			seenFiles[path] = true
			onFile(path)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		if recursive {
			pattern = strings.TrimSuffix(pattern, "/...")
			if pattern == "" {
				pattern = "."
			}
		}

		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			if strings.HasSuffix(absPath, ".go") {
				visitDir(filepath.Dir(absPath))
				visitFile(absPath)
			}
			continue
		}

		err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != absPath && (!recursive || IsSkippedDir(d.Name())) {
					return filepath.SkipDir
				}
				visitDir(path)
				return nil
			}
			if strings.HasSuffix(path, ".go") && !IsGeneratedFile(path) {
				visitFile(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// IsSkippedDir 扫描时跳过隐藏目录、vendor 和 testdata
func IsSkippedDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}

// generatedSuffixes 生成文件和测试文件的后缀
var generatedSuffixes = []string{"_test.go", "_gen.go", "_fieldnames.go"}

// IsGeneratedFile 检查是否是生成的文件或测试文件
func IsGeneratedFile(filePath string) bool {
	base := filepath.Base(filePath)
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// parsePackageConfig 解析包级 go:fieldnames: 配置
// 支持格式:
//
//	//go:fieldnames: -output `$FILE_meta`
//	// go:fieldnames: plugin:fieldnames -output `fields_gen`
func parsePackageConfig(file *ast.File, filePath string) *PackageConfig {
	var lines []string

	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimSuffix(text, "*/")
			text = strings.TrimSpace(text)

			if matches := directiveRegex.FindStringSubmatch(text); len(matches) > 1 {
				lines = append(lines, matches[1])
			}
		}
	}

	if len(lines) == 0 {
		return nil
	}
	if len(lines) > 1 {
		fmt.Printf("警告: 文件 %s 定义了多个 %s 指令，将被忽略\n", filePath, DirectivePrefix)
		return nil
	}

	return parseDirectiveLine(lines[0], filePath)
}

// parseDirectiveLine 解析单行配置
// 格式:
//
//	-output `xxx`                                          // 默认输出
//	plugin:fieldnames -output `xxx` plugin:other -output `yyy`  // 插件特定输出
func parseDirectiveLine(line string, filePath string) *PackageConfig {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	config := &PackageConfig{
		PackageDir:    packageDir(filePath),
		PluginOutputs: make(map[string]string),
	}

	parts := splitDirectiveArgs(line)

	var currentPlugin string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		switch {
		case strings.HasPrefix(part, "plugin:"):
			currentPlugin = strings.ToLower(strings.TrimPrefix(part, "plugin:"))
		case part == "-output" && i+1 < len(parts):
			i++
			output := trimQuotes(parts[i])
			if currentPlugin == "" {
				config.DefaultOutput = output
			} else {
				config.PluginOutputs[currentPlugin] = output
			}
		}
	}

	if config.DefaultOutput == "" && len(config.PluginOutputs) == 0 {
		return nil
	}
	return config
}

// splitDirectiveArgs 按空白分割参数，支持引号内的空格
func splitDirectiveArgs(line string) []string {
	var parts []string
	var current strings.Builder
	var quoteChar byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoteChar == 0 && (c == '`' || c == '"' || c == '\''):
			quoteChar = c
			current.WriteByte(c)
		case quoteChar != 0 && c == quoteChar:
			quoteChar = 0
			current.WriteByte(c)
		case quoteChar == 0 && (c == ' ' || c == '\t'):
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// trimQuotes 去除首尾成对的引号
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '`' || first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// packageDir 返回文件所在的包目录
func packageDir(filePath string) string {
	return filepath.Dir(filePath)
}
