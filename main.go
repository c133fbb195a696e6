package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/donutnomad/fieldnames/fieldnames"
	"github.com/donutnomad/fieldnames/plugin"
	"github.com/samber/lo"
)

func init() {
	plugin.MustRegister(fieldnames.NewGenerator())
}

var (
	verbose = flag.Bool("v", false, "详细输出")
	help    = flag.Bool("h", false, "显示帮助信息")
	output  = flag.String("output", "", "默认输出路径（支持模板变量 $FILE, $PACKAGE），为空时使用 $FILE_fieldnames.go")
	async   = flag.Bool("async", true, "异步执行生成器（默认 true）")
	check   = flag.Bool("check", false, "只检查生成文件是否最新，不写入，输出 diff")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	args := flag.Args()

	// 默认命令是 gen
	if len(args) == 0 {
		runGen([]string{"./..."})
		return
	}

	switch args[0] {
	case "gen":
		runGen(args[1:])
	case "dev":
		runDev(args[1:])
	default:
		// 不是子命令，当作路径参数处理，执行 gen
		runGen(args)
	}
}

func runGen(args []string) {
	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	registry := plugin.Global()
	if len(registry.Generators()) == 0 {
		fmt.Fprintln(os.Stderr, "错误: 没有已注册的生成器")
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("已注册 %d 个生成器:\n", len(registry.Generators()))
		for _, gen := range registry.Generators() {
			anns := lo.Map(gen.Annotations(), func(item string, _ int) string {
				return "@" + item
			})
			fmt.Printf("  - %s (%s)\n", gen.Name(), strings.Join(anns, ","))
		}
		fmt.Println()
	}

	stats, err := plugin.RunWithOptions(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: patterns,
		Verbose:  *verbose,
		Output:   *output,
		Async:    *async,
		Check:    *check,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		if errors.Is(err, plugin.ErrStale) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	if stats != nil && (stats.FileCount > 0 || *verbose) {
		action := "生成"
		if *check {
			action = "检查"
		}
		fmt.Printf("\n统计: 扫描 %d 个目标, %s %d 个文件\n", stats.TargetCount, action, stats.FileCount)
		fmt.Printf("耗时: 扫描 %v, 生成 %v, 总计 %v\n", stats.ScanDuration, stats.GenerateDuration, stats.TotalDuration)
	}
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `fieldnames - 为结构体生成字段名与字段描述数组

用法:
  fieldnames [选项] [路径...]
  fieldnames gen [选项] [路径...]
  fieldnames dev [选项] [路径...]

命令:
  gen     执行代码生成（默认）
  dev     启动开发模式，监听文件变动自动生成

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./pkg/...      递归扫描指定目录
    ./models       只扫描 models 目录

选项:
`)
	flag.PrintDefaults()

	registry := plugin.Global()
	if len(registry.Generators()) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "\n支持的注解:\n")
		_, _ = fmt.Fprint(os.Stderr, plugin.FormatHelpText(registry))
	}

	_, _ = fmt.Fprintf(os.Stderr, `字段标签:
  field_names:"skip"                  不输出该字段
  field_names:"skip=false"            显式保留该字段
  field_names:"desc=用户名"           字段描述
  field_names:"desc='姓, 名'"         描述中包含逗号时使用单引号，\' 表示单引号

模板变量:
  $FILE          - 源文件名（不含 .go 后缀）
  $PACKAGE       - 包名
  {{ .Type }}    - 类型名，可使用 sprig 函数，如 {{ .Type | snakecase }}

示例:
  fieldnames                                扫描当前目录（默认 ./...）
  fieldnames -v ./models/...                详细模式扫描 models 目录
  fieldnames -output $FILE_meta ./...       指定输出文件名
  fieldnames -check ./...                   检查生成文件是否最新
  fieldnames dev ./...                      开发模式，监听文件变动
`)
}
