package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/donutnomad/fieldnames/internal/utils"
	"github.com/donutnomad/fieldnames/plugin"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// DevOptions dev 命令选项
type DevOptions struct {
	Patterns []string
	Verbose  bool
	Output   string
	Async    bool
	Debounce time.Duration // 同一包目录内连续变动合并为一次生成
}

// devRunner 监听源文件变动，按包目录重新生成
type devRunner struct {
	ctx      context.Context
	opts     *DevOptions
	registry *plugin.Registry
	watcher  *fsnotify.Watcher
	scanner  *plugin.Scanner

	mu      sync.Mutex
	pending map[string]*time.Timer // key: 包目录
}

func newDevRunner(ctx context.Context, opts *DevOptions, registry *plugin.Registry, watcher *fsnotify.Watcher) *devRunner {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	return &devRunner{
		ctx:      ctx,
		opts:     opts,
		registry: registry,
		watcher:  watcher,
		scanner:  plugin.NewScanner(plugin.WithAnnotationFilter(registry.Annotations()...)),
		pending:  make(map[string]*time.Timer),
	}
}

// runDev dev 子命令入口
func runDev(args []string) {
	if len(args) == 0 {
		args = []string{"./..."}
	}

	registry := plugin.Global()
	if len(registry.Generators()) == 0 {
		fmt.Fprintln(os.Stderr, "错误: 没有已注册的生成器")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := dev(ctx, registry, &DevOptions{
		Patterns: args,
		Verbose:  *verbose,
		Output:   *output,
		Async:    *async,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// dev 添加目录监听并处理事件，直到 ctx 结束
func dev(ctx context.Context, registry *plugin.Registry, opts *DevOptions) error {
	dirs, err := plugin.CollectDirs(opts.Patterns)
	if err != nil {
		return fmt.Errorf("收集监听目录失败: %w", err)
	}
	if len(dirs) == 0 {
		return errors.New("没有找到需要监听的目录")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	r := newDevRunner(ctx, opts, registry, watcher)
	defer r.stopPending()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监听目录失败 %s: %w", dir, err)
		}
		r.logf("监听目录: %s", dir)
	}

	fmt.Printf("开发模式已启动，监听 %d 个目录，按 Ctrl+C 退出\n\n", len(dirs))
	r.loop()
	fmt.Println("\n已退出")
	return nil
}

func (r *devRunner) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(event)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logf("监听错误: %v", err)
		}
	}
}

// handleEvent 源文件写入或创建且含有注解时，调度所在包的生成
func (r *devRunner) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := event.Name
	if !strings.HasSuffix(path, ".go") || plugin.IsGeneratedFile(path) {
		return
	}

	if reason := r.rejectFile(path); reason != "" {
		r.logf("跳过 %s: %s", path, reason)
		return
	}
	r.schedule(filepath.Dir(path))
}

// rejectFile 返回不触发生成的原因，空字符串表示需要生成
// 语法错误总是输出，编辑过程中的半成品文件很常见
func (r *devRunner) rejectFile(path string) string {
	matched, err := r.scanner.QuickMatchFile(path)
	if err != nil {
		return fmt.Sprintf("检查注解失败: %v", err)
	}
	if !matched {
		return "无注解"
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err.Error()
	}
	if err := utils.CheckSyntax(path, content); err != nil {
		fmt.Printf("语法错误 %s: %v\n", path, err)
		return "语法错误"
	}
	return ""
}

// schedule 重置包目录的防抖定时器
func (r *devRunner) schedule(pkgDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.pending[pkgDir]; ok {
		prev.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(r.opts.Debounce, func() {
		if r.ctx.Err() == nil {
			r.generate(pkgDir)
		}

		r.mu.Lock()
		// 等待期间可能已被新的定时器替换
		if r.pending[pkgDir] == timer {
			delete(r.pending, pkgDir)
		}
		r.mu.Unlock()
	})
	r.pending[pkgDir] = timer
}

func (r *devRunner) stopPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, timer := range r.pending {
		timer.Stop()
	}
}

// generate 只对变动的包目录运行生成
func (r *devRunner) generate(pkgDir string) {
	r.logf("触发代码生成: %s", pkgDir)

	stats, err := plugin.RunWithOptions(r.ctx, &plugin.RunOptions{
		Registry: r.registry,
		Patterns: []string{pkgDir},
		Verbose:  r.opts.Verbose,
		Output:   r.opts.Output,
		Async:    r.opts.Async,
	})
	switch {
	case err != nil:
		fmt.Printf("生成失败: %v\n", err)
	case stats.FileCount > 0:
		fmt.Printf("生成完成: %d 个文件 (耗时: %v)\n", stats.FileCount, stats.TotalDuration)
	default:
		r.logf("生成完成: 无文件生成")
	}
}

func (r *devRunner) logf(format string, args ...any) {
	if r.opts.Verbose {
		fmt.Printf(format+"\n", args...)
	}
}
