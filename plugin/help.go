package plugin

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
)

// outputParam 所有生成器共有的 output 参数
var outputParam = ParamDef{Name: "output", Description: "输出文件路径（支持 $FILE、$PACKAGE 与 {{ .Type }} 模板）"}

// FormatHelpText 为所有注册的生成器生成帮助文本
func FormatHelpText(registry *Registry) string {
	generators := registry.Generators()
	if len(generators) == 0 {
		return "  (暂无已注册的生成器)\n"
	}

	var sb strings.Builder
	for _, gen := range generators {
		annotations := gen.Annotations()
		if len(annotations) == 0 {
			continue
		}
		mainAnnotation := annotations[0]
		params := append([]ParamDef{outputParam}, gen.ParamDefs()...)

		fmt.Fprintf(&sb, "  @%s - %s (%s)\n", mainAnnotation, gen.Name(),
			strings.Join(lo.Map(gen.SupportedTargets(), func(k TargetKind, _ int) string { return k.String() }), ", "))

		sb.WriteString("    参数:\n")
		heads := lo.Map(params, func(p ParamDef, _ int) string { return formatParamHead(p) })
		width := lo.Max(lo.Map(heads, func(h string, _ int) int { return runewidth.StringWidth(h) }))
		for i, p := range params {
			fmt.Fprintf(&sb, "      %s - %s\n", runewidth.FillRight(heads[i], width), p.Description)
		}

		sb.WriteString("    示例:\n")
		fmt.Fprintf(&sb, "      @%s\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$FILE_meta.go)\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=\"{{ .Type | snakecase }}_names.go\")\n", mainAnnotation)
		for _, p := range lo.Slice(gen.ParamDefs(), 0, 2) {
			if p.Default != "" {
				fmt.Fprintf(&sb, "      @%s(%s=%s)\n", mainAnnotation, p.Name, p.Default)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatParamHead 参数名列: name (必填) [默认: x]
func formatParamHead(param ParamDef) string {
	head := param.Name
	if param.Required {
		head += " (必填)"
	}
	if param.Default != "" {
		head += fmt.Sprintf(" [默认: %s]", param.Default)
	}
	return head
}
