package fieldnames

import (
	"github.com/samber/lo"
)

// ProjectedLists 可见字段的名称与描述，两个列表按下标一一对应
type ProjectedLists struct {
	Names        []string
	Descriptions []string
}

// Len 返回可见字段数量
func (p ProjectedLists) Len() int {
	return len(p.Names)
}

// Project 按声明顺序筛选未跳过的字段
// 一次筛选得到 (名称, 描述) 对，再拆成两个列表，保证两者使用同一个筛选条件
func Project(fields []FieldDeclaration) ProjectedLists {
	pairs := lo.FilterMap(fields, func(f FieldDeclaration, _ int) (lo.Tuple2[string, string], bool) {
		return lo.T2(f.Name, f.Description), !f.Skip
	})

	names, descs := lo.Unzip2(pairs)
	return ProjectedLists{Names: names, Descriptions: descs}
}
