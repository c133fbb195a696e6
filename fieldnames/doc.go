// Package fieldnames 提供基于注解的结构体字段名/描述常量生成器。
//
// # 概述
//
// 在结构体上添加 @FieldNames 注解后，生成器会为该类型生成两个方法，
// 返回定长数组：可见字段名列表与对应的描述列表。两个数组按声明顺序排列，
// 下标一一对应，跳过被标记为 skip 的字段。生成结果是纯静态数据。
//
// # 基本用法
//
//	// @FieldNames
//	type Example struct {
//	    Hello  string `field_names:"desc=问候语"`
//	    Hidden bool   `field_names:"skip"`
//	    World  string
//	}
//
// 运行 fieldnames 后将生成：
//
//	func (Example) Fields() [2]string {
//	    return [2]string{
//	        "Hello",
//	        "World",
//	    }
//	}
//
//	func (Example) Descs() [2]string {
//	    return [2]string{
//	        "问候语",
//	        "",
//	    }
//	}
//
// 泛型类型的类型参数会原样出现在接收者上：
//
//	// @FieldNames
//	type Pair[K comparable, V any] struct { Key K; Value V }
//
//	func (Pair[K, V]) Fields() [2]string { ... }
//
// # 字段标签
//
// 字段选项写在 field_names 标签中，多个选项用逗号分隔：
//
//	skip            不输出该字段（也可写 skip=true / skip=false）
//	desc=文本       字段描述；包含逗号时使用单引号: desc='a, b'
//
// 其他选项名、重复选项、格式错误都会使整个类型被拒绝，并报告字段位置。
//
// # 注解参数
//
//	fields  (可选) 字段名方法名，默认 Fields
//	descs   (可选) 描述方法名，默认 Descs
//	output  (可选) 输出文件，默认 $FILE_fieldnames.go
//
// # 错误
//
// 非结构体类型、含嵌入字段（无法得到字段名）的结构体报告 ShapeError；
// 标签语法错误报告 AnnotationSyntaxError；注解参数错误报告 ParamError。
// 出错的类型不会生成任何代码。
package fieldnames
