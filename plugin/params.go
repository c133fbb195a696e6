package plugin

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// ParseParamsFromStruct 从结构体的 param tag 解析参数定义
// 支持的 tag 键: name, required, default, description
//
// 示例:
//
//	type Params struct {
//	    Fields string `param:"name=fields,required=false,default=Fields,description=字段名方法名"`
//	}
//
//	params := plugin.ParseParamsFromStruct(Params{})
func ParseParamsFromStruct(v any) []ParamDef {
	if v == nil {
		return nil
	}
	typ := reflect.TypeOf(v)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}

	var params []ParamDef
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("param")
		if tag == "" {
			continue
		}
		if def := parseParamTag(tag); def.Name != "" {
			params = append(params, def)
		}
	}
	return params
}

// parseParamTag 解析 param tag 字符串
// 格式: name=xxx,required=true,default=xxx,description=xxx
func parseParamTag(tag string) ParamDef {
	var param ParamDef
	for key, value := range splitTag(tag) {
		switch key {
		case "name":
			param.Name = value
		case "required":
			param.Required = cast.ToBool(value)
		case "default":
			param.Default = value
		case "description":
			param.Description = value
		}
	}
	return param
}

// splitTag 分割 tag 字符串为键值对
// 格式: key1=value1,key2=value2，反斜杠转义下一个字符
func splitTag(tag string) map[string]string {
	result := make(map[string]string)

	var key, value strings.Builder
	inKey := true
	escaped := false

	flush := func() {
		if key.Len() > 0 {
			result[key.String()] = value.String()
		}
		key.Reset()
		value.Reset()
		inKey = true
	}

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
			continue
		case ch == '=' && inKey:
			inKey = false
			continue
		case ch == ',':
			flush()
			continue
		}
		if inKey {
			key.WriteByte(ch)
		} else {
			value.WriteByte(ch)
		}
	}
	flush()

	return result
}

// ParseAnnotationParams 将注解的参数解析到目标结构体中
// target 必须是结构体指针；注解中缺省的参数使用 paramDefs 中的默认值
// 必填参数缺失时返回错误
func ParseAnnotationParams(annotation *Annotation, target any, paramDefs []ParamDef) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("参数目标必须是非 nil 指针, 得到: %T", target)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("参数目标必须指向结构体, 得到: %T", target)
	}

	defMap := make(map[string]ParamDef, len(paramDefs))
	for _, def := range paramDefs {
		defMap[def.Name] = def
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		fieldVal := val.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := typ.Field(i).Tag.Get("param")
		if tag == "" {
			continue
		}
		paramName := parseParamTag(tag).Name
		if paramName == "" {
			continue
		}

		def, hasDef := defMap[paramName]
		paramValue, present := annotation.Params[strings.ToLower(paramName)]
		if !present || paramValue == "" {
			if hasDef && def.Required && !present {
				return fmt.Errorf("@%s 缺少必填参数 %s", annotation.Name, paramName)
			}
			if hasDef {
				paramValue = def.Default
			}
		}

		if err := setFieldValue(fieldVal, paramValue); err != nil {
			return fmt.Errorf("@%s 参数 %s=%q 无效: %w", annotation.Name, paramName, paramValue, err)
		}
	}

	return nil
}

// UnknownParams 返回注解中未在 paramDefs 中定义的参数名，按名称排序
// output 由框架处理，始终视为已知参数
func UnknownParams(annotation *Annotation, paramDefs []ParamDef) []string {
	if annotation == nil {
		return nil
	}
	known := lo.SliceToMap(paramDefs, func(def ParamDef) (string, bool) {
		return strings.ToLower(def.Name), true
	})
	known["output"] = true

	unknown := lo.Filter(lo.Keys(annotation.Params), func(key string, _ int) bool {
		return !known[strings.ToLower(key)]
	})
	slices.Sort(unknown)
	return unknown
}

// setFieldValue 设置字段值，支持 string, int, uint, bool, float
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := cast.ToInt64E(orDefault(value, "0"))
		if err != nil {
			return err
		}
		field.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := cast.ToUint64E(orDefault(value, "0"))
		if err != nil {
			return err
		}
		field.SetUint(v)
	case reflect.Bool:
		v, err := cast.ToBoolE(orDefault(value, "false"))
		if err != nil {
			return err
		}
		field.SetBool(v)
	case reflect.Float32, reflect.Float64:
		v, err := cast.ToFloat64E(orDefault(value, "0"))
		if err != nil {
			return err
		}
		field.SetFloat(v)
	default:
		return fmt.Errorf("不支持的参数类型 %s", field.Kind())
	}
	return nil
}

// orDefault 返回 value，为空时返回 fallback
func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
