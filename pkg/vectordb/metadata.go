package vectordb

import (
	"fmt"
	"sort"
)

const (
	// 元数据单值长度上限，超出部分截断。
	metadataValueCap = 1000
	// 列表型元数据最多保留的元素数。
	metadataListCap = 5
)

// FlattenMetadata 把任意元数据压平为可索引的形态：
// 标量转为字符串并截断到上限；列表保留为字符串数组（写入 keyword 字段即为
// 数组，term/terms 过滤按成员匹配），取前若干项并逐项截断；nil 值丢弃。
func FlattenMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(metadata) == 0 {
		return nil
	}

	flat := make(map[string]interface{}, len(metadata))
	for key, value := range metadata {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			flat[key] = truncate(v, metadataValueCap)
		case []string:
			if len(v) == 0 {
				continue
			}
			flat[key] = capList(v)
		case []interface{}:
			if len(v) == 0 {
				continue
			}
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprintf("%v", item))
			}
			flat[key] = capList(items)
		default:
			flat[key] = truncate(fmt.Sprintf("%v", v), metadataValueCap)
		}
	}
	return flat
}

func capList(items []string) []string {
	if len(items) > metadataListCap {
		items = items[:metadataListCap]
	}
	capped := make([]string, len(items))
	for i, item := range items {
		capped[i] = truncate(item, metadataValueCap)
	}
	return capped
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// buildFilterClauses 把 $eq/$in 风格的过滤条件转换为 ES bool filter 子句。
// 裸标量等价于 $eq。键按字典序处理，生成的查询体确定。
func buildFilterClauses(filters map[string]interface{}) []map[string]interface{} {
	if len(filters) == 0 {
		return nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []map[string]interface{}
	for _, key := range keys {
		field := "metadata." + key
		switch cond := filters[key].(type) {
		case map[string]interface{}:
			if eq, ok := cond["$eq"]; ok {
				clauses = append(clauses, map[string]interface{}{
					"term": map[string]interface{}{field: fmt.Sprintf("%v", eq)},
				})
			}
			if in, ok := cond["$in"]; ok {
				clauses = append(clauses, map[string]interface{}{
					"terms": map[string]interface{}{field: stringifyList(in)},
				})
			}
		default:
			clauses = append(clauses, map[string]interface{}{
				"term": map[string]interface{}{field: fmt.Sprintf("%v", cond)},
			})
		}
	}
	return clauses
}

func stringifyList(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return items
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}
