// Package geo 提供邦/地区静态参照数据。
// 数据随二进制嵌入，仅作只读查询；本服务不维护地理数据的生命周期。
package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed states.json
var statesRaw []byte

var districtsByState map[string][]string

func init() {
	if err := json.Unmarshal(statesRaw, &districtsByState); err != nil {
		panic(fmt.Sprintf("geo: 解析内嵌邦/地区数据失败: %v", err))
	}
}

// States 返回所有邦名称（字典序）
func States() []string {
	states := make([]string, 0, len(districtsByState))
	for s := range districtsByState {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}

// Districts 返回指定邦下的地区列表；邦不存在时返回 nil
func Districts(state string) []string {
	ds, ok := districtsByState[state]
	if !ok {
		return nil
	}
	out := make([]string, len(ds))
	copy(out, ds)
	sort.Strings(out)
	return out
}

// IsValidState 判断邦是否存在
func IsValidState(state string) bool {
	_, ok := districtsByState[state]
	return ok
}

// IsValidDistrict 判断地区是否属于指定邦
func IsValidDistrict(state, district string) bool {
	for _, d := range districtsByState[state] {
		if d == district {
			return true
		}
	}
	return false
}

// ValidateCoverage 校验承办律师的覆盖范围：
// 所有邦必须存在，且每个地区必须属于所覆盖邦之一。
// 该校验只在编辑时执行，读取路径不做校验。
func ValidateCoverage(states, districts []string) error {
	for _, s := range states {
		if !IsValidState(s) {
			return fmt.Errorf("未知的邦: %q", s)
		}
	}
	for _, d := range districts {
		found := false
		for _, s := range states {
			if IsValidDistrict(s, d) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("地区 %q 不属于任何已覆盖的邦", d)
		}
	}
	return nil
}
