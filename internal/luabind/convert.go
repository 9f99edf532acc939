package luabind

import (
	"math"

	"github.com/Shopify/go-lua"
)

// ToGo преобразует Lua-значение по индексу стека в Go-значение:
// строку, число, булево, []any для массивоподобных таблиц,
// map[string]any для остальных таблиц и nil для всего прочего.
func ToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// TableToMap преобразует Lua-таблицу по индексу стека в map[string]any,
// учитывая только строковые ключи.
func TableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = ToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

// tableToGo различает массивоподобные таблицы (непрерывные целые ключи с 1)
// и словари.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, ToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return TableToMap(state, index)
}

// normalizeNumber сводит целочисленные значения к int, остальные оставляет float64.
func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
