package bind

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSame(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"nan equals itself bitwise", nan, nan, true},
		{"signed zeros differ", 0.0, math.Copysign(0, -1), false},
		{"float vs int", 1.0, 1, false},
		{"both nil", nil, nil, true},
		{"nil vs value", nil, "", false},
		{"slices structurally", []int{1, 2}, []int{1, 2}, true},
		{"maps structurally", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"different types", int32(1), int64(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSame(tt.a, tt.b))
		})
	}
}

func TestIsSame_Pointers(t *testing.T) {
	type box struct{ n int }
	a, b := &box{1}, &box{1}
	assert.True(t, IsSame(a, a))
	assert.False(t, IsSame(a, b))
}

func TestHashPlus_OrderIndependent(t *testing.T) {
	h1 := HashPlus("Doe", HashPlus("Jane", 0))
	h2 := HashPlus("Jane", HashPlus("Doe", 0))
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, uint64(0), h1)

	assert.Equal(t, h1, HashPlus(nil, h1))
	assert.NotEqual(t, HashPlus(1, 0), HashPlus("1", 0))
}

type fixedHash struct{}

func (fixedHash) Hash() uint64 { return 42 }

func TestHashPlus_Hasher(t *testing.T) {
	assert.Equal(t, uint64(42), HashPlus(fixedHash{}, 0))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, "1.5", StringValue(1.5))
	assert.Equal(t, "true", StringValue(true))
	assert.Equal(t, "12", StringValue(json.Number("12")))

	assert.Equal(t, 3.0, NumberValue(3))
	assert.Equal(t, 2.5, NumberValue(" 2.5 "))
	assert.Equal(t, 1.0, NumberValue(true))
	assert.Equal(t, 7.0, NumberValue(uint8(7)))
	assert.True(t, math.IsNaN(NumberValue(nil)))
	assert.True(t, math.IsNaN(NumberValue("x")))

	assert.True(t, BoolValue("true"))
	assert.True(t, BoolValue(2))
	assert.False(t, BoolValue(0.0))
	assert.False(t, BoolValue(nil))
}

func TestExtractValue(t *testing.T) {
	assert.Equal(t, 12, ExtractValue[int]("12"))
	assert.Equal(t, "12", ExtractValue[string](12))
	assert.Equal(t, 0, ExtractValue[int]("x"))

	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	assert.Equal(t, point{1, 2}, ExtractValue[point](map[string]any{"x": 1.0, "y": "2"}))
}

func TestToJSON_PlainValues(t *testing.T) {
	b, err := ToJSON(map[string]any{"a": []int{1}})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a":[1]}`, string(b))
}
