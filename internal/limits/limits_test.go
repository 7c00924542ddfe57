package limits

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/mehrbod2002/equitywatch/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typ(t EquityType) *EquityType { return &t }
func num(v float64) *float64        { return &v }

func complete(t EquityType, v float64) Limit {
	return Limit{Type: typ(t), Threshold: num(v)}
}

func full(t string, v float64) Patch {
	return Patch{Type: Str(t), Threshold: Num(v)}
}

func requireValidation(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), msg)
}

func TestCreate(t *testing.T) {
	t.Run("lower only", func(t *testing.T) {
		res, err := Create(full("fixed", 100), Patch{})
		require.NoError(t, err)
		assert.Equal(t, Fixed, *res.Lower.Type)
		assert.Equal(t, 100.0, *res.Lower.Threshold)
		assert.True(t, res.Upper.Empty())
		assert.True(t, res.LowerChanged)
		assert.False(t, res.UpperChanged)
	})

	t.Run("upper only", func(t *testing.T) {
		res, err := Create(Patch{}, full("percentage", 80))
		require.NoError(t, err)
		assert.True(t, res.Lower.Empty())
		assert.True(t, res.Upper.Complete())
	})

	t.Run("both with different types skip ordering", func(t *testing.T) {
		_, err := Create(full("fixed", 5000), full("percentage", 10))
		require.NoError(t, err)
	})

	t.Run("zero threshold counts as present", func(t *testing.T) {
		_, err := Create(full("percentage", 0), Patch{})
		require.NoError(t, err)
	})

	t.Run("no limits", func(t *testing.T) {
		_, err := Create(Patch{}, Patch{})
		requireValidation(t, err, "At least one complete limit combination (EquityType + EquityThreshhold)")
	})

	t.Run("type without threshold only", func(t *testing.T) {
		_, err := Create(Patch{Type: Str("fixed")}, Patch{})
		requireValidation(t, err, "At least one complete limit combination")
	})

	t.Run("complete lower with dangling upper threshold", func(t *testing.T) {
		_, err := Create(full("fixed", 10), Patch{Threshold: Num(20)})
		requireValidation(t, err, "must be provided together")
	})

	t.Run("percentage above range", func(t *testing.T) {
		_, err := Create(full("percentage", 150), Patch{})
		requireValidation(t, err, "Lower limit equity threshold must be between 0 and 100")
	})

	t.Run("percentage below range on upper", func(t *testing.T) {
		_, err := Create(Patch{}, full("percentage", -1))
		requireValidation(t, err, "Upper limit equity threshold must be between 0 and 100")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := Create(full("ratio", 10), Patch{})
		requireValidation(t, err, "Lower limit equity type must be either fixed or percentage")
	})

	t.Run("fixed threshold not a number", func(t *testing.T) {
		_, err := Create(Patch{Type: Str("fixed"), Threshold: Num(math.NaN())}, Patch{})
		requireValidation(t, err, "Lower limit equity threshold must be a valid number")
	})

	t.Run("fixed upper below lower", func(t *testing.T) {
		_, err := Create(full("fixed", 50), full("fixed", 30))
		requireValidation(t, err, "cannot be less than lower limit equity threshold when type is fixed")
	})

	t.Run("percentage upper below lower", func(t *testing.T) {
		_, err := Create(full("percentage", 50), full("percentage", 49.5))
		requireValidation(t, err, "when type is percentage")
	})

	t.Run("equal thresholds allowed", func(t *testing.T) {
		_, err := Create(full("fixed", 1250.75), full("fixed", 1250.75))
		require.NoError(t, err)
	})

	t.Run("fixed compares exact cents", func(t *testing.T) {
		_, err := Create(full("fixed", 100.01), full("fixed", 100.001))
		requireValidation(t, err, "when type is fixed")
	})
}

func TestMerge(t *testing.T) {
	t.Run("touching upper leaves lower alone", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 50)}
		res, err := Merge(cur, Patch{}, full("fixed", 70))
		require.NoError(t, err)
		assert.False(t, res.LowerChanged)
		assert.True(t, res.UpperChanged)
		assert.Equal(t, 50.0, *res.Lower.Threshold)
		assert.Equal(t, 70.0, *res.Upper.Threshold)
	})

	t.Run("upper threshold only merges over stored upper type", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 50), Upper: complete(Fixed, 90)}
		res, err := Merge(cur, Patch{}, Patch{Threshold: Num(120)})
		require.NoError(t, err)
		assert.Equal(t, Fixed, *res.Upper.Type)
		assert.Equal(t, 120.0, *res.Upper.Threshold)
	})

	t.Run("upper below stored lower", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 50)}
		_, err := Merge(cur, Patch{}, full("fixed", 30))
		requireValidation(t, err, "cannot be less than lower limit")
	})

	t.Run("switching lower type revalidates range", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 500)}
		_, err := Merge(cur, Patch{Type: Str("percentage")}, Patch{})
		requireValidation(t, err, "between 0 and 100")
	})

	t.Run("unrelated patch with no limits untouched", func(t *testing.T) {
		cur := Pair{Upper: complete(Percentage, 40)}
		res, err := Merge(cur, Patch{}, Patch{})
		require.NoError(t, err)
		assert.False(t, res.LowerChanged)
		assert.False(t, res.UpperChanged)
		assert.True(t, res.Lower.Empty())
	})

	t.Run("upper threshold alone on empty upper", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 50)}
		_, err := Merge(cur, Patch{}, Patch{Threshold: Num(60)})
		requireValidation(t, err, "must be provided together")
	})

	t.Run("blank type keeps stored type", func(t *testing.T) {
		cur := Pair{Lower: complete(Percentage, 10)}
		res, err := Merge(cur, Patch{Type: Str(""), Threshold: Num(20)}, Patch{})
		require.NoError(t, err)
		assert.Equal(t, Percentage, *res.Lower.Type)
	})

	t.Run("clearing the only limit", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 10)}
		clear := Patch{Type: OptString{Set: true, Null: true}, Threshold: OptNumber{Set: true, Null: true}}
		_, err := Merge(cur, clear, Patch{})
		requireValidation(t, err, "must remain after update")
	})

	t.Run("clearing one of two limits", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 10), Upper: complete(Fixed, 20)}
		clear := Patch{Type: OptString{Set: true, Null: true}, Threshold: OptNumber{Set: true, Null: true}}
		res, err := Merge(cur, clear, Patch{})
		require.NoError(t, err)
		assert.True(t, res.LowerChanged)
		assert.True(t, res.Lower.Empty())
	})

	t.Run("nulling the threshold leaves a half pair", func(t *testing.T) {
		cur := Pair{Lower: complete(Fixed, 10), Upper: complete(Fixed, 20)}
		_, err := Merge(cur, Patch{}, Patch{Threshold: OptNumber{Set: true, Null: true}})
		requireValidation(t, err, "must be provided together")
	})
}

func TestPatchJSON(t *testing.T) {
	var body struct {
		Type      OptString `json:"EquityType"`
		Threshold OptNumber `json:"EquityThreshhold"`
		Other     OptNumber `json:"Other"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"EquityType":"fixed","EquityThreshhold":"100.5"}`), &body))
	assert.True(t, body.Type.Set)
	assert.Equal(t, "fixed", body.Type.Value)
	assert.Equal(t, 100.5, body.Threshold.Value)
	assert.False(t, body.Other.Set)

	body.Threshold = OptNumber{}
	require.NoError(t, json.Unmarshal([]byte(`{"EquityThreshhold":null}`), &body))
	assert.True(t, body.Threshold.Set)
	assert.True(t, body.Threshold.Null)

	body.Threshold = OptNumber{}
	require.NoError(t, json.Unmarshal([]byte(`{"EquityThreshhold":"abc"}`), &body))
	assert.True(t, math.IsNaN(body.Threshold.Value))

	assert.Error(t, json.Unmarshal([]byte(`{"EquityThreshhold":true}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"EquityType":5}`), &body))
}
