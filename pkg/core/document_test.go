package core_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lineage/pkg/core"
)

func TestFields_MarshalJSON(t *testing.T) {
	f := core.Fields{
		{Key: "z", Value: 1},
		{Key: "a", Value: "two"},
		{Key: "m", Value: nil},
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"two","m":null}`, string(data))

	empty, err := json.Marshal(core.Fields{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestParseDocument(t *testing.T) {
	t.Run("Preserves Raw Entries And Order", func(t *testing.T) {
		input := `{"model_train": {"b": 2,  "a": 1}, "generate_data": {"x":[1, 2]}}`
		doc, err := core.ParseDocument([]byte(input))
		require.NoError(t, err)

		assert.Equal(t, []core.Kind{core.KindModelTraining, core.KindDataGeneration}, doc.Kinds())
		raw, ok := doc.Entry(core.KindModelTraining)
		require.True(t, ok)
		assert.Equal(t, `{"b": 2,  "a": 1}`, string(raw))
	})

	t.Run("Keeps Unknown Kinds", func(t *testing.T) {
		doc, err := core.ParseDocument([]byte(`{"evaluate": {"score": 1}}`))
		require.NoError(t, err)
		assert.Equal(t, 1, doc.Len())
		assert.False(t, core.Kind("evaluate").Known())
	})

	t.Run("Empty Object", func(t *testing.T) {
		doc, err := core.ParseDocument([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, 0, doc.Len())
	})

	for name, input := range map[string]string{
		"Truncated":      `{"generate_data": {"lineage_id": "ru`,
		"Not An Object":  `["generate_data"]`,
		"Empty File":     ``,
		"Trailing Data":  `{} {}`,
		"Dangling Comma": `{"a": 1,}`,
	} {
		t.Run("Rejects "+name, func(t *testing.T) {
			_, err := core.ParseDocument([]byte(input))
			assert.ErrorIs(t, err, core.ErrCorruptDocument)
		})
	}
}

func TestDocument_Bytes(t *testing.T) {
	doc := core.NewDocument()
	assert.Equal(t, "{}\n", string(doc.Bytes()))

	doc.Set(core.KindDataGeneration, json.RawMessage(`{"a":1}`))
	doc.Set(core.KindModelTraining, json.RawMessage(`{"b":2}`))
	want := "{\n  \"generate_data\": {\"a\":1},\n  \"model_train\": {\"b\":2}\n}\n"
	assert.Equal(t, want, string(doc.Bytes()))

	roundTrip, err := core.ParseDocument(doc.Bytes())
	require.NoError(t, err)
	assert.Equal(t, doc.Bytes(), roundTrip.Bytes())
}

func TestDocument_SetReplacesInPlace(t *testing.T) {
	doc := core.NewDocument()
	doc.Set(core.KindDataGeneration, json.RawMessage(`{"v":1}`))
	doc.Set(core.KindModelTraining, json.RawMessage(`{"v":2}`))
	doc.Set(core.KindDataGeneration, json.RawMessage(`{"v":3}`))

	assert.Equal(t, []core.Kind{core.KindDataGeneration, core.KindModelTraining}, doc.Kinds())
	raw, _ := doc.Entry(core.KindDataGeneration)
	assert.JSONEq(t, `{"v":3}`, string(raw))
}

func TestDocument_SetEventAndDecode(t *testing.T) {
	e := core.NewModelTrainingEvent(sampleTraining(), core.WithClock(fixedClock))
	doc := core.NewDocument()
	require.NoError(t, doc.SetEvent(e))

	data, err := doc.Decode(core.KindModelTraining)
	require.NoError(t, err)
	assert.Equal(t, "run1", data["lineage_id"])
	assert.Equal(t, "model_train", data["event_type"])
	assert.Equal(t, float64(10), data["num_epochs"])

	_, err = doc.Decode(core.KindDataGeneration)
	assert.ErrorIs(t, err, core.ErrUnknownKind)
}
