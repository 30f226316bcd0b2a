package form

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_InitialValueFollowedUntilEdited(t *testing.T) {
	f := NewField("")
	f.SetInitialValue("prefilled")
	assert.Equal(t, "prefilled", f.Value())
	assert.False(t, f.IsDirty())

	f.SetValue("edited")
	f.SetInitialValue("prefilled-again")
	assert.Equal(t, "edited", f.Value())
	assert.Equal(t, "prefilled-again", f.InitialValue())
}

func TestField_ResetReturnsToBaseline(t *testing.T) {
	var f Field[[]string]
	f.SetInitialValue([]string{"a"})
	f.SetValue([]string{"b", "c"})
	require.True(t, f.IsDirty())

	f.Reset()
	assert.Equal(t, []string{"a"}, f.Value())
	assert.False(t, f.IsDirty())
}

func TestField_MarshalJSON(t *testing.T) {
	f := NewField(3)
	f.SetValue(5)
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":5,"initialValue":3,"isDirty":true}`, string(data))
}
