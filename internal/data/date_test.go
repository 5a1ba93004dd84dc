package data

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSONRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-10-24"`), &d))
	assert.Equal(t, "2026-10-24", d.String())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-10-24"`, string(out))
}

func TestDateJSONNullAndEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `""`} {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(raw), &d), raw)
		assert.True(t, d.IsZero(), raw)
	}

	out, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestDateJSONInvalid(t *testing.T) {
	for _, raw := range []string{`"2026-13-40"`, `"24/10/2026"`, `20261024`} {
		var d Date
		assert.Error(t, json.Unmarshal([]byte(raw), &d), raw)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 10, 24, 13, 0, 0, 0, time.Local)))
	assert.Equal(t, "2026-10-24", d.String(), "the time component is truncated")

	require.NoError(t, d.Scan([]byte("2026-10-24")))
	assert.Equal(t, "2026-10-24", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
}
