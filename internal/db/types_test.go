package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderInfo_ValueScanRoundTrip(t *testing.T) {
	info := SenderInfo{
		Name:      "Jane Doe",
		Email:     "jane@acme.test",
		TopSkills: []string{"Go", "PostgreSQL"},
	}

	value, err := info.Value()
	require.NoError(t, err)

	var decoded SenderInfo
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, info, decoded)
}

func TestSenderInfo_ScanNil(t *testing.T) {
	var info SenderInfo
	assert.NoError(t, info.Scan(nil))
	assert.Empty(t, info.Name)
}

func TestSenderInfo_ScanString(t *testing.T) {
	var info SenderInfo
	require.NoError(t, info.Scan(`{"name":"Jane"}`))
	assert.Equal(t, "Jane", info.Name)
}

func TestSenderInfo_ScanUnsupportedType(t *testing.T) {
	var info SenderInfo
	assert.Error(t, info.Scan(42))
}

func TestSenderInfo_OmitsEmptyFieldsInJSON(t *testing.T) {
	data, err := json.Marshal(SenderInfo{Name: "Jane"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Jane"}`, string(data))
}

func TestCampaign_Threaded(t *testing.T) {
	c := Campaign{}
	assert.False(t, c.Threaded())

	c.MessageID = "<a@x>"
	assert.False(t, c.Threaded())

	c.ThreadID = "thread-1"
	assert.True(t, c.Threaded())
}

func TestJoinSets(t *testing.T) {
	assert.Equal(t, "a = 1", joinSets([]string{"a = 1"}))
	assert.Equal(t, "a = 1, b = 2", joinSets([]string{"a = 1", "b = 2"}))
}
