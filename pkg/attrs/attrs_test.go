package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	list := []any{"principal", "alice", "status", true, 42, "ignored"}

	assert.Equal(t, "alice", ExtractString(list, "principal"))
	assert.Empty(t, ExtractString(list, "status"), "non-string value")
	assert.Empty(t, ExtractString(list, "missing"))
}

func TestToStringMap(t *testing.T) {
	m := ToStringMap([]any{"total", int64(10), "active", true, 7, "skip", "dangling"})

	assert.Equal(t, map[string]string{"total": "10", "active": "true"}, m)
	assert.Nil(t, ToStringMap(nil))
	assert.Nil(t, ToStringMap([]any{"only-key"}))
}
