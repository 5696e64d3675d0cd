package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "techypad/internal/log"
)

func TestEntriesAreJSONLines(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	defer applog.SetOutput(os.Stdout)

	applog.Audit(nil, "admin.orders.update", map[string]any{"order_id": "o-1"})
	applog.Error(nil, "orders.insert.fail", errors.New("boom"), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "audit", first["level"])
	assert.Equal(t, "admin.orders.update", first["action"])
	assert.Equal(t, "o-1", first["fields"].(map[string]any)["order_id"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
	assert.Equal(t, "boom", second["err"])
}
