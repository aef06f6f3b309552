package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), core.NewTestConfig())
	logger.Enable(false)

	p := &person.Person{ID: "p1", Username: "ann", Email: "ann@berkeley.edu"}
	args := logger.prepare("boom", []interface{}{errors.New("gateway down"), p, map[string]interface{}{"event_id": "e1"}})
	assert.Len(t, args, 3, "the person is not forwarded as extra data")
	assert.Equal(t, "boom", args[0])

	logger.Error("notifying ann", errors.New("gateway down"), p)
	out := buf.String()
	assert.Contains(t, out, "[ERROR] notifying ann")
	assert.Contains(t, out, "gateway down")

	buf.Reset()
	logger.Info("started", map[string]interface{}{"addr": ":8000"})
	assert.Equal(t, "[INFO] started\n", buf.String())
}
