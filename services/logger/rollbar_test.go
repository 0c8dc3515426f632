package logsvc

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestReport(t *testing.T) {
	err := errors.New("boom")
	extra := map[string]interface{}{"table": "estudiantes"}

	tests := []struct {
		name       string
		args       []interface{}
		wantLen    int
		wantPerson string
	}{
		{"message only", nil, 1, ""},
		{"error and extras", []interface{}{err, extra}, 3, ""},
		{"anonymous operator", []interface{}{err, core.Operator{}}, 2, ""},
		{"operator", []interface{}{core.Operator{ID: "u1", Email: "ana@uni.edu"}, err}, 3, "ana@uni.edu"},
		{"first operator wins", []interface{}{core.Operator{ID: "u1", Email: "ana@uni.edu"}, core.Operator{ID: "u2", Email: "juan@uni.edu"}}, 2, "ana@uni.edu"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := report("fetching", tc.args)
			require.Len(t, out, tc.wantLen)
			assert.Equal(t, "fetching", out[0])

			ctx, ok := out[len(out)-1].(context.Context)
			if tc.wantPerson == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			p, ok := rollbar.PersonFromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, tc.wantPerson, p.Email)
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	conf := &core.Config{Env: "test"}
	l := NewRollbarLogger(log.New(&buf, "", 0), conf)
	l.Enable(false)
	t.Cleanup(func() { _ = l.Close() })

	l.Debug("hidden")
	l.Error("deleting", errors.New("boom"), core.Operator{Email: "ana@uni.edu"}, map[string]interface{}{"id": 3})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "ERROR deleting\n")
	assert.Contains(t, out, "\terror: boom\n")
	assert.Contains(t, out, "\toperator: ana@uni.edu\n")
	assert.Contains(t, out, "\tmap[id:3]\n")

	buf.Reset()
	l.verbose = true
	l.Debug("shown")
	assert.Equal(t, "DEBUG shown\n", buf.String())
}
