package errors

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type mockCloser struct {
	closeErr error
	closed   bool
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.closeErr
}

func TestDeferClose(t *testing.T) {
	tests := []struct {
		name       string
		closer     io.Closer
		wantLogged bool
	}{
		{name: "nil closer", closer: nil},
		{name: "successful close", closer: &mockCloser{}},
		{name: "close with error", closer: &mockCloser{closeErr: errors.New("close failed")}, wantLogged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			DeferClose(logger, tt.closer, "failed to close trace file")

			if tt.wantLogged {
				assert.Contains(t, buf.String(), "failed to close trace file")
				assert.Contains(t, buf.String(), "close failed")
			} else {
				assert.Empty(t, buf.String())
			}
			if mc, ok := tt.closer.(*mockCloser); ok {
				assert.True(t, mc.closed)
			}
		})
	}
}

func TestDeferRollback_NilTx(t *testing.T) {
	var buf bytes.Buffer
	DeferRollback(zerolog.New(&buf), nil)
	assert.Empty(t, buf.String())
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() { Must(nil, "register flag") })
	assert.PanicsWithValue(t, "register flag: boom", func() { Must(errors.New("boom"), "register flag") })
}
