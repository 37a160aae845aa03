package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	assert.NotNil(t, NewInterruptHandler(nil).writer)

	var buf bytes.Buffer
	assert.Equal(t, &buf, NewInterruptHandler(&buf).writer)
}

func TestInterruptHandler_Interrupt(t *testing.T) {
	var buf bytes.Buffer
	handler := NewInterruptHandler(&buf)

	ctx := handler.HandleInterrupts(context.Background(), "Unacknowledged entries stay pending")
	assert.False(t, handler.WasInterrupted())
	assert.NoError(t, ctx.Err())

	handler.interrupt()
	handler.interrupt()

	<-ctx.Done()
	assert.True(t, handler.WasInterrupted())
	out := buf.String()
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("shutting down")), out)
	assert.Contains(t, out, "Unacknowledged entries stay pending")
}

func TestInterruptHandler_ParentCancel(t *testing.T) {
	var buf bytes.Buffer
	handler := NewInterruptHandler(&buf)

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent, "")
	cancel()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, buf.String())
}
