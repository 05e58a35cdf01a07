package internal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/stretchr/testify/assert"
)

func stubClipboard(t *testing.T, fn func(string) error) {
	t.Helper()
	prev := systemClipboard
	systemClipboard = fn
	t.Cleanup(func() { systemClipboard = prev })
}

func TestCopyText_System(t *testing.T) {
	var got string
	stubClipboard(t, func(s string) error { got = s; return nil })

	var buf bytes.Buffer
	assert.NoError(t, CopyText("hello", &buf))
	assert.Equal(t, "hello", got)
	assert.Zero(t, buf.Len())
}

func TestCopyText_Fallback(t *testing.T) {
	stubClipboard(t, func(string) error { return errors.New("no xclip") })
	t.Setenv("TMUX", "")

	var buf bytes.Buffer
	assert.NoError(t, CopyText("hello", &buf))
	assert.Equal(t, osc52.New("hello").String(), buf.String())

	assert.Error(t, CopyText("hello", nil))
}

func TestCopyText_FallbackInTmux(t *testing.T) {
	stubClipboard(t, func(string) error { return errors.New("no xclip") })
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1,0")

	var buf bytes.Buffer
	assert.NoError(t, CopyText("hi", &buf))
	assert.Equal(t, osc52.New("hi").Tmux().String(), buf.String())
}
