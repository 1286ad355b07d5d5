package clipboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stub(t *testing.T, read func() (string, error), write func(string) error) {
	t.Helper()
	origRead, origWrite := readAll, writeAll
	t.Cleanup(func() { readAll, writeAll = origRead, origWrite })
	if read != nil {
		readAll = read
	}
	if write != nil {
		writeAll = write
	}
}

func TestReadText(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(nil)

	stub(t, func() (string, error) { return "she said", nil }, nil)
	text, ok := s.ReadText(ctx)
	assert.True(t, ok)
	assert.Equal(t, "she said", text)
}

func TestReadTextUnavailable(t *testing.T) {
	ctx := context.Background()
	s := NewSystem(nil)

	stub(t, func() (string, error) { return "", errors.New("no xclip") }, nil)
	text, ok := s.ReadText(ctx)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestReadTextBlank(t *testing.T) {
	s := NewSystem(nil)

	stub(t, func() (string, error) { return "  \n", nil }, nil)
	_, ok := s.ReadText(context.Background())
	assert.False(t, ok)
}

func TestWriteText(t *testing.T) {
	s := NewSystem(nil)

	var got string
	stub(t, nil, func(v string) error { got = v; return nil })
	assert.True(t, s.WriteText(context.Background(), "{{pronoun.subjective}}"))
	assert.Equal(t, "{{pronoun.subjective}}", got)

	stub(t, nil, func(string) error { return errors.New("denied") })
	assert.False(t, s.WriteText(context.Background(), "x"))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSystem(nil)

	called := false
	stub(t, func() (string, error) { called = true; return "x", nil },
		func(string) error { called = true; return nil })
	_, ok := s.ReadText(ctx)
	assert.False(t, ok)
	assert.False(t, s.WriteText(ctx, "x"))
	assert.False(t, called)
}
