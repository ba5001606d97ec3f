package evcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbacksReplaceOverlaysNonNilFields(t *testing.T) {
	var calledFirst, calledSecond bool
	firstRead := func(*Socket, []byte) { calledFirst = true }
	secondRead := func(*Socket, []byte) { calledSecond = true }

	c := Callbacks{Read: firstRead}
	c.replace(Callbacks{Read: secondRead})
	c.Read(nil, nil)

	assert.False(t, calledFirst)
	assert.True(t, calledSecond)
}

func TestCallbacksReplaceLeavesUnsetFieldsUntouched(t *testing.T) {
	event := func(Condition) {}
	c := Callbacks{Event: event}
	c.replace(Callbacks{Read: func(*Socket, []byte) {}})

	assert.NotNil(t, c.Event)
	assert.NotNil(t, c.Read)
}

func TestCallbacksReplaceWithAllNilIsNoOp(t *testing.T) {
	read := func(*Socket, []byte) {}
	c := Callbacks{Read: read}
	c.replace(Callbacks{})
	assert.NotNil(t, c.Read)
}
