package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "continue", StatusContinue.String())
	assert.Equal(t, "continue_if_not_quiet", StatusContinueIfNotQuiet.String())
	assert.Equal(t, "tail", StatusTail.String())
	assert.Equal(t, "sleep", StatusSleep.String())
	assert.Contains(t, Status(99).String(), "99")
}

func TestViolationError(t *testing.T) {
	v := Violation{Check: "input-preservation", Detail: "port 0 mutated"}
	assert.Equal(t, "input-preservation: port 0 mutated", v.Error())
}
