package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetcode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Retcode
		text string
		ok   bool
	}{
		{RetcodeDone, "done", true},
		{RetcodeRequote, "requote", false},
		{RetcodeInvalidRequest, "invalid request", false},
		{RetcodeNoMoney, "no money", false},
		{Retcode(10031), "retcode 10031", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.text, tt.code.String())
			assert.Equal(t, tt.ok, tt.code.OK())
		})
	}
}
