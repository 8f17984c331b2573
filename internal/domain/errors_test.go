package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("send turn", "s1"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.Contains(t, err.Error(), "s1")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want TurnOutcome
	}{
		{nil, TurnOutcomeOK},
		{NotFound("op", "s1"), TurnOutcomeNotFound},
		{InvalidInput("op", ErrInvalidImage), TurnOutcomeInvalidInput},
		{UpstreamFailure("op", errors.New("timeout")), TurnOutcomeUpstreamFailure},
		{StoreFailure("op", errors.New("disk full")), TurnOutcomeStoreFailure},
		{errors.New("unclassified"), TurnOutcomeStoreFailure},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Outcome(tc.err), "err=%v", tc.err)
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := UpstreamFailure("generate", errors.New("deadline exceeded"))
	assert.Equal(t, "generate: deadline exceeded", err.Error())
	assert.Equal(t, "upstream_failure", err.Kind.String())
}
