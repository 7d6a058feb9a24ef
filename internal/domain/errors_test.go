package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_WrappedError(t *testing.T) {
	base := NewError(KindInvalidMatchData, "process match", errors.New("missing matchId"))
	wrapped := fmt.Errorf("ingest: %w", base)

	assert.Equal(t, KindInvalidMatchData, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindInvalidMatchData))
	assert.Equal(t, "INVALID_MATCH_DATA", CodeOf(wrapped))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestError_Message(t *testing.T) {
	err := Errorf(KindNotFound, "get match", "match %s", "NA1_9")
	assert.Equal(t, "get match: NOT_FOUND: match NA1_9", err.Error())
	assert.ErrorContains(t, errors.Unwrap(err), "NA1_9")
}

func TestKindForCode(t *testing.T) {
	for _, k := range []ErrorKind{KindNotFound, KindUpstreamUnavailable, KindInvalidMatchData, KindInvalidInput} {
		assert.Equal(t, k, KindForCode(k.Code()))
	}
	assert.Equal(t, KindInternal, KindForCode("NO_SUCH_CODE"))
	assert.Equal(t, KindInternal, KindForCode(""))
}
