package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	sentinel := New(KindQuota, "limit_reached", "driver limit reached")
	wrapped := fmt.Errorf("create driver row 3: %w", sentinel)

	assert.Equal(t, KindQuota, KindOf(wrapped))
	assert.Equal(t, "limit_reached", CodeOf(wrapped))
	assert.True(t, IsQuota(wrapped))
	assert.True(t, errors.Is(wrapped, sentinel))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindTransport, "upload_failed", cause, "put %s", "a.pdf")

	assert.Equal(t, "put a.pdf: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindTransport, KindOf(err))
}
