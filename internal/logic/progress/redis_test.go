package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sol-tx-engine/internal/provider"
)

func TestKeyAndTTL(t *testing.T) {
	assert.Equal(t, "txengine:submission:abc", getKey("abc"))
	assert.Equal(t, 10*time.Minute, getTTL(provider.SubmissionPending))
	assert.Equal(t, 7*24*time.Hour, getTTL(provider.SubmissionConfirmed))
	assert.Equal(t, 3*24*time.Hour, getTTL(provider.SubmissionFailed))
	assert.Equal(t, defaultTTL, getTTL(provider.SubmissionStatus(99)))
}

var _ provider.SubmissionRecorder = (*SubmissionStore)(nil)
