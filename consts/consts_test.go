package consts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkStarted(t *testing.T) {
	startedAtNano.Store(0)
	assert.True(t, StartedAt().IsZero())
	assert.Equal(t, time.Duration(0), Uptime())

	first := time.Now().Add(-2 * time.Second)
	MarkStarted(first)
	MarkStarted(time.Now().Add(time.Hour))

	assert.True(t, StartedAt().Equal(first), "only the first call takes effect")
	assert.GreaterOrEqual(t, Uptime(), 2*time.Second)
}

func TestBuildInfo(t *testing.T) {
	Version, GitCommit = "1.2.3", "abc123"
	t.Cleanup(func() { Version, GitCommit = "dev", "unknown" })

	info := BuildInfo()
	assert.Contains(t, info, "PassportView 1.2.3")
	assert.Contains(t, info, "Git Commit: abc123")
}
