package instance

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	assert.Equal(t, "cron-a", ID("  cron-a "))

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker-0"
	}
	assert.Equal(t, host, ID(""))
}
