package instance

import (
	"os"
	"strings"
)

// ID names this process in lock tokens and logs. A configured id wins, then
// the hostname, which is the pod name under kubernetes.
func ID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
