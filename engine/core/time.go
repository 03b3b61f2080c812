package core

import (
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// ParseHumanDuration parses durations in either Go's native format ("90s")
// or the loose human format str2duration accepts ("1d12h", "2w"), used for
// timeout and backoff fields in workflow/node/trigger configuration.
func ParseHumanDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return str2duration.ParseDuration(s)
}
