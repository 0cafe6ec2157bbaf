package clinic

import (
	"fmt"
	"strconv"
)

const queueNumberModulo = 10000

// NextQueueNumber returns the ticket that follows lastIssued. An empty or
// malformed previous ticket restarts the sequence at 0000; 9999 wraps to 0000.
func NextQueueNumber(lastIssued string) string {
	if !isQueueNumber(lastIssued) {
		return "0000"
	}
	n, _ := strconv.Atoi(lastIssued)
	return fmt.Sprintf("%04d", (n+1)%queueNumberModulo)
}

func isQueueNumber(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
