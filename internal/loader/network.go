package loader

import "time"

// ConcurrencyForNetwork picks MaxConcurrency from the client's reported
// connection quality. effectiveType is one of "slow-2g", "2g", "3g",
// "4g" or empty; rtt is zero when unknown.
func ConcurrencyForNetwork(effectiveType string, rtt time.Duration, saveData bool) int {
	switch {
	case saveData:
		return 15
	case effectiveType == "slow-2g" || rtt > time.Second:
		return 10
	case effectiveType == "2g" || rtt > 500*time.Millisecond:
		return 15
	case effectiveType == "3g" || rtt > 200*time.Millisecond:
		return 25
	}
	return DefaultMaxConcurrency
}

func msToDuration(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
