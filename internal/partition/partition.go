// Package partition splits a domain list across sessions.
package partition

// Split deals domains round-robin into min(maxSessions, len(domains))
// partitions: domain i goes to partition i mod K. maxSessions below 1 is
// treated as 1. An empty list yields no partitions.
func Split(domains []string, maxSessions int) [][]string {
	if len(domains) == 0 {
		return nil
	}
	k := max(maxSessions, 1)
	k = min(k, len(domains))

	parts := make([][]string, k)
	for p := range parts {
		parts[p] = make([]string, 0, (len(domains)+k-1-p)/k)
	}
	for i, d := range domains {
		parts[i%k] = append(parts[i%k], d)
	}
	return parts
}

// Interleave reverses Split by taking one element from each partition in turn.
func Interleave(parts [][]string) []string {
	total := 0
	longest := 0
	for _, p := range parts {
		total += len(p)
		longest = max(longest, len(p))
	}

	out := make([]string, 0, total)
	for i := range longest {
		for _, p := range parts {
			if i < len(p) {
				out = append(out, p[i])
			}
		}
	}
	return out
}
