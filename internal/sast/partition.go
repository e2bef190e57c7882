// File: internal/sast/partition.go
package sast

// Partition splits paths into consecutive chunks of size
// max(1, len(paths)/workers); the final chunk may be shorter. The integer
// division is intentional: it can yield up to workers+1 batches, trading
// strict even division for a single cheap pass. Callers depend on the exact
// formula, so do not "fix" it to a balanced split.
func Partition(paths []string, workers int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	size := len(paths) / workers
	if size < 1 {
		size = 1
	}

	batches := make([][]string, 0, workers+1)
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		batches = append(batches, paths[start:end])
	}
	return batches
}
