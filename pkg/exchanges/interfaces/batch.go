package interfaces

// SplitTopics splits topics into batches so that no rendered command frame
// exceeds the exchange's topic-count or byte-size caps. size reports the
// rendered frame length for a candidate batch; it is called with
// monotonically growing batches, so implementations should be cheap.
//
// A cap of zero disables the corresponding bound. A single topic whose frame
// already exceeds maxBytes is emitted alone; it cannot be split further.
func SplitTopics(topics []string, maxTopics, maxBytes int, size func(batch []string) int) [][]string {
	var batches [][]string
	var batch []string

	for _, topic := range topics {
		candidate := append(batch[:len(batch):len(batch)], topic)
		tooMany := maxTopics > 0 && len(candidate) > maxTopics
		tooBig := maxBytes > 0 && len(batch) > 0 && size(candidate) > maxBytes
		if tooMany || tooBig {
			batches = append(batches, batch)
			batch = []string{topic}
			continue
		}
		batch = candidate
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	return batches
}
