package engine

// splitDue caps the batch at rate sends for this tick. It returns the head
// of the due list to dispatch and the count left for a later tick.
func splitDue(due []dueItem, rate int) (toSend []dueItem, throttled int) {
	if rate >= len(due) {
		return due, 0
	}
	return due[:rate], len(due) - rate
}
