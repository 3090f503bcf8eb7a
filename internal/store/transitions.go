package store

import "hqms/queue-service/internal/models"

var transitionMap = map[string][]string{
	"call":          {models.StatusWaiting},
	"start":         {models.StatusCalled},
	"complete":      {models.StatusInProgress},
	"cancel":        {models.StatusWaiting},
	"assign_doctor": {models.StatusWaiting, models.StatusCalled},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// IdempotentRepeat reports whether applying action to a ticket already in
// fromStatus is a no-op success rather than a state conflict. Completing a
// completed ticket returns the current state without error.
func IdempotentRepeat(action, fromStatus string) bool {
	return action == "complete" && fromStatus == models.StatusCompleted
}
