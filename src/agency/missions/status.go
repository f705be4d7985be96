package missions

import "github.com/stake-plus/cat-agency/src/agency/types"

// DeriveStatus computes the mission status implied by its target statuses.
//
// Without an agent or without targets the current status stands. A NotStarted
// mission moves to InProgress as soon as one target leaves NotStarted, and
// goes no further in that call. From InProgress it ends Failed when every
// target failed and Done when every target is terminal. Done and Failed are
// absorbing.
func DeriveStatus(current types.Status, hasAgent bool, targets []types.Status) types.Status {
	if !hasAgent || len(targets) == 0 || current.Terminal() {
		return current
	}

	if current == types.StatusNotStarted {
		for _, s := range targets {
			if s != types.StatusNotStarted {
				return types.StatusInProgress
			}
		}
		return current
	}

	allFailed, allTerminal := true, true
	for _, s := range targets {
		if s != types.StatusFailed {
			allFailed = false
		}
		if !s.Terminal() {
			allTerminal = false
		}
	}
	switch {
	case allFailed:
		return types.StatusFailed
	case allTerminal:
		return types.StatusDone
	}
	return current
}
