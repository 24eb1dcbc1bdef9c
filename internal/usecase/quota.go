package usecase

// AllocateQuotas splits one invocation's budget between active jobs.
// Each job starts from an equal share of the budget; a job with fewer
// eligible domains than its share gives up the difference, and that surplus
// is handed out in a single pass, in the supplied job order, to jobs that can
// still absorb more. Guarantees: sum of quotas never exceeds budget, no quota
// exceeds its job's remaining count, and no budget stays idle while any job
// can absorb it. The single pass is best effort, not globally optimal.
func AllocateQuotas(jobIDs []string, remaining map[string]int, budget int) map[string]int {
	quotas := make(map[string]int, len(jobIDs))

	if len(jobIDs) == 0 || budget <= 0 {
		for _, id := range jobIDs {
			quotas[id] = 0
		}
		return quotas
	}

	if len(jobIDs) == 1 {
		id := jobIDs[0]
		quotas[id] = min(remaining[id], budget)
		return quotas
	}

	equalShare := budget / len(jobIDs)
	// The floor-division remainder joins the surplus pool so it is not lost.
	surplus := budget - equalShare*len(jobIDs)

	for _, id := range jobIDs {
		if remaining[id] < equalShare {
			quotas[id] = remaining[id]
			surplus += equalShare - remaining[id]
		} else {
			quotas[id] = equalShare
		}
	}

	if surplus > 0 {
		for _, id := range jobIDs {
			canTake := remaining[id] - quotas[id]
			if canTake <= 0 {
				continue
			}
			extra := min(canTake, surplus)
			quotas[id] += extra
			surplus -= extra
			if surplus == 0 {
				break
			}
		}
	}

	return quotas
}
