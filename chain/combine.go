package chain

import "github.com/sievemail/spamchain/filter"

// immediateCombine implements spec.md §4.5.1's immediate_combine: AMNESTY
// short-circuits and wins wherever it appears; otherwise BLOCK wins if any
// filter voted BLOCK, then REVOKE if any filter voted REVOKE, else PASS. The
// result therefore does not depend on the order of verdicts.
func immediateCombine(verdicts []filter.Verdict) filter.Verdict {
	blockSeen, revokeSeen := false, false
	for _, v := range verdicts {
		switch v {
		case filter.AMNESTY:
			return filter.AMNESTY
		case filter.BLOCK:
			blockSeen = true
		case filter.REVOKE:
			revokeSeen = true
		}
	}
	if blockSeen {
		return filter.BLOCK
	}
	if revokeSeen {
		return filter.REVOKE
	}
	return filter.PASS
}

// asyncCombine implements spec.md §4.5.2's async loop: starting from start
// (the immediate verdict), each filter's Async verdict can only raise the
// running result per the same precedence rule used by immediateCombine,
// short-circuiting on AMNESTY/BLOCK.
func asyncCombine(start filter.Verdict, verdicts []filter.Verdict) filter.Verdict {
	result := start
	for _, v := range verdicts {
		switch v {
		case filter.AMNESTY:
			return filter.AMNESTY
		case filter.BLOCK:
			return filter.BLOCK
		case filter.REVOKE:
			result = filter.REVOKE
		}
	}
	return result
}
