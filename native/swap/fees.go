package swap

import "math/big"

// FeePolicy selects how treasury cuts are carved out of a settlement.
type FeePolicy uint8

const (
	// FeePolicyFlatBps takes a flat basis-point fee from the offered
	// flow only; the requested flow passes through untouched.
	FeePolicyFlatBps FeePolicy = iota
	// FeePolicyDualPercent taxes both flows independently by a whole
	// percentage. Floor division may leave a sub-unit residual per
	// flow, retained in custody as dust.
	FeePolicyDualPercent
)

const (
	maxFlatBps     = 10_000
	maxDualPercent = 100
)

// Valid reports whether the policy value is supported.
func (p FeePolicy) Valid() bool {
	switch p {
	case FeePolicyFlatBps, FeePolicyDualPercent:
		return true
	default:
		return false
	}
}

// MaxRate returns the admin-time upper bound for the policy's fee rate.
func (p FeePolicy) MaxRate() uint32 {
	if p == FeePolicyDualPercent {
		return maxDualPercent
	}
	return maxFlatBps
}

func (p FeePolicy) String() string {
	if p == FeePolicyDualPercent {
		return "dual_percent"
	}
	return "flat_bps"
}

// Settlement is the payout split computed for an approval. Amounts are
// always non-negative; for each flow the net plus the treasury cut
// never exceeds the flow amount, so any rounding residual stays in
// custody.
type Settlement struct {
	NetToInitiator        *big.Int // requested asset, paid to the initiator
	NetToCounterparty     *big.Int // offered asset, paid to the counterparty
	TreasuryFromOffered   *big.Int // offered asset, paid to the treasury
	TreasuryFromRequested *big.Int // requested asset, paid to the treasury
}

// ComputeSettlement splits the two flows of an approved request under
// the supplied policy and rate. The function never fails: out-of-range
// rates are an admin-time concern, and here they merely saturate so the
// treasury can never be paid more than a flow holds.
func ComputeSettlement(policy FeePolicy, rate uint32, offeredAmount, requestedAmount *big.Int) Settlement {
	offered := cloneBigInt(offeredAmount)
	requested := cloneBigInt(requestedAmount)
	switch policy {
	case FeePolicyDualPercent:
		netOffered, cutOffered := splitPercent(offered, rate)
		netRequested, cutRequested := splitPercent(requested, rate)
		return Settlement{
			NetToInitiator:        netRequested,
			NetToCounterparty:     netOffered,
			TreasuryFromOffered:   cutOffered,
			TreasuryFromRequested: cutRequested,
		}
	default:
		fee := new(big.Int).Mul(offered, new(big.Int).SetUint64(uint64(rate)))
		fee.Div(fee, big.NewInt(maxFlatBps))
		if fee.Cmp(offered) > 0 {
			fee.Set(offered)
		}
		return Settlement{
			NetToInitiator:        requested,
			NetToCounterparty:     new(big.Int).Sub(offered, fee),
			TreasuryFromOffered:   fee,
			TreasuryFromRequested: big.NewInt(0),
		}
	}
}

// splitPercent returns (net, cut) for one flow under the dual-sided
// percent tax. Both divisions floor independently, so net+cut may fall
// short of amount by less than one divisor unit.
func splitPercent(amount *big.Int, rate uint32) (*big.Int, *big.Int) {
	if rate >= maxDualPercent {
		return big.NewInt(0), new(big.Int).Set(amount)
	}
	cut := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(rate)))
	cut.Div(cut, big.NewInt(maxDualPercent))
	net := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(maxDualPercent-rate)))
	net.Div(net, big.NewInt(maxDualPercent))
	return net, cut
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
