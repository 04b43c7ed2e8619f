package swap

import (
	"encoding/hex"
	"strconv"

	"swapledger/core/types"
)

const (
	EventTypeOpened          = "swap.opened"
	EventTypeApproved        = "swap.approved"
	EventTypeStatusChanged   = "swap.status_changed"
	EventTypeTreasuryChanged = "swap.treasury_changed"
	EventTypeFeeRateChanged  = "swap.fee_rate_changed"
)

// swapEvent adapts a raw payload to the events.Emitter contract.
type swapEvent struct {
	evt *types.Event
}

func (e swapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e swapEvent) Event() *types.Event { return e.evt }

// NewOpenedEvent returns the canonical payload for a newly opened
// request. It carries the full terms so an observer can reconstruct the
// record without a lookup.
func NewOpenedEvent(r *SwapRequest) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: EventTypeOpened, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(r.ID, 10)
	attrs["initiator"] = hex.EncodeToString(r.Initiator[:])
	attrs["counterparty"] = hex.EncodeToString(r.Counterparty[:])
	attrs["offeredAsset"] = r.Offered.String()
	attrs["offeredAmount"] = cloneBigInt(r.OfferedAmount).String()
	attrs["requestedAsset"] = r.Requested.String()
	attrs["requestedAmount"] = cloneBigInt(r.RequestedAmount).String()
	return &types.Event{Type: EventTypeOpened, Attributes: attrs}
}

// NewApprovedEvent returns the canonical payload emitted on settlement.
func NewApprovedEvent(r *SwapRequest) *types.Event {
	attrs := make(map[string]string)
	if r == nil {
		return &types.Event{Type: EventTypeApproved, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(r.ID, 10)
	attrs["offeredAsset"] = r.Offered.String()
	attrs["requestedAsset"] = r.Requested.String()
	attrs["offeredAmount"] = cloneBigInt(r.OfferedAmount).String()
	attrs["requestedAmount"] = cloneBigInt(r.RequestedAmount).String()
	return &types.Event{Type: EventTypeApproved, Attributes: attrs}
}

// NewStatusChangedEvent returns the payload for a reject or cancel.
func NewStatusChangedEvent(id uint64, status Status) *types.Event {
	return &types.Event{Type: EventTypeStatusChanged, Attributes: map[string]string{
		"id":        strconv.FormatUint(id, 10),
		"newStatus": status.String(),
	}}
}

// NewTreasuryChangedEvent returns the payload for a treasury rotation.
func NewTreasuryChangedEvent(treasury [20]byte) *types.Event {
	return &types.Event{Type: EventTypeTreasuryChanged, Attributes: map[string]string{
		"newTreasury": hex.EncodeToString(treasury[:]),
	}}
}

// NewFeeRateChangedEvent returns the payload for a fee-rate update.
func NewFeeRateChangedEvent(rate uint32) *types.Event {
	return &types.Event{Type: EventTypeFeeRateChanged, Attributes: map[string]string{
		"newRate": strconv.FormatUint(uint64(rate), 10),
	}}
}
