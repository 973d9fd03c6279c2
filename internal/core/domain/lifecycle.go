package domain

import "time"

// LifecycleStatus is the unified status of a swap, merging the signing state
// of its presign transaction with the fulfillment state of its order.
type LifecycleStatus string

const (
	LifecycleDraft              LifecycleStatus = "Draft"
	LifecycleAwaitingSignatures LifecycleStatus = "AwaitingSignatures"
	LifecycleExecutable         LifecycleStatus = "Executable"
	LifecycleExecuted           LifecycleStatus = "Executed"
	LifecyclePartiallyFilled    LifecycleStatus = "PartiallyFilled"
	LifecycleFilled             LifecycleStatus = "Filled"
	LifecycleExpired            LifecycleStatus = "Expired"
	LifecycleCancelled          LifecycleStatus = "Cancelled"
)

// Reconcile merges order and signing state. From highest to lowest
// precedence: an expired order with nothing executed, any execution (filled
// or partially filled), a cancelled order, then the signing state.
func Reconcile(
	order SwapOrder, signing SafeTxStatus, now time.Time,
) LifecycleStatus {
	executed := order.HasExecution()

	if !executed && order.IsExpiredAt(now) {
		return LifecycleExpired
	}
	if executed {
		if order.IsFilled() {
			return LifecycleFilled
		}
		return LifecyclePartiallyFilled
	}
	if order.Status == OrderStatusCancelled {
		return LifecycleCancelled
	}

	switch signing {
	case SafeTxStatusAgentSigned, SafeTxStatusAwaitingConfirmations:
		return LifecycleAwaitingSignatures
	case SafeTxStatusExecutable:
		return LifecycleExecutable
	case SafeTxStatusExecuted:
		return LifecycleExecuted
	case SafeTxStatusRejected:
		// The order can no longer be authorized.
		return LifecycleCancelled
	default:
		return LifecycleDraft
	}
}
