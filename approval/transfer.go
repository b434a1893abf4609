/*
transfer.go - Transfer completion for custody advances

PURPOSE:
  The one transition that needs an externally supplied artifact. A cash
  request that has cleared both approvals sits in WAITING_TRANSFER until the
  general manager records proof that the funds actually moved. Only then is
  the advance balance-effective.

  The proof is uploaded to the ObjectStore collaborator BEFORE this call;
  the handler itself never uploads, it only records the resulting URL in the
  same compare-and-set mutation that flips the status to APPROVED.
*/
package approval

import (
	"context"
	"strings"
)

// CompleteTransfer finalizes a custody advance: WAITING_TRANSFER -> APPROVED
// with the transfer proof recorded. Same compare-and-set discipline as every
// other transition; a stale status fails with a StateConflictError.
func (e *Engine) CompleteTransfer(ctx context.Context, requestID, proofURL string, actor Actor) (Status, error) {
	if err := Authorize(actor.Role, TransitionCompleteTransfer); err != nil {
		return "", err
	}
	if strings.TrimSpace(proofURL) == "" {
		return "", &ValidationError{Field: "proof_url", Message: "transfer proof is required"}
	}

	req, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.Kind != KindCashRequest {
		return "", &ValidationError{Field: "request_id", Message: "only cash requests have a transfer stage"}
	}

	err = e.store.CompareAndSetStatus(ctx, requestID, StatusWaitingTransfer, StatusApproved,
		ExtraFields{TransferProofURL: proofURL})
	if err != nil {
		return "", err
	}

	e.notify(ctx, req, StatusApproved)
	return StatusApproved, nil
}
