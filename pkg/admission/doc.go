// Package admission orchestrates the full admission pipeline for paid
// agent executions.
//
// # Overview
//
// Every request passes through the same gauntlet, in order:
//
//  1. Sliding-window rate limits for each limit kind the tier enforces.
//  2. The subject's concurrency cap.
//  3. Cost resolution (agent weight, then subscription coverage).
//  4. A ledger reservation for the full cost.
//  5. The caller-supplied operation.
//  6. Commit on success (plus allotment accounting for covered runs), or
//     void on failure and cancellation.
//
// The concurrency slot acquired in step 2 is released exactly once on
// every path out of the pipeline, including panics in the guarded
// operation. Denials are typed errors (RateLimitedError,
// ConcurrencyLimitedError, InsufficientFundsError) carrying enough data
// for the transport layer to build a response without another lookup;
// guarded-operation failures come back as OperationFailedError wrapping
// the operation's own error unchanged.
//
// # Usage
//
//	outcome, err := ctrl.AdmitAndRun(ctx, admission.Request{
//	    Subject:        "acct_42",
//	    Tier:           "basic",
//	    Agent:          "agent-research",
//	    BasePriceCents: 100,
//	}, func(ctx context.Context) error {
//	    return invokeAgent(ctx)
//	})
package admission
