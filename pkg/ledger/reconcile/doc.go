// Package reconcile provides background integrity sweeps for the credit
// ledger.
//
// # Reconciliation
//
// A reservation is supposed to be finalized by the admission pipeline in
// the same request that created it. If the process crashes between
// reserving and finalizing, the reservation leaks and the subject's funds
// stay held forever. The reconciler sweeps for such reservations past a
// grace period and voids them, refunding the held amount.
//
// Every sweep also replays each subject's entry history and checks that
// the recorded running balances match a fold over the amounts. A mismatch
// means the backing store was corrupted or written outside the ledger.
//
// # Basic Usage
//
//	rec := reconcile.NewReconciler(led, store, &reconcile.Config{
//	    GracePeriod: time.Hour,
//	    Schedule:    "*/10 * * * *",
//	    AutoVoid:    true,
//	}, logger)
//
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Stop()
//
// Sweeps can also be triggered manually with Reconcile, which returns a
// report of what was found and repaired.
package reconcile
