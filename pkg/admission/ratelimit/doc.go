// Package ratelimit implements exact sliding window rate limiting for
// admission control.
//
// Unlike fixed-bucket counters, the sliding window keeps a timestamp per
// admitted event, so the count over any trailing window is exact. Fixed
// buckets allow up to 2x the threshold in bursts that straddle a bucket
// boundary; the per-event variant trades memory for exactness, which is the
// right trade for paid operations where every admission is billed.
//
// # Usage
//
//	limiter := ratelimit.NewLimiter()
//	defer limiter.Close()
//
//	decision := limiter.CheckAndRecord(ratelimit.Key{
//	    Subject: "acct_123",
//	    Kind:    ratelimit.KindRequestsPerMinute,
//	}, 60, time.Minute)
//	if !decision.Allowed {
//	    // Reject with decision.RetryAfter
//	}
//
// # Thread Safety
//
// All window state is sharded by key hash; concurrent checks against the
// same key are serialized by the owning shard's mutex, so two simultaneous
// checks can never both admit when only one slot remains.
package ratelimit
