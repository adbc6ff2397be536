// Package pricing resolves what a single execution costs a subject before
// it runs.
//
// Resolution order matters: the agent's cost weight scales the base price
// first, then the subscription decision happens against the weighted
// price. A subject with included executions remaining pays nothing and the
// execution is marked covered; a subscriber past the allotment pays the
// tier's flat overage price; a subject with no subscription pays the
// weighted price under the default tier's multiplier.
package pricing
