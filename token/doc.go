// Package token estimates token counts for prompt text ahead of a model call.
//
// Counts are deliberately an estimate, not a guarantee: the estimator exists so
// the budget guard can make an admission decision before any money is spent.
// When a model specific tokenizer has been registered it is used; otherwise a
// deterministic character-ratio heuristic (model-family aware) applies. A
// tokenizer failure degrades to the heuristic instead of propagating, so
// budgeting is never blocked by an estimator fault.
package token
