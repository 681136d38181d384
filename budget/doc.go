// Package budget enforces per-agent token budgets before a model call is made.
//
// The Guard combines an agent's role text with the user text, estimates the
// token count and compares it against the agent's configured limits. A hard
// rejection is raised as an error before the runtime is touched (prevented
// waste); a soft warning admits the prompt while flagging the decision. The
// boundary is inclusive: an estimate exactly equal to the hard limit is
// admitted, one token above is rejected.
package budget
