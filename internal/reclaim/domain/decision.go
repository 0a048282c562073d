package domain

// BlockDecision is the outcome of checking a URL against the rule list.
// Pure value type, no external dependencies.
type BlockDecision struct {
	Blocked   bool      // true if an active rule matched
	Rule      SiteRule  // the first active rule that matched
	Remaining Remaining // time until that rule stops blocking
}

// EmptyDecision returns a not-blocked decision.
func EmptyDecision() BlockDecision { return BlockDecision{Blocked: false} }
