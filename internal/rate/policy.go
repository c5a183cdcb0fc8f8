package rate

import "time"

// Policy is one row of the declarative route quota table.
type Policy struct {
	Limit   int
	Window  time.Duration
	Message string
}

// PolicyTable maps resource keys (route paths) to quotas. Routes not
// present fall back to the default policy. Evaluated uniformly by the
// guard; handlers never carry their own limits.
type PolicyTable struct {
	byRoute map[string]Policy
	def     Policy
}

// NewPolicyTable creates a table with the given default policy.
func NewPolicyTable(def Policy) *PolicyTable {
	return &PolicyTable{
		byRoute: make(map[string]Policy),
		def:     def,
	}
}

// Set registers a per-route policy, replacing any previous entry.
func (t *PolicyTable) Set(route string, p Policy) *PolicyTable {
	t.byRoute[route] = p
	return t
}

// Lookup returns the policy for route, or the default.
func (t *PolicyTable) Lookup(route string) Policy {
	if p, ok := t.byRoute[route]; ok {
		return p
	}
	return t.def
}

// DefaultPolicies returns the product's route quota table. Login and
// registration are deliberately tight; price reads are generous.
func DefaultPolicies(defaultLimit int, defaultWindow time.Duration) *PolicyTable {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if defaultWindow <= 0 {
		defaultWindow = time.Minute
	}

	t := NewPolicyTable(Policy{Limit: defaultLimit, Window: defaultWindow, Message: "rate limit exceeded"})
	t.Set("/api/v1/auth/login", Policy{Limit: 5, Window: 5 * time.Minute, Message: "too many login attempts"})
	t.Set("/api/v1/auth/register", Policy{Limit: 3, Window: time.Hour, Message: "too many registration attempts"})
	t.Set("/api/v1/auth/refresh", Policy{Limit: 10, Window: time.Minute, Message: "too many refresh attempts"})
	t.Set("/api/v1/zakat/calculate", Policy{Limit: 60, Window: time.Minute, Message: "too many calculations"})
	t.Set("/api/v1/prices/gold-silver", Policy{Limit: 120, Window: time.Minute, Message: "too many price requests"})
	t.Set("/api/v1/chat", Policy{Limit: 20, Window: time.Minute, Message: "too many chat messages"})
	return t
}
