package model

// CycleResult is the outcome of one pass over a list of accounts.
// Every account lands in exactly one of success, error or invalid.
type CycleResult struct {
	// ErrorAccounts holds the raw credentials of accounts whose check-in
	// failed (transport error or rejected session), in their original
	// relative order.
	ErrorAccounts []string

	// InvalidCount counts accounts whose raw credential could not be
	// parsed into a session cookie. These are configuration defects and
	// are never retried.
	InvalidCount int
}

// RunResult is the final outcome of a job: a full cycle plus bounded
// retries of the failed subset.
type RunResult struct {
	Total        int
	SuccessCount int
	InvalidCount int

	// ErrorAccounts holds the accounts still failing after the retry cap.
	ErrorAccounts []string
}
