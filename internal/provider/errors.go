package provider

import "errors"

var (
	ErrSubmissionRejected  = errors.New("transaction submission rejected")
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrFetchFailed         = errors.New("get multiple accounts failed")
)
