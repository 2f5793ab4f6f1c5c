package core

import "errors"

// Sentinel errors for the protocol-violation, availability, cryptographic
// and configuration error taxonomies described in the design notes.
// Callers add context by wrapping them with fmt.Errorf and %w.
var (
	// Protocol-violation errors: surfaced to the caller, never retried.
	ErrFilenameAlreadyExists = errors.New("fangorn: filename already registered")
	ErrFilenameNotFound      = errors.New("fangorn: filename not found")
	ErrRequestAlreadyExists  = errors.New("fangorn: decryption request already exists")
	ErrAlreadyAttested       = errors.New("fangorn: worker already attested this request")
	ErrAlreadyFulfilled      = errors.New("fangorn: request already fulfilled")
	ErrUnauthorizedWorker    = errors.New("fangorn: caller is not an authorized worker")

	// Availability errors: returned with context to the caller. No layer
	// retries them; a worker that hits one drops that request.
	ErrCiphertextNotFound = errors.New("fangorn: ciphertext not found")
	ErrIntentNotFound     = errors.New("fangorn: intent not found")
	ErrLTSNotReady        = errors.New("fangorn: system key not yet available")

	// Cryptographic / verification errors.
	ErrVerificationFailed = errors.New("fangorn: witness verification failed")
	ErrMalformedWitness   = errors.New("fangorn: malformed witness")
	ErrMalformedStatement = errors.New("fangorn: malformed statement")

	// Configuration errors: fatal at startup.
	ErrMissingTicket     = errors.New("fangorn: ticket required for follower worker")
	ErrUnparseableConfig = errors.New("fangorn: could not parse config hex")
)
