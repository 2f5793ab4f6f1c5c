package core

// Contract method selectors: the first 4 bytes of a BLAKE2b-256 hash of
// the method signature, matching the on-chain predicate-registry and
// request-pool contracts fangorn talks to (spec §3, §6).

import "golang.org/x/crypto/blake2b"

// Selector identifies a contract method.
type Selector [4]byte

// MethodSelector derives the selector for a method signature string,
// e.g. "register_intent(bytes32,bytes)".
func MethodSelector(signature string) Selector {
	sum := blake2b.Sum256([]byte(signature))
	var s Selector
	copy(s[:], sum[:4])
	return s
}
