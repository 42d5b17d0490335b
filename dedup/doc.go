// Package dedup guards side-effecting operations against duplicate delivery.
//
// A request is reduced to a fingerprint (SHA-256 over its canonical JSON form,
// optionally scoped to a user) and the fingerprint is claimed in a shared store
// with a single atomic set-if-absent-with-expiry. Exactly one caller per window
// wins the claim; everyone else is told the request is a duplicate.
//
// The claim is never a read followed by a write: two callers that both read
// "absent" would both be admitted.
//
// Basic usage:
//
//	guard := dedup.NewGuard(dedup.NewRedisStore(client),
//	    dedup.WithTTL(10*time.Second),
//	    dedup.WithLogger(log),
//	)
//
//	fp, err := dedup.CreateFingerprint(form, userID)
//	admitted, err := guard.CheckAndMark(ctx, fp, "contact-form")
//
// A store failure is returned as an error matching apperr.ErrStoreUnreachable.
// It is neither "admitted" nor "duplicate": the caller decides whether to fail
// open or closed.
package dedup
