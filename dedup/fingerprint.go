package dedup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CreateFingerprint hashes payload together with an optional scope id.
//
// The payload is serialised to JSON and re-encoded through a generic value so
// object keys come out sorted; two structurally identical payloads therefore
// hash the same regardless of field or map insertion order. The payload is
// fully serialised before returning, so later mutation by the caller has no
// effect on the result.
func CreateFingerprint(payload any, scopeID string) (string, error) {
	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint payload: %w", err)
	}

	h := sha256.New()
	h.Write(canonical)
	if scopeID != "" {
		h.Write([]byte{'\n'})
		h.Write([]byte(scopeID))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalBody normalises a raw request body. JSON bodies are re-encoded with
// sorted keys; anything else is kept verbatim as a string.
func CanonicalBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(trimmed)
	}
	return v
}

func canonicalJSON(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	// encoding/json writes map keys in sorted order
	return json.Marshal(generic)
}
