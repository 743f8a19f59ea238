package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenesisHash is the prev_hash sentinel carried by the first record of a log.
const GenesisHash = ""

const (
	// FieldHash is the envelope key holding the record's own digest.
	FieldHash = "hash"
	// FieldPrevHash is the envelope key holding the predecessor's digest.
	FieldPrevHash = "prev_hash"
	// FieldTimestamp is the envelope key the appender stamps at write time.
	FieldTimestamp = "timestamp"
)

// CanonicalBytes returns the deterministic serialization of an envelope:
// compact JSON with lexicographically sorted object keys at every level.
// Two envelopes with equal content always produce identical bytes, so the
// serialization is a stable hashing input and a stable line format.
//
// Numbers must be json.Number values (see ToEnvelope) so their source text
// survives the round trip; float re-encoding could otherwise change the
// bytes between write and verify.
func CanonicalBytes(envelope map[string]any) ([]byte, error) {
	// encoding/json sorts map keys and emits json.Number literals verbatim.
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("canonical serialization failed: %w", err)
	}
	return data, nil
}

// HashEnvelope computes the hex-encoded SHA-256 digest of the envelope's
// canonical serialization, excluding the "hash" field itself. The prev_hash
// field is included, which is what chains each record to its predecessor.
func HashEnvelope(envelope map[string]any) (string, error) {
	unhashed := make(map[string]any, len(envelope))
	for k, v := range envelope {
		if k == FieldHash {
			continue
		}
		unhashed[k] = v
	}

	data, err := CanonicalBytes(unhashed)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ToEnvelope converts a typed record into a map envelope via its JSON form.
// Numbers are decoded as json.Number to preserve their exact literal text,
// which keeps CanonicalBytes stable across marshal/unmarshal cycles.
func ToEnvelope(record any) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("record not serializable: %w", err)
	}
	return DecodeEnvelope(data)
}

// FromEnvelope converts a map envelope back into a typed record.
func FromEnvelope(envelope map[string]any, record any) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("envelope not serializable: %w", err)
	}
	if err := json.Unmarshal(data, record); err != nil {
		return fmt.Errorf("envelope does not match record shape: %w", err)
	}
	return nil
}

// DecodeEnvelope parses one serialized record into a map envelope,
// preserving number literals as json.Number.
func DecodeEnvelope(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var envelope map[string]any
	if err := dec.Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// EnvelopeString returns the string value of an envelope field, or "" when
// the field is absent or not a string.
func EnvelopeString(envelope map[string]any, key string) string {
	s, _ := envelope[key].(string)
	return s
}
