package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// minBase64Run is the shortest bare base64 run treated as an embedded
// binary payload. Shorter runs can be legitimate text (ids, hashes).
const minBase64Run = 512

var (
	// dataURIPattern matches data-URI embedded payloads, the form document
	// images arrive in from the extraction pipeline.
	dataURIPattern = regexp.MustCompile(`data:[\w.+-]+/[\w.+-]+;base64,[A-Za-z0-9+/]+={0,2}`)

	// base64RunPattern matches long bare base64 runs pasted into prompts
	// without a data-URI wrapper.
	base64RunPattern = regexp.MustCompile(`[A-Za-z0-9+/]{` + fmt.Sprint(minBase64Run) + `,}={0,2}`)
)

// RedactString replaces embedded binary payloads in s with fixed
// placeholders and returns the redacted string plus the number of
// replacements. The placeholder carries a truncated digest of the payload
// so two records citing the same image remain correlatable without the
// log ever holding the bytes:
//
//	[binary:sha256:3a91bc04d2ee:48212 bytes]
func RedactString(s string) (string, int) {
	count := 0
	replace := func(match string) string {
		count++
		sum := sha256.Sum256([]byte(match))
		return fmt.Sprintf("[binary:sha256:%s:%d bytes]", hex.EncodeToString(sum[:])[:12], len(match))
	}

	redacted := dataURIPattern.ReplaceAllStringFunc(s, replace)
	redacted = base64RunPattern.ReplaceAllStringFunc(redacted, replace)
	return redacted, count
}

// RedactMessages redacts every message in place-order and returns the
// redacted copy plus the total replacement count. The input slice is not
// modified; an appended record must never share backing storage with
// caller-held data.
func RedactMessages(messages []Message) ([]Message, int) {
	if len(messages) == 0 {
		return nil, 0
	}

	total := 0
	redacted := make([]Message, len(messages))
	for i, m := range messages {
		content, n := RedactString(m.Content)
		redacted[i] = Message{Role: m.Role, Content: content}
		total += n
	}
	return redacted, total
}
