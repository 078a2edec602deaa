package attest

import (
	"encoding/hex"
	"regexp"
	"strings"

	"AssetWarden/internal/signature"
)

var (
	// signaturePattern matches a hex-encoded ed25519 signature.
	signaturePattern = regexp.MustCompile(`[0-9a-fA-F]{128}`)

	// txHashPattern matches a hex-encoded transaction hash.
	txHashPattern = regexp.MustCompile(`[0-9a-fA-F]{64}`)
)

// Outcome is the result of checking one line for one address and message.
type Outcome int

const (
	// NoSignal means the line carries no attestation.
	NoSignal Outcome = iota

	// Valid means the line holds a signature by the address over the message.
	Valid

	// Invalid means the line holds a signature that does not verify.
	Invalid

	// Unsupported means the line holds a transaction hash attestation,
	// which is never accepted.
	Unsupported
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Unsupported:
		return "unsupported"
	default:
		return "no-signal"
	}
}

// Status summarizes a MultiVerify run.
type Status int

const (
	// StatusNoop means no addresses were required.
	StatusNoop Status = iota

	// StatusSatisfied means every required address signed.
	StatusSatisfied

	// StatusUnsatisfied means at least one required address did not sign.
	StatusUnsatisfied
)

// Result is the outcome of MultiVerify.
type Result struct {
	Status      Status            // Status is the overall decision
	Unsatisfied []string          // Unsatisfied lists addresses without a valid signature, in input order
	Signed      map[string]string // Signed maps satisfied addresses to the message they signed
	Signatures  int               // Signatures counts lines carrying a signature, valid or not
}

// Satisfied reports whether at least one address was required and all signed.
func (r Result) Satisfied() bool {
	return r.Status == StatusSatisfied
}

// Engine verifies attestations found in free text.
type Engine struct {
	verifier signature.Verifier
}

// NewEngine creates an engine delegating signature checks to v.
func NewEngine(v signature.Verifier) *Engine {
	return &Engine{verifier: v}
}

// VerifyLine checks whether line attests message for address.
// A 128-hex run is a signature; otherwise a 64-hex run is a transaction hash.
func (e *Engine) VerifyLine(line, address, message string) Outcome {
	if raw := signaturePattern.FindString(line); raw != "" {
		sig, err := hex.DecodeString(raw)
		if err != nil {
			return Invalid
		}

		if e.verifier.Verify(address, []byte(message), sig) {
			return Valid
		}

		return Invalid
	}

	if txHashPattern.MatchString(line) {
		return Unsupported
	}

	return NoSignal
}

// MultiVerify scans every line of every body for signatures by the required
// addresses. An address is satisfied by a valid signature over any one of
// messages.
func (e *Engine) MultiVerify(bodies, addresses, messages []string) Result {
	required := dedupe(addresses)
	res := Result{Signed: make(map[string]string)}

	if len(required) == 0 {
		res.Status = StatusNoop
		return res
	}

	lines := splitLines(bodies)
	for _, line := range lines {
		if signaturePattern.MatchString(line) {
			res.Signatures++
		}
	}

	pending := make(map[string]bool, len(required))
	for _, a := range required {
		pending[a] = true
	}

	for _, m := range messages {
		if len(pending) == 0 {
			break
		}

		for _, line := range lines {
			for _, a := range required {
				if !pending[a] {
					continue
				}

				if e.VerifyLine(line, a, m) == Valid {
					delete(pending, a)
					res.Signed[a] = m
				}
			}
		}
	}

	for _, a := range required {
		if pending[a] {
			res.Unsatisfied = append(res.Unsatisfied, a)
		}
	}

	res.Status = StatusSatisfied
	if len(res.Unsatisfied) > 0 {
		res.Status = StatusUnsatisfied
	}

	return res
}

// splitLines splits every body on line breaks, dropping lines without hex runs.
func splitLines(bodies []string) []string {
	var lines []string
	for _, b := range bodies {
		for _, l := range strings.Split(b, "\n") {
			l = strings.TrimRight(l, "\r")
			if txHashPattern.MatchString(l) {
				lines = append(lines, l)
			}
		}
	}

	return lines
}

// dedupe removes repeated and empty entries, keeping first occurrences.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}

		seen[v] = true
		out = append(out, v)
	}

	return out
}
