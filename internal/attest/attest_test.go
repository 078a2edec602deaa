package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"reflect"
	"strings"
	"testing"

	"AssetWarden/internal/address"
	"AssetWarden/internal/signature"
)

const (
	sha1 = "1111111111111111111111111111111111111111"
	sha2 = "2222222222222222222222222222222222222222"
)

// wallet is a test key with its address.
type wallet struct {
	priv ed25519.PrivateKey
	addr string
}

func newWallet(t *testing.T) wallet {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	a, err := address.FromPublicKey(pub)
	if err != nil {
		t.Fatalf("FromPublicKey failed: %v", err)
	}

	return wallet{priv: priv, addr: a.String()}
}

// sign returns the hex signature line a wallet owner would paste.
func (w wallet) sign(message string) string {
	return hex.EncodeToString(signature.Sign(w.priv, []byte(message)))
}

// countingVerifier records every call and accepts only listed triples.
type countingVerifier struct {
	accept map[string]bool // accept keys are address|message|sighex
	calls  int
}

func (v *countingVerifier) Verify(addr string, message, sig []byte) bool {
	v.calls++
	return v.accept[addr+"|"+string(message)+"|"+hex.EncodeToString(sig)]
}

func TestVerifyLine(t *testing.T) {
	w := newWallet(t)
	e := NewEngine(signature.Wallet{})
	sig := w.sign(sha1)

	tests := []struct {
		name string
		line string
		want Outcome
	}{
		{"bare signature", sig, Valid},
		{"signature in prose", "Signature: " + sig + " (commit 1)", Valid},
		{"uppercase signature", strings.ToUpper(sig), Valid},
		{"wrong message signature", w.sign(sha2), Invalid},
		{"tx hash", strings.Repeat("ab", 32), Unsupported},
		{"commit sha only", sha1, NoSignal},
		{"empty", "", NoSignal},
		{"prose", "please review", NoSignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.VerifyLine(tt.line, w.addr, sha1); got != tt.want {
				t.Errorf("VerifyLine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyLineUnsupportedNeverCallsVerifier(t *testing.T) {
	v := &countingVerifier{}
	e := NewEngine(v)

	if got := e.VerifyLine("tx "+strings.Repeat("0f", 32), "erd1x", sha1); got != Unsupported {
		t.Fatalf("VerifyLine = %v, want Unsupported", got)
	}

	if v.calls != 0 {
		t.Errorf("verifier called %d times for a tx hash", v.calls)
	}
}

func TestMultiVerifyAnyMessageSuffices(t *testing.T) {
	w := newWallet(t)
	e := NewEngine(signature.Wallet{})

	body := "line one\nline two\n" + w.sign(sha1)

	res := e.MultiVerify([]string{body}, []string{w.addr}, []string{sha1, sha2})
	if !res.Satisfied() {
		t.Fatalf("status = %v, unsatisfied = %v", res.Status, res.Unsatisfied)
	}

	if len(res.Unsatisfied) != 0 {
		t.Errorf("unsatisfied = %v, want empty", res.Unsatisfied)
	}

	if res.Signed[w.addr] != sha1 {
		t.Errorf("signed message = %q, want %q", res.Signed[w.addr], sha1)
	}

	// Order of messages does not matter.
	res = e.MultiVerify([]string{body}, []string{w.addr}, []string{sha2, sha1})
	if !res.Satisfied() {
		t.Errorf("reversed messages: status = %v", res.Status)
	}
}

func TestMultiVerifyMultipleOwners(t *testing.T) {
	a, b, c := newWallet(t), newWallet(t), newWallet(t)
	e := NewEngine(signature.Wallet{})

	bodies := []string{
		"PR description\r\n" + a.sign(sha2) + "\r\n",
		"comment from b: " + b.sign(sha1),
	}

	res := e.MultiVerify(bodies, []string{a.addr, b.addr, c.addr}, []string{sha1, sha2})
	if res.Status != StatusUnsatisfied {
		t.Fatalf("status = %v, want unsatisfied", res.Status)
	}

	if !reflect.DeepEqual(res.Unsatisfied, []string{c.addr}) {
		t.Errorf("unsatisfied = %v, want [%s]", res.Unsatisfied, c.addr)
	}

	if res.Signatures != 2 {
		t.Errorf("signatures = %d, want 2", res.Signatures)
	}

	if len(res.Signed) != 2 {
		t.Errorf("signed = %v, want two entries", res.Signed)
	}
}

func TestMultiVerifyEmptyAddressesIsNoop(t *testing.T) {
	w := newWallet(t)
	e := NewEngine(signature.Wallet{})

	res := e.MultiVerify([]string{w.sign(sha1)}, nil, []string{sha1})
	if res.Status != StatusNoop {
		t.Fatalf("status = %v, want noop", res.Status)
	}

	if res.Satisfied() {
		t.Error("noop result reported as satisfied")
	}

	res = e.MultiVerify(nil, []string{""}, []string{sha1})
	if res.Status != StatusNoop {
		t.Errorf("blank address: status = %v, want noop", res.Status)
	}
}

func TestMultiVerifyNoMessages(t *testing.T) {
	w := newWallet(t)
	e := NewEngine(signature.Wallet{})

	res := e.MultiVerify([]string{w.sign(sha1)}, []string{w.addr}, nil)
	if res.Status != StatusUnsatisfied {
		t.Fatalf("status = %v, want unsatisfied", res.Status)
	}
}

func TestMultiVerifyStopsCheckingSatisfiedAddress(t *testing.T) {
	sig := strings.Repeat("ab", 64)
	v := &countingVerifier{accept: map[string]bool{"erd1a|" + sha1 + "|" + sig: true}}
	e := NewEngine(v)

	bodies := []string{sig, sig, sig}
	res := e.MultiVerify(bodies, []string{"erd1a", "erd1a"}, []string{sha1, sha2})
	if !res.Satisfied() {
		t.Fatalf("status = %v", res.Status)
	}

	if v.calls != 1 {
		t.Errorf("verifier called %d times, want 1", v.calls)
	}
}

func TestMultiVerifyInvalidSignatures(t *testing.T) {
	owner, intruder := newWallet(t), newWallet(t)
	e := NewEngine(signature.Wallet{})

	res := e.MultiVerify([]string{intruder.sign(sha1)}, []string{owner.addr}, []string{sha1})
	if res.Status != StatusUnsatisfied {
		t.Fatalf("status = %v, want unsatisfied", res.Status)
	}

	if res.Signatures != 1 {
		t.Errorf("signatures = %d, want 1", res.Signatures)
	}
}
