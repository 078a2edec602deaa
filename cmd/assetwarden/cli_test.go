package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"strings"
	"testing"

	"AssetWarden/internal/review"
	"AssetWarden/internal/signature"
)

func TestHelpContainsAllCommands(t *testing.T) {
	var sb strings.Builder
	printUsage(&sb)

	for _, cmd := range commands {
		if !strings.Contains(sb.String(), cmd.name) {
			t.Errorf("help output missing command %q", cmd.name)
		}
		if !strings.Contains(sb.String(), cmd.short) {
			t.Errorf("help output missing short description %q", cmd.short)
		}
	}
}

func TestCommandHelp(t *testing.T) {
	var sb strings.Builder
	printCommandHelp(&sb, "review")

	if !strings.HasPrefix(sb.String(), "Usage: assetwarden review") {
		t.Errorf("unexpected review help: %q", sb.String())
	}

	sb.Reset()
	printCommandHelp(&sb, "nope")

	if !strings.Contains(sb.String(), `unknown command "nope"`) {
		t.Errorf("unexpected help for unknown command: %q", sb.String())
	}
}

func TestDispatchUnknown(t *testing.T) {
	var sb strings.Builder

	err := dispatch([]string{"frobnicate"}, &sb)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}

	if err := dispatch(nil, &sb); err != nil {
		t.Errorf("no arguments should print usage, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	var stderr strings.Builder

	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{flag.ErrHelp, exitOK},
		{errRejected, exitRejected},
		{errors.New("github down"), exitError},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err, &stderr); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	if !strings.Contains(stderr.String(), "error: github down") {
		t.Errorf("infrastructure error not printed: %q", stderr.String())
	}
}

func TestVersion(t *testing.T) {
	var sb strings.Builder

	if err := dispatch([]string{"version"}, &sb); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	if sb.String() != "assetwarden dev\n" {
		t.Errorf("unexpected version output: %q", sb.String())
	}
}

func TestSign(t *testing.T) {
	var sb strings.Builder

	seed := strings.Repeat("01", 32)
	message := "3333333333333333333333333333333333333333"

	if err := dispatch([]string{"sign", "-seed", seed, "-message", message}, &sb); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	var addr, sig string
	for _, line := range strings.Split(strings.TrimSpace(sb.String()), "\n") {
		key, value, _ := strings.Cut(line, ":")
		switch key {
		case "address":
			addr = strings.TrimSpace(value)
		case "signature":
			sig = strings.TrimSpace(value)
		}
	}

	raw, err := hex.DecodeString(sig)
	if err != nil {
		t.Fatalf("signature is not hex: %q", sig)
	}

	if !(signature.Wallet{}).Verify(addr, []byte(message), raw) {
		t.Errorf("printed signature does not verify for %s", addr)
	}
}

func TestSignRejectsBadSeed(t *testing.T) {
	var sb strings.Builder

	for _, args := range [][]string{
		{"sign", "-seed", "abcd", "-message", "x"},
		{"sign", "-seed", "zz", "-message", "x"},
		{"sign", "-seed", strings.Repeat("01", 32)},
	} {
		if err := dispatch(args, &sb); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}

func TestTarget(t *testing.T) {
	job, err := target("multiversx/mx-assets", 12)
	if err != nil {
		t.Fatalf("target failed: %v", err)
	}

	if job.String() != "multiversx/mx-assets#12" {
		t.Errorf("job = %s", job)
	}

	if _, err := target("multiversx/mx-assets", 0); err == nil {
		t.Error("expected error for missing pull request number")
	}

	if _, err := target("mx-assets", 12); err == nil {
		t.Error("expected error for repository without owner")
	}
}

func TestReport(t *testing.T) {
	var sb strings.Builder

	if err := report(&sb, &review.Verdict{Outcome: review.Approved, Reason: review.ReasonOwners}); err != nil {
		t.Errorf("approved verdict returned %v", err)
	}

	if !strings.Contains(sb.String(), `"outcome": "approved"`) {
		t.Errorf("verdict not printed: %q", sb.String())
	}

	if err := report(&sb, &review.Verdict{Outcome: review.Rejected}); !errors.Is(err, errRejected) {
		t.Errorf("rejected verdict returned %v, want errRejected", err)
	}
}
