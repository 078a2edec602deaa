package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AssetWarden/internal/asset"
	"AssetWarden/internal/attest"
	"AssetWarden/internal/classify"
	"AssetWarden/internal/logger"
	"AssetWarden/internal/owners"
	"AssetWarden/internal/snapshot"
)

// Outcome is the decision taken on a pull request.
type Outcome string

const (
	// Noop means nothing the bot guards was changed.
	Noop Outcome = "noop"

	// Approved means the required signatures were found.
	Approved Outcome = "approved"

	// Rejected means the change is not authorized.
	Rejected Outcome = "rejected"
)

// Reason explains an outcome.
type Reason string

const (
	ReasonInactive         Reason = "inactive"          // closed, locked or draft
	ReasonNoFiles          Reason = "no-files"          // nothing changed between base and head
	ReasonNoAsset          Reason = "no-asset"          // no registry record changed
	ReasonMultipleAssets   Reason = "multiple-assets"   // more than one asset changed
	ReasonMultipleNetworks Reason = "multiple-networks" // more than one network changed
	ReasonAdmin            Reason = "admin"             // signed by the admin wallet
	ReasonOwners           Reason = "owners"            // signed by every owner
	ReasonNoOwners         Reason = "no-owners"         // no owner could be identified
	ReasonAlreadyBranded   Reason = "already-branded"   // owner is branded with another identity
	ReasonMissingSignature Reason = "missing-signature" // no signature from some owner
	ReasonInvalidSignature Reason = "invalid-signature" // signatures present but none valid for some owner
)

// Verdict is the result of evaluating one pull request snapshot.
type Verdict struct {
	Outcome     Outcome         `json:"outcome"`
	Reason      Reason          `json:"reason"`
	Comment     string          `json:"comment,omitempty"`
	Change      *asset.Change   `json:"change,omitempty"`
	Owners      owners.OwnerSet `json:"owners,omitempty"`
	Unsatisfied []string        `json:"unsatisfied,omitempty"`
	Messages    []string        `json:"messages,omitempty"`
	Fingerprint string          `json:"fingerprint"`
}

// OwnerResolver resolves the addresses entitled to sign for a change.
type OwnerResolver interface {
	Resolve(ctx context.Context, change asset.Change, files []asset.File) (owners.OwnerSet, error)
}

// Reviewer decides whether a pull request is authorized.
type Reviewer struct {
	owners OwnerResolver  // owners resolves who must sign
	engine *attest.Engine // engine scans texts for signatures
	admin  string         // admin may authorize any single-asset change
}

// NewReviewer creates a reviewer. An empty admin disables the override.
func NewReviewer(resolver OwnerResolver, engine *attest.Engine, admin string) *Reviewer {
	return &Reviewer{owners: resolver, engine: engine, admin: admin}
}

// Evaluate classifies the change, applies the admin override, resolves the
// owners and verifies their signatures. User-correctable failures are
// returned as rejected verdicts; errors are infrastructure failures.
func (r *Reviewer) Evaluate(ctx context.Context, snap *snapshot.Snapshot) (*Verdict, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	v := &Verdict{Fingerprint: snap.Fingerprint()}

	if reason, inactive := inactive(snap.PullRequest); inactive {
		log.Info("pull request inactive", "state", snap.PullRequest.State, "reason", reason)
		return v.decide(Noop, ReasonInactive, ""), nil
	}

	if len(snap.Files) == 0 {
		return v.decide(Noop, ReasonNoFiles, ""), nil
	}

	change, err := classify.Classify(snap.Paths())
	if err != nil {
		if !errors.Is(err, classify.ErrMultipleAssets) && !errors.Is(err, classify.ErrMultipleNetworks) {
			return nil, fmt.Errorf("classify changed files:\n%w", err)
		}

		log.Info("ambiguous change set", "error", err)
		return v.ambiguous(err), nil
	}

	if change == nil {
		log.Info("no registry record changed", "files", len(snap.Files))
		return v.decide(Noop, ReasonNoAsset, ""), nil
	}

	v.Change = change
	v.Messages = messages(snap)
	bodies := snap.Bodies()

	log.Info("asset classified", "asset", change.String())

	if r.admin != "" {
		res := r.engine.MultiVerify(bodies, []string{r.admin}, v.Messages)
		if res.Satisfied() {
			log.Info("admin override", "admin", r.admin, "message", res.Signed[r.admin], logger.Timed(start))
			return v.decide(Approved, ReasonAdmin, adminComment(res.Signed[r.admin])), nil
		}
	}

	set, err := r.owners.Resolve(ctx, *change, snap.Files)
	switch {
	case errors.Is(err, owners.ErrAlreadyBranded):
		log.Info("owner already branded", "error", err)
		return v.decide(Rejected, ReasonAlreadyBranded, brandedComment(*change, err)), nil
	case errors.Is(err, owners.ErrNoOwners):
		log.Info("no owners identified", "asset", change.String())
		return v.decide(Rejected, ReasonNoOwners, noOwnersComment(*change)), nil
	case err != nil:
		return nil, fmt.Errorf("resolve owners of %s:\n%w", change, err)
	}

	v.Owners = set
	log.Info("owners resolved", "owners", len(set))

	res := r.engine.MultiVerify(bodies, set, v.Messages)
	if res.Satisfied() {
		log.Info("owners signed", "asset", change.String(), logger.Timed(start))
		return v.decide(Approved, ReasonOwners, approvedComment(set, res.Signed)), nil
	}

	v.Unsatisfied = res.Unsatisfied
	head := v.Messages[len(v.Messages)-1]

	if res.Signatures > 0 {
		log.Info("invalid signatures", "unsatisfied", len(res.Unsatisfied), "signatures", res.Signatures)
		return v.decide(Rejected, ReasonInvalidSignature, invalidComment(head, res.Unsatisfied)), nil
	}

	log.Info("missing signatures", "unsatisfied", len(res.Unsatisfied))

	return v.decide(Rejected, ReasonMissingSignature, missingComment(head, res.Unsatisfied)), nil
}

// decide fills in the outcome fields and returns v.
func (v *Verdict) decide(o Outcome, reason Reason, comment string) *Verdict {
	v.Outcome = o
	v.Reason = reason
	v.Comment = comment
	return v
}

// ambiguous rejects a change set touching several assets or networks.
func (v *Verdict) ambiguous(err error) *Verdict {
	assets := errors.Is(err, classify.ErrMultipleAssets)
	networks := errors.Is(err, classify.ErrMultipleNetworks)

	switch {
	case assets && networks:
		return v.decide(Rejected, ReasonMultipleAssets, multipleAssetsComment+"\n"+multipleNetworksComment)
	case assets:
		return v.decide(Rejected, ReasonMultipleAssets, multipleAssetsComment)
	default:
		return v.decide(Rejected, ReasonMultipleNetworks, multipleNetworksComment)
	}
}

// inactive reports whether the pull request should not be reviewed.
func inactive(pr snapshot.PullRequest) (string, bool) {
	switch {
	case pr.State == "closed":
		return "closed", true
	case pr.Locked || pr.State == "locked":
		return "locked", true
	case pr.Draft || pr.State == "draft":
		return "draft", true
	}

	return "", false
}

// messages returns the commit hashes a signature may cover. The head commit
// stands in when the comparison listed none.
func messages(snap *snapshot.Snapshot) []string {
	if len(snap.Commits) > 0 {
		return snap.Commits
	}

	return []string{snap.PullRequest.HeadSHA}
}
