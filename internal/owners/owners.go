package owners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AssetWarden/internal/address"
	"AssetWarden/internal/asset"
	"AssetWarden/internal/logger"
)

const (
	// maxIndirection bounds contract-to-controller hops.
	maxIndirection = 4
)

var (
	// ErrNoOwners is returned when no authorized address could be determined.
	ErrNoOwners = errors.New("no owners identified")

	// ErrAlreadyBranded is returned when a candidate owner is a provider
	// already branded with another identity.
	ErrAlreadyBranded = errors.New("provider already branded with another identity")
)

// RegistrySource reads identity documents from the published registry.
type RegistrySource interface {
	// RecordedOwners returns the owners of the published identity. A missing
	// document returns nil owners and no error.
	RecordedOwners(ctx context.Context, network asset.Network, id string) ([]string, error)

	// ProposedOwners returns the owners listed by the document at rawURL.
	ProposedOwners(ctx context.Context, rawURL string) ([]string, error)
}

// ChainDirectory answers ownership questions from the chain explorer API.
type ChainDirectory interface {
	// AccountOwner returns the owner of a contract account.
	AccountOwner(ctx context.Context, network asset.Network, addr string) (string, error)

	// ProviderIdentity returns the identity a staking provider is branded with.
	// found is false when the address is not a provider or has no identity.
	ProviderIdentity(ctx context.Context, network asset.Network, addr string) (identity string, found bool, err error)

	// TokenOwner returns the current owner of a fungible token.
	TokenOwner(ctx context.Context, network asset.Network, id string) (string, error)

	// CollectionOwner returns the current owner of an NFT/SFT collection.
	CollectionOwner(ctx context.Context, network asset.Network, id string) (string, error)
}

// OwnerSet is an ordered list of distinct addresses entitled to sign.
type OwnerSet []string

// Contains reports whether addr is in the set.
func (s OwnerSet) Contains(addr string) bool {
	for _, a := range s {
		if a == addr {
			return true
		}
	}

	return false
}

// add appends addr if it is not already present.
func (s OwnerSet) add(addr string) OwnerSet {
	if addr == "" || s.Contains(addr) {
		return s
	}

	return append(s, addr)
}

// Directory resolves who may authorize a change.
type Directory struct {
	registry RegistrySource
	chain    ChainDirectory
}

// NewDirectory creates a directory over the given collaborators.
func NewDirectory(registry RegistrySource, chain ChainDirectory) *Directory {
	return &Directory{registry: registry, chain: chain}
}

// Resolve returns the addresses entitled to sign for change. files are the
// pull request's changed files, used to find the proposed identity document.
func (d *Directory) Resolve(ctx context.Context, change asset.Change, files []asset.File) (OwnerSet, error) {
	var (
		candidates []string
		err        error
	)

	switch change.Kind {
	case asset.Identity:
		candidates, err = d.identityCandidates(ctx, change, files)
	case asset.Account:
		candidates = []string{change.ID}
	case asset.Token:
		candidates = d.tokenCandidates(ctx, change)
	default:
		return nil, fmt.Errorf("unknown asset kind %q", change.Kind)
	}

	if err != nil {
		return nil, err
	}

	var set OwnerSet
	for _, c := range candidates {
		owner, err := d.resolveCandidate(ctx, change, c)
		if err != nil {
			return nil, err
		}

		set = set.add(owner)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoOwners, change)
	}

	return set, nil
}

// identityCandidates merges recorded and proposed owners: the main owner
// first, then proposed owners that were not already recorded.
func (d *Directory) identityCandidates(ctx context.Context, change asset.Change, files []asset.File) ([]string, error) {
	recorded, err := d.registry.RecordedOwners(ctx, change.Network, change.ID)
	if err != nil {
		return nil, fmt.Errorf("read recorded owners of %s:\n%w", change, err)
	}

	var proposed []string
	if f, ok := infoFile(change, files); ok {
		proposed, err = d.registry.ProposedOwners(ctx, f.RawURL)
		if err != nil {
			logger.FromContext(ctx).Warn("proposed owners unavailable", "asset", change.String(), "file", f.Path, "error", err)
			proposed = nil
		}
	}

	return MergeOwners(recorded, proposed), nil
}

// MergeOwners returns [mainOwner, ...extraOwners] without duplicates.
// mainOwner is the first recorded owner, or the first proposed owner when
// nothing is recorded; extraOwners are proposed owners not in recorded.
func MergeOwners(recorded, proposed []string) []string {
	var merged OwnerSet

	switch {
	case len(recorded) > 0:
		merged = merged.add(recorded[0])
	case len(proposed) > 0:
		merged = merged.add(proposed[0])
	}

	known := make(map[string]bool, len(recorded))
	for _, r := range recorded {
		known[r] = true
	}

	for _, p := range proposed {
		if !known[p] {
			merged = merged.add(p)
		}
	}

	return merged
}

// infoFile finds the changed info.json of the identity in change.
func infoFile(change asset.Change, files []asset.File) (asset.File, bool) {
	want := change.Network.PathPrefix() + "identities/" + change.ID + "/info.json"

	for _, f := range files {
		if f.Path == want && f.Status != "removed" {
			return f, true
		}
	}

	return asset.File{}, false
}

// tokenCandidates reads the live token owner, falling back to the collection.
func (d *Directory) tokenCandidates(ctx context.Context, change asset.Change) []string {
	owner, err := d.chain.TokenOwner(ctx, change.Network, change.ID)
	if err == nil && owner != "" {
		return []string{owner}
	}

	if err != nil {
		logger.FromContext(ctx).Debug("token owner unavailable", "asset", change.String(), "error", err)
	}

	owner, err = d.chain.CollectionOwner(ctx, change.Network, change.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("collection owner unavailable", "asset", change.String(), "error", err)
		return nil
	}

	if owner == "" {
		return nil
	}

	return []string{owner}
}

// resolveCandidate returns the wallet entitled to sign for candidate, or ""
// when none can be determined. Contracts are replaced by their owners.
// Only a branding conflict is returned as an error.
func (d *Directory) resolveCandidate(ctx context.Context, change asset.Change, candidate string) (string, error) {
	current := strings.TrimSpace(candidate)

	for hop := 0; hop <= maxIndirection; hop++ {
		a, err := address.Parse(current)
		if err != nil {
			logger.FromContext(ctx).Warn("dropping malformed owner", "asset", change.String(), "owner", current, "error", err)
			return "", nil
		}

		if !a.IsContract() {
			return a.String(), nil
		}

		if change.Kind == asset.Identity {
			ok, err := d.checkBranding(ctx, change, current)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", nil
			}
		}

		next, err := d.chain.AccountOwner(ctx, change.Network, current)
		if err != nil {
			logger.FromContext(ctx).Warn("contract owner unavailable", "asset", change.String(), "contract", current, "error", err)
			return "", nil
		}

		logger.FromContext(ctx).Debug("contract owner resolved", "contract", current, "owner", next)
		current = strings.TrimSpace(next)
	}

	logger.FromContext(ctx).Warn("contract ownership chain too deep", "asset", change.String(), "candidate", candidate)

	return "", nil
}

// checkBranding fails when addr is a provider branded with another identity.
// ok is false when the lookup failed and the candidate must be dropped.
func (d *Directory) checkBranding(ctx context.Context, change asset.Change, addr string) (ok bool, err error) {
	identity, found, err := d.chain.ProviderIdentity(ctx, change.Network, addr)
	if err != nil {
		logger.FromContext(ctx).Warn("provider lookup failed", "asset", change.String(), "provider", addr, "error", err)
		return false, nil
	}

	if found && identity != "" && identity != change.ID {
		return false, fmt.Errorf("%w: %s is branded as %q", ErrAlreadyBranded, addr, identity)
	}

	return true, nil
}
