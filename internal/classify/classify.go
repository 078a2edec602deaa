package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"AssetWarden/internal/asset"
)

var (
	// ErrMultipleAssets is returned when a change set touches more than one asset.
	ErrMultipleAssets = errors.New("multiple assets changed")

	// ErrMultipleNetworks is returned when a change set touches more than one network.
	ErrMultipleNetworks = errors.New("multiple networks changed")
)

// rule matches registry paths of one kind and extracts the asset id.
type rule struct {
	kind    asset.Kind
	pattern *regexp.Regexp // pattern captures the id in group 1
}

// rules are evaluated in declared priority; the first match wins per path.
var rules = []rule{
	{asset.Identity, regexp.MustCompile(`^identities/([^/]+)/`)},
	{asset.Account, regexp.MustCompile(`^accounts/([^/]+)\.json$`)},
	{asset.Token, regexp.MustCompile(`^tokens/([^/]+)/`)},
}

// networkPrefixes maps directory prefixes to networks. No prefix is mainnet.
var networkPrefixes = []struct {
	prefix  string
	network asset.Network
}{
	{"testnet/", asset.Testnet},
	{"devnet/", asset.Devnet},
}

// Match is the classification of a single path.
type Match struct {
	Network asset.Network
	Kind    asset.Kind
	ID      string
}

// Path classifies one path. ok is false when the path is not a registry record.
func Path(p string) (m Match, ok bool) {
	network, rest := splitNetwork(p)

	for _, r := range rules {
		sub := r.pattern.FindStringSubmatch(rest)
		if sub == nil {
			continue
		}

		return Match{Network: network, Kind: r.kind, ID: sub[1]}, true
	}

	return Match{}, false
}

// splitNetwork strips a known network prefix from p.
func splitNetwork(p string) (asset.Network, string) {
	for _, np := range networkPrefixes {
		if rest, ok := strings.CutPrefix(p, np.prefix); ok {
			return np.network, rest
		}
	}

	return asset.Mainnet, p
}

// Summary aggregates the classification of a set of paths.
type Summary struct {
	ByKind   map[asset.Kind][]string // ByKind holds distinct ids per kind in first-seen order
	Networks []asset.Network         // Networks holds distinct networks in first-seen order
}

// Assets returns the number of distinct (kind, id) pairs.
func (s Summary) Assets() int {
	n := 0
	for _, ids := range s.ByKind {
		n += len(ids)
	}

	return n
}

// ClassifyAll classifies every path and collects the distinct signals.
func ClassifyAll(paths []string) Summary {
	s := Summary{ByKind: make(map[asset.Kind][]string)}

	seenIDs := make(map[Match]bool)
	seenNetworks := make(map[asset.Network]bool)

	for _, p := range paths {
		m, ok := Path(p)
		if !ok {
			continue
		}

		if !seenNetworks[m.Network] {
			seenNetworks[m.Network] = true
			s.Networks = append(s.Networks, m.Network)
		}

		key := Match{Kind: m.Kind, ID: m.ID}
		if !seenIDs[key] {
			seenIDs[key] = true
			s.ByKind[m.Kind] = append(s.ByKind[m.Kind], m.ID)
		}
	}

	return s
}

// Classify returns the single asset changed by paths, or nil when no
// registry record was touched. Touching more than one asset or network fails.
func Classify(paths []string) (*asset.Change, error) {
	s := ClassifyAll(paths)

	if s.Assets() == 0 {
		return nil, nil
	}

	var errs []error
	if s.Assets() > 1 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMultipleAssets, describe(s)))
	}

	if len(s.Networks) > 1 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrMultipleNetworks, s.Networks))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, r := range rules {
		if ids := s.ByKind[r.kind]; len(ids) == 1 {
			return &asset.Change{Network: s.Networks[0], Kind: r.kind, ID: ids[0]}, nil
		}
	}

	return nil, fmt.Errorf("unclassified change set: %s", describe(s))
}

// describe lists the assets found, in rule order.
func describe(s Summary) string {
	var parts []string
	for _, r := range rules {
		for _, id := range s.ByKind[r.kind] {
			parts = append(parts, string(r.kind)+" "+id)
		}
	}

	return strings.Join(parts, ", ")
}
