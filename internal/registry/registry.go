package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"AssetWarden/internal/asset"
	"AssetWarden/internal/fetch"
)

// DefaultRawURL serves the published registry's master branch.
const DefaultRawURL = "https://raw.githubusercontent.com/multiversx/mx-assets/master"

// infoDocument is the part of an identity info.json the bot reads.
type infoDocument struct {
	Owners []string `json:"owners"`
}

// Source reads identity documents over HTTP.
type Source struct {
	client  *fetch.Client // client performs the requests
	baseURL string        // baseURL is the raw content root without trailing slash
}

// New creates a source reading published documents under baseURL.
func New(client *fetch.Client, baseURL string) *Source {
	if baseURL == "" {
		baseURL = DefaultRawURL
	}

	return &Source{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// InfoURL returns the published info.json location of an identity.
func (s *Source) InfoURL(network asset.Network, id string) string {
	return fmt.Sprintf("%s/%sidentities/%s/info.json", s.baseURL, network.PathPrefix(), url.PathEscape(id))
}

// RecordedOwners returns the owners of the published identity, or nil when
// the identity has never been published.
func (s *Source) RecordedOwners(ctx context.Context, network asset.Network, id string) ([]string, error) {
	return s.owners(ctx, s.InfoURL(network, id))
}

// ProposedOwners returns the owners listed by the document at rawURL.
func (s *Source) ProposedOwners(ctx context.Context, rawURL string) ([]string, error) {
	return s.owners(ctx, rawURL)
}

// owners fetches an info document and returns its owners.
func (s *Source) owners(ctx context.Context, docURL string) ([]string, error) {
	var doc infoDocument

	err := s.client.GetJSON(ctx, docURL, &doc)
	if errors.Is(err, fetch.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return cleanOwners(doc.Owners), nil
}

// cleanOwners trims entries and drops blanks.
func cleanOwners(raw []string) []string {
	owners := make([]string, 0, len(raw))
	for _, o := range raw {
		if o = strings.TrimSpace(o); o != "" {
			owners = append(owners, o)
		}
	}

	return owners
}
