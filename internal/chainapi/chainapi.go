package chainapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"AssetWarden/internal/asset"
	"AssetWarden/internal/fetch"
)

// Default explorer API hosts per network.
const (
	DefaultMainnetURL = "https://api.multiversx.com"
	DefaultDevnetURL  = "https://devnet-api.multiversx.com"
	DefaultTestnetURL = "https://testnet-api.multiversx.com"
)

// DefaultURLs returns the default API host of every network.
func DefaultURLs() map[asset.Network]string {
	return map[asset.Network]string{
		asset.Mainnet: DefaultMainnetURL,
		asset.Devnet:  DefaultDevnetURL,
		asset.Testnet: DefaultTestnetURL,
	}
}

// provider is the part of GET /providers/{address} the bot reads.
type provider struct {
	Identity string `json:"identity"`
}

// Client queries the MultiversX explorer API.
type Client struct {
	client *fetch.Client            // client performs the requests
	urls   map[asset.Network]string // urls maps networks to API hosts
}

// New creates a client. Networks missing from urls use the defaults.
func New(client *fetch.Client, urls map[asset.Network]string) *Client {
	merged := DefaultURLs()
	for n, u := range urls {
		if u != "" {
			merged[n] = strings.TrimRight(u, "/")
		}
	}

	return &Client{client: client, urls: merged}
}

// AccountOwner returns the owner of a contract account.
func (c *Client) AccountOwner(ctx context.Context, network asset.Network, addr string) (string, error) {
	return c.extract(ctx, network, "accounts", addr, "ownerAddress")
}

// ProviderIdentity returns the identity a staking provider is branded with.
func (c *Client) ProviderIdentity(ctx context.Context, network asset.Network, addr string) (string, bool, error) {
	base, err := c.base(network)
	if err != nil {
		return "", false, err
	}

	var p provider

	err = c.client.GetJSON(ctx, base+"/providers/"+url.PathEscape(addr), &p)
	if errors.Is(err, fetch.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get provider %s:\n%w", addr, err)
	}

	if p.Identity == "" {
		return "", false, nil
	}

	return p.Identity, true, nil
}

// TokenOwner returns the current owner of a fungible token.
func (c *Client) TokenOwner(ctx context.Context, network asset.Network, id string) (string, error) {
	return c.extract(ctx, network, "tokens", id, "owner")
}

// CollectionOwner returns the current owner of an NFT/SFT collection.
func (c *Client) CollectionOwner(ctx context.Context, network asset.Network, id string) (string, error) {
	return c.extract(ctx, network, "collections", id, "owner")
}

// extract reads a single string field via the API's ?extract= shortcut.
// The value may come back bare or as a JSON string.
func (c *Client) extract(ctx context.Context, network asset.Network, resource, id, field string) (string, error) {
	base, err := c.base(network)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/%s?extract=%s", base, resource, url.PathEscape(id), url.QueryEscape(field))

	value, err := c.client.GetText(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("get %s of %s %s:\n%w", field, resource, id, err)
	}

	if strings.HasPrefix(value, `"`) {
		if err := json.Unmarshal([]byte(value), &value); err != nil {
			return "", fmt.Errorf("decode %s of %s %s:\n%w", field, resource, id, err)
		}
	}

	if value == "" {
		return "", fmt.Errorf("empty %s for %s %s", field, resource, id)
	}

	return value, nil
}

// base returns the API host of network.
func (c *Client) base(network asset.Network) (string, error) {
	u, ok := c.urls[network]
	if !ok {
		return "", fmt.Errorf("no API configured for network %q", network)
	}

	return u, nil
}
