package asset

import "fmt"

// Network is a MultiversX network the registry holds records for.
type Network string

const (
	Mainnet Network = "mainnet"
	Devnet  Network = "devnet"
	Testnet Network = "testnet"
)

// Networks lists every known network.
var Networks = []Network{Mainnet, Devnet, Testnet}

// PathPrefix returns the registry directory prefix for the network.
// Mainnet records live at the repository root.
func (n Network) PathPrefix() string {
	switch n {
	case Devnet:
		return "devnet/"
	case Testnet:
		return "testnet/"
	default:
		return ""
	}
}

// ParseNetwork converts a network name to a Network.
func ParseNetwork(s string) (Network, error) {
	for _, n := range Networks {
		if string(n) == s {
			return n, nil
		}
	}

	return "", fmt.Errorf("unknown network %q", s)
}

// Kind is the type of registry record being changed.
type Kind string

const (
	Identity Kind = "identity"
	Account  Kind = "account"
	Token    Kind = "token"
)

// Change identifies the single asset touched by a pull request.
type Change struct {
	Network Network `json:"network"` // Network is where the asset lives
	Kind    Kind    `json:"kind"`    // Kind is the record type
	ID      string  `json:"id"`      // ID is the identity slug, account address or token ticker
}

// String renders the change as network/kind/id.
func (c Change) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Network, c.Kind, c.ID)
}

// File is a file changed by a pull request.
type File struct {
	Path   string `json:"path"`             // Path is the repository-relative file name
	RawURL string `json:"rawUrl"`           // RawURL serves the file content at the PR head
	Status string `json:"status,omitempty"` // Status is added, modified, removed or renamed
}

// Paths returns the paths of the given files in order.
func Paths(files []File) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	return paths
}
