package classify

import (
	"errors"
	"reflect"
	"testing"

	"AssetWarden/internal/asset"
)

func TestPath(t *testing.T) {
	tests := []struct {
		path string
		want Match
		ok   bool
	}{
		{"identities/acme/info.json", Match{asset.Mainnet, asset.Identity, "acme"}, true},
		{"identities/acme/logo.png", Match{asset.Mainnet, asset.Identity, "acme"}, true},
		{"testnet/identities/acme/info.json", Match{asset.Testnet, asset.Identity, "acme"}, true},
		{"devnet/accounts/erd1abc.json", Match{asset.Devnet, asset.Account, "erd1abc"}, true},
		{"accounts/erd1abc.json", Match{asset.Mainnet, asset.Account, "erd1abc"}, true},
		{"tokens/WEGLD-bd4d79/info.json", Match{asset.Mainnet, asset.Token, "WEGLD-bd4d79"}, true},
		{"testnet/tokens/MEX-455c57/logo.svg", Match{asset.Testnet, asset.Token, "MEX-455c57"}, true},
		{"accounts/erd1abc.png", Match{}, false},
		{"accounts/nested/erd1abc.json", Match{}, false},
		{"README.md", Match{}, false},
		{"mirror/identities/acme/info.json", Match{}, false},
		{"identities/acme", Match{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Path(tt.path)
			if ok != tt.ok {
				t.Fatalf("Path(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}

			if got != tt.want {
				t.Errorf("Path(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassifySingleIdentity(t *testing.T) {
	for _, network := range asset.Networks {
		t.Run(string(network), func(t *testing.T) {
			prefix := network.PathPrefix()
			paths := []string{
				prefix + "identities/acme/info.json",
				prefix + "identities/acme/logo.png",
				"README.md",
			}

			got, err := Classify(paths)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}

			want := &asset.Change{Network: network, Kind: asset.Identity, ID: "acme"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Classify = %+v, want %+v", got, want)
			}
		})
	}
}

func TestClassifyAccountAndToken(t *testing.T) {
	got, err := Classify([]string{"accounts/erd1xyz.json"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if got.Kind != asset.Account || got.ID != "erd1xyz" {
		t.Errorf("Classify = %+v, want account erd1xyz", got)
	}

	got, err = Classify([]string{"devnet/tokens/ABC-123456/info.json", "devnet/tokens/ABC-123456/logo.png"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	want := &asset.Change{Network: asset.Devnet, Kind: asset.Token, ID: "ABC-123456"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Classify = %+v, want %+v", got, want)
	}
}

func TestClassifyNothingRelevant(t *testing.T) {
	got, err := Classify([]string{"README.md", ".github/workflows/ci.yml"})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if got != nil {
		t.Errorf("Classify = %+v, want nil", got)
	}

	got, err = Classify(nil)
	if err != nil || got != nil {
		t.Errorf("Classify(nil) = %+v, %v; want nil, nil", got, err)
	}
}

func TestClassifyAmbiguous(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		assets   bool
		networks bool
	}{
		{
			name:   "two identities",
			paths:  []string{"identities/acme/info.json", "identities/other/info.json"},
			assets: true,
		},
		{
			name:   "identity and account",
			paths:  []string{"identities/acme/info.json", "accounts/erd1xyz.json"},
			assets: true,
		},
		{
			name:   "same id different kinds",
			paths:  []string{"identities/ABC/info.json", "tokens/ABC/info.json"},
			assets: true,
		},
		{
			name:     "same identity two networks",
			paths:    []string{"identities/acme/info.json", "testnet/identities/acme/info.json"},
			assets:   false,
			networks: true,
		},
		{
			name:     "two identities two networks",
			paths:    []string{"identities/acme/info.json", "devnet/identities/other/info.json"},
			assets:   true,
			networks: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.paths)
			if err == nil {
				t.Fatalf("Classify = %+v, want error", got)
			}

			if errors.Is(err, ErrMultipleAssets) != tt.assets {
				t.Errorf("ErrMultipleAssets = %v, want %v (err: %v)", errors.Is(err, ErrMultipleAssets), tt.assets, err)
			}

			if errors.Is(err, ErrMultipleNetworks) != tt.networks {
				t.Errorf("ErrMultipleNetworks = %v, want %v (err: %v)", errors.Is(err, ErrMultipleNetworks), tt.networks, err)
			}
		})
	}
}

func TestClassifyAllCounts(t *testing.T) {
	s := ClassifyAll([]string{
		"identities/acme/info.json",
		"identities/acme/logo.png",
		"identities/beta/info.json",
		"testnet/tokens/T-1/info.json",
	})

	if got := s.ByKind[asset.Identity]; !reflect.DeepEqual(got, []string{"acme", "beta"}) {
		t.Errorf("identities = %v", got)
	}

	if got := s.ByKind[asset.Token]; !reflect.DeepEqual(got, []string{"T-1"}) {
		t.Errorf("tokens = %v", got)
	}

	if s.Assets() != 3 {
		t.Errorf("Assets() = %d, want 3", s.Assets())
	}

	if !reflect.DeepEqual(s.Networks, []asset.Network{asset.Mainnet, asset.Testnet}) {
		t.Errorf("networks = %v", s.Networks)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	paths := []string{"identities/acme/logo.png", "identities/acme/info.json"}

	first, err := Classify(paths)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := Classify(paths)
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}

		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: %+v != %+v", i, again, first)
		}
	}
}
