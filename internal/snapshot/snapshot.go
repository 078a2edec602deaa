package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"AssetWarden/internal/asset"
)

const (
	// version is the snapshot encoding version.
	version = 1

	// compressedExt marks zstd-compressed snapshot files.
	compressedExt = ".zst"
)

// PullRequest holds the pull request metadata a review needs.
type PullRequest struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Draft   bool   `json:"draft,omitempty"`
	Locked  bool   `json:"locked,omitempty"`
	Body    string `json:"body"`
	HTMLURL string `json:"htmlUrl,omitempty"`
	BaseSHA string `json:"baseSha"`
	HeadSHA string `json:"headSha"`
}

// Snapshot is everything fetched from version control for one review.
// Commits and Comments are ordered oldest first.
type Snapshot struct {
	Version     int          `json:"version"`
	Owner       string       `json:"owner"`
	Repo        string       `json:"repo"`
	PullRequest PullRequest  `json:"pullRequest"`
	Files       []asset.File `json:"files"`
	Commits     []string     `json:"commits"`
	Comments    []string     `json:"comments"`
	FetchedAt   time.Time    `json:"fetchedAt"`
}

// FullName returns owner/repo.
func (s *Snapshot) FullName() string {
	return s.Owner + "/" + s.Repo
}

// Bodies returns the texts scanned for signatures: the description, then comments.
func (s *Snapshot) Bodies() []string {
	bodies := make([]string, 0, len(s.Comments)+1)
	bodies = append(bodies, s.PullRequest.Body)
	bodies = append(bodies, s.Comments...)

	return bodies
}

// Paths returns the changed file paths.
func (s *Snapshot) Paths() []string {
	return asset.Paths(s.Files)
}

// Fingerprint returns a blake3 hash of the snapshot content, ignoring when
// it was fetched. Identical inputs give identical fingerprints.
func (s *Snapshot) Fingerprint() string {
	c := *s
	c.FetchedAt = time.Time{}
	c.Version = version

	data, err := json.Marshal(&c)
	if err != nil {
		// only plain strings, ints and bools are marshalled
		panic(err)
	}

	sum := blake3.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// Encode serializes the snapshot as JSON.
func Encode(s *Snapshot) ([]byte, error) {
	c := *s
	c.Version = version

	data, err := json.MarshalIndent(&c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot:\n%w", err)
	}

	return data, nil
}

// Decode parses a JSON snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot:\n%w", err)
	}

	if s.Version != version {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}

	return &s, nil
}

// Compress compresses snapshot data using zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd-compressed snapshot data.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

// WriteFile stores the snapshot at path, zstd-compressed when path ends in .zst.
func WriteFile(path string, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, compressedExt) {
		if data, err = Compress(data); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s:\n%w", path, err)
	}

	return nil
}

// ReadFile loads a snapshot written by WriteFile.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s:\n%w", path, err)
	}

	if strings.HasSuffix(path, compressedExt) {
		if data, err = Decompress(data); err != nil {
			return nil, fmt.Errorf("decompress snapshot %s:\n%w", path, err)
		}
	}

	return Decode(data)
}
