package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"AssetWarden/internal/address"
	"AssetWarden/internal/archive"
	"AssetWarden/internal/bot"
	"AssetWarden/internal/review"
	"AssetWarden/internal/signature"
	"AssetWarden/internal/snapshot"
	"AssetWarden/internal/vcs"
	"AssetWarden/internal/webhook"
)

// newFlagSet creates a flag set that reports errors instead of exiting.
func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// target validates -repo and -pr.
func target(repo string, number int) (bot.Job, error) {
	owner, name, err := vcs.SplitRepo(repo)
	if err != nil {
		return bot.Job{}, err
	}

	if number <= 0 {
		return bot.Job{}, fmt.Errorf("-pr must be a positive pull request number")
	}

	return bot.Job{Owner: owner, Repo: name, Number: number}, nil
}

// report prints v as JSON. A rejected verdict yields errRejected.
func report(out io.Writer, v *review.Verdict) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("print verdict:\n%w", err)
	}

	if v.Outcome == review.Rejected {
		return errRejected
	}

	return nil
}

// ---------------------------------------------------------------------------
// review
// ---------------------------------------------------------------------------

func runReview(args []string, out io.Writer) error {
	fs := newFlagSet("review", out)

	var common commonFlags
	common.register(fs)

	repo := fs.String("repo", "", "Repository as owner/name")
	number := fs.Int("pr", 0, "Pull request number")
	dryRun := fs.Bool("dry-run", false, "Print the verdict without commenting")
	record := fs.Bool("record", false, "Store the fetched snapshot in the archive")

	if err := fs.Parse(args); err != nil {
		return err
	}

	job, err := target(*repo, *number)
	if err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	if *record && cfg.ArchivePath == "" {
		return errors.New("-record needs archive_path or ARCHIVE_PATH")
	}

	a, err := newApp(cfg, *record)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	v, err := a.bot(*dryRun).Review(ctx, job)
	if err != nil {
		return err
	}

	return report(out, v)
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func runServe(args []string, out io.Writer) error {
	fs := newFlagSet("serve", out)

	var common commonFlags
	common.register(fs)

	addr := fs.String("addr", "", "Listen address (default listen_addr)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	srv := webhook.New(cfg.ListenAddr, cfg.WebhookSecret, a.bot(false), cfg.QueueSize)

	return srv.Run(ctx)
}

// ---------------------------------------------------------------------------
// record
// ---------------------------------------------------------------------------

func runRecord(args []string, out io.Writer) error {
	fs := newFlagSet("record", out)

	var common commonFlags
	common.register(fs)

	repo := fs.String("repo", "", "Repository as owner/name")
	number := fs.Int("pr", 0, "Pull request number")
	outPath := fs.String("out", "", "Snapshot file, zstd-compressed when ending in .zst")

	if err := fs.Parse(args); err != nil {
		return err
	}

	job, err := target(*repo, *number)
	if err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	if *outPath == "" && cfg.ArchivePath == "" {
		return errors.New("record needs -out or an archive path")
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	snap, err := a.github.Snapshot(ctx, job.Owner, job.Repo, job.Number)
	if err != nil {
		return err
	}

	if *outPath != "" {
		if err := snapshot.WriteFile(*outPath, snap); err != nil {
			return err
		}
	}

	if a.archive != nil {
		if err := a.archive.Put(snap); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "recorded %s at %s (%s)\n", job, snap.PullRequest.HeadSHA, snap.Fingerprint())

	return nil
}

// ---------------------------------------------------------------------------
// replay
// ---------------------------------------------------------------------------

func runReplay(args []string, out io.Writer) error {
	fs := newFlagSet("replay", out)

	var common commonFlags
	common.register(fs)

	in := fs.String("in", "", "Snapshot file written by record")
	dir := fs.String("archive", "", "Archive directory (default archive_path)")
	repo := fs.String("repo", "", "Repository as owner/name")
	number := fs.Int("pr", 0, "Pull request number")
	head := fs.String("head", "", "Head commit to replay (default latest recorded)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}

	if *dir != "" {
		cfg.ArchivePath = *dir
	}

	var snap *snapshot.Snapshot

	if *in != "" {
		snap, err = snapshot.ReadFile(*in)
		if err != nil {
			return err
		}
	} else {
		snap, err = fromArchive(cfg.ArchivePath, *repo, *number, *head)
		if err != nil {
			return err
		}
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	v, err := a.bot(true).Replay(ctx, snap)
	if err != nil {
		return err
	}

	return report(out, v)
}

// fromArchive loads the snapshot of a pull request at head, or its latest one.
func fromArchive(path, repo string, number int, head string) (*snapshot.Snapshot, error) {
	if path == "" {
		return nil, errors.New("replay needs -in or an archive path")
	}

	job, err := target(repo, number)
	if err != nil {
		return nil, err
	}

	arc, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer arc.Close()

	if head != "" {
		return arc.Get(job.Owner, job.Repo, job.Number, head)
	}

	return arc.Latest(job.Owner, job.Repo, job.Number)
}

// ---------------------------------------------------------------------------
// sign
// ---------------------------------------------------------------------------

func runSign(args []string, out io.Writer) error {
	fs := newFlagSet("sign", out)

	seedHex := fs.String("seed", "", "Hex-encoded 32-byte ed25519 seed")
	message := fs.String("message", "", "Commit hash to sign")

	if err := fs.Parse(args); err != nil {
		return err
	}

	seed, err := hex.DecodeString(strings.TrimSpace(*seedHex))
	if err != nil || len(seed) != ed25519.SeedSize {
		return fmt.Errorf("-seed must be %d hex-encoded bytes", ed25519.SeedSize)
	}

	if *message == "" {
		return errors.New("-message is required")
	}

	priv := ed25519.NewKeyFromSeed(seed)

	addr, err := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "address:   %s\n", addr)
	fmt.Fprintf(out, "signature: %s\n", hex.EncodeToString(signature.Sign(priv, []byte(*message))))

	return nil
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func runVersion(_ []string, out io.Writer) error {
	fmt.Fprintf(out, "assetwarden %s\n", version)
	return nil
}
