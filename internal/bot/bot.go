package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AssetWarden/internal/logger"
	"AssetWarden/internal/review"
	"AssetWarden/internal/snapshot"
)

// PullRequests fetches pull requests and comments on them.
type PullRequests interface {
	Snapshot(ctx context.Context, owner, repo string, number int) (*snapshot.Snapshot, error)
	Comment(ctx context.Context, owner, repo string, number int, body string) error
}

// Evaluator decides a snapshot.
type Evaluator interface {
	Evaluate(ctx context.Context, snap *snapshot.Snapshot) (*review.Verdict, error)
}

// Recorder stores reviewed snapshots.
type Recorder interface {
	Put(s *snapshot.Snapshot) error
}

// Job identifies one pull request review.
type Job struct {
	Owner  string // Owner is the repository owner
	Repo   string // Repo is the repository name
	Number int    // Number is the pull request number
	RunID  string // RunID tags log lines; generated when empty
}

// String renders the job as owner/repo#number.
func (j Job) String() string {
	return fmt.Sprintf("%s/%s#%d", j.Owner, j.Repo, j.Number)
}

// Options tune a Bot.
type Options struct {
	// DryRun evaluates without commenting.
	DryRun bool

	// Recorder, when set, stores every fetched snapshot before evaluation.
	// A failed write is logged and the review goes on.
	Recorder Recorder
}

// Bot fetches, evaluates and answers pull requests.
type Bot struct {
	prs       PullRequests
	evaluator Evaluator
	opts      Options
}

// New creates a bot.
func New(prs PullRequests, evaluator Evaluator, opts Options) *Bot {
	return &Bot{prs: prs, evaluator: evaluator, opts: opts}
}

// Review evaluates the pull request in job and posts the verdict comment.
func (b *Bot) Review(ctx context.Context, job Job) (*review.Verdict, error) {
	start := time.Now()

	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}

	log := logger.FromContext(ctx).With("run", job.RunID, "pr", job.String())
	ctx = logger.NewContext(ctx, log)

	snap, err := b.prs.Snapshot(ctx, job.Owner, job.Repo, job.Number)
	if err != nil {
		return nil, fmt.Errorf("fetch %s:\n%w", job, err)
	}

	if b.opts.Recorder != nil {
		if err := b.opts.Recorder.Put(snap); err != nil {
			log.Warn("failed to record snapshot", "head", snap.PullRequest.HeadSHA, "error", err)
		} else {
			log.Debug("snapshot recorded", "head", snap.PullRequest.HeadSHA)
		}
	}

	v, err := b.evaluator.Evaluate(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s:\n%w", job, err)
	}

	if err := b.answer(ctx, job, v); err != nil {
		return nil, err
	}

	log.Info("review done", "outcome", v.Outcome, "reason", v.Reason, logger.Timed(start))

	return v, nil
}

// Replay evaluates a recorded snapshot. It never comments.
func (b *Bot) Replay(ctx context.Context, snap *snapshot.Snapshot) (*review.Verdict, error) {
	log := logger.FromContext(ctx).With("run", uuid.NewString(), "pr", fmt.Sprintf("%s#%d", snap.FullName(), snap.PullRequest.Number))

	v, err := b.evaluator.Evaluate(logger.NewContext(ctx, log), snap)
	if err != nil {
		return nil, fmt.Errorf("evaluate recorded %s#%d:\n%w", snap.FullName(), snap.PullRequest.Number, err)
	}

	log.Info("replay done", "outcome", v.Outcome, "reason", v.Reason, "fingerprint", v.Fingerprint)

	return v, nil
}

// answer posts the verdict comment unless there is none or this is a dry run.
func (b *Bot) answer(ctx context.Context, job Job, v *review.Verdict) error {
	if v.Comment == "" {
		return nil
	}

	if b.opts.DryRun {
		logger.FromContext(ctx).Info("dry run, not commenting", "comment", v.Comment)
		return nil
	}

	if err := b.prs.Comment(ctx, job.Owner, job.Repo, job.Number, v.Comment); err != nil {
		return fmt.Errorf("answer %s:\n%w", job, err)
	}

	return nil
}
