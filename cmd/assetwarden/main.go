package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Exit codes.
const (
	exitOK       = 0 // approved, noop or command succeeded
	exitRejected = 1 // the pull request was rejected
	exitError    = 2 // infrastructure or usage failure
)

// errRejected is returned by commands whose verdict rejected the pull request.
var errRejected = errors.New("pull request rejected")

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string, out io.Writer) error
}

var commands = []command{
	{
		name:  "review",
		short: "Review one pull request and comment the verdict",
		usage: "assetwarden review -repo owner/name -pr N [-dry-run] [-record] [-config file]",
		long: `Fetch the pull request, decide whether the asset change it carries is
signed by the asset owners, and post the verdict as a comment.

-dry-run prints the verdict without commenting. -record stores the fetched
snapshot in the archive (ARCHIVE_PATH).

Exits 0 when approved or nothing needed review, 1 when rejected and 2 on
errors.
`,
		run: runReview,
	},
	{
		name:  "serve",
		short: "Serve the GitHub webhook",
		usage: "assetwarden serve [-addr :8080] [-config file]",
		long: `Listen for GitHub pull_request deliveries on POST /webhook and review
opened, reopened, synchronized and ready-for-review pull requests one at a
time.

Deliveries are validated with WEBHOOK_SECRET when set. GET /health reports
the queue length.
`,
		run: runServe,
	},
	{
		name:  "record",
		short: "Save a pull request snapshot",
		usage: "assetwarden record -repo owner/name -pr N [-out file.json[.zst]] [-config file]",
		long: `Fetch the pull request and store it without reviewing. The snapshot is
written to -out (zstd-compressed when the name ends in .zst) and to the
archive when ARCHIVE_PATH is set.
`,
		run: runRecord,
	},
	{
		name:  "replay",
		short: "Review a recorded snapshot without commenting",
		usage: "assetwarden replay (-in file | -archive dir -repo owner/name -pr N [-head sha]) [-config file]",
		long: `Evaluate a snapshot saved by record or review -record against the live
registry and chain API, and print the verdict. Nothing is posted.

Exit codes follow review.
`,
		run: runReplay,
	},
	{
		name:  "sign",
		short: "Sign a commit hash with a wallet seed",
		usage: "assetwarden sign -seed hex -message sha",
		long: `Print the wallet address of the 32-byte ed25519 seed and the signature
line to paste in the pull request for the given commit hash.
`,
		run: runSign,
	},
	{
		name:  "version",
		short: "Print the version",
		usage: "assetwarden version",
		long:  "Print the build version.\n",
		run:   runVersion,
	},
}

func main() {
	os.Exit(exitCode(dispatch(os.Args[1:], os.Stdout), os.Stderr))
}

// exitCode maps a command result to the process exit status.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errRejected):
		return exitRejected
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "assetwarden - signature gate for registry asset pull requests\n\n")
	fmt.Fprintf(w, "Usage:\n  assetwarden <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'assetwarden help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "assetwarden: unknown command %q\n\nRun 'assetwarden help' for usage.\n", name)
}

func dispatch(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(out)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(out, args[1])
		} else {
			printUsage(out)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:], out)
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'assetwarden help' for usage.", args[0])
}
