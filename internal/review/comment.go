package review

import (
	"fmt"
	"strings"

	"AssetWarden/internal/asset"
	"AssetWarden/internal/owners"
)

const (
	multipleAssetsComment   = "Only one asset must be edited at a time"
	multipleNetworksComment = "Only one network must be edited at a time"
)

// adminComment acknowledges the admin signature over sha.
func adminComment(sha string) string {
	return fmt.Sprintf("Signature OK. Verified that the commit hash `%s` was signed using the admin wallet address", sha)
}

// approvedComment lists every owner with the commit it signed.
func approvedComment(set owners.OwnerSet, signed map[string]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Signature OK. Verified that the commit hash was signed using the wallet %s:", plural(len(set)))

	for _, o := range set {
		fmt.Fprintf(&b, "\n`%s` signed `%s`", o, signed[o])
	}

	return b.String()
}

// missingComment asks the unsatisfied owners to sign head.
func missingComment(head string, unsatisfied []string) string {
	return signatureRequest(head, unsatisfied)
}

// invalidComment reports that the signatures found did not verify.
func invalidComment(head string, unsatisfied []string) string {
	return "The provided signature is invalid. " + signatureRequest(head, unsatisfied)
}

func signatureRequest(head string, addrs []string) string {
	quoted := make([]string, len(addrs))
	for i, a := range addrs {
		quoted[i] = "`" + a + "`"
	}

	return fmt.Sprintf("Please provide a signature for the latest commit sha: `%s` which must be signed with the owner wallet %s: \n%s",
		head, plural(len(addrs)), strings.Join(quoted, "\n"))
}

// noOwnersComment explains that nobody can authorize the change.
func noOwnersComment(change asset.Change) string {
	return fmt.Sprintf("Could not identify the owner of %s %s on %s. Make sure the owners listed in the asset are valid wallet addresses.",
		change.Kind, "`"+change.ID+"`", change.Network)
}

// brandedComment explains a provider branding conflict.
func brandedComment(change asset.Change, err error) string {
	return fmt.Sprintf("Identity `%s` cannot be claimed by its owner: %v", change.ID, err)
}

func plural(n int) string {
	if n > 1 {
		return "addresses"
	}

	return "address"
}
