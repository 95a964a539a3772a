package vcs

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// BranchPrefix starts every branch this service creates.
const BranchPrefix = "ai-agent-"

var branchNamePattern = regexp.MustCompile(`^ai-agent-[0-9a-f]{8}$`)

// NewBranchName returns "ai-agent-" followed by 8 random hex characters.
func NewBranchName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return BranchPrefix + id[:8]
}

// ValidBranchName reports whether name has the form produced by NewBranchName.
func ValidBranchName(name string) bool {
	return branchNamePattern.MatchString(name)
}
