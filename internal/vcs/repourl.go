package vcs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidRepoURL is returned when owner and repository cannot be read from a URL.
var ErrInvalidRepoURL = errors.New("invalid repository URL format")

// tokenUser is the username GitHub expects alongside a token in basic auth.
const tokenUser = "x-access-token"

// ParseRepoURL extracts owner and repository name from the first two path
// segments of a repository URL. A trailing ".git" is dropped.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(strings.TrimSpace(repoURL))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRepoURL, StripCredentials(repoURL))
	}

	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidRepoURL, StripCredentials(repoURL))
	}
	return owner, repo, nil
}

// isHTTP reports whether rawURL is an http(s) URL.
func isHTTP(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}

// StripCredentials removes any userinfo from an http(s) URL.
// Other remotes, such as local paths, are returned unchanged.
func StripCredentials(rawURL string) string {
	if !isHTTP(rawURL) {
		return rawURL
	}
	u, _ := url.Parse(rawURL)
	u.User = nil
	return u.String()
}

// AuthURL embeds token into an http(s) URL, replacing existing credentials.
// Other remotes and empty tokens leave the URL credential-free.
func AuthURL(rawURL, token string) string {
	clean := StripCredentials(rawURL)
	if token == "" || !isHTTP(clean) {
		return clean
	}
	u, _ := url.Parse(clean)
	u.User = url.UserPassword(tokenUser, token)
	return u.String()
}
