package cmd

import (
	"fmt"
	"os"
	"strings"
)

// parseRepoArg splits an "owner/repo" string and returns owner and repo.
func parseRepoArg(repoArg string) (owner, repo string, err error) {
	parts := strings.SplitN(repoArg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: expected owner/repo, got %q", repoArg)
	}
	return parts[0], parts[1], nil
}

// resolveRepos determines which repos to act on from args and config.
func resolveRepos(args []string, cfgRepos []string) ([]string, error) {
	if len(args) > 0 {
		for _, arg := range args {
			if _, _, err := parseRepoArg(arg); err != nil {
				return nil, err
			}
		}
		return args, nil
	}

	if len(cfgRepos) == 0 {
		return nil, fmt.Errorf("no repos specified and none configured; provide repos as arguments or add them to the config file")
	}

	return cfgRepos, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
