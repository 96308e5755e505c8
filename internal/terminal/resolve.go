package terminal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ResolveName matches typed input against the roster. An exact match wins,
// ignoring case; otherwise the single closest fuzzy match is used.
func ResolveName(input string, names []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("a character name is required")
	}
	for _, n := range names {
		if strings.EqualFold(n, input) {
			return n, nil
		}
	}

	ranks := fuzzy.RankFindFold(input, names)
	if len(ranks) == 0 {
		return "", fmt.Errorf("no character matches %q", input)
	}
	sort.Sort(ranks)
	if len(ranks) > 1 && ranks[0].Distance == ranks[1].Distance {
		matches := make([]string, 0, len(ranks))
		for _, r := range ranks {
			if r.Distance == ranks[0].Distance {
				matches = append(matches, r.Target)
			}
		}
		return "", fmt.Errorf("%q is ambiguous: %s", input, strings.Join(matches, ", "))
	}
	return ranks[0].Target, nil
}
