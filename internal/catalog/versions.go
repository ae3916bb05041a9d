package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// parsedVersion is a decomposed version string. ok is false for tokens that
// do not look like a version at all (including the "latest" sentinel).
type parsedVersion struct {
	major, minor, patch int
	pre                 string
	ok                  bool
}

func parseVersion(s string) parsedVersion {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	s = strings.TrimPrefix(s, "V")

	core, pre, _ := strings.Cut(s, "-")
	parts := strings.Split(core, ".")
	if len(parts) == 0 || parts[0] == "" {
		return parsedVersion{}
	}

	nums := [3]int{}
	for i := 0; i < 3 && i < len(parts); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return parsedVersion{}
		}
		nums[i] = n
	}

	return parsedVersion{major: nums[0], minor: nums[1], patch: nums[2], pre: pre, ok: true}
}

// CompareVersions orders two version strings by precedence: major, minor,
// patch numerically; at equal core a release sorts above any prerelease;
// prerelease suffixes compare lexicographically. Tokens that do not parse
// (the "latest" sentinel among them) rank above everything.
//
// Returns <0 if a has lower precedence than b, 0 if equal, >0 otherwise.
func CompareVersions(a, b string) int {
	pa, pb := parseVersion(a), parseVersion(b)

	switch {
	case !pa.ok && !pb.ok:
		return strings.Compare(a, b)
	case !pa.ok:
		return 1
	case !pb.ok:
		return -1
	}

	if pa.major != pb.major {
		return pa.major - pb.major
	}
	if pa.minor != pb.minor {
		return pa.minor - pb.minor
	}
	if pa.patch != pb.patch {
		return pa.patch - pb.patch
	}

	switch {
	case pa.pre == "" && pb.pre == "":
		return 0
	case pa.pre == "":
		return 1
	case pb.pre == "":
		return -1
	}
	return strings.Compare(pa.pre, pb.pre)
}

// SortVersionsDesc sorts version strings in place, highest precedence first.
func SortVersionsDesc(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) > 0
	})
}
