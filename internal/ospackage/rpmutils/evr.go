package rpmutils

import (
	"strings"
)

// EVR is an epoch:version-release triple. Any field may be empty.
type EVR struct {
	Epoch   string `json:"epoch,omitempty"`
	Version string `json:"version"`
	Release string `json:"release,omitempty"`
}

// SplitEVR breaks a version string into epoch, version and release.
//
//	"1:2.3.4-5" -> ("1", "2.3.4", "5")
//	"2.3.4-5"   -> ("", "2.3.4", "5")
//	"2.3.4"     -> ("", "2.3.4", "")
//
// The epoch ends at the first ':' and the release starts after the last '-'.
func SplitEVR(s string) EVR {
	var evr EVR
	if s == "" {
		return evr
	}

	if epoch, rest, found := strings.Cut(s, ":"); found {
		evr.Epoch = epoch
		s = rest
	}

	if i := strings.LastIndex(s, "-"); i >= 0 {
		evr.Version = s[:i]
		evr.Release = s[i+1:]
	} else {
		evr.Version = s
	}
	return evr
}

// String renders the triple back into the [epoch:]version[-release] form.
func (e EVR) String() string {
	var b strings.Builder
	if e.Epoch != "" {
		b.WriteString(e.Epoch)
		b.WriteByte(':')
	}
	b.WriteString(e.Version)
	if e.Release != "" {
		b.WriteByte('-')
		b.WriteString(e.Release)
	}
	return b.String()
}

// CompareEVR orders two triples epoch first, then version, then release.
// An empty epoch compares equal to "0".
func CompareEVR(a, b EVR) int {
	if rc := Vercmp(epochOrZero(a.Epoch), epochOrZero(b.Epoch)); rc != 0 {
		return rc
	}
	if rc := Vercmp(a.Version, b.Version); rc != 0 {
		return rc
	}
	return Vercmp(a.Release, b.Release)
}

func epochOrZero(epoch string) string {
	if epoch == "" {
		return "0"
	}
	return epoch
}

// CompareVersions splits both strings with SplitEVR and compares the triples.
func CompareVersions(a, b string) int {
	return CompareEVR(SplitEVR(a), SplitEVR(b))
}

// CompareRequirement reports whether provided satisfies "op required".
// Without an operator or a required version there is no constraint and any
// provided version is accepted. Unknown operators never match.
func CompareRequirement(op Operator, required, provided string) bool {
	if op == OpNone || required == "" {
		return true
	}

	// result is required compared to provided
	result := CompareVersions(required, provided)

	switch op {
	case OpEQ:
		return result == 0
	case OpGE:
		return result <= 0
	case OpGT:
		return result < 0
	case OpLE:
		return result >= 0
	case OpLT:
		return result > 0
	default:
		return false
	}
}

// Vercmp compares two version fragments with rpm's segment algorithm and
// returns -1, 0 or 1.
//
// Each string is split into runs of ASCII digits and runs of ASCII letters;
// every other byte separates segments and is otherwise ignored. Digit runs
// compare numerically and beat letter runs. '~' sorts before anything,
// including the end of the string, and '^' sorts after the end of the string
// but before any further segment.
func Vercmp(a, b string) int {
	if a == b {
		return 0
	}

	one, two := a, b
	for len(one) > 0 || len(two) > 0 {
		one = strings.TrimLeftFunc(one, isSeparator)
		two = strings.TrimLeftFunc(two, isSeparator)

		if hasPrefixByte(one, '~') || hasPrefixByte(two, '~') {
			if !hasPrefixByte(one, '~') {
				return 1
			}
			if !hasPrefixByte(two, '~') {
				return -1
			}
			one, two = one[1:], two[1:]
			continue
		}

		if hasPrefixByte(one, '^') || hasPrefixByte(two, '^') {
			if one == "" {
				return -1
			}
			if two == "" {
				return 1
			}
			if !hasPrefixByte(one, '^') {
				return 1
			}
			if !hasPrefixByte(two, '^') {
				return -1
			}
			one, two = one[1:], two[1:]
			continue
		}

		if one == "" || two == "" {
			break
		}

		var segOne, segTwo string
		numeric := isDigit(one[0])
		if numeric {
			segOne, one = cutRun(one, isDigit)
			segTwo, two = cutRun(two, isDigit)
		} else {
			segOne, one = cutRun(one, isAlpha)
			segTwo, two = cutRun(two, isAlpha)
		}

		// segments of different kinds: numbers are newer than letters
		if segTwo == "" {
			if numeric {
				return 1
			}
			return -1
		}

		if numeric {
			segOne = strings.TrimLeft(segOne, "0")
			segTwo = strings.TrimLeft(segTwo, "0")
			if len(segOne) != len(segTwo) {
				if len(segOne) > len(segTwo) {
					return 1
				}
				return -1
			}
		}

		if rc := strings.Compare(segOne, segTwo); rc != 0 {
			return rc
		}
	}

	if one == "" && two == "" {
		return 0
	}
	if one == "" {
		return -1
	}
	return 1
}

func cutRun(s string, class func(byte) bool) (run, rest string) {
	i := 0
	for i < len(s) && class(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func hasPrefixByte(s string, c byte) bool {
	return len(s) > 0 && s[0] == c
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isSeparator works on runes for TrimLeftFunc; every non-ASCII rune is a separator.
func isSeparator(r rune) bool {
	if r > 0x7f {
		return true
	}
	c := byte(r)
	return !isDigit(c) && !isAlpha(c) && c != '~' && c != '^'
}
