package organizer

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// CollisionPolicy decides what happens when two documents resolve to the
// same output path.
type CollisionPolicy string

const (
	// CollisionOverwrite lets the later document replace the earlier one.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionRename keeps both, suffixing the later one with _1, _2, ...
	CollisionRename CollisionPolicy = "rename"
	// CollisionReject keeps the earlier document and reports the later one.
	CollisionReject CollisionPolicy = "reject"
)

// ParseCollisionPolicy accepts the policy names case-insensitively. The
// empty string selects CollisionOverwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CollisionOverwrite, nil
	case CollisionOverwrite, CollisionRename, CollisionReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q (want overwrite, rename or reject)", s)
	}
}

// pathSet tracks the output paths written during one run. Keys are case
// folded so NFE.xml and nfe.xml collide on every filesystem; values keep the
// spelling that was written first.
type pathSet map[string]string

func (s pathSet) has(p string) bool {
	_, ok := s[strings.ToLower(p)]
	return ok
}

func (s pathSet) add(p string) {
	k := strings.ToLower(p)
	if _, ok := s[k]; !ok {
		s[k] = p
	}
}

// resolve returns the path to write for rel under policy, or ok=false when
// the document must be rejected. Overwrites reuse the earlier spelling.
func (s pathSet) resolve(rel string, policy CollisionPolicy) (string, bool) {
	existing, taken := s[strings.ToLower(rel)]
	if !taken {
		return rel, true
	}
	switch policy {
	case CollisionReject:
		return "", false
	case CollisionRename:
		dir, file := path.Split(rel)
		ext := path.Ext(file)
		stem := strings.TrimSuffix(file, ext)
		for i := 1; ; i++ {
			candidate := dir + stem + "_" + strconv.Itoa(i) + ext
			if !s.has(candidate) {
				return candidate, true
			}
		}
	default:
		return existing, true
	}
}
