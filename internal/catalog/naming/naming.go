// Package naming derives a semantic identity from free-form generated-image
// names such as "char_fant_01_dalle3_1".
//
// The names come from several generation scripts and follow no grammar; the
// heuristic degrades to defaults instead of failing.
package naming

import (
	"path"
	"strconv"
	"strings"
)

const Delimiter = "_"

// Parsed is the identity derived from an asset name.
type Parsed struct {
	GroupID   string
	Ordinal   int
	SourceTag string
}

var mediaExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
}

// BaseName returns the trailing path segment of a remote object id.
func BaseName(remoteID string) string {
	remoteID = strings.TrimRight(remoteID, "/")
	if i := strings.LastIndex(remoteID, "/"); i >= 0 {
		return remoteID[i+1:]
	}
	return remoteID
}

// StripMediaExtension drops a known image extension; other dots are kept.
func StripMediaExtension(name string) string {
	ext := path.Ext(name)
	if mediaExtensions[strings.ToLower(ext)] {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

// Parse splits name on Delimiter and looks for sourceTag among the tokens.
//
//  1. tag at index i>0 followed by a numeric token: group=tokens[:i], ordinal=tokens[i+1]
//  2. else the last numeric token at index j>0: group=tokens[:j], ordinal=tokens[j]
//  3. else group=name, ordinal=1
//
// When the tag appears more than once the last occurrence wins. The returned
// SourceTag is the hint itself for any non-empty name.
func Parse(name, sourceTag string) Parsed {
	name = StripMediaExtension(strings.TrimSpace(name))
	if name == "" {
		return Parsed{GroupID: name, Ordinal: 1}
	}
	out := Parsed{GroupID: name, Ordinal: 1, SourceTag: sourceTag}

	tokens := strings.Split(name, Delimiter)

	if sourceTag != "" {
		for i := len(tokens) - 1; i > 0; i-- {
			if !strings.EqualFold(tokens[i], sourceTag) {
				continue
			}
			if i+1 < len(tokens) {
				if n, ok := ordinal(tokens[i+1]); ok {
					out.GroupID = strings.Join(tokens[:i], Delimiter)
					out.Ordinal = n
					return out
				}
			}
			break
		}
	}

	for j := len(tokens) - 1; j > 0; j-- {
		if n, ok := ordinal(tokens[j]); ok {
			out.GroupID = strings.Join(tokens[:j], Delimiter)
			out.Ordinal = n
			return out
		}
	}
	return out
}

func ordinal(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}
