// Package frontmatterops stamps content fingerprints into markdown
// frontmatter.
package frontmatterops

import (
	"errors"
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/assemble/internal/frontmatter"
)

const fingerprintHashKeyLastmod = "lastmod"

// ComputeFingerprint hashes fields and body. The fingerprint and lastmod
// fields are excluded, fields are serialized as LF YAML and a single
// trailing newline is trimmed before hashing.
func ComputeFingerprint(fields map[string]any, body []byte) (string, error) {
	if fields == nil {
		return "", errors.New("fields map is nil")
	}

	fieldsForHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField || k == fingerprintHashKeyLastmod {
			continue
		}
		fieldsForHash[k] = v
	}

	frontmatterForHash := ""
	if len(fieldsForHash) > 0 {
		serialized, err := frontmatter.MarshalYAML(fieldsForHash)
		if err != nil {
			return "", err
		}
		frontmatterForHash = trimSingleTrailingNewline(string(serialized))
	}

	return mdfp.CalculateFingerprintFromParts(frontmatterForHash, string(body)), nil
}

// Stamp upserts the fingerprint of a frontmatter-bearing document. When the
// fingerprint changes, lastmod is set to now (UTC, YYYY-MM-DD). Documents
// without frontmatter are returned unchanged.
func Stamp(content []byte, now time.Time) (out []byte, changed bool, err error) {
	doc, err := frontmatter.Parse(content)
	if err != nil {
		return nil, false, err
	}
	if !doc.Had {
		return content, false, nil
	}

	oldFP, _ := doc.Data[mdfp.FingerprintField].(string)
	fingerprint, err := ComputeFingerprint(doc.Data, doc.Body)
	if err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(oldFP) == fingerprint {
		return content, false, nil
	}

	doc.Data[mdfp.FingerprintField] = fingerprint
	doc.Data[fingerprintHashKeyLastmod] = now.UTC().Format("2006-01-02")
	out, err = doc.Bytes()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func trimSingleTrailingNewline(s string) string {
	if before, ok := strings.CutSuffix(s, "\r\n"); ok {
		return before
	}
	if before, ok := strings.CutSuffix(s, "\n"); ok {
		return before
	}
	return s
}
