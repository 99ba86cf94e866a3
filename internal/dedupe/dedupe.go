// Package dedupe provides content fingerprinting and in-batch URL
// deduplication for fetched items.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
)

// Fingerprint computes the stable content hash for an item. Two items
// with the same (sourceID, url, title) are the same real-world item.
func Fingerprint(sourceID, url, title string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", sourceID, url, title)))
	return hex.EncodeToString(sum[:])
}

// ByURL collapses a fetch batch by exact URL, keeping the first
// occurrence. Runs before hashing so duplicate URLs inside one batch
// never reach the hash or the storage existence check.
func ByURL(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}
