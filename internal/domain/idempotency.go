package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DeliveryKey derives the idempotency token for a note and its scheduled
// release time. The token is deterministic: the same (note, releaseAt) pair
// always yields the same 64-character lowercase hex digest, including across
// retries and replay cycles, so receiving endpoints can deduplicate repeat
// deliveries. It also serves as the scheduler's per-note work-item key.
func DeliveryKey(noteID string, releaseAt time.Time) string {
	sum := sha256.Sum256([]byte(noteID + ":" + releaseAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}
