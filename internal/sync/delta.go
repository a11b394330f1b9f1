// Package sync implements the client side of the manifest-driven delta
// synchronization contract: compute what changed, fetch only that,
// decrypt locally.
package sync

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zkvault/zkvault-server/internal/model"
)

// Delta is the reconciliation plan between a local cache and a server
// manifest.
type Delta struct {
	// ToFetch holds ids whose server copy is newer than the local one,
	// or which the local cache has never seen. Ordered as the manifest
	// is (by id).
	ToFetch []uuid.UUID
	// ToForget holds locally cached ids absent from the manifest,
	// sorted by id.
	ToForget []uuid.UUID
}

// ComputeDelta diffs a local {id -> updatedAt} cache against a server
// manifest. Conflicts resolve last-write-wins by updatedAt: a server
// timestamp strictly newer than the local one wins, anything else keeps
// the local copy.
func ComputeDelta(local map[uuid.UUID]time.Time, manifest []model.ManifestEntry) Delta {
	var delta Delta

	inManifest := make(map[uuid.UUID]struct{}, len(manifest))
	for _, entry := range manifest {
		inManifest[entry.ID] = struct{}{}

		localUpdatedAt, known := local[entry.ID]
		if !known || entry.UpdatedAt.After(localUpdatedAt) {
			delta.ToFetch = append(delta.ToFetch, entry.ID)
		}
	}

	for id := range local {
		if _, ok := inManifest[id]; !ok {
			delta.ToForget = append(delta.ToForget, id)
		}
	}
	sort.Slice(delta.ToForget, func(i, j int) bool {
		return delta.ToForget[i].String() < delta.ToForget[j].String()
	})

	return delta
}
