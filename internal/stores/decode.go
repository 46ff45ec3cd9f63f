package stores

import (
	"cmp"
	"log/slog"
	"slices"

	"newsboard/internal/models"
	"newsboard/internal/realtime"
	"newsboard/internal/utils"
)

// decodeChildren decodes every child of snap, skipping malformed ones. The
// child key becomes the item id.
func decodeChildren[T any](snap realtime.Snapshot, logger *slog.Logger, setID func(*T, string)) []T {
	out := make([]T, 0, snap.Len())
	for _, c := range snap.Children {
		var v T
		if err := c.Decode(&v); err != nil {
			logger.Warn("Skipping malformed document", "key", c.Key, "error", err)
			continue
		}
		setID(&v, c.Key)
		out = append(out, v)
	}
	return out
}

func decodePosts(snap realtime.Snapshot, logger *slog.Logger) []models.Post {
	return decodeChildren(snap, logger, func(p *models.Post, key string) { p.ID = key })
}

func decodeComments(snap realtime.Snapshot, logger *slog.Logger) []models.Comment {
	return decodeChildren(snap, logger, func(c *models.Comment, key string) { c.ID = key })
}

func renderPost(p *models.Post) {
	p.BodyHTML = utils.RenderMarkdown(p.Body)
}

func renderComments(comments []models.Comment) {
	for i := range comments {
		comments[i].BodyHTML = utils.RenderMarkdown(comments[i].Body)
	}
}

// byTime sorts by timestamp. Ties keep key order.
func byTime[T any](items []T, at func(T) int64, newestFirst bool) {
	slices.SortStableFunc(items, func(a, b T) int {
		if newestFirst {
			return cmp.Compare(at(b), at(a))
		}
		return cmp.Compare(at(a), at(b))
	})
}

func postTime(p models.Post) int64       { return p.Time }
func commentTime(c models.Comment) int64 { return c.Time }
