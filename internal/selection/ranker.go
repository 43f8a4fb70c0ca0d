package selection

import (
	"sort"

	"github.com/wonny/optincome/internal/contracts"
	"github.com/wonny/optincome/pkg/logger"
)

// Ranker keeps the top candidates per (ticker, bucket, strategy)
// ⭐ SSOT: 후보 순위/절단은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{logger: log}
}

type groupKey struct {
	ticker   string
	bucket   contracts.BucketName
	strategy contracts.Strategy
}

// TopN sorts each group by score descending and keeps at most n per group.
// Groups keep their first-seen order; equal scores keep input order.
func (r *Ranker) TopN(cands []contracts.ScreeningCandidate, n int) []contracts.ScreeningCandidate {
	if n <= 0 || len(cands) == 0 {
		return nil
	}

	order := make([]groupKey, 0)
	groups := make(map[groupKey][]contracts.ScreeningCandidate)
	for _, c := range cands {
		k := groupKey{ticker: c.Ticker, bucket: c.Bucket, strategy: c.Strategy}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}

	out := make([]contracts.ScreeningCandidate, 0, len(cands))
	dropped := 0
	for _, k := range order {
		g := groups[k]
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Score > g[j].Score
		})
		if len(g) > n {
			dropped += len(g) - n
			g = g[:n]
		}
		out = append(out, g...)
	}

	r.logger.WithFields(map[string]interface{}{
		"total_input": len(cands),
		"groups":      len(order),
		"kept":        len(out),
		"dropped":     dropped,
	}).Debug("Ranking completed")

	return out
}
