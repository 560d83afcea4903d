// Package analyzer groups hashed records by key, derives a consensus digest
// for each group and measures how far members drift from it.
package analyzer

import (
	"cmp"
	"slices"

	"github.com/bimmerbailey/laxa/internal/config"
	"github.com/bimmerbailey/laxa/internal/fuzzy"
	"github.com/bimmerbailey/laxa/internal/histogram"
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/bimmerbailey/laxa/internal/linehash"
)

// Member is one hashed record and its distance to a reference digest.
type Member struct {
	Record   config.Record `json:"record"`
	Hash     string        `json:"hash"`
	Distance int           `json:"distance"`
}

// GroupResult summarizes the records sharing one key.
type GroupResult struct {
	Key          string   `json:"key"`
	Count        int      `json:"count"`
	Skipped      int      `json:"skipped"`
	Distinct     int      `json:"distinct"`
	Percent      float64  `json:"percent"`
	Consensus    string   `json:"consensus,omitempty"`
	MeanDistance float64  `json:"mean_distance"`
	MaxDistance  int      `json:"max_distance"`
	Farthest     *Member  `json:"farthest,omitempty"`
	Members      []Member `json:"-"`
}

// Outliers returns the members farther than threshold from the consensus,
// farthest first.
func (g GroupResult) Outliers(threshold int) []Member {
	var out []Member
	for _, m := range g.Members {
		if m.Distance > threshold {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Member) int {
		return cmp.Compare(b.Distance, a.Distance)
	})
	return out
}

// Match is a record ranked against a probe digest.
type Match = Member

// Analyzer aggregates line hashes produced with one primitive.
type Analyzer struct {
	primitive fuzzy.Primitive
}

// New creates a new Analyzer.
func New(p fuzzy.Primitive) *Analyzer {
	return &Analyzer{primitive: p}
}

type group struct {
	key     string
	agg     *histogram.Aggregator
	index   *linehash.Index
	members []ingest.Result
	skipped int
}

// Group builds one aggregate per record key and returns the top N groups by
// member count. Groups with equal counts keep the order their key was first
// seen in. A topN of zero or less returns every group.
func (a *Analyzer) Group(results []ingest.Result, topN int) []GroupResult {
	if len(results) == 0 {
		return nil
	}

	groups := make(map[string]*group)
	var order []*group
	hashed := 0

	for _, r := range results {
		g, ok := groups[r.Record.Key]
		if !ok {
			g = a.newGroup(r.Record.Key)
			groups[r.Record.Key] = g
			order = append(order, g)
		}
		if g.add(r) {
			hashed++
		}
	}

	out := make([]GroupResult, 0, len(order))
	for _, g := range order {
		out = append(out, g.result(hashed))
	}

	// Sort by count descending
	slices.SortStableFunc(out, func(x, y GroupResult) int {
		return cmp.Compare(y.Count, x.Count)
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// GroupAll aggregates every record into a single group regardless of key.
func (a *Analyzer) GroupAll(results []ingest.Result) GroupResult {
	g := a.newGroup("")
	hashed := 0
	for _, r := range results {
		if g.add(r) {
			hashed++
		}
	}
	return g.result(hashed)
}

func (a *Analyzer) newGroup(key string) *group {
	return &group{
		key:   key,
		agg:   histogram.New(a.primitive),
		index: linehash.NewIndex(),
	}
}

func (g *group) add(r ingest.Result) bool {
	if r.Hash == nil {
		g.skipped++
		return false
	}
	g.agg.Add(r.Hash.Digest())
	g.index.Add(r.Hash)
	g.members = append(g.members, r)
	return true
}

func (g *group) result(total int) GroupResult {
	res := GroupResult{
		Key:      g.key,
		Count:    len(g.members),
		Skipped:  g.skipped,
		Distinct: g.index.Len(),
	}
	if res.Count == 0 {
		return res
	}

	if total > 0 {
		res.Percent = float64(res.Count) * 100 / float64(total)
	}

	consensus := g.agg.Consensus()
	res.Consensus = fuzzy.String(consensus)

	sum := 0
	res.Members = make([]Member, len(g.members))
	for i, r := range g.members {
		m := Member{
			Record:   r.Record,
			Hash:     r.Hash.String(),
			Distance: r.Hash.Compare(consensus),
		}
		res.Members[i] = m
		sum += m.Distance
		if res.Farthest == nil || m.Distance > res.Farthest.Distance {
			res.Farthest = &res.Members[i]
		}
	}
	res.MeanDistance = float64(sum) / float64(res.Count)
	res.MaxDistance = res.Farthest.Distance

	return res
}

// Rank orders hashed records by distance to probe, closest first. Equal
// distances fall back to PartialCompare. Records without a hash are left
// out. A topN of zero or less returns every match.
func (a *Analyzer) Rank(results []ingest.Result, probe *linehash.LineHash, topN int) []Match {
	type ranked struct {
		match Match
		hash  *linehash.LineHash
	}

	var rs []ranked
	for _, r := range results {
		if r.Hash == nil {
			continue
		}
		rs = append(rs, ranked{
			match: Match{
				Record:   r.Record,
				Hash:     r.Hash.String(),
				Distance: r.Hash.Compare(probe.Digest()),
			},
			hash: r.Hash,
		})
	}

	slices.SortStableFunc(rs, func(x, y ranked) int {
		if c := cmp.Compare(x.match.Distance, y.match.Distance); c != 0 {
			return c
		}
		c, _ := x.hash.PartialCompare(y.hash)
		return c
	})

	if topN > 0 && len(rs) > topN {
		rs = rs[:topN]
	}

	out := make([]Match, len(rs))
	for i, r := range rs {
		out[i] = r.match
	}
	return out
}
