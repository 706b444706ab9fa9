package catalog

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/avatarforge/api/internal/model"
)

// Selector picks templates for a batch according to the requested tier
// ratios, preferring the avatar's niche categories.
type Selector struct {
	templates []model.Template
	rng       *rand.Rand
}

// NewSelector creates a selector over the given catalog. A nil rng gets a
// time-seeded source; tests inject a fixed seed.
func NewSelector(templates []model.Template, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{templates: templates, rng: rng}
}

// NewDefaultSelector creates a selector over the built-in catalog.
func NewDefaultSelector() *Selector {
	return NewSelector(DefaultTemplates, nil)
}

// Select returns exactly count templates split across tiers by ratios.
// Per-tier counts are floor(count*ratio); counts for tiers with no catalog
// entries, plus any rounding shortfall, are padded from tier-1 templates.
func (s *Selector) Select(niche string, count int, ratios model.TierRatios) ([]model.Template, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	pools := map[model.Tier][]model.Template{}
	for _, t := range s.templates {
		pools[t.Tier] = append(pools[t.Tier], t)
	}
	if len(pools[model.TierSafe]) == 0 {
		return nil, fmt.Errorf("catalog has no %s templates", model.TierSafe)
	}

	wanted := map[model.Tier]int{
		model.TierSafe:       int(float64(count) * ratios.Safe),
		model.TierPremium:    int(float64(count) * ratios.Premium),
		model.TierRestricted: int(float64(count) * ratios.Restricted),
	}

	// Tiers with no catalog entries fold into the safe tier.
	for _, tier := range []model.Tier{model.TierPremium, model.TierRestricted} {
		if len(pools[tier]) == 0 {
			wanted[model.TierSafe] += wanted[tier]
			wanted[tier] = 0
		}
	}

	selected := make([]model.Template, 0, count)
	for _, tier := range []model.Tier{model.TierSafe, model.TierPremium, model.TierRestricted} {
		selected = append(selected, s.pickFromTier(pools[tier], niche, wanted[tier])...)
	}

	// Rounding shortfall, plus anything an undersized tier pool could not
	// cover, pads from safe templates. Unused entries go first; reuse is
	// allowed after that so the batch always reaches count.
	safe := pools[model.TierSafe]
	used := make(map[string]bool, len(selected))
	for _, t := range selected {
		used[t.ID] = true
	}
	for _, t := range safe {
		if len(selected) >= count {
			break
		}
		if !used[t.ID] {
			selected = append(selected, t)
		}
	}
	for i := 0; len(selected) < count; i++ {
		selected = append(selected, safe[i%len(safe)])
	}

	return selected[:count], nil
}

// pickFromTier samples up to n templates from the tier pool without
// replacement, niche-matched categories first.
func (s *Selector) pickFromTier(pool []model.Template, niche string, n int) []model.Template {
	if n <= 0 || len(pool) == 0 {
		return nil
	}

	preferred := nicheCategories[niche]
	if preferred == nil {
		preferred = defaultNicheCategories
	}
	rank := map[model.TemplateCategory]int{}
	for i, cat := range preferred {
		rank[cat] = i
	}

	var niched, rest []model.Template
	for _, t := range pool {
		if _, ok := rank[t.Category]; ok {
			niched = append(niched, t)
		} else {
			rest = append(rest, t)
		}
	}

	s.rng.Shuffle(len(niched), func(i, j int) { niched[i], niched[j] = niched[j], niched[i] })
	s.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	ordered := append(niched, rest...)
	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[:n]
}
