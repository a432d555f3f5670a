package engine

import "github.com/natterhub/natter/internal/config"

// ChannelRouter scores candidate channels by configured bonus and priority
// weights. Lower priority values rank higher; unconfigured channels get
// bonus 1.0 and priority 0.
type ChannelRouter struct {
	cfg func() config.RoutingConfig
}

// NewChannelRouter creates a router over the given weight source.
func NewChannelRouter(cfg func() config.RoutingConfig) *ChannelRouter {
	return &ChannelRouter{cfg: cfg}
}

func (r *ChannelRouter) bonus(channelID string) float64 {
	if v, ok := r.cfg().Bonuses.Values[channelID]; ok {
		return v
	}
	return 1.0
}

func (r *ChannelRouter) priority(channelID string) int {
	if v, ok := r.cfg().Priorities.Values[channelID]; ok {
		return int(v)
	}
	return 0
}

// Score returns bonus/(1+priority) for the channel.
func (r *ChannelRouter) Score(channelID string) float64 {
	return r.bonus(channelID) / float64(1+r.priority(channelID))
}

// PickBestChannel returns the highest-scoring candidate. Ties break first by
// higher bonus, then by lexicographically smaller channel id, keeping the
// result deterministic. An empty candidate list returns ok=false.
func (r *ChannelRouter) PickBestChannel(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	bestScore := r.Score(best)
	bestBonus := r.bonus(best)

	for _, c := range candidates[1:] {
		score := r.Score(c)
		switch {
		case score > bestScore:
		case score == bestScore && r.bonus(c) > bestBonus:
		case score == bestScore && r.bonus(c) == bestBonus && c < best:
		default:
			continue
		}
		best, bestScore, bestBonus = c, score, r.bonus(c)
	}
	return best, true
}
