package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"greenbridge/ai"
	"greenbridge/models"
	"greenbridge/utils"
)

const systemPrompt = `You are an expert assistant for GreenBridge, a rice trading platform in India
connecting farmers and buyers. Use ONLY the live market data provided for prices.
Give specific, practical advice in plain language suitable for farmers and traders,
reply in the language of the question, and mention confidence when forecasting.`

// recentListingsInPrompt caps the listings included in an upstream prompt.
const recentListingsInPrompt = 5

// MarketView is the market data a chat reply can draw on.
type MarketView struct {
	Snapshot map[string]*models.MarketStat
	Listings []*models.Listing
}

// Reply is the assistant's answer to one message.
type Reply struct {
	Text   string `json:"response"`
	Intent Intent `json:"intent"`
	Source string `json:"source"`
}

// Assistant answers chat messages, preferring the generative backend and
// falling back to templated answers built from live market numbers.
type Assistant struct {
	generator ai.Generator
	retry     *utils.RetryConfig
	predictor *Predictor
	logger    *utils.Logger
	now       func() time.Time
}

// NewAssistant creates an Assistant. generator may be nil, in which case
// every reply is deterministic.
func NewAssistant(generator ai.Generator, retry *utils.RetryConfig, predictor *Predictor, logger *utils.Logger) *Assistant {
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &Assistant{
		generator: generator,
		retry:     retry,
		predictor: predictor,
		logger:    logger,
		now:       time.Now,
	}
}

// Respond classifies message and answers it for party. It never fails and
// never returns empty text.
func (a *Assistant) Respond(ctx context.Context, message string, party *models.Party, view MarketView) Reply {
	intent := Classify(message)

	if a.generator != nil {
		text, err := a.generate(ctx, message, party, view)
		if err == nil {
			assistantReplies.WithLabelValues(string(intent), models.SourceUpstream).Inc()
			return Reply{Text: text, Intent: intent, Source: models.SourceUpstream}
		}
		upstreamFailures.Inc()
		a.logger.Warn("[assistant] generative backend unavailable, using fallback: %v", err)
	}

	assistantReplies.WithLabelValues(string(intent), models.SourceFallback).Inc()
	return Reply{Text: a.fallback(intent, message, party, view), Intent: intent, Source: models.SourceFallback}
}

func (a *Assistant) generate(ctx context.Context, message string, party *models.Party, view MarketView) (string, error) {
	prompt := a.buildPrompt(message, party, view)

	var text string
	err := a.retry.Do(ctx, "generate-reply", func(ctx context.Context) error {
		out, err := a.generator.Generate(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return fmt.Errorf("empty reply")
		}
		text = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
	}
	return text, nil
}

type promptListing struct {
	RiceType     string  `json:"rice_type"`
	QuantityKg   float64 `json:"quantity_kg"`
	PricePerKg   float64 `json:"price_per_kg"`
	QualityGrade string  `json:"quality_grade"`
	Organic      bool    `json:"organic"`
}

func (a *Assistant) buildPrompt(message string, party *models.Party, view MarketView) string {
	stats := make([]*models.MarketStat, 0, len(view.Snapshot))
	for _, rt := range orderedTypes(view.Snapshot) {
		stats = append(stats, view.Snapshot[rt])
	}
	statsJSON, _ := json.MarshalIndent(stats, "", "  ")

	recent := make([]promptListing, 0, recentListingsInPrompt)
	for _, l := range newestFirst(view.Listings) {
		if len(recent) == recentListingsInPrompt {
			break
		}
		recent = append(recent, promptListing{l.RiceType, l.QuantityKg, l.PricePerKg, l.QualityGrade, l.Organic})
	}
	listingsJSON, _ := json.MarshalIndent(recent, "", "  ")

	name, userType, location := "Guest", models.PartyBuyer, "Unknown"
	if party != nil {
		name, userType, location = party.FullName, party.UserType, party.Location
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current time: %s IST\n\n", a.now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "User profile:\n- Name: %s\n- Type: %s\n- Location: %s\n\n", name, userType, location)
	fmt.Fprintf(&b, "Live market data (is_synthetic=true means no listings, baseline estimate):\n%s\n\n", statsJSON)
	fmt.Fprintf(&b, "Recent listings:\n%s\n\n", listingsJSON)
	fmt.Fprintf(&b, "User question: %s\n", message)
	return b.String()
}

func (a *Assistant) fallback(intent Intent, message string, party *models.Party, view MarketView) string {
	snapshot := view.Snapshot
	if len(snapshot) == 0 {
		// Never leave the assistant without numbers to quote.
		snapshot = NewSnapshotService(a.logger, nil).Snapshot(nil, view.Listings)
	}

	userType := models.PartyBuyer
	if party != nil && party.UserType != "" {
		userType = party.UserType
	}
	stamp := a.now().Format("15:04")

	switch intent {
	case IntentPrice:
		rt, ok := mentionedRiceType(message)
		if !ok {
			rt = "Basmati"
		}
		stat := snapshot[rt]
		if stat == nil {
			stat = NewSnapshotService(a.logger, nil).Snapshot([]string{rt}, view.Listings)[rt]
		}
		text := fmt.Sprintf("Live market update (%s): %s is currently %s/kg with a %s trend and %s demand. Range: %s-%s. %s",
			stamp, rt, FormatPrice(stat.AveragePrice), stat.Trend, stat.Demand,
			FormatPrice(stat.MinPrice), FormatPrice(stat.MaxPrice), tradingAdvice(stat.Trend, userType))
		if stat.IsSynthetic {
			text += " No active listings right now, so this is a baseline estimate."
		} else {
			text += fmt.Sprintf(" Based on %d active listings.", stat.ListingCount)
		}
		if a.predictor != nil {
			pred, err := a.predictor.PredictPrice(rt, 100, MarketContext{Listings: view.Listings, Stat: stat})
			if err == nil {
				text += fmt.Sprintf(" Expected price for a 100 kg order: %s/kg (confidence %.0f%%).",
					FormatPrice(pred.PredictedPrice), pred.Confidence*100)
			}
		}
		return text

	case IntentMarket:
		types := orderedTypes(snapshot)
		best, worst := snapshot[types[0]], snapshot[types[0]]
		for _, rt := range types[1:] {
			st := snapshot[rt]
			if st.AveragePrice > best.AveragePrice {
				best = st
			}
			if st.AveragePrice < worst.AveragePrice {
				worst = st
			}
		}
		advice := "Consider bulk purchases in stable-priced varieties."
		if isSellerType(userType) {
			advice = "Focus on premium varieties for better margins."
		}
		return fmt.Sprintf("Live market analysis (%s): %s leads at %s/kg (%s), while %s at %s/kg offers value. %s",
			stamp, best.RiceType, FormatPrice(best.AveragePrice), best.Trend,
			worst.RiceType, FormatPrice(worst.AveragePrice), advice)

	case IntentQuality:
		avg := averagePrice(snapshot)
		return fmt.Sprintf("Quality assessment (%s): Grade A commands %s/kg (15%% premium), Grade B trades around %s/kg. "+
			"Key factors: under 5%% broken grains, 12-14%% moisture and minimal impurities. Every listing shows its quality grade.",
			stamp, FormatPrice(avg*1.15), FormatPrice(avg))

	case IntentStorage:
		var stock float64
		for _, st := range snapshot {
			stock += st.TotalQuantityKg
		}
		return fmt.Sprintf("Storage advice (%s): keep rice in a cool, dry, well-ventilated place in airtight containers "+
			"to keep out pests and moisture. Hold temperature below 25°C and moisture below 14%%. "+
			"%s of rice is currently listed on the platform.", stamp, FormatQuantity(stock, UnitTon))

	default:
		var listings, rising int
		for _, st := range snapshot {
			listings += st.ListingCount
			if st.Trend == models.TrendIncreasing {
				rising++
			}
		}
		closing := "Multiple options are available for buyers."
		if isSellerType(userType) {
			closing = "Premium varieties show strong performance."
		}
		return fmt.Sprintf("GreenBridge live market (%s): %d active listings, average price %s/kg, %d varieties trending up. %s "+
			"Ask me about prices, market trends, quality or storage.",
			stamp, listings, FormatPrice(averagePrice(snapshot)), rising, closing)
	}
}

// tradingAdvice returns a short tip for the trend, phrased for buyers or sellers.
func tradingAdvice(trend, userType string) string {
	seller := isSellerType(userType)
	switch trend {
	case models.TrendIncreasing:
		if seller {
			return "Excellent selling opportunity!"
		}
		return "Prices rising, act quickly!"
	case models.TrendDecreasing:
		if seller {
			return "Consider holding inventory temporarily."
		}
		return "Prices falling, wait for better rates."
	case models.TrendVolatile:
		if seller {
			return "Price swings create opportunities."
		}
		return "High volatility, monitor closely."
	default:
		if seller {
			return "Consistent pricing for regular sales."
		}
		return "Stable market, good for planned transactions."
	}
}

func isSellerType(userType string) bool {
	return userType == models.PartySeller || userType == models.PartyBoth
}

func averagePrice(snapshot map[string]*models.MarketStat) float64 {
	if len(snapshot) == 0 {
		return DefaultBasePrice
	}
	var total float64
	for _, st := range snapshot {
		total += st.AveragePrice
	}
	return total / float64(len(snapshot))
}

func newestFirst(listings []*models.Listing) []*models.Listing {
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l != nil && l.IsAvailable {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
