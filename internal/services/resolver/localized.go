package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/equitylens/internal/interfaces"
	"github.com/ternarybob/equitylens/internal/services/llm"
)

// LocalizedNameResolver supplies the Traditional Chinese display name for non-domestic listings.
type LocalizedNameResolver struct {
	generator interfaces.TextGenerator
	domestic  map[string]bool
	logger    arbor.ILogger
}

// NewLocalizedNameResolver creates a resolver. Listings on domesticExchanges keep their
// English name and never trigger a generation call.
func NewLocalizedNameResolver(generator interfaces.TextGenerator, domesticExchanges []string, logger arbor.ILogger) *LocalizedNameResolver {
	domestic := make(map[string]bool, len(domesticExchanges))
	for _, exchange := range domesticExchanges {
		domestic[normalizeExchange(exchange)] = true
	}
	return &LocalizedNameResolver{
		generator: generator,
		domestic:  domestic,
		logger:    logger,
	}
}

// IsDomestic reports whether exchange skips localization
func (r *LocalizedNameResolver) IsDomestic(exchange string) bool {
	return r.domestic[normalizeExchange(exchange)]
}

// Resolve returns the localized short name. The result may be placeholder text
// (llm.IsPlaceholder) when generation failed; that is a soft failure.
func (r *LocalizedNameResolver) Resolve(ctx context.Context, englishName, ticker, exchange string) string {
	if r.IsDomestic(exchange) {
		r.logger.Debug().
			Str("ticker", ticker).
			Str("exchange", exchange).
			Msg("Domestic listing, using English name")
		return englishName
	}

	r.logger.Info().
		Str("ticker", ticker).
		Str("exchange", exchange).
		Msg("Requesting localized name")

	text, err := r.generator.Generate(ctx, localizedNamePrompt(englishName, ticker, exchange), interfaces.GenerateOptions{Search: false})
	if err != nil {
		return llm.ErrorText(err)
	}
	return strings.TrimSpace(text)
}

func localizedNamePrompt(englishName, ticker, exchange string) string {
	return fmt.Sprintf("公司：%s (%s)，交易所：%s。\n"+
		"請只回覆這家公司的官方繁體中文名稱，不要任何解釋。不要包含股票代碼或交易所名稱, 不要有限公司等字樣，直接回覆核心名稱即可。",
		englishName, ticker, exchange)
}
