// Package intent turns recognized speech text into a structured query
// descriptor using keyword tables, with no external NLP service.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

var (
	yearRe  = regexp.MustCompile(`(\d{4})年?`)
	roundRe = regexp.MustCompile(`第?(\d+)轮`)
)

// Parser extracts a domain, an intent and query parameters from free
// text. It is stateless and safe for concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse scores the text against the keyword tables and returns a
// descriptor. Confidence accumulates 0.3 for a recognized domain, 0.3
// for a recognized intent and 0.4 when any parameter was extracted;
// special rules below may raise it further. A text that matches
// nothing comes back with zero confidence and empty fields.
func (p *Parser) Parse(text string) model.QueryDescriptor {
	text = strings.ToLower(strings.TrimSpace(text))

	desc := model.QueryDescriptor{OriginalText: text}

	if domain, ok := bestDomain(text); ok {
		desc.Domain = domain
		desc.Confidence += 0.3
	}
	if in, ok := bestIntent(text); ok {
		desc.Intent = in
		desc.Confidence += 0.3
	}

	// A player mention is a stronger signal than the generic keyword
	// score, so it overrides the intent.
	if desc.Domain == model.DomainBasketball && mentionsPlayer(text) {
		if containsAny(text, statKeywords) {
			desc.Intent = model.IntentPlayerStats
		} else {
			desc.Intent = model.IntentPlayers
		}
		if desc.Confidence < 0.8 {
			desc.Confidence = 0.8
		}
	}

	if desc.Domain == model.DomainFootball && (strings.Contains(text, "射手") || strings.Contains(text, "进球")) {
		desc.Intent = model.IntentTopScorers
		if desc.Confidence < 0.7 {
			desc.Confidence = 0.7
		}
	}

	if desc.Domain == model.DomainMotorsport && strings.Contains(text, "积分榜") {
		if strings.Contains(text, "车队") {
			desc.Intent = model.IntentTeams
			if desc.Confidence < 0.9 {
				desc.Confidence = 0.9
			}
		}
		if strings.Contains(text, "车手") {
			desc.Intent = model.IntentStandings
			if desc.Confidence < 0.9 {
				desc.Confidence = 0.9
			}
		}
	}

	desc.Params = extractParams(text, desc.Domain)
	if !desc.Params.Empty() {
		desc.Confidence += 0.4
	}

	logger.Debug("Parsed query text",
		zap.String("text", text),
		zap.String("domain", string(desc.Domain)),
		zap.String("intent", string(desc.Intent)),
		zap.Float64("confidence", desc.Confidence),
	)
	return desc
}

func bestDomain(text string) (model.Domain, bool) {
	var (
		best  model.Domain
		score int
	)
	for _, entry := range domainKeywords {
		n := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				n++
			}
		}
		if n > score {
			best, score = entry.Domain, n
		}
	}
	return best, score > 0
}

func bestIntent(text string) (model.Intent, bool) {
	var (
		best  model.Intent
		score int
	)
	for _, entry := range intentKeywords {
		n := 0
		for _, kw := range entry.Keywords {
			if strings.Contains(text, kw) {
				n++
			}
		}
		if n > score {
			best, score = entry.Intent, n
		}
	}
	return best, score > 0
}

func mentionsPlayer(text string) bool {
	for _, a := range basketballPlayers {
		if strings.Contains(text, a.CN) {
			return true
		}
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func extractParams(text string, domain model.Domain) model.QueryParams {
	var params model.QueryParams

	if m := yearRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		params.Year = &year
	}

	if domain == model.DomainBasketball {
		for _, a := range basketballPlayers {
			if strings.Contains(text, a.CN) {
				params.Player = a.EN
				break
			}
		}
		for _, a := range basketballTeams {
			if strings.Contains(text, a.CN) {
				params.Team = a.EN
				break
			}
		}
	}

	if domain == model.DomainFootball {
		for _, l := range footballLeagues {
			if strings.Contains(text, l.CN) {
				id := l.ID
				params.LeagueID = &id
				break
			}
		}
	}

	if m := roundRe.FindStringSubmatch(text); m != nil {
		round, _ := strconv.Atoi(m[1])
		params.Round = &round
	}

	return params
}
