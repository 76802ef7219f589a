package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
	"github.com/voxa-ai/voxa/domain/repositories"
)

const defaultCity = "New York"

// fallbackReply is the in-character line used when the language model
// produces nothing at all.
const fallbackReply = "Even my dark passenger is speechless right now. Give me a moment and ask again."

// intentRule pairs a keyword predicate with its handler. Rules are evaluated
// in declaration order; the first match wins and exactly one branch runs per
// turn.
type intentRule struct {
	name   string
	match  func(lower string) bool
	handle func(ctx context.Context, session *entities.Session, text string, emitter Emitter)
}

// Router classifies finalized transcript turns and produces the reply,
// relaying all textual output through the synthesis relay.
type Router struct {
	llm        repositories.LanguageModel
	weather    repositories.WeatherLookup
	news       repositories.NewsLookup
	relay      *Relay
	llmTimeout time.Duration
	logger     *zap.Logger

	rules []intentRule
}

// NewRouter builds a router with the fixed priority order: weather, news,
// then the language-model default.
func NewRouter(
	llm repositories.LanguageModel,
	weather repositories.WeatherLookup,
	news repositories.NewsLookup,
	relay *Relay,
	llmTimeout time.Duration,
	logger *zap.Logger,
) *Router {
	r := &Router{
		llm:        llm,
		weather:    weather,
		news:       news,
		relay:      relay,
		llmTimeout: llmTimeout,
		logger:     logger,
	}
	r.rules = []intentRule{
		{
			name: "weather",
			match: func(lower string) bool {
				return strings.Contains(lower, "weather") ||
					strings.Contains(lower, "temperature") ||
					strings.Contains(lower, "forecast")
			},
			handle: r.handleWeather,
		},
		{
			name: "news",
			match: func(lower string) bool {
				return strings.Contains(lower, "news") ||
					strings.Contains(lower, "headlines") ||
					strings.Contains(lower, "latest")
			},
			handle: r.handleNews,
		},
	}
	return r
}

// HandleTurn routes one finalized user turn. The user's turn enters the
// history before any branch runs, so history stays consistent even when the
// client disappears mid-reply.
func (r *Router) HandleTurn(ctx context.Context, session *entities.Session, text string, emitter Emitter) {
	session.AppendTurn(entities.RoleUser, text)

	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		if rule.match(lower) {
			r.logger.Info("Routing turn",
				zap.String("sessionID", session.ID),
				zap.String("intent", rule.name))
			rule.handle(ctx, session, text, emitter)
			return
		}
	}

	r.handleDefault(ctx, session, text, emitter)
}

// extractCity pulls a city name from an "in <city>" phrase, stripping a
// trailing question mark or "for ..." clause.
func extractCity(lower string) string {
	idx := strings.Index(lower, " in ")
	if idx < 0 {
		return ""
	}
	city := lower[idx+len(" in "):]
	city, _, _ = strings.Cut(city, "?")
	city, _, _ = strings.Cut(city, " for ")
	return strings.TrimSpace(city)
}

func (r *Router) handleWeather(ctx context.Context, session *entities.Session, text string, emitter Emitter) {
	city := extractCity(strings.ToLower(text))
	if city == "" {
		city = defaultCity
	}

	var reply string
	report, err := r.weather.Current(ctx, session.Credential(entities.CapabilityWeather), city)
	if err != nil {
		reply = fmt.Sprintf("Sorry, I couldn't fetch the weather: %v", err)
		emitter.Emit(Event{Type: EventWeather, Text: reply})
	} else {
		reply = fmt.Sprintf("Current weather in %s, %s: %s. Temperature %g°C.",
			report.Location, report.Country, report.Condition, report.TemperatureC)
		emitter.Emit(Event{Type: EventWeather, Data: report, Text: reply})
	}

	r.relay.RelayText(ctx, session, reply, emitter)
	session.AppendTurn(entities.RoleAssistant, reply)
}

func (r *Router) handleNews(ctx context.Context, session *entities.Session, text string, emitter Emitter) {
	articles, err := r.news.TopHeadlines(ctx, session.Credential(entities.CapabilityNews), "us", "", 5)
	if err != nil {
		r.logger.Warn("News lookup failed", zap.Error(err))
	}

	var reply string
	if len(articles) > 0 {
		lines := make([]string, 0, len(articles))
		for _, a := range articles {
			lines = append(lines, fmt.Sprintf("- %s (%s)", a.Title, a.Source))
		}
		reply = "Here are the top headlines:\n" + strings.Join(lines, "\n")
		emitter.Emit(Event{Type: EventNews, Data: articles, Text: reply})
	} else {
		reply = "I couldn't fetch headlines right now. Check if your News API key is configured."
		emitter.Emit(Event{Type: EventNews, Text: reply})
	}

	r.relay.RelayText(ctx, session, reply, emitter)
	session.AppendTurn(entities.RoleAssistant, reply)
}

// buildPrompt concatenates the bounded history, role-labeled, ending with an
// open assistant turn for the model to complete.
func buildPrompt(session *entities.Session) string {
	var sb strings.Builder
	for _, turn := range session.History() {
		if turn.Role == entities.RoleUser {
			sb.WriteString("User: ")
		} else {
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(turn.Content)
		sb.WriteByte('\n')
	}
	sb.WriteString("Assistant:")
	return sb.String()
}

func (r *Router) handleDefault(ctx context.Context, session *entities.Session, text string, emitter Emitter) {
	prompt := buildPrompt(session)
	apiKey := session.Credential(entities.CapabilityLanguageModel)

	llmCtx, cancel := context.WithTimeout(ctx, r.llmTimeout)
	defer cancel()

	chunks, err := r.llm.CompleteStreaming(llmCtx, apiKey, prompt, session.Persona)
	if err != nil {
		r.logger.Warn("Streaming completion unavailable, falling back",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		r.completeOnce(llmCtx, session, prompt, emitter)
		return
	}

	textChunks := make(chan string, 8)
	var collected strings.Builder
	go func() {
		defer close(textChunks)
		for chunk := range chunks {
			if chunk == "" {
				continue
			}
			collected.WriteString(chunk)
			emitter.Emit(Event{Type: EventLLMChunk, Text: chunk})
			textChunks <- chunk
		}
	}()

	r.relay.Relay(ctx, session, textChunks, emitter)

	// Relay returns only after the chunk channel closed, so the accumulated
	// text is complete here. A stream that failed mid-way still contributed
	// everything it produced; a stream that produced nothing appends nothing.
	full := collected.String()
	session.AppendTurn(entities.RoleAssistant, full)
	emitter.Emit(Event{Type: EventLLMDone, Text: full})
}

// completeOnce is the non-streaming degrade path: one bounded completion
// call, then the in-character fallback line if even that yields nothing.
func (r *Router) completeOnce(ctx context.Context, session *entities.Session, prompt string, emitter Emitter) {
	apiKey := session.Credential(entities.CapabilityLanguageModel)

	reply, err := r.llm.Complete(ctx, apiKey, prompt)
	if err != nil || reply == "" {
		if err != nil {
			r.logger.Error("Completion failed", zap.Error(err))
		}
		reply = fallbackReply
	}

	emitter.Emit(Event{Type: EventLLMResponse, Text: reply})
	r.relay.RelayText(ctx, session, reply, emitter)
	session.AppendTurn(entities.RoleAssistant, reply)
}
