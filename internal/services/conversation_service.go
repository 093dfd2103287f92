// Package services – ConversationService
//
// This file implements the per-user conversation state machine. Each inbound
// text is parsed against the sender's current State, the matching step runs
// (reading or writing the Inventory, calling the AI generator), and the
// resulting State is stored for the next turn. Keywords always win and
// abandon any flow in progress; a keyword followed by arguments runs the
// flow's step immediately ("add milk, 2030-01-01", "delete 1 3").
//
// How a step's validation failure affects the state is looked up in
// errorPolicy. NotFound, storage and collaborator failures always end the
// flow.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/message"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Generator produces free text for a prompt (recipe flow and idle fallback).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IdleFallback selects what happens to non-keyword text while idle.
type IdleFallback string

const (
	FallbackAI   IdleFallback = "ai"
	FallbackHelp IdleFallback = "help"
)

// Outcome labels the result of a turn for metrics.
const (
	OutcomeOK           = "ok"
	OutcomeValidation   = "validation"
	OutcomeNotFound     = "not_found"
	OutcomeStorage      = "storage"
	OutcomeCollaborator = "collaborator"
)

// Reply is the result of one turn.
type Reply struct {
	Text    string
	Intent  Intent
	State   State
	Outcome string
}

// ConversationService runs the state machine.
type ConversationService struct {
	Inventory *Inventory
	Sessions  SessionStore
	Generator Generator // optional
	Dates     DatePolicy
	Printer   *message.Printer

	IdleFallback IdleFallback
	AITimeout    time.Duration

	locks userLocks
}

// stepResult is what a state step decided.
type stepResult struct {
	text string
	next State
	err  error
}

// Handle processes one turn for userID. It never returns an error: every
// failure becomes reply text, and storage failures are logged.
func (s *ConversationService) Handle(ctx context.Context, userID, text string) Reply {
	unlock := s.locks.Lock(userID)
	defer unlock()

	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	p := s.printer()

	if err := s.Inventory.RegisterUser(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "register user")
		log.Error().Err(err).Str("user_id", userID).Msg("register user failed")
		s.Sessions.Reset(userID)
		reply := Reply{Text: p.Sprintf(msgStorageFailure), Intent: IntentNone, State: Idle{}, Outcome: OutcomeStorage}
		observeTurn(reply)
		return reply
	}

	current := s.Sessions.Get(userID)
	cmd := ParseCommand(text, current)

	intent := cmd.Intent
	if cmd.Kind == CommandInput {
		intent = IntentInput
	}
	span.SetAttributes(
		attribute.String("state.from", current.Name()),
		attribute.String("intent", string(intent)),
	)

	var (
		res  stepResult
		from = current
	)
	switch cmd.Kind {
	case CommandKeyword:
		from, res = s.keyword(ctx, cmd)
	case CommandUnknown:
		intent = IntentFallback
		res = s.idle(ctx, cmd.Args)
	default:
		res = s.step(ctx, current, cmd.Args)
	}

	next, outcome := s.resolve(from, res)
	if outcome == OutcomeStorage {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "storage")
		log.Error().Err(res.err).
			Str("user_id", userID).
			Str("state", from.Name()).
			Msg("turn failed on storage")
		res.text = p.Sprintf(msgStorageFailure)
	}
	s.Sessions.Set(userID, next)
	if c, ok := s.Sessions.(interface{ Len() int }); ok {
		sessionsActive.Set(float64(c.Len()))
	}
	span.SetAttributes(
		attribute.String("state.to", next.Name()),
		attribute.String("outcome", outcome),
	)

	log.Debug().
		Str("user_id", userID).
		Str("intent", string(intent)).
		Str("from", current.Name()).
		Str("to", next.Name()).
		Str("outcome", outcome).
		Msg("turn")

	reply := Reply{Text: res.text, Intent: intent, State: next, Outcome: outcome}
	observeTurn(reply)
	return reply
}

// resolve applies the error policy of the state the step ran in.
func (s *ConversationService) resolve(from State, res stepResult) (State, string) {
	switch {
	case res.err == nil:
		if res.next == nil {
			return Idle{}, OutcomeOK
		}
		return res.next, OutcomeOK
	case errors.Is(res.err, ErrStorage):
		return Idle{}, OutcomeStorage
	case errors.Is(res.err, ErrNotFound):
		return Idle{}, OutcomeNotFound
	case errors.Is(res.err, ErrCollaborator):
		return Idle{}, OutcomeCollaborator
	case errors.Is(res.err, ErrValidation):
		if errorPolicy[from.Name()] == Retry {
			return from, OutcomeValidation
		}
		return Idle{}, OutcomeValidation
	default:
		return Idle{}, OutcomeStorage
	}
}

// keyword starts (or, with arguments, immediately runs) the keyword's flow.
// It returns the state whose step produced the result.
func (s *ConversationService) keyword(ctx context.Context, cmd Command) (State, stepResult) {
	p := s.printer()
	switch cmd.Intent {
	case IntentQuery:
		return Idle{}, s.query(ctx)
	case IntentCancel:
		return Idle{}, stepResult{text: p.Sprintf(msgCancelled), next: Idle{}}
	case IntentHelp:
		return Idle{}, stepResult{text: p.Sprintf(msgHelp), next: Idle{}}
	}

	var (
		target State
		prompt string
	)
	switch cmd.Intent {
	case IntentAdd:
		target, prompt = AwaitingAddInput{}, msgAskAdd
	case IntentDelete:
		target, prompt = AwaitingDeleteIDs{}, msgAskDelete
	case IntentModify:
		target, prompt = AwaitingModifySelection{}, msgAskModify
	case IntentRecipe:
		target, prompt = AwaitingRecipeIngredients{}, msgAskRecipe
	default:
		return Idle{}, stepResult{text: p.Sprintf(msgHelp), next: Idle{}}
	}

	if cmd.Args == "" {
		return target, stepResult{text: p.Sprintf(prompt), next: target}
	}
	return target, s.step(ctx, target, cmd.Args)
}

// step feeds free-form input to the current state.
func (s *ConversationService) step(ctx context.Context, st State, input string) stepResult {
	switch st := st.(type) {
	case AwaitingAddInput:
		return s.addInput(ctx, input)
	case AwaitingAddDate:
		return s.addDate(ctx, st, input)
	case AwaitingDeleteIDs:
		return s.deleteIDs(ctx, input)
	case AwaitingModifySelection:
		return s.modifySelection(ctx, input)
	case AwaitingModifyField:
		return s.modifyField(st, input)
	case AwaitingModifyValue:
		return s.modifyValue(ctx, st, input)
	case AwaitingRecipeIngredients:
		return s.recipe(ctx, input)
	default:
		return s.idle(ctx, input)
	}
}

func (s *ConversationService) idle(ctx context.Context, text string) stepResult {
	p := s.printer()
	if s.IdleFallback == FallbackHelp || s.Generator == nil {
		return stepResult{text: p.Sprintf(msgHelp), next: Idle{}}
	}
	return s.generate(ctx, text)
}

func (s *ConversationService) query(ctx context.Context) stepResult {
	p := s.printer()
	items, err := s.Inventory.List(ctx)
	if err != nil {
		return stepResult{err: err}
	}
	if len(items) == 0 {
		return stepResult{text: p.Sprintf(msgEmpty), next: Idle{}}
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, p.Sprintf(msgListHeader))
	for _, in := range items {
		lines = append(lines, p.Sprintf(msgListLine, in.ID, in.Name, in.ExpirationDate))
	}
	return stepResult{text: strings.Join(lines, "\n"), next: Idle{}}
}

func (s *ConversationService) addInput(ctx context.Context, input string) stepResult {
	p := s.printer()
	entries := ParseAddEntries(input)
	if len(entries) == 0 {
		return stepResult{text: p.Sprintf(msgAskAdd), err: invalid("entries", input, ReasonEmpty)}
	}
	// A lone name asks for its date on the next turn.
	if len(entries) == 1 && entries[0].Date == "" && entries[0].Name != "" {
		name := entries[0].Name
		return stepResult{text: p.Sprintf(msgAskAddDate, name), next: AwaitingAddDate{Item: name}}
	}

	var added, failed []string
	for _, e := range entries {
		if e.Name == "" || e.Date == "" {
			failed = append(failed, p.Sprintf(msgAddFailedLine, e.Raw, reasonText(p, ReasonFormat)))
			continue
		}
		validate := s.Dates.Validate
		if len(entries) > 1 {
			validate = s.Dates.ValidateBulk
		}
		date, err := validate(e.Date)
		if err != nil {
			failed = append(failed, p.Sprintf(msgAddFailedLine, e.Raw, reasonText(p, reasonOf(err))))
			continue
		}
		in, err := s.Inventory.Add(ctx, e.Name, date)
		if errors.Is(err, ErrValidation) {
			failed = append(failed, p.Sprintf(msgAddFailedLine, e.Raw, reasonText(p, reasonOf(err))))
			continue
		}
		if err != nil {
			return stepResult{err: err}
		}
		added = append(added, p.Sprintf(msgListLine, in.ID, in.Name, in.ExpirationDate))
	}

	var b strings.Builder
	if len(added) > 0 {
		b.WriteString(p.Sprintf(msgAdded))
		for _, l := range added {
			b.WriteString("\n" + l)
		}
	} else {
		b.WriteString(p.Sprintf(msgNoneAdded))
	}
	if len(failed) > 0 {
		b.WriteString("\n" + p.Sprintf(msgAddFailed))
		for _, l := range failed {
			b.WriteString("\n" + l)
		}
	}
	return stepResult{text: b.String(), next: Idle{}}
}

func (s *ConversationService) addDate(ctx context.Context, st AwaitingAddDate, input string) stepResult {
	p := s.printer()
	date, err := s.Dates.Validate(input)
	if err != nil {
		return stepResult{text: p.Sprintf(msgInvalidDateRetry, input, reasonText(p, reasonOf(err))), err: err}
	}
	in, err := s.Inventory.Add(ctx, st.Item, date)
	if err != nil {
		return stepResult{err: err}
	}
	return stepResult{
		text: p.Sprintf(msgAdded) + "\n" + p.Sprintf(msgListLine, in.ID, in.Name, in.ExpirationDate),
		next: Idle{},
	}
}

func (s *ConversationService) deleteIDs(ctx context.Context, input string) stepResult {
	p := s.printer()
	ids, err := ParseIDs(input)
	if err != nil {
		return stepResult{text: p.Sprintf(msgBadDeleteIDs, valueOf(err, input)), err: err}
	}
	if _, err := s.Inventory.Delete(ctx, ids); err != nil {
		return stepResult{err: err}
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return stepResult{text: p.Sprintf(msgDeleted, strings.Join(parts, ", ")), next: Idle{}}
}

func (s *ConversationService) modifySelection(ctx context.Context, input string) stepResult {
	p := s.printer()
	id, err := ParseID(input)
	if err != nil {
		return stepResult{text: p.Sprintf(msgBadModifyID, valueOf(err, input)), err: err}
	}
	in, err := s.Inventory.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return stepResult{text: p.Sprintf(msgNotFound, id), err: err}
	}
	if err != nil {
		return stepResult{err: err}
	}
	return stepResult{text: p.Sprintf(msgAskField, in.ID, in.Name), next: AwaitingModifyField{ID: id}}
}

func (s *ConversationService) modifyField(st AwaitingModifyField, input string) stepResult {
	p := s.printer()
	f, err := ParseField(input)
	if err != nil {
		return stepResult{text: p.Sprintf(msgBadField, valueOf(err, input)), err: err}
	}
	prompt := msgAskNewName
	if f == FieldDate {
		prompt = msgAskNewDate
	}
	return stepResult{text: p.Sprintf(prompt), next: AwaitingModifyValue{ID: st.ID, Field: f}}
}

func (s *ConversationService) modifyValue(ctx context.Context, st AwaitingModifyValue, input string) stepResult {
	p := s.printer()
	var name, date *string
	switch st.Field {
	case FieldDate:
		d, err := s.Dates.Validate(input)
		if err != nil {
			return stepResult{text: p.Sprintf(msgInvalidDateRetry, input, reasonText(p, reasonOf(err))), err: err}
		}
		date = &d
	default:
		n := strings.TrimSpace(input)
		if n == "" {
			return stepResult{text: p.Sprintf(msgEmptyName), err: invalid("name", input, ReasonEmpty)}
		}
		name = &n
	}

	ok, err := s.Inventory.Update(ctx, st.ID, name, date)
	if err != nil {
		return stepResult{err: err}
	}
	if !ok {
		return stepResult{text: p.Sprintf(msgNotFound, st.ID), err: ErrNotFound}
	}
	return stepResult{text: p.Sprintf(msgUpdated, st.ID), next: Idle{}}
}

func (s *ConversationService) recipe(ctx context.Context, input string) stepResult {
	return s.generate(ctx, RecipePrompt+input)
}

// generate makes the single AI call of a turn. Failures become inline text.
func (s *ConversationService) generate(ctx context.Context, prompt string) stepResult {
	p := s.printer()
	if s.Generator == nil {
		err := collaboratorErr("generate", errors.New("generator not configured"))
		return stepResult{text: p.Sprintf(msgAIError, "generator not configured"), err: err}
	}
	if s.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AITimeout)
		defer cancel()
	}
	out, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("generator failed")
		return stepResult{text: p.Sprintf(msgAIError, err.Error()), err: collaboratorErr("generate", err)}
	}
	return stepResult{text: out, next: Idle{}}
}

func (s *ConversationService) printer() *message.Printer {
	if s.Printer == nil {
		return NewPrinter("en")
	}
	return s.Printer
}

func reasonOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ReasonFormat
}

func valueOf(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return strconv.Quote(ve.Value)
	}
	return strconv.Quote(fallback)
}
