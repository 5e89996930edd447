package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NavnathGunjal07/LearnBase-sub000/internal/data/repos"
	types "github.com/NavnathGunjal07/LearnBase-sub000/internal/domain"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/pkg/dbctx"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/platform/logger"
	"github.com/NavnathGunjal07/LearnBase-sub000/internal/wire"
)

const (
	onboardingMaxAttempts  = 5
	onboardingLockDuration = 30 * time.Minute
	minNameLen             = 2
	minFreeTextLen         = 10
)

// OnboardingService walks a new user through the intake steps. The step
// cursor lives on the user row, so the flow survives reconnects; only the
// running transcript is connection-local.
type OnboardingService interface {
	Start(ctx context.Context, st *wire.ConnState, sink wire.Sink) error
	HandleMessage(ctx context.Context, st *wire.ConnState, sink wire.Sink, content string) error
}

type onboardingService struct {
	log      *logger.Logger
	users    repos.UserRepo
	learning LearningService
	now      func() time.Time
}

func NewOnboardingService(log *logger.Logger, users repos.UserRepo, learning LearningService) OnboardingService {
	return &onboardingService{
		log:      log.With("service", "OnboardingService"),
		users:    users,
		learning: learning,
		now:      time.Now,
	}
}

func (ob *onboardingService) Start(ctx context.Context, st *wire.ConnState, sink wire.Sink) error {
	dbc := dbctx.Context{Ctx: ctx}
	user, err := ob.users.GetByID(dbc, st.UserID)
	if err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to load your profile"))
	}

	if user.HasCompletedOnboarding || user.OnboardingStep == types.OnboardingStepComplete {
		st.OnboardingDone = true
		return ob.finish(ctx, st, sink, user.SkillLevel)
	}

	step, err := ob.normalizeStep(dbc, user)
	if err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to start onboarding"))
	}

	prompt := promptForStep(step, user.Name)
	st.OnboardingTranscript = append(st.OnboardingTranscript, wire.Turn{Role: types.MessageRoleAssistant, Content: prompt.Content})
	return sink.Send(prompt)
}

func (ob *onboardingService) HandleMessage(ctx context.Context, st *wire.ConnState, sink wire.Sink, content string) error {
	dbc := dbctx.Context{Ctx: ctx}
	user, err := ob.users.GetByID(dbc, st.UserID)
	if err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to load your profile"))
	}

	if user.HasCompletedOnboarding || user.OnboardingStep == types.OnboardingStepComplete {
		st.OnboardingDone = true
		return nil
	}

	now := ob.now()
	if user.OnboardingLockedUntil != nil {
		if now.Before(*user.OnboardingLockedUntil) {
			remaining := user.OnboardingLockedUntil.Sub(now).Round(time.Minute)
			if remaining < time.Minute {
				remaining = time.Minute
			}
			return sink.Send(wire.NewError(wire.ErrRateLimited,
				fmt.Sprintf("Too many invalid attempts. Please try again in %d minutes.", int(remaining.Minutes()))))
		}
		// Lock expired: clear it before judging this input.
		if err := ob.users.UpdateFields(dbc, user.ID, map[string]interface{}{
			"onboarding_locked_until": nil,
			"onboarding_attempts":     0,
		}); err != nil {
			return sink.Send(wire.NewError(wire.ErrInternal, "Failed to update onboarding state"))
		}
		user.OnboardingLockedUntil = nil
		user.OnboardingAttempts = 0
	}

	if _, err := ob.normalizeStep(dbc, user); err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to update onboarding state"))
	}

	content = strings.TrimSpace(content)
	st.OnboardingTranscript = append(st.OnboardingTranscript, wire.Turn{Role: types.MessageRoleUser, Content: content})

	if reason, ok := validateStepInput(user.OnboardingStep, content); !ok {
		return ob.rejectInput(dbc, st, sink, user, reason)
	}

	next := nextStep(user.OnboardingStep)
	updates := map[string]interface{}{
		"onboarding_step":         next,
		"onboarding_attempts":     0,
		"onboarding_locked_until": nil,
	}
	name := user.Name
	switch user.OnboardingStep {
	case types.OnboardingStepAskName:
		name = content
		updates["name"] = content
	case types.OnboardingStepAskInterests:
		updates["learning_interests"] = content
	case types.OnboardingStepAskGoals:
		updates["goals"] = content
	case types.OnboardingStepAskEducation:
		updates["background"] = content
	}

	skillLevel := user.SkillLevel
	if next == types.OnboardingStepComplete {
		skillLevel = deriveSkillLevel(user.LearningInterests, content)
		updates["skill_level"] = skillLevel
		updates["has_completed_onboarding"] = true
	}

	if err := ob.users.UpdateFields(dbc, user.ID, updates); err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to save your answer"))
	}

	if next == types.OnboardingStepComplete {
		st.OnboardingDone = true
		return ob.finish(ctx, st, sink, skillLevel)
	}

	prompt := promptForStep(next, name)
	st.OnboardingTranscript = append(st.OnboardingTranscript, wire.Turn{Role: types.MessageRoleAssistant, Content: prompt.Content})
	return sink.Send(prompt)
}

func (ob *onboardingService) rejectInput(dbc dbctx.Context, st *wire.ConnState, sink wire.Sink, user *types.User, reason string) error {
	attempts := user.OnboardingAttempts + 1
	updates := map[string]interface{}{"onboarding_attempts": attempts}

	if attempts >= onboardingMaxAttempts {
		lockedUntil := ob.now().Add(onboardingLockDuration)
		updates["onboarding_locked_until"] = lockedUntil
		if err := ob.users.UpdateFields(dbc, user.ID, updates); err != nil {
			return sink.Send(wire.NewError(wire.ErrInternal, "Failed to update onboarding state"))
		}
		return sink.Send(wire.NewError(wire.ErrRateLimited,
			fmt.Sprintf("Too many invalid attempts. Please try again in %d minutes.", int(onboardingLockDuration.Minutes()))))
	}

	if err := ob.users.UpdateFields(dbc, user.ID, updates); err != nil {
		return sink.Send(wire.NewError(wire.ErrInternal, "Failed to update onboarding state"))
	}

	msg := promptForStep(user.OnboardingStep, user.Name)
	msg.Content = reason + " " + msg.Content
	st.OnboardingTranscript = append(st.OnboardingTranscript, wire.Turn{Role: types.MessageRoleAssistant, Content: msg.Content})
	return sink.Send(msg)
}

func (ob *onboardingService) finish(ctx context.Context, st *wire.ConnState, sink wire.Sink, skillLevel string) error {
	if err := sink.Send(wire.OnboardingComplete{
		Type:       "onboarding_complete",
		Message:    "You're all set! Let's find something to learn.",
		SkillLevel: skillLevel,
	}); err != nil {
		return err
	}
	return ob.learning.InitSession(ctx, st, sink)
}

// normalizeStep repairs rows carrying a step value this version no longer
// knows. The name was already collected by whatever wrote the legacy value,
// so the flow rejoins at the interests question.
func (ob *onboardingService) normalizeStep(dbc dbctx.Context, user *types.User) (string, error) {
	if knownStep(user.OnboardingStep) {
		return user.OnboardingStep, nil
	}
	ob.log.Warn("unknown onboarding step, rejoining at interests",
		"user_id", user.ID.String(), "step", user.OnboardingStep)
	user.OnboardingStep = types.OnboardingStepAskInterests
	if err := ob.users.UpdateFields(dbc, user.ID, map[string]interface{}{
		"onboarding_step": user.OnboardingStep,
	}); err != nil {
		return "", err
	}
	return user.OnboardingStep, nil
}

func knownStep(step string) bool {
	switch step {
	case types.OnboardingStepAskName,
		types.OnboardingStepAskInterests,
		types.OnboardingStepAskGoals,
		types.OnboardingStepAskEducation,
		types.OnboardingStepComplete:
		return true
	}
	return false
}

func nextStep(step string) string {
	switch step {
	case types.OnboardingStepAskName:
		return types.OnboardingStepAskInterests
	case types.OnboardingStepAskInterests:
		return types.OnboardingStepAskGoals
	case types.OnboardingStepAskGoals:
		return types.OnboardingStepAskEducation
	default:
		return types.OnboardingStepComplete
	}
}

func promptForStep(step, name string) wire.Message {
	msg := wire.NewMessage("")
	msg.CurrentStep = step
	msg.InputType = "text"
	switch step {
	case types.OnboardingStepAskName:
		msg.Content = "Hi! I'm your personal tutor. What should I call you?"
	case types.OnboardingStepAskInterests:
		who := ""
		if name != "" {
			who = ", " + name
		}
		msg.Content = fmt.Sprintf("Nice to meet you%s! What would you like to learn? Pick from the list or type your own, separated by commas.", who)
		msg.InputType = "select"
		msg.Options = interestOptions()
	case types.OnboardingStepAskGoals:
		msg.Content = "Great choices! What do you want to achieve? Tell me about your goals in a sentence or two."
	case types.OnboardingStepAskEducation:
		msg.Content = "Almost done! What's your background with these topics so far?"
	}
	return msg
}

func interestOptions() []string {
	return []string{
		"Programming",
		"Data Science",
		"Mathematics",
		"Languages",
		"Music Theory",
		"Science",
		"Business",
	}
}

// validateStepInput judges one answer for the given step. The reported
// reason is shown to the user verbatim.
func validateStepInput(step, content string) (string, bool) {
	switch step {
	case types.OnboardingStepAskName:
		if utf8.RuneCountInString(content) < minNameLen {
			return "That name looks too short.", false
		}
	case types.OnboardingStepAskInterests:
		if countCSVTokens(content) < 1 {
			return "I couldn't find any topics in that.", false
		}
	case types.OnboardingStepAskGoals:
		if utf8.RuneCountInString(content) < minFreeTextLen {
			return "Tell me a bit more about your goals.", false
		}
	case types.OnboardingStepAskEducation:
		if utf8.RuneCountInString(content) < minFreeTextLen {
			return "Tell me a bit more about your background.", false
		}
	}
	return "", true
}

func countCSVTokens(s string) int {
	n := 0
	for _, tok := range strings.Split(s, ",") {
		if strings.TrimSpace(tok) != "" {
			n++
		}
	}
	return n
}

// deriveSkillLevel keyword-matches the profile text. Crude but stable;
// the model refines the level conversationally anyway.
func deriveSkillLevel(interests, background string) string {
	text := strings.ToLower(interests + " " + background)
	switch {
	case strings.Contains(text, "advanced"),
		strings.Contains(text, "expert"),
		strings.Contains(text, "senior"),
		strings.Contains(text, "years of experience"):
		return types.SkillLevelAdvanced
	case strings.Contains(text, "intermediate"),
		strings.Contains(text, "some experience"),
		strings.Contains(text, "familiar"):
		return types.SkillLevelIntermediate
	default:
		return types.SkillLevelBeginner
	}
}
