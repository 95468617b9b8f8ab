// Package approval reconciles a pending term against the taxonomy and
// produces the ordered side-effect sequence a moderator's approval needs:
// taxonomy entries first, the term itself last.
package approval

import (
	"context"
	"fmt"
	"strings"

	"lexhub/api/internal/dict"
	"lexhub/api/internal/validate"
)

// TermInput is the moderation form state for one approval session. Each
// taxonomy field holds exactly one kind of reference: an existing entry or
// a proposed new name. Switching a field back to an existing entry replaces
// the ref wholesale, so no stale new-value buffer can survive.
type TermInput struct {
	TermID       string
	Term         string
	Translation  string
	Definition   string
	Category     dict.TaxonomyRef
	Theme        dict.TaxonomyRef
	Language     dict.TaxonomyRef
	LanguageCode string
}

// InputFromTerm seeds a moderation session from a pending term as fetched
// from the upstream.
func InputFromTerm(term dict.Term) TermInput {
	return TermInput{
		TermID:       term.ID,
		Term:         term.Term,
		Translation:  term.Translation,
		Definition:   term.Definition,
		Category:     term.Category,
		Theme:        term.Theme,
		Language:     term.Language,
		LanguageCode: term.LanguageCode,
	}
}

// Resolve projects the input onto the flattened approval payload. It is the
// single source of truth for the projection: the moderation view and the
// submit path both call it, so the two can never disagree.
func Resolve(input TermInput) dict.ApproveData {
	data := dict.ApproveData{
		Term:                input.Term,
		Translation:         input.Translation,
		Definition:          input.Definition,
		GrammaticalCategory: input.Category.Name,
		Theme:               input.Theme.Name,
	}
	if input.Language.Kind == dict.RefNew {
		data.Language = input.Language.Name
		data.LanguageCode = input.Language.Code
	} else {
		data.Language = input.Language.Name
		data.LanguageCode = input.LanguageCode
	}
	return data
}

type StepKind string

const (
	StepApproveCategory StepKind = "approve_category"
	StepApproveTheme    StepKind = "approve_theme"
	StepCreateLanguage  StepKind = "create_language"
	StepApproveLanguage StepKind = "approve_language"
	StepApproveTerm     StepKind = "approve_term"
)

// Step is one side-effect call in an approval sequence.
type Step struct {
	Kind StepKind
	ID   string
	Name string
	Code string
	Data dict.ApproveData
}

// Plan is the ordered side-effect sequence for one submission. Skipped
// records taxonomy fields whose id could not be resolved by name; those
// are dropped silently rather than failing the submission.
type Plan struct {
	Steps   []Step
	Skipped []string
}

// BuildPlan validates the projected payload and, when valid, assembles the
// approval sequence. Returned field errors are the full inline error list;
// a non-empty list means no steps were planned.
func BuildPlan(input TermInput, categories []dict.Category, themes []dict.Theme) (dict.ApproveData, Plan, []string) {
	data := Resolve(input)
	if messages := validate.ApproveData(data); len(messages) > 0 {
		return data, Plan{}, messages
	}

	var plan Plan

	if needsApproval(input.Category) {
		if id := resolveCategoryID(input.Category, categories); id != "" {
			plan.Steps = append(plan.Steps, Step{Kind: StepApproveCategory, ID: id})
		} else {
			plan.Skipped = append(plan.Skipped, "category")
		}
	}

	if needsApproval(input.Theme) {
		if id := resolveThemeID(input.Theme, themes); id != "" {
			plan.Steps = append(plan.Steps, Step{Kind: StepApproveTheme, ID: id})
		} else {
			plan.Skipped = append(plan.Skipped, "theme")
		}
	}

	// Exactly one language branch fires, discriminated on the ref kind.
	switch {
	case input.Language.Kind == dict.RefNew && strings.TrimSpace(input.Language.Name) != "":
		plan.Steps = append(plan.Steps, Step{Kind: StepCreateLanguage, Name: input.Language.Name, Code: input.Language.Code})
	case input.Language.Kind == dict.RefExisting && !input.Language.Approved:
		plan.Steps = append(plan.Steps, Step{Kind: StepApproveLanguage, ID: input.Language.ID, Code: data.LanguageCode})
	}

	plan.Steps = append(plan.Steps, Step{Kind: StepApproveTerm, ID: input.TermID, Data: data})
	return data, plan, nil
}

// needsApproval reports whether a taxonomy ref requires an approval call:
// a non-empty proposed name, or an existing entry not yet approved.
func needsApproval(ref dict.TaxonomyRef) bool {
	if ref.Kind == dict.RefNew {
		return strings.TrimSpace(ref.Name) != ""
	}
	return ref.Kind == dict.RefExisting && !ref.Approved
}

// Ids are resolved by name against the loaded lists; user-typed names only
// exist server-side once the term submission created them unapproved.
func resolveCategoryID(ref dict.TaxonomyRef, categories []dict.Category) string {
	if ref.Kind == dict.RefExisting && ref.ID != "" {
		return ref.ID
	}
	for _, category := range categories {
		if strings.EqualFold(category.Name, ref.Name) {
			return category.ID
		}
	}
	return ""
}

func resolveThemeID(ref dict.TaxonomyRef, themes []dict.Theme) string {
	if ref.Kind == dict.RefExisting && ref.ID != "" {
		return ref.ID
	}
	for _, theme := range themes {
		if strings.EqualFold(theme.Name, ref.Name) {
			return theme.ID
		}
	}
	return ""
}

// Taxonomy is the slice of the upstream client the engine drives.
type Taxonomy interface {
	ApproveCategory(ctx context.Context, id string) error
	ApproveTheme(ctx context.Context, id string) error
	AddLanguage(ctx context.Context, name, code string) (dict.Language, error)
	ApproveLanguage(ctx context.Context, id, code string) error
	ApproveTerm(ctx context.Context, id string, data dict.ApproveData) error
}

// Engine executes approval plans.
type Engine struct {
	taxonomy Taxonomy
}

func NewEngine(taxonomy Taxonomy) *Engine {
	return &Engine{taxonomy: taxonomy}
}

// Run executes the plan sequentially. The first failing step aborts the
// remainder; steps already completed are not rolled back — failures are
// reported, never compensated.
func (e *Engine) Run(ctx context.Context, plan Plan) error {
	for _, step := range plan.Steps {
		if err := e.runStep(ctx, step); err != nil {
			return fmt.Errorf("%s: %w", step.Kind, err)
		}
	}
	return nil
}

func (e *Engine) runStep(ctx context.Context, step Step) error {
	switch step.Kind {
	case StepApproveCategory:
		return e.taxonomy.ApproveCategory(ctx, step.ID)
	case StepApproveTheme:
		return e.taxonomy.ApproveTheme(ctx, step.ID)
	case StepCreateLanguage:
		created, err := e.taxonomy.AddLanguage(ctx, step.Name, step.Code)
		if err != nil {
			return err
		}
		return e.taxonomy.ApproveLanguage(ctx, created.ID, step.Code)
	case StepApproveLanguage:
		return e.taxonomy.ApproveLanguage(ctx, step.ID, step.Code)
	case StepApproveTerm:
		return e.taxonomy.ApproveTerm(ctx, step.ID, step.Data)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}
