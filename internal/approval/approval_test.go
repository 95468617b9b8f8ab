package approval

import (
	"context"
	"errors"
	"testing"

	"lexhub/api/internal/dict"
)

type call struct {
	op   string
	id   string
	name string
	code string
	data dict.ApproveData
}

type fakeTaxonomy struct {
	calls       []call
	failOn      string
	createdID   string
	createError error
}

func (f *fakeTaxonomy) ApproveCategory(_ context.Context, id string) error {
	f.calls = append(f.calls, call{op: "approveCategory", id: id})
	if f.failOn == "approveCategory" {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeTaxonomy) ApproveTheme(_ context.Context, id string) error {
	f.calls = append(f.calls, call{op: "approveTheme", id: id})
	if f.failOn == "approveTheme" {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeTaxonomy) AddLanguage(_ context.Context, name, code string) (dict.Language, error) {
	f.calls = append(f.calls, call{op: "addLanguage", name: name, code: code})
	if f.createError != nil {
		return dict.Language{}, f.createError
	}
	id := f.createdID
	if id == "" {
		id = "lang-new"
	}
	return dict.Language{ID: id, Name: name, Code: code}, nil
}

func (f *fakeTaxonomy) ApproveLanguage(_ context.Context, id, code string) error {
	f.calls = append(f.calls, call{op: "approveLanguage", id: id, code: code})
	if f.failOn == "approveLanguage" {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeTaxonomy) ApproveTerm(_ context.Context, id string, data dict.ApproveData) error {
	f.calls = append(f.calls, call{op: "approveTerm", id: id, data: data})
	if f.failOn == "approveTerm" {
		return errors.New("boom")
	}
	return nil
}

func baseInput() TermInput {
	return TermInput{
		TermID:       "term-1",
		Term:         "Chat",
		Translation:  "Cat",
		Definition:   "A small domesticated felid.",
		Category:     dict.ExistingRef("cat-1", "Noun", true),
		Theme:        dict.ExistingRef("th-1", "Animals", true),
		Language:     dict.ExistingRef("lang-1", "French", true),
		LanguageCode: "FR",
	}
}

func ops(calls []call) []string {
	var out []string
	for _, c := range calls {
		out = append(out, c.op)
	}
	return out
}

func sameOps(got []call, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, op := range want {
		if got[i].op != op {
			return false
		}
	}
	return true
}

func TestResolveProjectsNamesOnly(t *testing.T) {
	data := Resolve(baseInput())
	want := dict.ApproveData{
		Term:                "Chat",
		Translation:         "Cat",
		Definition:          "A small domesticated felid.",
		GrammaticalCategory: "Noun",
		Theme:               "Animals",
		Language:            "French",
		LanguageCode:        "FR",
	}
	if data != want {
		t.Fatalf("resolve mismatch: %+v", data)
	}
}

func TestResolveNewLanguageUsesProposedNameAndCode(t *testing.T) {
	input := baseInput()
	input.Language = dict.TaxonomyRef{Kind: dict.RefNew, Name: "Elvish", Code: "ELV"}
	input.LanguageCode = "FR" // stale code from the original term must lose

	data := Resolve(input)
	if data.Language != "Elvish" || data.LanguageCode != "ELV" {
		t.Fatalf("expected proposed language, got %+v", data)
	}
}

func TestBuildPlanAllApprovedOnlyApprovesTerm(t *testing.T) {
	data, plan, errs := BuildPlan(baseInput(), nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != StepApproveTerm {
		t.Fatalf("expected single approve_term step, got %+v", plan.Steps)
	}
	if plan.Steps[0].ID != "term-1" || plan.Steps[0].Data != data {
		t.Fatalf("approve_term step mismatch: %+v", plan.Steps[0])
	}
}

func TestBuildPlanInvalidDataPlansNothing(t *testing.T) {
	input := baseInput()
	input.Term = ""
	input.LanguageCode = "fr"

	_, plan, errs := BuildPlan(input, nil, nil)
	if len(errs) != 2 {
		t.Fatalf("expected 2 field errors, got %v", errs)
	}
	if len(plan.Steps) != 0 {
		t.Fatalf("expected empty plan, got %+v", plan.Steps)
	}
}

func TestBuildPlanUnapprovedCategoryResolvedByName(t *testing.T) {
	input := baseInput()
	input.Category = dict.NewRef("Gerund")
	categories := []dict.Category{
		{ID: "cat-7", Name: "Gerund", Approved: false},
		{ID: "cat-1", Name: "Noun", Approved: true},
	}

	_, plan, errs := BuildPlan(input, categories, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !sameOps(callsFromPlan(plan), "approveCategory", "approveTerm") {
		t.Fatalf("unexpected steps: %v", stepKinds(plan))
	}
	if plan.Steps[0].ID != "cat-7" {
		t.Fatalf("expected cat-7, got %q", plan.Steps[0].ID)
	}
}

func TestBuildPlanUnresolvableCategorySkippedSilently(t *testing.T) {
	input := baseInput()
	input.Category = dict.NewRef("Gerund")

	_, plan, errs := BuildPlan(input, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != StepApproveTerm {
		t.Fatalf("expected approve_term only, got %v", stepKinds(plan))
	}
	if len(plan.Skipped) != 1 || plan.Skipped[0] != "category" {
		t.Fatalf("expected category skip recorded, got %v", plan.Skipped)
	}
}

func TestBuildPlanLanguageBranchesAreExclusive(t *testing.T) {
	// New language: create, never approve-existing.
	input := baseInput()
	input.Language = dict.TaxonomyRef{Kind: dict.RefNew, Name: "Elvish", Code: "ELV"}
	_, plan, _ := BuildPlan(input, nil, nil)
	if !hasStep(plan, StepCreateLanguage) || hasStep(plan, StepApproveLanguage) {
		t.Fatalf("expected create only, got %v", stepKinds(plan))
	}

	// Existing unapproved language: approve, never create.
	input = baseInput()
	input.Language = dict.ExistingRef("lang-2", "Breton", false)
	_, plan, _ = BuildPlan(input, nil, nil)
	if hasStep(plan, StepCreateLanguage) || !hasStep(plan, StepApproveLanguage) {
		t.Fatalf("expected approve only, got %v", stepKinds(plan))
	}

	// Existing approved language: neither.
	_, plan, _ = BuildPlan(baseInput(), nil, nil)
	if hasStep(plan, StepCreateLanguage) || hasStep(plan, StepApproveLanguage) {
		t.Fatalf("expected no language steps, got %v", stepKinds(plan))
	}
}

func TestEngineNewLanguageEndToEnd(t *testing.T) {
	input := baseInput()
	input.Language = dict.TaxonomyRef{Kind: dict.RefNew, Name: "Elvish", Code: "ELV"}

	data, plan, errs := BuildPlan(input, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if data.Language != "Elvish" {
		t.Fatalf("expected Elvish payload, got %+v", data)
	}

	fake := &fakeTaxonomy{createdID: "lang-9"}
	if err := NewEngine(fake).Run(context.Background(), plan); err != nil {
		t.Fatalf("run plan: %v", err)
	}
	if !sameOps(fake.calls, "addLanguage", "approveLanguage", "approveTerm") {
		t.Fatalf("unexpected call sequence: %v", ops(fake.calls))
	}
	if fake.calls[0].name != "Elvish" || fake.calls[0].code != "ELV" {
		t.Fatalf("addLanguage args: %+v", fake.calls[0])
	}
	if fake.calls[1].id != "lang-9" || fake.calls[1].code != "ELV" {
		t.Fatalf("approveLanguage args: %+v", fake.calls[1])
	}
	if fake.calls[2].data.Language != "Elvish" {
		t.Fatalf("approveTerm payload: %+v", fake.calls[2].data)
	}
}

func TestEngineApprovedCategoryMakesNoCategoryCall(t *testing.T) {
	_, plan, _ := BuildPlan(baseInput(), nil, nil)
	fake := &fakeTaxonomy{}
	if err := NewEngine(fake).Run(context.Background(), plan); err != nil {
		t.Fatalf("run plan: %v", err)
	}
	if !sameOps(fake.calls, "approveTerm") {
		t.Fatalf("expected only approveTerm, got %v", ops(fake.calls))
	}
}

func TestEngineStopsOnFirstFailureWithoutRollback(t *testing.T) {
	input := baseInput()
	input.Category = dict.ExistingRef("cat-2", "Gerund", false)
	input.Theme = dict.ExistingRef("th-2", "Nature", false)

	_, plan, _ := BuildPlan(input, nil, nil)
	fake := &fakeTaxonomy{failOn: "approveTheme"}
	err := NewEngine(fake).Run(context.Background(), plan)
	if err == nil {
		t.Fatalf("expected failure")
	}
	// Category approval already happened and stays; the term call never ran.
	if !sameOps(fake.calls, "approveCategory", "approveTheme") {
		t.Fatalf("unexpected calls: %v", ops(fake.calls))
	}
}

func TestEngineCreateFailureSkipsApproveLanguage(t *testing.T) {
	input := baseInput()
	input.Language = dict.TaxonomyRef{Kind: dict.RefNew, Name: "Elvish", Code: "ELV"}

	_, plan, _ := BuildPlan(input, nil, nil)
	fake := &fakeTaxonomy{createError: errors.New("boom")}
	if err := NewEngine(fake).Run(context.Background(), plan); err == nil {
		t.Fatalf("expected failure")
	}
	if !sameOps(fake.calls, "addLanguage") {
		t.Fatalf("unexpected calls: %v", ops(fake.calls))
	}
}

func hasStep(plan Plan, kind StepKind) bool {
	for _, step := range plan.Steps {
		if step.Kind == kind {
			return true
		}
	}
	return false
}

func stepKinds(plan Plan) []StepKind {
	var kinds []StepKind
	for _, step := range plan.Steps {
		kinds = append(kinds, step.Kind)
	}
	return kinds
}

// callsFromPlan maps plan steps to the fake's operation names so sequence
// assertions read the same for plans and executions.
func callsFromPlan(plan Plan) []call {
	var calls []call
	for _, step := range plan.Steps {
		switch step.Kind {
		case StepApproveCategory:
			calls = append(calls, call{op: "approveCategory", id: step.ID})
		case StepApproveTheme:
			calls = append(calls, call{op: "approveTheme", id: step.ID})
		case StepCreateLanguage:
			calls = append(calls, call{op: "addLanguage", name: step.Name, code: step.Code})
		case StepApproveLanguage:
			calls = append(calls, call{op: "approveLanguage", id: step.ID, code: step.Code})
		case StepApproveTerm:
			calls = append(calls, call{op: "approveTerm", id: step.ID, data: step.Data})
		}
	}
	return calls
}
