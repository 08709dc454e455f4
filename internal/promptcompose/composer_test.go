package promptcompose

import (
	"strings"
	"testing"

	"github.com/andywolf/ralph/internal/hat"
	"github.com/andywolf/ralph/internal/topic"
)

func defaultComposer(promise string) *Composer {
	return New(promise, hat.DefaultCoreConfig(), nil)
}

func TestBuildPlannerIdentityAndMode(t *testing.T) {
	c := defaultComposer("LOOP_COMPLETE")
	out := c.BuildPlanner("Build a CLI tool")

	for _, want := range []string{
		"planner hat", "Build a CLI tool", "## PLANNER MODE",
		"Gap analysis", "build.task", "[ ]", "[x]", "[~]",
		"LOOP_COMPLETE", "Write implementation code",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("planner prompt missing %q", want)
		}
	}
}

func TestBuildBuilderIdentityAndMode(t *testing.T) {
	c := defaultComposer("LOOP_COMPLETE")
	out := c.BuildBuilder("Implement X")

	for _, want := range []string{
		"builder hat", "Implement X", "## BUILDER MODE",
		"build.done", "tests: pass", "lint: pass", "typecheck: pass",
		"build.blocked",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("builder prompt missing %q", want)
		}
	}
	if strings.Contains(out, "LOOP_COMPLETE") {
		t.Error("builder prompt must never mention the completion promise")
	}
}

func TestCoreBehaviorsSharedBetweenModes(t *testing.T) {
	core := hat.CoreConfig{Scratchpad: ".workspace/plan.md", SpecsDir: "./specifications/", Guardrails: []string{"Rule one"}}
	c := New("DONE", core, nil)

	planner := c.BuildPlanner("x")
	builder := c.BuildBuilder("x")

	for _, out := range []string{planner, builder} {
		if !strings.Contains(out, ".workspace/plan.md") {
			t.Error("expected custom scratchpad path injected")
		}
		if !strings.Contains(out, "Rule one") {
			t.Error("expected custom guardrail injected")
		}
	}
}

func TestBuildSoloWithoutHats(t *testing.T) {
	c := defaultComposer("LOOP_COMPLETE")
	registry := hat.NewRegistry()

	out := c.BuildSolo(registry, "")

	if strings.Contains(out, "## HATS") {
		t.Error("solo prompt without hats must not render a hats table")
	}
	if !strings.Contains(out, "LOOP_COMPLETE") {
		t.Error("solo prompt without hats must instruct the agent to emit the sentinel itself")
	}
}

func TestBuildSoloWithHatsRendersTopology(t *testing.T) {
	c := defaultComposer("LOOP_COMPLETE")
	registry := hat.NewRegistry()
	registry.Add(hat.Hat{ID: "planner", Name: "Planner", Subscriptions: []topic.Topic{topic.New("task.start")}, Publishes: []topic.Topic{topic.New("build.task")}})
	registry.Add(hat.Hat{ID: "builder", Name: "Builder", Subscriptions: []topic.Topic{topic.New("build.task")}, Publishes: []topic.Topic{topic.New("build.done")}})

	out := c.BuildSolo(registry, "")

	if !strings.Contains(out, "## HATS") {
		t.Error("solo prompt with hats must render the hats table")
	}
	if !strings.Contains(out, "Planner") || !strings.Contains(out, "Builder") {
		t.Error("hats table must list every registered hat")
	}
}

func TestBuildCustomHatExplicitInstructions(t *testing.T) {
	c := defaultComposer("DONE")
	h := hat.Hat{ID: "reviewer", Name: "Reviewer", Instructions: "Review PRs for quality and correctness."}

	out := c.BuildCustomHat(h, "PR #123 ready for review")

	if !strings.Contains(out, "Review PRs for quality") {
		t.Error("explicit instructions must be used verbatim")
	}
	if !strings.Contains(out, "PR #123 ready for review") {
		t.Error("incoming context must be embedded")
	}
	if strings.Contains(out, "MUST publish") {
		t.Error("must-publish clause should not appear for a hat with no publishes")
	}
}

func TestBuildCustomHatMustPublishClause(t *testing.T) {
	c := defaultComposer("DONE")
	h := hat.Hat{
		ID:           "reviewer",
		Name:         "Reviewer",
		Instructions: "Review PRs.",
		Publishes:    []topic.Topic{topic.New("review.approved"), topic.New("review.changes_requested")},
	}

	out := c.BuildCustomHat(h, "context")

	if !strings.Contains(out, "MUST publish one of these events") {
		t.Error("hat with publishes must get the must-publish liveness clause")
	}
	if !strings.Contains(out, "review.approved") || !strings.Contains(out, "review.changes_requested") {
		t.Error("must-publish clause must enumerate every published topic")
	}
}

func TestBuildCustomHatDerivesFromContract(t *testing.T) {
	c := defaultComposer("DONE")
	h := hat.Hat{
		ID:            "builder",
		Name:          "Builder",
		Subscriptions: []topic.Topic{topic.New("build.task")},
		Publishes:     []topic.Topic{topic.New("build.done")},
	}

	out := c.BuildCustomHat(h, "context")

	if !strings.Contains(out, "### Derived Behaviors") {
		t.Error("hat with no explicit instructions must derive behaviors from its contract")
	}
	if !strings.Contains(out, "build.task") || !strings.Contains(out, "build.done") {
		t.Error("derived behaviors must mention the hat's subscribed and published topics")
	}
}

func TestBuildCustomHatEventMetadataOverridesDefault(t *testing.T) {
	events := map[string]hat.EventMetadata{
		"build.task": {OnTrigger: "Custom trigger behavior."},
	}
	c := New("DONE", hat.DefaultCoreConfig(), events)
	h := hat.Hat{ID: "builder", Name: "Builder", Subscriptions: []topic.Topic{topic.New("build.task")}}

	out := c.BuildCustomHat(h, "context")

	if !strings.Contains(out, "Custom trigger behavior.") {
		t.Error("event metadata should override the built-in default behavior")
	}
}

func TestBuildSoloUsesInitialPromptTemplateWhenConfigured(t *testing.T) {
	c := defaultComposer("LOOP_COMPLETE")
	c.InitialPromptTemplate = "## CUSTOM ORIENTATION\nScratchpad: {scratchpad}\nObjective: {objective}\n"
	registry := hat.NewRegistry()
	registry.Add(hat.Hat{ID: "planner", Name: "Planner", Subscriptions: []topic.Topic{topic.New("task.start")}})

	out := c.BuildSolo(registry, "Implement login feature")

	if !strings.Contains(out, "CUSTOM ORIENTATION") {
		t.Error("custom template must replace the built-in solo body")
	}
	if !strings.Contains(out, hat.DefaultCoreConfig().Scratchpad) {
		t.Error("custom template must receive the {scratchpad} substitution")
	}
	if !strings.Contains(out, "Implement login feature") {
		t.Error("custom template must receive the {objective} substitution")
	}
	if strings.Contains(out, "## HATS") {
		t.Error("custom template replaces the built-in body even when hats are configured")
	}
}

func TestBuildCustomHatNoInstructionsNoContractFallsBack(t *testing.T) {
	c := defaultComposer("DONE")
	h := hat.Hat{ID: "observer", Name: "Observer"}

	out := c.BuildCustomHat(h, "context")
	if !strings.Contains(out, "Follow the incoming event's instructions.") {
		t.Error("hat with neither instructions nor contract must fall back to a generic instruction")
	}
}
