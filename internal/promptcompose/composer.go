// Package promptcompose assembles the per-iteration prompt fed to the
// agent from a hat's role, the always-on core behaviors, and whatever
// incoming event context triggered this iteration. It is a pure
// function of its inputs — no I/O — so its output can be
// snapshot-tested without a running agent.
package promptcompose

import (
	"fmt"
	"strings"

	"github.com/andywolf/ralph/internal/hat"
	"github.com/andywolf/ralph/internal/template"
	"github.com/andywolf/ralph/internal/topic"
)

// builtinTriggerBehaviors supplies a default "on trigger" instruction
// for well-known topics when a hat has no explicit instructions and no
// event metadata overrides it.
var builtinTriggerBehaviors = map[string]string{
	"task.start":                "Analyze the task and create a plan in the scratchpad.",
	"task.resume":                "Analyze the task and create a plan in the scratchpad.",
	"build.done":                 "Review the completed work and decide next steps.",
	"build.blocked":              "Analyze the blocker and decide how to unblock (simplify the task, gather information, or escalate).",
	"build.task":                 "Implement the assigned task. Follow existing patterns. Run backpressure (tests/checks). Commit when done.",
	"review.request":             "Review the recent changes for correctness, tests, patterns, and security.",
	"review.approved":            "Mark the task complete [x] and proceed to the next task.",
	"review.changes_requested":   "Add fix tasks to the scratchpad and dispatch them.",
}

// builtinPublishBehaviors supplies a default "on publish" instruction
// for well-known topics under the same fallback rule.
var builtinPublishBehaviors = map[string]string{
	"build.task":               "Dispatch one at a time for pending [ ] tasks.",
	"build.done":                "When implementation is finished and checks pass.",
	"build.blocked":             "When stuck - include what you tried and why it failed.",
	"review.request":            "After build completion, before marking done.",
	"review.approved":           "If changes look good and meet requirements.",
	"review.changes_requested":  "If issues are found - include specific feedback.",
}

// Composer assembles prompts. It holds the configuration that is
// constant across a run: the completion sentinel, core paths and
// guardrails, and any per-topic event metadata for custom hats.
type Composer struct {
	CompletionPromise string
	Core              hat.CoreConfig
	Events            map[string]hat.EventMetadata
	// InitialPromptTemplate, if set, replaces BuildSolo's built-in body
	// with a user-authored one. It still receives {scratchpad},
	// {specs_dir}, and {objective} substitutions.
	InitialPromptTemplate string
}

// New constructs a Composer.
func New(promise string, core hat.CoreConfig, events map[string]hat.EventMetadata) *Composer {
	return &Composer{CompletionPromise: promise, Core: core, Events: events}
}

// coreBehaviors renders the preamble every prompt variant is required
// to include: scratchpad path, specs-dir path, and the guardrails list.
func (c *Composer) coreBehaviors() string {
	var guardrails strings.Builder
	for _, g := range c.Core.Guardrails {
		guardrails.WriteString("- ")
		guardrails.WriteString(g)
		guardrails.WriteByte('\n')
	}

	return fmt.Sprintf(
		"## CORE BEHAVIORS\n"+
			"**Scratchpad:** `%s` is shared state. Read it. Update it.\n"+
			"**Specs:** `%s` is the source of truth. Implementations must match.\n\n"+
			"Do the smallest, atomic task possible. Leave work for a future iteration.\n\n"+
			"### Guardrails\n%s",
		c.Core.Scratchpad, c.Core.SpecsDir, guardrails.String(),
	)
}

// BuildPlanner composes the prompt for an iteration where the planner
// hat is active.
func (c *Composer) BuildPlanner(incomingContext string) string {
	return fmt.Sprintf(`You are Ralph wearing the planner hat.

%s

## PLANNER MODE

You're planning, not building.

1. Gap analysis. Compare %s against the codebase. What's missing? Broken?
2. Own the scratchpad. Create or update %s with prioritized tasks, one per line:
   - [ ] pending
   - [x] done
   - [~] cancelled (with reason)
3. Dispatch work. Publish <event topic="build.task"> one at a time for the
   highest-priority pending task, with clear acceptance criteria.
4. Validate. When the builder reports done, verify it satisfies the specs.

## DON'T

- Write implementation code.
- Run tests or make commits.
- Pick tasks to implement yourself.
- Output %s until every completion prerequisite below is met.

## COMPLETION PREREQUISITES

All of the following must be true before outputting %s:
1. The scratchpad exists with at least one task.
2. Work has been dispatched to the builder at least once.
3. Every task is marked [x] (done) or [~] (cancelled).
4. The specs are satisfied.

---
%s`,
		c.coreBehaviors(), c.Core.SpecsDir, c.Core.Scratchpad,
		c.CompletionPromise, c.CompletionPromise, incomingContext)
}

// BuildBuilder composes the prompt for an iteration where the builder
// hat is active.
func (c *Composer) BuildBuilder(incomingContext string) string {
	return fmt.Sprintf(`You are Ralph wearing the builder hat.

%s

## BUILDER MODE

You're building, not planning. One task, then exit.

1. Pick one task. The highest-priority [ ] entry from %s.
2. Implement it. Follow existing patterns.
3. Validate. Run backpressure — tests, lint, typecheck. All three must pass.
4. Commit. One task, one commit. Mark it [x] in the scratchpad.
5. Exit. Publish <event topic="build.done"> with evidence in this exact form:

   <event topic="build.done">
   tests: pass
   lint: pass
   typecheck: pass
   </event>

   All three checks must read "pass" or the event will be rejected.

## DON'T

- Create the scratchpad (the planner does that).
- Decide what tasks to add (the planner does that).
- Emit the completion promise (the planner does that).

## STUCK?

Publish <event topic="build.blocked"> with what you tried, why it failed, and
what would unblock you.

---
%s`, c.coreBehaviors(), c.Core.Scratchpad, incomingContext)
}

// hatTopology is the information the solo-mode prompt renders about a
// configured hat so the agent can reason about delegation.
type hatTopology struct {
	name       string
	subscribes string
	publishes  string
}

// BuildSolo composes the condensed hatless-Ralph prompt. When registry
// is empty it embeds the full workflow directly and instructs the agent
// to emit the completion sentinel itself. When hats are configured, it
// instead renders a delegation table and leaves emission of the
// sentinel to whichever hat owns it (by convention, the planner).
func (c *Composer) BuildSolo(registry *hat.Registry, incomingContext string) string {
	if c.InitialPromptTemplate != "" {
		return c.buildFromTemplate(incomingContext)
	}

	var sb strings.Builder

	sb.WriteString("I'm Ralph. Fresh context each iteration.\n\n")
	sb.WriteString(fmt.Sprintf("### Orientation\nStudy %s to understand requirements. Don't assume a feature isn't implemented — search first.\n\n", c.Core.SpecsDir))
	sb.WriteString(fmt.Sprintf("### Scratchpad\nStudy %s. It's shared state between iterations.\n\nTask markers:\n- [ ] pending\n- [x] done\n- [~] cancelled (with reason)\n\n", c.Core.Scratchpad))

	sb.WriteString("### Guardrails\n")
	for _, g := range c.Core.Guardrails {
		sb.WriteString("- ")
		sb.WriteString(g)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	sb.WriteString("## WORKFLOW\n\n")
	sb.WriteString("1. Gap analysis. Compare specs against the codebase.\n")
	sb.WriteString(fmt.Sprintf("2. Plan. Update %s with prioritized tasks.\n", c.Core.Scratchpad))
	sb.WriteString("3. Implement. Pick one task.\n")
	sb.WriteString("4. Commit. Capture the why, not just the what. Mark [x] in the scratchpad.\n")
	sb.WriteString("5. Repeat until every task is [x] or [~].\n\n")

	if !registry.IsEmpty() {
		sb.WriteString("## HATS\n\nDelegate via events.\n\n")
		sb.WriteString("| Hat | Subscribes | Publishes |\n")
		sb.WriteString("|-----|------------|-----------|\n")
		for _, h := range registry.All() {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", h.Name, joinTopics(h.Subscriptions), joinTopics(h.Publishes)))
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("## EVENTS\n\nCommunicate via <event topic=\"...\">payload</event>.\n\n")

	if registry.IsEmpty() {
		sb.WriteString(fmt.Sprintf("## DONE\n\nOutput %s when the scratchpad is exhausted — every task is [x] or [~].\n\n", c.CompletionPromise))
	}

	sb.WriteString("---\n")
	sb.WriteString(incomingContext)

	return sb.String()
}

// buildFromTemplate renders the user-supplied initial_prompt_template,
// substituting the placeholders it exposes, and appends the incoming
// event context the same way every other prompt variant does.
func (c *Composer) buildFromTemplate(incomingContext string) string {
	vars := map[string]string{
		"scratchpad": c.Core.Scratchpad,
		"specs_dir":  c.Core.SpecsDir,
		"objective":  incomingContext,
	}
	body := template.RenderPrompt(c.InitialPromptTemplate, vars)
	return fmt.Sprintf("%s\n\n---\n%s", body, incomingContext)
}

func joinTopics(topics []topic.Topic) string {
	strs := make([]string, len(topics))
	for i, t := range topics {
		strs[i] = t.String()
	}
	return strings.Join(strs, ", ")
}

// BuildCustomHat composes the prompt for a user-defined hat beyond the
// built-in planner/builder pair.
func (c *Composer) BuildCustomHat(h hat.Hat, incomingContext string) string {
	roleInstructions := h.Instructions
	if roleInstructions == "" {
		roleInstructions = c.deriveInstructions(h)
	}

	var publishLine, mustPublish string
	if len(h.Publishes) > 0 {
		topics := make([]string, len(h.Publishes))
		for i, t := range h.Publishes {
			topics[i] = t.String()
		}
		publishLine = fmt.Sprintf("You publish to: %s\n", strings.Join(topics, ", "))
		mustPublish = fmt.Sprintf(
			"\n\nYou MUST publish one of these events based on your task results: `%s`\nFailure to publish will terminate the loop.",
			strings.Join(topics, "`, `"))
	}

	return fmt.Sprintf(`You are %s. Fresh context each iteration.

%s

## YOUR ROLE

%s

## THE RULES

1. One task, then exit. The loop continues.

## EVENTS

Communicate via: <event topic="...">message</event>
%s%s

## COMPLETION

Only the planner outputs: %s

---
INCOMING:
%s`, h.Name, c.coreBehaviors(), roleInstructions, publishLine, mustPublish, c.CompletionPromise, incomingContext)
}

// deriveInstructions builds a hat's behaviour from its subscribe/publish
// contract when it has no explicit instructions: event metadata first,
// then a fixed table of defaults for well-known topics.
func (c *Composer) deriveInstructions(h hat.Hat) string {
	var behaviors []string

	for _, trigger := range h.Subscriptions {
		key := trigger.String()
		if meta, ok := c.Events[key]; ok && meta.OnTrigger != "" {
			behaviors = append(behaviors, fmt.Sprintf("On `%s`: %s", key, meta.OnTrigger))
			continue
		}
		if def, ok := builtinTriggerBehaviors[key]; ok {
			behaviors = append(behaviors, fmt.Sprintf("On `%s`: %s", key, def))
		}
	}

	for _, publish := range h.Publishes {
		key := publish.String()
		if meta, ok := c.Events[key]; ok && meta.OnPublish != "" {
			behaviors = append(behaviors, fmt.Sprintf("Publish `%s`: %s", key, meta.OnPublish))
			continue
		}
		if def, ok := builtinPublishBehaviors[key]; ok {
			behaviors = append(behaviors, fmt.Sprintf("Publish `%s`: %s", key, def))
		}
	}

	if len(h.Publishes) > 0 {
		topics := make([]string, len(h.Publishes))
		for i, t := range h.Publishes {
			topics[i] = t.String()
		}
		behaviors = append(behaviors, fmt.Sprintf(
			"Every iteration MUST publish one of: `%s` or the loop will terminate.",
			strings.Join(topics, "`, `")))
	}

	if len(behaviors) == 0 {
		return "Follow the incoming event's instructions."
	}
	return "### Derived Behaviors\n\n" + strings.Join(behaviors, "\n\n")
}
