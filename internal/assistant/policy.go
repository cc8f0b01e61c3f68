// Package assistant assembles the knowledge-base context for the AI helper
// and forwards questions to a text generator under the admin's governance
// settings.
package assistant

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"sopdesk/api/internal/content"
	"sopdesk/api/internal/settings"
)

const (
	NotConfiguredMessage = "Error: API Key not configured."
	DisabledMessage      = "AI assistance is currently disabled by the administrator."
	UpstreamErrorMessage = "Sorry, I encountered an error connecting to the AI service."
	EmptyResponseMessage = "I couldn't generate a response."

	// UnknownScenarioReply is the exact reply strict mode demands when the
	// context does not cover a question.
	UnknownScenarioReply = "> ⚠️ **Unknown Scenario**: This scenario is not documented. Please escalate."

	MaxContextArticles = 15

	StrictTemperature  float32 = 0.0
	RelaxedTemperature float32 = 0.3
)

var toneInstructions = map[settings.Tone]string{
	settings.ToneOperational: "Be operational and professional.",
	settings.ToneDirect:      "Be extremely concise, direct, and short. Do not use filler words.",
	settings.ToneCoaching:    "Adopt a coaching tone, explaining the 'why' behind procedures to help the agent learn.",
}

const (
	strictInstruction  = "STRICT MODE ACTIVE: You must ONLY use the provided context. If the answer is not explicitly in the context, respond EXACTLY with: '" + UnknownScenarioReply + "' Do NOT attempt to answer from general knowledge."
	relaxedInstruction = "Use the context as your primary source. You may use general professional knowledge to bridge gaps, but prioritize the SOPs."
)

const formattingInstructions = `FORMATTING INSTRUCTIONS:
Always use Markdown formatting for structure and clarity.
Follow this template exactly:

### [Process Name or Title]
[Short context sentence summarizing the situation]

#### Steps
1. **[Step Title]**: [Step Description]
   - [Additional detail if needed]
2. **[Next Step]**...

> ⚠️ **Note**: [Any warnings or important checks]

> ✅ **Outcome**: [Final action or result]`

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// NormalizeRole maps anything other than "user" to the model role.
func NormalizeRole(role string) Role {
	if role == string(RoleUser) {
		return RoleUser
	}
	return RoleModel
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is everything the generator receives for one question.
type Request struct {
	System      string
	History     []Message
	Query       string
	Temperature float32
}

type Input struct {
	Settings settings.AIControlSettings
	Articles []content.Article
	Teams    []content.Team
	History  []Message
	Query    string
}

// Decision is either a refusal that must be returned as is, or a request to
// forward to the generator.
type Decision struct {
	Refusal string
	Request Request
}

func (d Decision) Refused() bool {
	return d.Refusal != ""
}

// Assemble applies the governance settings to the input. It has no side
// effects.
func Assemble(in Input) Decision {
	if !in.Settings.Enabled {
		return Decision{Refusal: DisabledMessage}
	}

	allowed := mapset.NewSet(in.Settings.AllowedTeamIDs...)
	history := make([]Message, len(in.History))
	for i, m := range in.History {
		history[i] = Message{Role: NormalizeRole(string(m.Role)), Content: m.Content}
	}

	return Decision{Request: Request{
		System:      SystemPrompt(in.Settings, ContextBlock(in.Settings, Eligible(allowed, in.Articles)), allowedTeams(allowed, in.Teams)),
		History:     history,
		Query:       in.Query,
		Temperature: Temperature(in.Settings.StrictMode),
	}}
}

// Eligible keeps articles sharing at least one team with allowed that are
// published and available to the assistant. An article without teams never
// qualifies.
func Eligible(allowed mapset.Set[string], articles []content.Article) []content.Article {
	out := make([]content.Article, 0, len(articles))
	for _, article := range articles {
		if allowed.Intersect(mapset.NewSet(article.TeamIDs...)).IsEmpty() {
			continue
		}
		if !article.IsAvailableToAI || article.Status != content.StatusPublished {
			continue
		}
		out = append(out, article)
	}
	return out
}

// ContextBlock renders the first MaxContextArticles articles as records.
func ContextBlock(cfg settings.AIControlSettings, articles []content.Article) string {
	if len(articles) > MaxContextArticles {
		articles = articles[:MaxContextArticles]
	}
	records := make([]string, 0, len(articles))
	for _, article := range articles {
		records = append(records, Record(cfg.Scope, article))
	}
	return strings.Join(records, "\n")
}

// Record renders one article with the fields the scope allows, ending with a
// separator line.
func Record(scope settings.AIScope, a content.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PROCESS: %s\n", a.Title)
	if scope.UseFullContent {
		fmt.Fprintf(&b, "SUMMARY: %s\n", a.Summary)
		fmt.Fprintf(&b, "TRIGGER: %s\n", a.Trigger)
	}
	if scope.UseShortAnswers {
		fmt.Fprintf(&b, "SHORT ANSWER: %s\n", a.ShortAnswer)
	}
	if scope.UseFullContent {
		steps := make([]string, len(a.ProcessSteps))
		for i, step := range a.ProcessSteps {
			steps[i] = fmt.Sprintf("%d. %s: %s", i+1, step.Title, content.StepPlainText(step))
		}
		fmt.Fprintf(&b, "STEPS:\n%s\n", strings.Join(steps, "\n"))

		outcomes := make([]string, len(a.Outcomes))
		for i, outcome := range a.Outcomes {
			outcomes[i] = fmt.Sprintf("- %s: %s", outcome.Label, outcome.Action)
		}
		fmt.Fprintf(&b, "OUTCOMES:\n%s\n", strings.Join(outcomes, "\n"))

		troubleshooting := a.Troubleshooting
		if troubleshooting == "" {
			troubleshooting = "N/A"
		}
		fmt.Fprintf(&b, "TROUBLESHOOTING: %s\n", troubleshooting)
	}
	if scope.UseAttachments && len(a.Attachments) > 0 {
		names := make([]string, len(a.Attachments))
		for i, attachment := range a.Attachments {
			names[i] = attachment.Name
		}
		fmt.Fprintf(&b, "ATTACHMENTS AVAILABLE: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("---\n")
	return b.String()
}

// ToneInstruction falls back to the operational text for unknown tones.
func ToneInstruction(tone settings.Tone) string {
	if text, ok := toneInstructions[tone]; ok {
		return text
	}
	return toneInstructions[settings.ToneOperational]
}

func StrictInstruction(strict bool) string {
	if strict {
		return strictInstruction
	}
	return relaxedInstruction
}

func Temperature(strict bool) float32 {
	if strict {
		return StrictTemperature
	}
	return RelaxedTemperature
}

func SystemPrompt(cfg settings.AIControlSettings, contextBlock string, teams []content.Team) string {
	labels := make([]string, len(teams))
	for i, team := range teams {
		labels[i] = fmt.Sprintf("%s (ID: %s)", team.Name, team.ID)
	}

	var b strings.Builder
	b.WriteString("You are the AI Assistant for Elmenus internal agents.\n")
	b.WriteString("Your goal is to help agents resolve operational issues using the Knowledge Base.\n\n")
	b.WriteString("RULES:\n")
	fmt.Fprintf(&b, "1. %s\n", ToneInstruction(cfg.Tone))
	fmt.Fprintf(&b, "2. %s\n", StrictInstruction(cfg.StrictMode))
	b.WriteString("3. Reference the Process Name or Step Number when answering.\n\n")
	b.WriteString(formattingInstructions)
	b.WriteString("\n\nCONTEXT (Knowledge Base):\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nTEAMS INFO:\n")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString("\n")
	return b.String()
}

func allowedTeams(allowed mapset.Set[string], teams []content.Team) []content.Team {
	out := make([]content.Team, 0, len(teams))
	for _, team := range teams {
		if allowed.Contains(team.ID) {
			out = append(out, team)
		}
	}
	return out
}
