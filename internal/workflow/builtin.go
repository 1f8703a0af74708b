package workflow

import "toolflow/internal/value"

// Built-in workflow names.
const (
	MorningBriefing   = "morning_briefing"
	DeployChecklist   = "deploy_checklist"
	ResearchAssistant = "research_assistant"
)

// BuiltinWorkflows returns the definitions registered at startup.
//
// research_assistant threads values forward by name: {query} comes from the
// caller's context, while {arxiv_results} and {summaries} only resolve if the
// context supplies them, since no tool of that name runs earlier.
func BuiltinWorkflows() map[string][]Step {
	return map[string][]Step{
		MorningBriefing: {
			{Tool: "get_calendar_events", Params: map[string]value.Value{"days": value.Int(1)}},
			{Tool: "check_github_notifications", Params: map[string]value.Value{}},
			{Tool: "get_weather", Params: map[string]value.Value{}},
			{Tool: "check_ci_status", Params: map[string]value.Value{
				"repos": value.List(value.String("main-project")),
			}},
		},
		DeployChecklist: {
			{Tool: "run_tests", Params: map[string]value.Value{"suite": value.String("all")}},
			{Tool: "check_code_coverage", Params: map[string]value.Value{"threshold": value.Int(80)}},
			{Tool: "lint_code", Params: map[string]value.Value{}},
			{Tool: "check_dependencies", Params: map[string]value.Value{"security": value.Bool(true)}},
			{Tool: "generate_changelog", Params: map[string]value.Value{}},
		},
		ResearchAssistant: {
			{Tool: "search_arxiv", Params: map[string]value.Value{
				"query": value.String("{query}"),
				"limit": value.Int(5),
			}},
			{Tool: "summarize_papers", Params: map[string]value.Value{"papers": value.String("{arxiv_results}")}},
			{Tool: "find_implementations", Params: map[string]value.Value{"papers": value.String("{arxiv_results}")}},
			{Tool: "create_reading_list", Params: map[string]value.Value{"summaries": value.String("{summaries}")}},
		},
	}
}
