package brain

import "prepwise.app/pipeline/internal/model"

// AgentRef names the next step the router selects.
type AgentRef int

const (
	Done AgentRef = iota
	ExtractionAgentRef
	TaskAgentRef
	QuestionAgentRef
	PersistenceAgentRef
)

func (a AgentRef) String() string {
	switch a {
	case Done:
		return "done"
	case ExtractionAgentRef:
		return "document-extraction-agent"
	case TaskAgentRef:
		return "industry-task-agent"
	case QuestionAgentRef:
		return "interview-question-agent"
	case PersistenceAgentRef:
		return "persistence-agent"
	}
	return "unknown"
}

// Router selects the next agent for a state.
type Router func(state *model.PipelineState) AgentRef

// Route is the default Router. It reads state only, and checks stages in a
// fixed order: the earliest missing artifact wins, so a state carrying
// questions but no tasks still routes to the task agent.
func Route(state *model.PipelineState) AgentRef {
	switch {
	case state.SavedToDatabase:
		return Done
	case state.ExtractedData == nil:
		return ExtractionAgentRef
	case state.IndustryTasks == nil:
		return TaskAgentRef
	case state.InterviewQuestions == nil:
		return QuestionAgentRef
	default:
		return PersistenceAgentRef
	}
}

// MarkStarted sets ProcessingStarted and reports whether this call set it.
// Routing never reads the flag.
func MarkStarted(state *model.PipelineState) bool {
	if state.ProcessingStarted {
		return false
	}
	state.ProcessingStarted = true
	return true
}
