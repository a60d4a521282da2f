package model

import "time"

// DocumentRef identifies the uploaded document a pipeline run works on.
type DocumentRef struct {
	DocumentID string `json:"documentId"`
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
}

// AnalysisSource records which analysis tier produced the extracted data.
type AnalysisSource string

const (
	AnalysisSourceContent  AnalysisSource = "content"
	AnalysisSourceFilename AnalysisSource = "filename"
	AnalysisSourceGeneric  AnalysisSource = "generic"
)

// ExtractedDocumentData is the structured academic profile of a document.
// CoreTopics is never empty once produced: both generation agents fan out over it.
type ExtractedDocumentData struct {
	DocumentID           string              `json:"documentId"`
	FileName             string              `json:"fileName"`
	AcademicModule       string              `json:"academicModule" jsonschema_description:"Course or module the document belongs to"`
	CoreTopics           []string            `json:"coreTopics" jsonschema_description:"3-8 main topics taught in the document"`
	Subtopics            []string            `json:"subtopics" jsonschema_description:"Finer-grained concepts under the core topics"`
	IndustryApplications []string            `json:"industryApplications" jsonschema_description:"Where industry applies these topics"`
	RelevantCompanies    []string            `json:"relevantCompanies" jsonschema_description:"Companies known for work in these areas"`
	JobRoles             []string            `json:"jobRoles" jsonschema_description:"Roles that use this knowledge"`
	TechnicalSkills      []string            `json:"technicalSkills" jsonschema_description:"Skills a student gains"`
	ToolsAndTechnologies []string            `json:"toolsAndTechnologies" jsonschema_description:"Concrete tools, languages and frameworks"`
	RealWorldUseCases    []string            `json:"realWorldUseCases" jsonschema_description:"Concrete real-world scenarios"`
	SkillLevels          map[string][]string `json:"skillLevels" jsonschema_description:"Per core topic, skills expected at beginner, intermediate and advanced level"`
	Source               AnalysisSource      `json:"source,omitempty" jsonschema:"-"`
}

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is the durable record the frontend polls. Tasks and questions are
// stored flattened, one string per project or question.
type Document struct {
	ID                 string         `json:"id"`
	FileName           string         `json:"fileName"`
	URL                string         `json:"url"`
	Summary            *string        `json:"summary,omitempty"`
	Module             *string        `json:"module,omitempty"`
	ExtractedTopics    []string       `json:"extractedTopics"`
	IndustryTasks      []string       `json:"industryTasks"`
	InterviewQuestions []string       `json:"interviewQuestions"`
	Status             DocumentStatus `json:"status"`
	Error              *string        `json:"error,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// DocumentUpdate is the single upsert the persistence agent issues.
type DocumentUpdate struct {
	ID                 string
	FileName           string
	URL                string
	Summary            string
	ExtractedTopics    []string
	Module             string
	IndustryTasks      []string
	InterviewQuestions []string
	Status             DocumentStatus
}
