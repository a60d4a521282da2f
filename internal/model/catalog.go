package model

import "time"

// Level is the seniority a project or question targets.
type Level string

const (
	LevelEntry     Level = "entry"
	LevelMid       Level = "mid"
	LevelSenior    Level = "senior"
	LevelPrincipal Level = "principal"
)

var Levels = []Level{LevelEntry, LevelMid, LevelSenior, LevelPrincipal}

func (l Level) Valid() bool {
	switch l {
	case LevelEntry, LevelMid, LevelSenior, LevelPrincipal:
		return true
	}
	return false
}

type Project struct {
	Title        string          `json:"title" jsonschema_description:"Short project title"`
	Level        Level           `json:"level" jsonschema:"enum=entry,enum=mid,enum=senior,enum=principal"`
	Description  string          `json:"description" jsonschema_description:"What the engineer builds and why the business needs it"`
	Deliverables []string        `json:"deliverables" jsonschema_description:"Concrete outputs expected at the end"`
	Technologies []string        `json:"technologies" jsonschema_description:"Tools and languages used"`
	Metadata     ProjectMetadata `json:"metadata"`
}

type ProjectMetadata struct {
	EstimatedDuration string   `json:"estimatedDuration" jsonschema_description:"e.g. 2 weeks"`
	Industry          string   `json:"industry"`
	Companies         []string `json:"companies" jsonschema_description:"Companies running similar projects"`
	Skills            []string `json:"skills" jsonschema_description:"Skills the project exercises"`
}

type TaskCategory struct {
	Topic        string    `json:"topic"`
	ProjectCount int       `json:"projectCount"`
	Projects     []Project `json:"projects"`
	Fallback     bool      `json:"fallback,omitempty"`
}

// TaskCatalog holds generated projects grouped by core topic.
// TotalProjects always equals the sum of category ProjectCount values.
type TaskCatalog struct {
	AcademicModule string         `json:"academicModule"`
	TotalProjects  int            `json:"totalProjects"`
	Categories     []TaskCategory `json:"categories"`
	Metadata       CatalogMeta    `json:"metadata"`
}

// QuestionType is one of the six interview question categories.
type QuestionType string

const (
	QuestionTypeTechnical         QuestionType = "technical"
	QuestionTypeBehavioral        QuestionType = "behavioral"
	QuestionTypeCoding            QuestionType = "coding"
	QuestionTypeSystemDesign      QuestionType = "system-design"
	QuestionTypeProblemSolving    QuestionType = "problem-solving"
	QuestionTypeIndustryKnowledge QuestionType = "industry-knowledge"
)

var QuestionTypes = []QuestionType{
	QuestionTypeTechnical,
	QuestionTypeBehavioral,
	QuestionTypeCoding,
	QuestionTypeSystemDesign,
	QuestionTypeProblemSolving,
	QuestionTypeIndustryKnowledge,
}

type Question struct {
	Category           QuestionType `json:"category" jsonschema:"enum=technical,enum=behavioral,enum=coding,enum=system-design,enum=problem-solving,enum=industry-knowledge"`
	Difficulty         Level        `json:"difficulty" jsonschema:"enum=entry,enum=mid,enum=senior,enum=principal"`
	Question           string       `json:"question"`
	Context            string       `json:"context" jsonschema_description:"Why interviewers ask this"`
	ExpectedAnswer     string       `json:"expectedAnswer"`
	EvaluationCriteria []string     `json:"evaluationCriteria"`
	FollowUpQuestions  []string     `json:"followUpQuestions"`
	RealCompanyExample string       `json:"realCompanyExample"`
	SampleSolution     string       `json:"sampleSolution"`
	CommonMistakes     []string     `json:"commonMistakes"`
	InterviewTips      []string     `json:"interviewTips"`
}

type QuestionCategory struct {
	Topic         string     `json:"topic"`
	QuestionCount int        `json:"questionCount"`
	Questions     []Question `json:"questions"`
	Fallback      bool       `json:"fallback,omitempty"`
}

// QuestionCatalog holds generated interview questions grouped by core topic.
// TotalQuestions always equals the sum of category QuestionCount values.
type QuestionCatalog struct {
	AcademicModule string             `json:"academicModule"`
	TotalQuestions int                `json:"totalQuestions"`
	Categories     []QuestionCategory `json:"categories"`
	Metadata       CatalogMeta        `json:"metadata"`
}

type CatalogMeta struct {
	GeneratedAt      time.Time `json:"generatedAt"`
	FallbackTopics   []string  `json:"fallbackTopics,omitempty"`
	BackfilledFields int       `json:"backfilledFields,omitempty"`
}

// Flatten renders each project as "<title>: <description>".
func (c *TaskCatalog) Flatten() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, 0, c.TotalProjects)
	for _, cat := range c.Categories {
		for _, p := range cat.Projects {
			out = append(out, p.Title+": "+p.Description)
		}
	}
	return out
}

// Flatten renders each question as "<question> (<type>)".
func (c *QuestionCatalog) Flatten() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, 0, c.TotalQuestions)
	for _, cat := range c.Categories {
		for _, q := range cat.Questions {
			out = append(out, q.Question+" ("+string(q.Category)+")")
		}
	}
	return out
}
