package brain

import (
	"fmt"

	"prepwise.app/pipeline/internal/model"
)

// Fallback content is deterministic for a given topic and profile so a
// retried run produces the same catalog.

func fallbackTaskCategory(topic string, data *model.ExtractedDocumentData) model.TaskCategory {
	projects := fallbackProjects(topic, data)
	return model.TaskCategory{
		Topic:        topic,
		ProjectCount: len(projects),
		Projects:     projects,
		Fallback:     true,
	}
}

func fallbackProjects(topic string, data *model.ExtractedDocumentData) []model.Project {
	tools := firstN(data.ToolsAndTechnologies, 3, "Git", "Python", "SQL")
	companies := firstN(data.RelevantCompanies, 2, "Industry partners")
	skills := firstN(data.TechnicalSkills, 3, topic)
	industry := "Technology"
	if len(data.IndustryApplications) > 0 {
		industry = data.IndustryApplications[0]
	}

	project := func(level model.Level, title, description, duration string, deliverables ...string) model.Project {
		return model.Project{
			Title:        title,
			Level:        level,
			Description:  description,
			Deliverables: deliverables,
			Technologies: tools,
			Metadata: model.ProjectMetadata{
				EstimatedDuration: duration,
				Industry:          industry,
				Companies:         companies,
				Skills:            skills,
			},
		}
	}

	return []model.Project{
		project(model.LevelEntry,
			topic+" Fundamentals Toolkit",
			fmt.Sprintf("Build a small, well-tested tool that demonstrates the core ideas of %s on a realistic dataset.", topic),
			"1-2 weeks",
			"Working prototype", "README with usage examples", "Unit tests"),
		project(model.LevelMid,
			topic+" Service Integration",
			fmt.Sprintf("Design and ship a service that applies %s to a business workflow, with an API and monitoring.", topic),
			"3-4 weeks",
			"Deployed service", "API documentation", "Dashboard of key metrics"),
		project(model.LevelSenior,
			topic+" at Scale",
			fmt.Sprintf("Re-architect an existing %s solution for higher load and reliability, and document the trade-offs made.", topic),
			"6-8 weeks",
			"Architecture document", "Load test results", "Migration plan"),
		project(model.LevelPrincipal,
			topic+" Platform Strategy",
			fmt.Sprintf("Define a multi-team technical strategy for %s covering standards, tooling and a phased roadmap.", topic),
			"1 quarter",
			"Strategy proposal", "Reference implementation", "Adoption roadmap"),
	}
}

func fallbackQuestionCategory(topic string, data *model.ExtractedDocumentData) model.QuestionCategory {
	questions := fallbackQuestions(topic, data)
	return model.QuestionCategory{
		Topic:         topic,
		QuestionCount: len(questions),
		Questions:     questions,
		Fallback:      true,
	}
}

func fallbackQuestions(topic string, data *model.ExtractedDocumentData) []model.Question {
	seeds := []struct {
		category   model.QuestionType
		difficulty model.Level
		text       string
	}{
		{model.QuestionTypeTechnical, model.LevelEntry, fmt.Sprintf("Explain the key concepts of %s and where you would apply them.", topic)},
		{model.QuestionTypeBehavioral, model.LevelEntry, fmt.Sprintf("Tell me about a time you used %s to solve a problem on a team project.", topic)},
		{model.QuestionTypeCoding, model.LevelMid, fmt.Sprintf("Implement a small component that demonstrates %s and walk through its complexity.", topic)},
		{model.QuestionTypeSystemDesign, model.LevelSenior, fmt.Sprintf("Design a production system that relies on %s. How does it scale and fail?", topic)},
		{model.QuestionTypeProblemSolving, model.LevelMid, fmt.Sprintf("A %s based feature is slower than expected in production. How do you investigate?", topic)},
		{model.QuestionTypeIndustryKnowledge, model.LevelPrincipal, fmt.Sprintf("How is %s changing in industry, and how would that shape your team's roadmap?", topic)},
	}

	questions := make([]model.Question, 0, len(seeds))
	for _, s := range seeds {
		q := model.Question{
			Category:   s.category,
			Difficulty: s.difficulty,
			Question:   s.text,
		}
		backfillQuestion(&q, topic, data)
		questions = append(questions, q)
	}
	return questions
}

// firstN returns up to n items, or def when items is empty.
func firstN(items []string, n int, def ...string) []string {
	if len(items) == 0 {
		return def
	}
	if len(items) > n {
		items = items[:n]
	}
	return append([]string(nil), items...)
}
