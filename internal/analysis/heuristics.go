package analysis

import (
	"path"
	"regexp"
	"strings"

	"prepwise.app/pipeline/internal/model"
)

type profile struct {
	keywords     []string
	module       string
	topics       []string
	subtopics    []string
	applications []string
	companies    []string
	roles        []string
	skills       []string
	tools        []string
	useCases     []string
}

// Ordered: the first profile with a matching keyword wins, so specific
// subjects precede broad ones ("machine learning" before "data").
var profiles = []profile{
	{
		keywords:     []string{"machine learning", "deep learning", "neural", " ml ", " ai ", "artificial intelligence"},
		module:       "Machine Learning",
		topics:       []string{"Supervised Learning", "Neural Networks", "Model Evaluation", "Feature Engineering"},
		subtopics:    []string{"Regression", "Classification", "Backpropagation", "Overfitting", "Cross-validation"},
		applications: []string{"Recommendation systems", "Fraud detection", "Computer vision"},
		companies:    []string{"Google", "OpenAI", "Netflix", "Spotify"},
		roles:        []string{"Machine Learning Engineer", "Data Scientist", "Applied Scientist"},
		skills:       []string{"Model training", "Data preprocessing", "Experiment tracking"},
		tools:        []string{"Python", "PyTorch", "scikit-learn", "Jupyter"},
		useCases:     []string{"Predicting customer churn", "Ranking search results"},
	},
	{
		keywords:     []string{"database", "sql", "dbms", "relational", "nosql"},
		module:       "Database Systems",
		topics:       []string{"Relational Modeling", "SQL Querying", "Indexing", "Transactions"},
		subtopics:    []string{"Normalization", "Joins", "B-trees", "ACID", "Isolation levels"},
		applications: []string{"Payment ledgers", "Inventory management", "Analytics warehouses"},
		companies:    []string{"Oracle", "Snowflake", "Stripe", "Amazon"},
		roles:        []string{"Backend Engineer", "Database Administrator", "Data Engineer"},
		skills:       []string{"Schema design", "Query optimization", "Data modeling"},
		tools:        []string{"PostgreSQL", "MySQL", "Redis", "MongoDB"},
		useCases:     []string{"Designing an order system schema", "Tuning slow reporting queries"},
	},
	{
		keywords:     []string{"network", "tcp", "protocol", "internet", "routing"},
		module:       "Computer Networks",
		topics:       []string{"Network Layers", "TCP/IP", "Routing", "Network Security"},
		subtopics:    []string{"OSI model", "Congestion control", "DNS", "TLS", "Subnetting"},
		applications: []string{"Content delivery", "Cloud networking", "Telecommunications"},
		companies:    []string{"Cisco", "Cloudflare", "Akamai", "Juniper"},
		roles:        []string{"Network Engineer", "Site Reliability Engineer", "Cloud Engineer"},
		skills:       []string{"Packet analysis", "Network troubleshooting", "Capacity planning"},
		tools:        []string{"Wireshark", "tcpdump", "iptables", "nginx"},
		useCases:     []string{"Diagnosing packet loss", "Designing a multi-region VPC"},
	},
	{
		keywords:     []string{"security", "crypto", "cyber", "hacking"},
		module:       "Computer Security",
		topics:       []string{"Cryptography", "Threat Modeling", "Web Security", "Access Control"},
		subtopics:    []string{"Symmetric encryption", "Public key infrastructure", "XSS", "SQL injection"},
		applications: []string{"Identity platforms", "Payment security", "Incident response"},
		companies:    []string{"CrowdStrike", "Palo Alto Networks", "Okta"},
		roles:        []string{"Security Engineer", "Penetration Tester", "Security Analyst"},
		skills:       []string{"Vulnerability assessment", "Secure code review", "Risk analysis"},
		tools:        []string{"Burp Suite", "OpenSSL", "Nmap"},
		useCases:     []string{"Hardening a login flow", "Responding to a credential leak"},
	},
	{
		keywords:     []string{"operating system", " os ", "kernel", "process", "concurrency"},
		module:       "Operating Systems",
		topics:       []string{"Process Management", "Memory Management", "File Systems", "Concurrency"},
		subtopics:    []string{"Scheduling", "Virtual memory", "Paging", "Deadlocks", "Synchronization"},
		applications: []string{"Cloud infrastructure", "Embedded systems", "Game engines"},
		companies:    []string{"Microsoft", "Apple", "Red Hat"},
		roles:        []string{"Systems Engineer", "Kernel Developer", "Infrastructure Engineer"},
		skills:       []string{"Low-level debugging", "Performance profiling", "Concurrent programming"},
		tools:        []string{"Linux", "C", "gdb", "perf"},
		useCases:     []string{"Tuning a service's memory footprint", "Debugging a deadlock in production"},
	},
	{
		keywords:     []string{"algorithm", "data structure", "complexity", "graph theory"},
		module:       "Algorithms and Data Structures",
		topics:       []string{"Algorithm Analysis", "Sorting and Searching", "Graph Algorithms", "Dynamic Programming"},
		subtopics:    []string{"Big-O notation", "Hash tables", "Trees", "Shortest paths", "Greedy algorithms"},
		applications: []string{"Route planning", "Search engines", "Compilers"},
		companies:    []string{"Google", "Meta", "Uber"},
		roles:        []string{"Software Engineer", "Backend Engineer"},
		skills:       []string{"Problem decomposition", "Complexity analysis", "Efficient implementation"},
		tools:        []string{"Python", "Java", "C++"},
		useCases:     []string{"Computing delivery routes", "Deduplicating large datasets"},
	},
	{
		keywords:     []string{"software engineering", "agile", "design pattern", "testing", "requirements"},
		module:       "Software Engineering",
		topics:       []string{"Software Design", "Testing", "Agile Delivery", "Version Control"},
		subtopics:    []string{"SOLID principles", "Unit testing", "Code review", "Continuous integration"},
		applications: []string{"Product development", "Platform teams", "Open source"},
		companies:    []string{"Atlassian", "GitHub", "Shopify"},
		roles:        []string{"Software Engineer", "QA Engineer", "Engineering Manager"},
		skills:       []string{"Modular design", "Test automation", "Collaboration"},
		tools:        []string{"Git", "Jira", "GitHub Actions"},
		useCases:     []string{"Refactoring a legacy module", "Setting up a CI pipeline"},
	},
	{
		keywords:     []string{"web", "html", "javascript", "frontend", "react"},
		module:       "Web Development",
		topics:       []string{"Frontend Development", "HTTP and APIs", "Web Performance", "Accessibility"},
		subtopics:    []string{"DOM", "REST", "Caching", "Responsive design"},
		applications: []string{"E-commerce sites", "SaaS dashboards", "Content platforms"},
		companies:    []string{"Vercel", "Airbnb", "Shopify"},
		roles:        []string{"Frontend Engineer", "Full-Stack Engineer"},
		skills:       []string{"UI implementation", "API integration", "Performance tuning"},
		tools:        []string{"TypeScript", "React", "Node.js"},
		useCases:     []string{"Building a checkout flow", "Reducing page load time"},
	},
	{
		keywords:     []string{"statistic", "probability", "regression analysis"},
		module:       "Statistics",
		topics:       []string{"Probability", "Statistical Inference", "Regression Analysis", "Experimental Design"},
		subtopics:    []string{"Distributions", "Hypothesis testing", "Confidence intervals", "A/B testing"},
		applications: []string{"Product analytics", "Clinical trials", "Risk modeling"},
		companies:    []string{"Booking.com", "Pfizer", "Capital One"},
		roles:        []string{"Data Analyst", "Statistician", "Quantitative Analyst"},
		skills:       []string{"Statistical modeling", "Experiment analysis", "Data visualization"},
		tools:        []string{"R", "Python", "SQL"},
		useCases:     []string{"Evaluating an A/B test", "Forecasting demand"},
	},
	{
		keywords:     []string{"data", "analytics", "big data", "etl"},
		module:       "Data Engineering",
		topics:       []string{"Data Pipelines", "Data Warehousing", "Stream Processing", "Data Quality"},
		subtopics:    []string{"ETL", "Partitioning", "Batch processing", "Schema evolution"},
		applications: []string{"Business intelligence", "Real-time dashboards", "ML feature stores"},
		companies:    []string{"Databricks", "Snowflake", "Airbnb"},
		roles:        []string{"Data Engineer", "Analytics Engineer"},
		skills:       []string{"Pipeline design", "SQL", "Data modeling"},
		tools:        []string{"Apache Spark", "Airflow", "Kafka", "dbt"},
		useCases:     []string{"Building a daily revenue pipeline", "Streaming clickstream events"},
	},
}

var nameSeparators = regexp.MustCompile(`[-_.\s]+`)

// normalizeFileName lowercases the base name and pads it with spaces so
// short keywords like " os " only match whole words.
func normalizeFileName(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	return " " + strings.TrimSpace(nameSeparators.ReplaceAllString(strings.ToLower(base), " ")) + " "
}

// FromFileName infers an academic profile from the file name alone.
func FromFileName(ref model.DocumentRef) (*model.ExtractedDocumentData, bool) {
	name := normalizeFileName(ref.FileName)
	for _, p := range profiles {
		for _, kw := range p.keywords {
			if strings.Contains(name, kw) {
				return p.toData(ref), true
			}
		}
	}
	return nil, false
}

func (p profile) toData(ref model.DocumentRef) *model.ExtractedDocumentData {
	return &model.ExtractedDocumentData{
		DocumentID:           ref.DocumentID,
		FileName:             ref.FileName,
		AcademicModule:       p.module,
		CoreTopics:           clone(p.topics),
		Subtopics:            clone(p.subtopics),
		IndustryApplications: clone(p.applications),
		RelevantCompanies:    clone(p.companies),
		JobRoles:             clone(p.roles),
		TechnicalSkills:      clone(p.skills),
		ToolsAndTechnologies: clone(p.tools),
		RealWorldUseCases:    clone(p.useCases),
		Source:               model.AnalysisSourceFilename,
	}
}

// Generic is the last-resort profile used when neither content nor file name
// yields topics.
func Generic(ref model.DocumentRef) *model.ExtractedDocumentData {
	return &model.ExtractedDocumentData{
		DocumentID:           ref.DocumentID,
		FileName:             ref.FileName,
		AcademicModule:       "General Studies",
		CoreTopics:           []string{"Problem Solving", "Critical Thinking", "Communication"},
		Subtopics:            []string{"Analytical reasoning", "Structured writing", "Presenting findings"},
		IndustryApplications: []string{"Consulting", "Project delivery", "Operations"},
		RelevantCompanies:    []string{"Deloitte", "Accenture", "McKinsey"},
		JobRoles:             []string{"Analyst", "Associate Consultant", "Project Coordinator"},
		TechnicalSkills:      []string{"Research", "Data interpretation", "Documentation"},
		ToolsAndTechnologies: []string{"Spreadsheets", "Presentation software"},
		RealWorldUseCases:    []string{"Preparing a recommendation for stakeholders"},
		Source:               model.AnalysisSourceGeneric,
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
