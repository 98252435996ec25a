package registry

// BuiltinSystems returns the descriptors for the three systems askbridge
// ships with. The keyword and pattern sets drive routing; display name and
// description are what /api/mcps returns to the UI.
func BuiltinSystems() []Descriptor {
	return []Descriptor{
		{
			ID:          SystemJira,
			Name:        "JIRA",
			Description: "Issue tracking and project management",
			PrimaryKeywords: []string{
				"jira", "issue", "ticket", "sprint", "epic", "story", "bug", "task",
			},
			SecondaryKeywords: []string{
				"assignee", "priority", "workflow", "project", "board", "backlog",
			},
			Patterns: []string{
				`\b[a-z]{2,}-\d+\b`, // issue keys like ABC-123 (matched lowercased)
				`create.*(?:issue|ticket|story)`,
				`assign.*to`,
				`sprint.*\d+`,
			},
		},
		{
			ID:          SystemConfluence,
			Name:        "Confluence",
			Description: "Documentation and knowledge base",
			PrimaryKeywords: []string{
				"confluence", "documentation", "wiki", "page", "space", "knowledge",
			},
			SecondaryKeywords: []string{
				"guide", "manual", "procedure", "policy", "how-to", "tutorial",
			},
			Patterns: []string{
				`search.*(?:documentation|wiki|confluence)`,
				`how\s+(?:to|do|can)`,
				`documentation.*about`,
				`find.*(?:page|guide)`,
			},
		},
		{
			ID:          SystemBitbucket,
			Name:        "Bitbucket",
			Description: "Code repositories and reviews",
			PrimaryKeywords: []string{
				"bitbucket", "repository", "repo", "pull request", "pr", "commit", "branch",
			},
			SecondaryKeywords: []string{
				"code review", "merge", "git", "source code", "version control",
			},
			Patterns: []string{
				`pull\s+request`,
				`code\s+review`,
				`commit.*analysis`,
				`repository.*[a-z][a-z0-9_]+/[a-z0-9_-]+`,
			},
		},
	}
}
