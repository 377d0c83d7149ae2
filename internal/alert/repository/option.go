package repository

// ListRulesOptions selects the rules of one project.
type ListRulesOptions struct {
	ProjectID   string
	EnabledOnly bool
}
