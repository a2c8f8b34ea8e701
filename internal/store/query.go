package store

import (
	"fmt"
	"strings"

	"github.com/inkwell-dev/website/internal/search"
)

// termMatch is true when a single ILIKE pattern occurs in any text column.
const termMatch = `(title ILIKE $%[1]d OR summary ILIKE $%[1]d OR body ILIKE $%[1]d OR array_to_string(tags, ' ') ILIKE $%[1]d)`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// buildSearchQuery renders plan as a parameterized WHERE clause. Terms are
// joined with AND or OR according to the plan mode; every exclusion is
// ANDed as a negation.
func buildSearchQuery(plan *search.Plan, limit int) (string, []any) {
	args := make([]any, 0, len(plan.Terms)+len(plan.Exclude)+1)
	include := make([]string, 0, len(plan.Terms))
	for _, term := range plan.Terms {
		args = append(args, likePattern(term))
		include = append(include, fmt.Sprintf(termMatch, len(args)))
	}
	joiner := " AND "
	if plan.Mode == search.ModeOR {
		joiner = " OR "
	}
	where := "(" + strings.Join(include, joiner) + ")"

	for _, term := range plan.Exclude {
		args = append(args, likePattern(term))
		where += " AND NOT " + fmt.Sprintf(termMatch, len(args))
	}

	args = append(args, limit)
	query := `SELECT ` + listColumns + ` FROM blog WHERE ` + where +
		fmt.Sprintf(` ORDER BY publish_date DESC, id DESC LIMIT $%d`, len(args))
	return query, args
}
