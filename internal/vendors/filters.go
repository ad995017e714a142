package vendors

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/pagination"
	"github.com/angelmondragon/koumale-backend/pkg/query"
)

// BuildPlan compiles the public vendor listing parameters.
func BuildPlan(values url.Values) (query.Plan, error) {
	plan := query.NewPlan()

	if q := strings.TrimSpace(values.Get("q")); q != "" {
		plan.Where(query.Fuzzy(query.FieldNameSearch, q))
	}
	if address := strings.TrimSpace(values.Get("address")); address != "" {
		plan.Where(query.ContainsFold(query.FieldAddress, address))
	}
	if raw := strings.TrimSpace(values.Get("minRating")); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return query.Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "minRating must be numeric").
				WithDetails(map[string]string{"minRating": raw})
		}
		plan.Having(query.Gte(query.FieldAverageRating, minRating))
	}

	plan.Sort = query.SortFor(enums.ParseSortMode(values.Get("sortBy")))
	plan.Page = pagination.Parse(values)
	return plan, nil
}
