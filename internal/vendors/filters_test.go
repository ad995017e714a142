package vendors

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/query"
)

func TestBuildPlanMapsParameters(t *testing.T) {
	values := url.Values{
		"q":         {" cafe "},
		"address":   {"Cocody"},
		"minRating": {"3.5"},
		"sortBy":    {"popular"},
		"page":      {"2"},
		"limit":     {"500"},
	}

	plan, err := BuildPlan(values)
	require.NoError(t, err)
	require.Equal(t, []query.Predicate{
		query.Fuzzy(query.FieldNameSearch, "cafe"),
		query.ContainsFold(query.FieldAddress, "Cocody"),
	}, plan.Base)
	require.Equal(t, []query.Predicate{query.Gte(query.FieldAverageRating, 3.5)}, plan.Post)
	require.Equal(t, query.PopularSort(), plan.Sort)
	require.Equal(t, 2, plan.Page.Page)
	require.Equal(t, 100, plan.Page.Limit)
}

func TestBuildPlanDefaults(t *testing.T) {
	plan, err := BuildPlan(url.Values{"sortBy": {"weird"}})
	require.NoError(t, err)
	require.Empty(t, plan.Base)
	require.Empty(t, plan.Post)
	require.Equal(t, query.NewestSort(), plan.Sort)
	require.Equal(t, 1, plan.Page.Page)
	require.Equal(t, 10, plan.Page.Limit)
}

func TestBuildPlanRejectsNonNumericRating(t *testing.T) {
	_, err := BuildPlan(url.Values{"minRating": {"lots"}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}
