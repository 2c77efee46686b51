package postgres

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeasonSummaryMapsNullableYear(t *testing.T) {
	withYear := seasonSummary(seasonRow{Number: 2, Year: sql.NullInt32{Int32: 2024, Valid: true}, EpisodeCount: 8})
	require.Equal(t, 2, withYear.Number)
	require.Equal(t, 8, withYear.EpisodeCount)
	require.NotNil(t, withYear.Year)
	require.Equal(t, 2024, *withYear.Year)

	withoutYear := seasonSummary(seasonRow{Number: 1})
	require.Nil(t, withoutYear.Year)
	require.Zero(t, withoutYear.EpisodeCount)
}
