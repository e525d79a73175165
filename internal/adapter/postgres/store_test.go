package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-unifier/internal/domain"
)

func TestHourArgs(t *testing.T) {
	id := "7b1f8c1e-3e0b-4d8c-9a53-0f5f2f1d2c11"
	r := domain.EmptyRecord(time.Date(2025, 10, 1, 3, 0, 0, 0, time.FixedZone("PDT", -7*3600)))
	r.PM25 = 12.5
	r.WindSpeed = 0
	r.NoDataFlag = false

	args := hourArgs(id, r)

	require.Len(t, args, 12)
	assert.Equal(t, time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC), args[0])
	require.IsType(t, (*float64)(nil), args[1])
	assert.Equal(t, 12.5, *args[1].(*float64))
	assert.Nil(t, args[2], "missing PM10 is NULL")
	assert.Equal(t, 0.0, *args[9].(*float64), "zero wind is not NULL")
	assert.Equal(t, false, args[10])
	assert.Equal(t, id, args[11])
}

func TestRunArgs(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	run := domain.Run{
		ID:          "run-1",
		StartedAt:   start,
		FinishedAt:  start.Add(time.Minute),
		Files:       10,
		FailedFiles: 2,
		Quality: domain.QualityReport{
			Rows:         168,
			NoDataHours:  4,
			Start:        start,
			End:          start.Add(167 * time.Hour),
			Completeness: map[string]float64{domain.VarPM25: 0.9},
			Passed:       true,
		},
	}

	args, err := runArgs(run)
	require.NoError(t, err)
	require.Len(t, args, 11)
	assert.Equal(t, run.ID, args[0])
	assert.Equal(t, 168, args[5])
	assert.Equal(t, 4, args[6])
	assert.Equal(t, 2, args[8])
	assert.Equal(t, true, args[9])

	var q domain.QualityReport
	require.NoError(t, json.Unmarshal(args[10].([]byte), &q))
	assert.Equal(t, 0.9, q.Completeness[domain.VarPM25])
}

func TestRunArgs_EmptyWindowIsNull(t *testing.T) {
	args, err := runArgs(domain.Run{ID: "run-2"})
	require.NoError(t, err)
	assert.Nil(t, args[3])
	assert.Nil(t, args[4])
}
