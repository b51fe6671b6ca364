package main

import (
	"testing"
	"time"

	"hamsterhub/internal/pkg"
	"hamsterhub/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronRunnerResetsOnUTCWeekBoundary(t *testing.T) {
	runner := newCronRunner()
	assert.Equal(t, time.UTC, runner.Location())

	id, err := runner.AddFunc(services.CRONJOB_DEFAULT_TIME_WEEKLY_RESET, func() {})
	require.NoError(t, err)

	runner.Start()
	defer runner.Stop()

	next := runner.Entry(id).Next
	assert.Equal(t, time.UTC, next.Location())
	assert.Equal(t, pkg.GetFirstTimeOfCurrentWeek().AddDate(0, 0, 7), next)
}
