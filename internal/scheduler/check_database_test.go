package scheduler

import (
	"testing"

	testutil "github.com/aristath/turtle/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCheckDatabaseJob_Name(t *testing.T) {
	assert.Equal(t, "check_database", NewCheckDatabaseJob(nil, zerolog.Nop()).Name())
}

func TestCheckDatabaseJob_Run_NoDatabase(t *testing.T) {
	job := NewCheckDatabaseJob(nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCheckDatabaseJob_Run(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	defer cleanup()

	job := NewCheckDatabaseJob(db, zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCheckDatabaseJob_Run_ClosedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	cleanup()

	job := NewCheckDatabaseJob(db, zerolog.Nop())
	assert.Error(t, job.Run())
}
