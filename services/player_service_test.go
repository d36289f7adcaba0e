package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"soloProgressAPI/internal/progression"
)

func TestXPDelta(t *testing.T) {
	assert.Equal(t, 0, XPDelta(5, 5))
	assert.Equal(t, 30, XPDelta(2, 5))
	assert.Equal(t, -20, XPDelta(5, 3))

	// One task is always worth XPPerTask.
	assert.Equal(t, progression.XPPerTask, XPDelta(0, 1))
}

func TestStreakMilestones(t *testing.T) {
	for _, day := range []int{7, 30, 100, 365} {
		assert.True(t, streakMilestones[day], "day %d should be a milestone", day)
	}
	for _, day := range []int{1, 6, 8, 29, 31, 99, 101, 364, 366} {
		assert.False(t, streakMilestones[day], "day %d should not be a milestone", day)
	}
}

func TestValidateActivities(t *testing.T) {
	valid := []progression.Activity{
		{ID: "gym", Name: "Gym", Icon: "💪"},
		{ID: "books", Name: "Books", SubGoals: []progression.SubGoal{
			{ID: "reading", Name: "Reading"},
		}},
	}
	assert.NoError(t, validateActivities(valid))

	t.Run("empty set", func(t *testing.T) {
		assert.Error(t, validateActivities(nil))
		assert.Error(t, validateActivities([]progression.Activity{}))
	})

	t.Run("missing id", func(t *testing.T) {
		err := validateActivities([]progression.Activity{{Name: "Gym"}})
		assert.Error(t, err)
	})

	t.Run("missing name", func(t *testing.T) {
		err := validateActivities([]progression.Activity{{ID: "gym"}})
		assert.Error(t, err)
	})

	t.Run("separator in id", func(t *testing.T) {
		err := validateActivities([]progression.Activity{{ID: "gym:extra", Name: "Gym"}})
		assert.Error(t, err)
	})

	t.Run("duplicate ids", func(t *testing.T) {
		err := validateActivities([]progression.Activity{
			{ID: "gym", Name: "Gym"},
			{ID: "gym", Name: "Gym Again"},
		})
		assert.Error(t, err)
	})

	t.Run("bad sub-goal", func(t *testing.T) {
		err := validateActivities([]progression.Activity{
			{ID: "books", Name: "Books", SubGoals: []progression.SubGoal{{ID: "", Name: "Reading"}}},
		})
		assert.Error(t, err)
	})
}
