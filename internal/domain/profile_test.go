package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileExperienceByID(t *testing.T) {
	p := &Profile{}
	p.AddExperience(Experience{ID: "e1", Title: "first"})
	p.AddExperience(Experience{ID: "e2", Title: "second"})
	p.AddExperience(Experience{ID: "e3", Title: "third"})
	require.Equal(t, "e3", p.Experience[0].ID)

	require.NoError(t, p.RemoveExperience("e2"))
	require.Len(t, p.Experience, 2)
	require.Equal(t, "e3", p.Experience[0].ID)
	require.Equal(t, "e1", p.Experience[1].ID)

	require.ErrorIs(t, p.RemoveExperience("e2"), ErrNotFound)
	require.Len(t, p.Experience, 2)
}

func TestProfileEducationRemovesOwnID(t *testing.T) {
	p := &Profile{
		Experience: []Experience{{ID: "x1"}},
		Education:  []Education{{ID: "d2"}, {ID: "d1"}},
	}

	// an experience id must not match an education entry
	require.ErrorIs(t, p.RemoveEducation("x1"), ErrNotFound)
	require.Len(t, p.Education, 2)

	require.NoError(t, p.RemoveEducation("d1"))
	require.Equal(t, []Education{{ID: "d2"}}, p.Education)
	require.Len(t, p.Experience, 1)
}
