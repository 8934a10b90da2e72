package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z3r0c0d3r/predprey/fem"
)

func TestRecordSteps(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	p := fem.Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	require.NoError(t, s.BeginRun(p))

	for i := 1; i <= 3; i++ {
		info := fem.StepInfo{
			Step:   i,
			Time:   float64(i) * p.Dt,
			UIters: 4,
			VIters: 5,
			UMin:   -0.1, UMax: 1.1, USum: 2.5,
			VMin: 0, VMax: 0.4, VSum: 0.9,
		}
		require.NoError(t, s.RecordStep(info))
	}

	n, err := s.StepCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDuplicateStepRejected(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	p := fem.Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	require.NoError(t, s.BeginRun(p))

	info := fem.StepInfo{Step: 1, Time: 0.01}
	require.NoError(t, s.RecordStep(info))
	assert.Error(t, s.RecordStep(info))
}

func TestRunsAreSeparate(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	p := fem.Params{Alpha: 0.4, Beta: 2, Gamma: 0.8, Delta: 1, T: 0.1, Dt: 0.01}
	require.NoError(t, s.BeginRun(p))
	require.NoError(t, s.RecordStep(fem.StepInfo{Step: 1}))
	require.NoError(t, s.RecordStep(fem.StepInfo{Step: 2}))

	require.NoError(t, s.BeginRun(p))
	require.NoError(t, s.RecordStep(fem.StepInfo{Step: 1}))

	n, err := s.StepCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
