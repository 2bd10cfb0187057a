package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock_SecondAcquireFails(t *testing.T) {
	dir := t.TempDir()

	l1, err := AcquireLock(dir, "fp1")
	require.NoError(t, err)
	defer l1.Release()

	_, err = AcquireLock(dir, "fp1")
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestAcquireLock_ReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	l1, err := AcquireLock(dir, "fp1")
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := AcquireLock(dir, "fp1")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireLock_DistinctFingerprintsIndependent(t *testing.T) {
	dir := t.TempDir()

	l1, err := AcquireLock(dir, "fp1")
	require.NoError(t, err)
	defer l1.Release()

	l2, err := AcquireLock(dir, "fp2")
	require.NoError(t, err)
	defer l2.Release()
}
