package keystore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/domain"
	"courier/internal/keystore"
)

func openStore(t *testing.T) *keystore.Bolt {
	t.Helper()
	s, err := keystore.OpenBolt(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBolt_SaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save(domain.SlotMasterKeySalt, []byte("salty")))

	got, err := s.Load(domain.SlotMasterKeySalt)
	require.NoError(t, err)
	assert.Equal(t, []byte("salty"), got)

	exists, err := s.Exists(domain.SlotMasterKeySalt)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBolt_MissingSlot(t *testing.T) {
	s := openStore(t)

	_, err := s.Load(domain.SlotIdentityKey)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	exists, err := s.Exists(domain.SlotIdentityKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBolt_SaveReplaces(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save(domain.SlotRegistration, []byte("1")))
	require.NoError(t, s.Save(domain.SlotRegistration, []byte("2")))

	got, err := s.Load(domain.SlotRegistration)
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}

func TestBolt_DeleteAndDeleteAll(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save(domain.SlotMasterKeySalt, []byte("a")))
	require.NoError(t, s.Save(domain.SlotIdentityKey, []byte("b")))

	require.NoError(t, s.Delete(domain.SlotMasterKeySalt))
	_, err := s.Load(domain.SlotMasterKeySalt)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	// Deleting a missing slot is not an error.
	require.NoError(t, s.Delete(domain.SlotMasterKeySalt))

	require.NoError(t, s.DeleteAll())
	_, err = s.Load(domain.SlotIdentityKey)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	// The store is still usable after a wipe.
	require.NoError(t, s.Save(domain.SlotDeviceID, []byte("1")))
}

func TestBolt_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")

	s, err := keystore.OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(domain.SlotDeviceID, []byte("7")))
	require.NoError(t, s.Close())

	reopened, err := keystore.OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(domain.SlotDeviceID)
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), got)
}
