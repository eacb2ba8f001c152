package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

func TestMenuDraftAdd(t *testing.T) {
	d := NewMenuDraft()

	require.NoError(t, d.Add("  Haircut "))
	assert.ErrorIs(t, d.Add("haircut"), ErrDuplicateMenuName)
	assert.ErrorIs(t, d.Add("   "), ErrEmptyMenuName)
	require.NoError(t, d.Add("Shave"))

	assert.Equal(t, []string{"Haircut", "Shave"}, d.Names())
	for _, item := range d.Items() {
		assert.False(t, item.Persisted())
	}
}

func TestMenuDraftRemoveIsExact(t *testing.T) {
	d := NewMenuDraft()
	require.NoError(t, d.Add("Haircut"))
	require.NoError(t, d.Add("Shave"))

	assert.False(t, d.Remove("haircut"))
	assert.True(t, d.Remove("Haircut"))
	assert.False(t, d.Remove("Haircut"))
	assert.Equal(t, []string{"Shave"}, d.Names())
}

func TestMenuDraftPopulate(t *testing.T) {
	page := &domain.ServicePage{Menu: []domain.MenuItem{{ID: 1, Name: "Embedded"}}}

	t.Run("seeds from the page once", func(t *testing.T) {
		d := NewMenuDraft()
		d.Populate(page, nil)
		assert.Equal(t, []string{"Embedded"}, d.Names())

		require.NoError(t, d.Add("Local"))
		d.Populate(page, nil)
		assert.Equal(t, []string{"Embedded", "Local"}, d.Names())
	})

	t.Run("fetched collection wins", func(t *testing.T) {
		d := NewMenuDraft()
		d.Populate(page, []domain.MenuItem{{ID: 2, Name: "Fetched"}})
		assert.Equal(t, []string{"Fetched"}, d.Names())

		require.NoError(t, d.Add("Local"))
		d.Populate(page, []domain.MenuItem{{ID: 2, Name: "Fetched"}, {ID: 3, Name: "Other"}})
		assert.Equal(t, []string{"Fetched", "Other"}, d.Names())
	})

	t.Run("nothing to seed from", func(t *testing.T) {
		d := NewMenuDraft()
		d.Populate(nil, nil)
		d.Populate(&domain.ServicePage{}, []domain.MenuItem{})
		assert.Empty(t, d.Names())
	})
}
