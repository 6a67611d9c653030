package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageDefinitionsCoverPipeline(t *testing.T) {
	defs := StageDefinitions()
	require.Len(t, defs, 12)
	assert.Equal(t, 1, defs[0].StageNumber)
	assert.Equal(t, "01_Initial_Contact", defs[0].FolderName)
	assert.Equal(t, "Quote Sent", defs[3].Name)
	assert.Equal(t, "12_Follow_Up", defs[11].FolderName)
	for _, d := range defs {
		assert.Nil(t, d.TemplateID, d.Name)
		assert.True(t, d.AutoAdvances(), d.Name)
	}
}

func TestMigrationIDsAreOrderedAndUnique(t *testing.T) {
	seen := map[string]bool{}
	prev := ""
	for _, m := range migrations() {
		assert.False(t, seen[m.ID], m.ID)
		assert.Greater(t, m.ID, prev)
		assert.NotNil(t, m.Migrate, m.ID)
		assert.NotNil(t, m.Rollback, m.ID)
		seen[m.ID] = true
		prev = m.ID
	}
}
