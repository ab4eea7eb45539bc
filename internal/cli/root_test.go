package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed"}, names)
}

func TestSeedCommand_Flags(t *testing.T) {
	seed, _, err := NewRootCommand().Find([]string{"seed"})
	require.NoError(t, err)

	email := seed.Flags().Lookup("admin-email")
	require.NotNil(t, email)
	assert.Equal(t, "admin@storefront.local", email.DefValue)
	assert.NotNil(t, seed.Flags().Lookup("admin-password"))
}

func TestMigrateAndSeed_SQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:cli_migrate_seed?mode=memory&cache=shared")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	root.SetArgs([]string{"seed", "--admin-email", "ops@example.com", "--admin-password", "ops-secret"})
	assert.NoError(t, root.Execute())
}
