package hookdispatch

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProcessEnvRestoresUnsetKey(t *testing.T) {
	const key = "LUCKY_TEST_UNSET_KEY"
	_, had := os.LookupEnv(key)
	require.False(t, had)

	restore := setProcessEnv(map[string]string{key: "value"})
	got, ok := os.LookupEnv(key)
	assert.True(t, ok)
	assert.Equal(t, "value", got)

	restore()
	_, ok = os.LookupEnv(key)
	assert.False(t, ok, "key absent before the call must be absent after restore")
}

func TestSetProcessEnvRestoresPriorValue(t *testing.T) {
	const key = "LUCKY_TEST_PRIOR_KEY"
	require.NoError(t, os.Setenv(key, "original"))
	defer os.Unsetenv(key)

	restore := setProcessEnv(map[string]string{key: "overridden"})
	assert.Equal(t, "overridden", os.Getenv(key))

	restore()
	assert.Equal(t, "original", os.Getenv(key))
}
