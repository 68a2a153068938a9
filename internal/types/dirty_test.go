package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDirtyNewIsDirty(t *testing.T) {
	d := NewDirty("hello")
	assert.False(t, d.IsClean())
	assert.Equal(t, "hello", d.Get())
}

func TestDirtyUpdateMarksDirty(t *testing.T) {
	d := NewDirty("hello")
	d.Clean()
	require.True(t, d.IsClean())

	d.Update(func(v *string) { *v = "world" })
	assert.False(t, d.IsClean())
	assert.Equal(t, "world", d.Get())
}

func TestDirtyYAMLRoundTrip(t *testing.T) {
	d := NewDirty(ContainerInfo{Config: ContainerConfig{Image: "nginx:latest"}})
	d.Clean()

	data, err := yaml.Marshal(d)
	require.NoError(t, err)

	var restored Dirty[ContainerInfo]
	require.NoError(t, yaml.Unmarshal(data, &restored))

	assert.True(t, restored.IsClean())
	assert.Equal(t, "nginx:latest", restored.Get().Config.Image)
}
