package job

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFilter_XML(t *testing.T) {
	out, err := DefaultFilter.XML()
	require.NoError(t, err)

	expected := `<hostRequires><and>` +
		`<key_value key="PROCESSORS" op="&gt;" value="3"></key_value>` +
		`<memory op="&gt;" value="11000"></memory>` +
		`<key_value key="DISKSPACE" op="&gt;" value="120000"></key_value>` +
		`<hypervisor op="=" value=""></hypervisor>` +
		`</and></hostRequires>`
	assert.Equal(t, expected, out)
	assert.False(t, strings.Contains(out, "\n"))
}

func TestHostFilter_XMLWithoutBareMetal(t *testing.T) {
	f := DefaultFilter
	f.BareMetal = false

	out, err := f.XML()
	require.NoError(t, err)
	assert.NotContains(t, out, "hypervisor")
	assert.Contains(t, out, `key="PROCESSORS"`)
}
