package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func TestRegistry_SelectsECSJSONOverGenericJSON(t *testing.T) {
	r := newTestRegistry(t)
	raw := []byte(`{"@timestamp":"2026-01-01T00:00:00Z","source":{"ip":"10.0.0.1"},"user":{"name":"alice"}}`)

	parser, score, ok := r.SelectBest(raw)
	require.True(t, ok)
	assert.Equal(t, "ecs-json", parser.ID())
	assert.Greater(t, score, 0.0)
}

func TestRegistry_SelectsGenericJSONForUnrecognizedJSON(t *testing.T) {
	r := newTestRegistry(t)
	raw := []byte(`{"source_ip":"10.0.0.1","user":"bob","action":"login"}`)

	parser, _, ok := r.SelectBest(raw)
	require.True(t, ok)
	assert.Equal(t, "generic-json", parser.ID())
}

func TestRegistry_SelectsSplunkCIMForKeyValue(t *testing.T) {
	r := newTestRegistry(t)
	raw := []byte(`src=10.0.0.5 dest=10.0.0.10 dest_port=443 user=alice action=allowed`)

	parser, _, ok := r.SelectBest(raw)
	require.True(t, ok)
	assert.Equal(t, "splunk-cim", parser.ID())

	fields, err := parser.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", fields["source_ip"])
	assert.Equal(t, "443", fields["destination_port"])
}

func TestRegistry_SelectsCiscoASA(t *testing.T) {
	r := newTestRegistry(t)
	raw := []byte(`%ASA-6-302013: Built outbound TCP connection 123 for outside:203.0.113.5/443 (203.0.113.5/443) to inside:192.168.1.10/51000 (192.168.1.10/51000)`)

	parser, _, ok := r.SelectBest(raw)
	require.True(t, ok)
	assert.Equal(t, "cisco-asa", parser.ID())

	fields, err := parser.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", fields["source_ip"])
	assert.Equal(t, "192.168.1.10", fields["destination_ip"])
}

func TestRegistry_SelectsSyslogRFC5424(t *testing.T) {
	r := newTestRegistry(t)
	raw := []byte(`<34>1 2026-01-01T00:00:00Z myhost app 123 ID47 - login failed`)

	parser, _, ok := r.SelectBest(raw)
	require.True(t, ok)
	assert.Equal(t, "syslog-rfc5424", parser.ID())
}

func TestRegistry_RejectsUnrecognizedBinary(t *testing.T) {
	r := newTestRegistry(t)
	raw := []byte{0x00, 0x01, 0x02}

	_, _, ok := r.SelectBest(raw)
	assert.False(t, ok, "garbage binary input must be rejected by every built-in parser")
}

func TestRegistry_DuplicateRegistrationFails(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Register(NewGenericJSONParser())
	assert.Error(t, err)
}
