package serv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(`
listen: "0.0.0.0:9090"
db_path: /var/lib/tabq/data.db
log_json: true
auth:
  secret: s3cret
  issuer: tabq
`))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", conf.Listen)
	assert.Equal(t, "/var/lib/tabq/data.db", conf.DBPath)
	assert.True(t, conf.LogJSON)
	assert.Equal(t, "s3cret", conf.Auth.Secret)
	assert.Equal(t, "tabq", conf.Auth.Issuer)
}

func TestParseConfig_Defaults(t *testing.T) {
	conf, err := ParseConfig([]byte(`auth: {secret: x}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Listen, conf.Listen)
	assert.Equal(t, DefaultConfig().DBPath, conf.DBPath)
	assert.False(t, conf.LogJSON)
	assert.Equal(t, "x", conf.Auth.Secret)
}

func TestParseConfig_Empty(t *testing.T) {
	conf, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), conf)
}

func TestParseConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":  `listne: ":8080"`,
		"wrong type":   `log_json: "yes"`,
		"empty listen": `listen: ""`,
		"nested stray": "auth: {secret: x, scope: y}",
		"not yaml":     `{{`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(raw))
			assert.Error(t, err)
		})
	}
}
