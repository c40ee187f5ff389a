package main

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sghaida/odic/resolver"
)

// -------------------------
// parseSpec
// -------------------------

func TestParseSpec(t *testing.T) {
	t.Parallel()

	const header = "version: \"1.0.0\"\npackage: app\nname: App\n"

	tests := []struct {
		name    string
		raw     string
		wantErr []string
	}{
		{name: "valid", raw: appSpec},
		{
			name: "json_is_accepted",
			raw:  `{"version":"1.2.0","package":"app","name":"App","services":[{"type":"*Logger","constructor":"NewLogger"}]}`,
		},
		{
			name: "dynamic_needs_no_constructor",
			raw:  header + "services:\n  - type: \"*http.Request\"\n    dynamic: true\n",
		},
		{
			name:    "missing_constructor",
			raw:     header + "services:\n  - type: \"*Logger\"\n",
			wantErr: []string{`services[0].constructor: failed "required_without_all"`},
		},
		{
			name: "factory_reference_replaces_constructor",
			raw:  header + "services:\n  - type: \"*Cache\"\n    factory: caches.Default.New\n",
		},
		{
			name: "constructor_and_factory_conflict",
			raw: header + "services:\n  - type: \"*Cache\"\n    constructor: NewCache\n" +
				"    factory: caches.Default.New\n",
			wantErr: []string{`services[0].factory: failed "excluded_with"`},
		},
		{
			name:    "unknown_lifetime",
			raw:     header + "services:\n  - type: \"*Logger\"\n    constructor: NewLogger\n    lifetime: forever\n",
			wantErr: []string{`services[0].lifetime: failed "oneof"`},
		},
		{
			name: "unknown_cardinality",
			raw: header + "services:\n  - type: \"*Repo\"\n    constructor: NewRepo\n" +
				"    dependencies:\n      - type: \"*Logger\"\n        cardinality: many\n",
			wantErr: []string{`services[0].dependencies[0].cardinality: failed "oneof"`},
		},
		{
			name:    "no_services",
			raw:     header,
			wantErr: []string{`services: failed "required"`},
		},
		{
			name:    "empty_services",
			raw:     header + "services: []\n",
			wantErr: []string{`services: failed "min"`},
		},
		{
			name: "every_field_error_is_reported",
			raw:  "version: \"1.0.0\"\npackage: my-app\nname: App\nservices:\n  - lifetime: scoped\n    constructor: X\n",
			wantErr: []string{
				`package: failed "goident"`,
				`services[0].type: failed "required"`,
			},
		},
		{
			name:    "unsupported_major_version",
			raw:     strings.Replace(appSpec, `"1.0.0"`, `"2.0.0"`, 1),
			wantErr: []string{"unsupported spec version 2.0.0 (want ^1)"},
		},
		{
			name:    "malformed_version",
			raw:     strings.Replace(appSpec, `"1.0.0"`, `"one"`, 1),
			wantErr: []string{`version "one"`},
		},
		{
			name:    "malformed_yaml",
			raw:     "services: [",
			wantErr: []string{"decode:"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec, err := parseSpec([]byte(tt.raw))
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				require.NotNil(t, spec)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestLoadSpec_MissingFile(t *testing.T) {
	t.Parallel()

	p := newPkg(t)
	_, _, err := loadSpec(p.out("nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read spec")
}

// -------------------------
// Descriptors
// -------------------------

func TestContainerSpec_Descriptors(t *testing.T) {
	t.Parallel()

	spec, err := parseSpec([]byte(appSpec))
	require.NoError(t, err)

	ds, err := spec.Descriptors()
	require.NoError(t, err)
	require.Len(t, ds, 5)

	assert.Equal(t, resolver.Descriptor{
		Type:     "*Logger",
		Lifetime: resolver.Singleton,
		Factory:  resolver.Factory{Constructor: "NewLogger"},
	}, ds[0])

	assert.Equal(t, resolver.Scoped, ds[1].Lifetime)
	assert.True(t, ds[1].Disposable)
	assert.True(t, ds[1].Factory.ReturnsError)

	// lifetime and cardinality defaults
	assert.Equal(t, resolver.Transient, ds[2].Lifetime)
	assert.Equal(t, resolver.Single, ds[2].Dependencies[0].Cardinality)

	assert.Equal(t, []resolver.Requirement{
		{Type: "*Repo", Cardinality: resolver.Single},
		{Type: "*Cache", Cardinality: resolver.Lazy},
		{Type: "*http.Request", Cardinality: resolver.Single},
	}, ds[3].Dependencies)

	assert.True(t, ds[4].Dynamic)
	assert.Equal(t, resolver.Factory{}, ds[4].Factory)
}

func TestContainerSpec_GoTypeOf(t *testing.T) {
	t.Parallel()

	spec := &ContainerSpec{Services: []ServiceSpec{
		{Type: "Store", GoType: "store.Store"},
		{Type: "*Logger"},
	}}

	assert.Equal(t, "store.Store", spec.goTypeOf("Store"))
	assert.Equal(t, "*Logger", spec.goTypeOf("*Logger"))
	assert.Equal(t, "*Unknown", spec.goTypeOf("*Unknown"))
}

// -------------------------
// config
// -------------------------

func TestConfigFromEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     map[string]string
		want    Config
		wantErr string
	}{
		{
			name: "defaults",
			want: Config{LogLevel: slog.LevelWarn, LogFormat: "text"},
		},
		{
			name: "all_set",
			env: map[string]string{
				"DIGEN_ALLOW_DYNAMIC": "true",
				"DIGEN_LOG_LEVEL":     "debug",
				"DIGEN_LOG_FORMAT":    "JSON",
			},
			want: Config{AllowDynamic: true, LogLevel: slog.LevelDebug, LogFormat: "json"},
		},
		{name: "bad_bool", env: map[string]string{"DIGEN_ALLOW_DYNAMIC": "maybe"}, wantErr: "DIGEN_ALLOW_DYNAMIC"},
		{name: "bad_level", env: map[string]string{"DIGEN_LOG_LEVEL": "loud"}, wantErr: "DIGEN_LOG_LEVEL"},
		{name: "bad_format", env: map[string]string{"DIGEN_LOG_FORMAT": "xml"}, wantErr: `unknown format "xml"`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := configFromEnv(func(k string) string { return tt.env[k] })
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}
