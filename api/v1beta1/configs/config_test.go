package configs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulelabel/api/v1beta1/configs"
	"github.com/macropower/rulelabel/pkg/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := configs.New()

	assert.Equal(t, "rulelabel.jacobcolvin.com/v1beta1", cfg.GetAPIVersion())
	assert.Equal(t, "Configuration", cfg.GetKind())

	require.NotNil(t, cfg.Source)
	assert.Equal(t, "oc get promrule -A -o json", cfg.Source.String())

	require.NotNil(t, cfg.Apply)
	assert.Equal(t, "oc apply -f", cfg.Apply.String())

	require.NotNil(t, cfg.Envelope)
	assert.Equal(t, "prometheus", cfg.Envelope.Name)
	assert.Equal(t, "openshift-monitoring", cfg.Envelope.Namespace)
	assert.Equal(t, "custom-alerts", cfg.Envelope.GroupName)
	assert.Equal(t, map[string]string{"role": "alert-rules"}, cfg.Envelope.Labels)
}

func TestConfig_EnsureDefaults(t *testing.T) {
	t.Parallel()

	cfg := &configs.Config{}
	assert.Nil(t, cfg.Source)
	assert.Nil(t, cfg.Apply)
	assert.Nil(t, cfg.Envelope)

	cfg.EnsureDefaults()

	assert.NotNil(t, cfg.Source)
	assert.NotNil(t, cfg.Apply)
	assert.NotNil(t, cfg.Envelope)
}

func TestConfig_SetBaseEnv(t *testing.T) {
	t.Parallel()

	cfg := configs.New()
	cfg.SetBaseEnv([]string{"KUBECONFIG=/tmp/kubeconfig", "SECRET=x", "PATH=/bin"})

	assert.Equal(t, []string{"KUBECONFIG=/tmp/kubeconfig", "PATH=/bin"}, cfg.Source.GetEnv())
	assert.Equal(t, []string{"KUBECONFIG=/tmp/kubeconfig", "PATH=/bin"}, cfg.Apply.GetEnv())
}

func TestConfig_MarshalYAML(t *testing.T) {
	t.Parallel()

	b, err := configs.New().MarshalYAML()
	require.NoError(t, err)

	out := string(b)
	assert.Contains(t, out, "apiVersion: rulelabel.jacobcolvin.com/v1beta1")
	assert.Contains(t, out, "kind: Configuration")
	assert.Contains(t, out, "command: oc")
	assert.Contains(t, out, "namespace: openshift-monitoring")

	require.NoError(t, configs.DefaultValidator.ValidateBytes(b))
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rulelabel", "config.yaml")

	require.NoError(t, configs.WriteDefault(path, false))

	_, err := os.Stat(filepath.Join(filepath.Dir(path), configs.SchemaFile))
	require.NoError(t, err)

	// The written default must load back into the default config.
	cfg, err := config.Load(path)
	require.NoError(t, err)

	want := configs.New()
	assert.Equal(t, want.Source.String(), cfg.Source.String())
	assert.Equal(t, want.Source.EnvFrom, cfg.Source.EnvFrom)
	assert.Equal(t, want.Apply.String(), cfg.Apply.String())
	assert.Equal(t, want.Envelope, cfg.Envelope)
}

func TestWriteDefault_ExistingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	require.NoError(t, configs.WriteDefault(path, false))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(got))

	require.NoError(t, configs.WriteDefault(path, true))

	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "kind: Configuration")
}

func TestSchemaJSON(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		wantErr bool
	}{
		"default config": {
			input: "apiVersion: rulelabel.jacobcolvin.com/v1beta1\nkind: Configuration\n",
		},
		"wrong kind": {
			input:   "apiVersion: rulelabel.jacobcolvin.com/v1beta1\nkind: Policy\n",
			wantErr: true,
		},
		"envelope labels must be strings": {
			input:   "apiVersion: rulelabel.jacobcolvin.com/v1beta1\nkind: Configuration\nenvelope:\n  labels:\n    role: [a]\n",
			wantErr: true,
		},
		"command with spaces": {
			input:   "apiVersion: rulelabel.jacobcolvin.com/v1beta1\nkind: Configuration\nsource:\n  command: oc get\n",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := configs.DefaultValidator.ValidateBytes([]byte(tc.input))
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}
