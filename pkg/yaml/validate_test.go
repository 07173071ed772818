package yaml_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goccyyaml "github.com/goccy/go-yaml"

	"github.com/macropower/rulelabel/pkg/yaml"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"kind": {"type": "string"},
		"source": {
			"type": "object",
			"properties": {
				"command": {"type": "string"},
				"args": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["command"]
		}
	},
	"required": ["kind"]
}`

func TestError_Error(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err  *yaml.Error
		want string
	}{
		"with path": {
			err: &yaml.Error{
				Err:  errors.New("value is required"),
				Path: mustBuildPath(t, "source", "command"),
			},
			want: "error at $.source.command: value is required",
		},
		"without path": {
			err: &yaml.Error{
				Err: errors.New("validation error: value is required"),
			},
			want: "validation error: value is required",
		},
		"nil error": {
			err:  &yaml.Error{},
			want: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestError_AnnotatedSource(t *testing.T) {
	t.Parallel()

	src := []byte("kind: Configuration\nsource:\n  command: 42\n")

	err := &yaml.Error{
		Err:    errors.New("got number, want string"),
		Path:   mustBuildPath(t, "source", "command"),
		Source: src,
	}

	msg := err.Error()
	assert.Contains(t, msg, "error at $.source.command: got number, want string")
	assert.Contains(t, msg, "command: 42")
}

func TestNewValidator(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		errMsg     string
		schemaData []byte
	}{
		"valid schema": {
			schemaData: []byte(testSchema),
		},
		"empty schema": {
			schemaData: []byte(`{}`),
		},
		"invalid json": {
			schemaData: []byte(`{"invalid": json}`),
			errMsg:     "unmarshal schema",
		},
		"invalid schema": {
			schemaData: []byte(`{"type": "invalid_type"}`),
			errMsg:     "compile schema",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			validator, err := yaml.NewValidator("test.json", tc.schemaData)
			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				assert.Nil(t, validator)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, validator)
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	validator := yaml.MustNewValidator("test.json", []byte(testSchema))

	tcs := map[string]struct {
		data         any
		expectedPath string
	}{
		"valid data": {
			data: map[string]any{
				"kind":   "Configuration",
				"source": map[string]any{"command": "oc", "args": []any{"get", "promrule"}},
			},
		},
		"missing required field": {
			data:         map[string]any{},
			expectedPath: "$",
		},
		"wrong type": {
			data:         map[string]any{"kind": 1},
			expectedPath: "$.kind",
		},
		"missing nested required field": {
			data: map[string]any{
				"kind":   "Configuration",
				"source": map[string]any{"args": []any{"get"}},
			},
			expectedPath: "$.source",
		},
		"invalid array item": {
			data: map[string]any{
				"kind":   "Configuration",
				"source": map[string]any{"command": "oc", "args": []any{"get", 1}},
			},
			expectedPath: "$.source.args[1]",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate(tc.data)
			if tc.expectedPath == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)

			var validationErr *yaml.Error
			require.ErrorAs(t, err, &validationErr)
			require.NotNil(t, validationErr.Path)
			assert.Equal(t, tc.expectedPath, validationErr.Path.String())
		})
	}
}

func TestValidator_ValidateBytes(t *testing.T) {
	t.Parallel()

	validator := yaml.MustNewValidator("test.json", []byte(testSchema))

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, validator.ValidateBytes([]byte("kind: Configuration\n")))
	})

	t.Run("schema error carries source", func(t *testing.T) {
		t.Parallel()

		src := []byte("kind: Configuration\nsource:\n  args: [get]\n")

		err := validator.ValidateBytes(src)
		require.Error(t, err)

		var yamlErr *yaml.Error
		require.ErrorAs(t, err, &yamlErr)
		assert.Equal(t, src, yamlErr.Source)
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		err := validator.ValidateBytes([]byte("kind: [unterminated\n"))
		require.Error(t, err)
	})
}

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	var v any

	err := yaml.NewDecoder(strings.NewReader("kind: Configuration\nsource: [oc\n")).Decode(&v)

	var yamlErr *yaml.Error
	require.ErrorAs(t, err, &yamlErr)
	assert.NotNil(t, yamlErr.Token)
	assert.Nil(t, yamlErr.Path)
}

func TestNewError(t *testing.T) {
	t.Parallel()

	path := mustBuildPath(t, "kind")
	src := []byte("kind: 42\n")

	err := yaml.NewError(errors.New("got number, want string"),
		yaml.WithPath(path),
		yaml.WithSource(src),
		yaml.WithColor(false),
	)

	assert.Equal(t, path, err.Path)
	assert.Equal(t, src, err.Source)
	assert.Nil(t, err.Token)
	assert.Contains(t, err.Error(), "error at $.kind: got number, want string")
	assert.Contains(t, err.Error(), "kind: 42")
}

func mustBuildPath(t *testing.T, parts ...string) *goccyyaml.Path {
	t.Helper()

	pb := yaml.NewPathBuilder().Root()
	for _, part := range parts {
		pb = pb.Child(part)
	}

	return pb.Build()
}
