package compose

import (
	"context"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// Load parses compose YAML in memory. It is used to check that exported
// files are accepted by the compose loader.
func Load(ctx context.Context, name string, content []byte) (*types.Project, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, ErrEmptyInput
	}

	var dict map[string]any
	if err := yaml.Unmarshal(content, &dict); err != nil || dict == nil {
		return nil, NewExportError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: content,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName(loader.NormalizeProjectName(name), true)
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewExportError("", err.Error(), ErrInvalidYAML)
	}
	return project, nil
}
