package app

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	learnerrepo "github.com/yungbote/adaptive-engine/internal/data/repos/learner"
	types "github.com/yungbote/adaptive-engine/internal/domain"
	"github.com/yungbote/adaptive-engine/internal/pkg/dbctx"
	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
	"github.com/yungbote/adaptive-engine/internal/recommend"
)

// Profile is one named engine settings bundle as written in a profiles file:
//
//	profiles:
//	  - name: default
//	    weights: {l_star: 2.2, w_p: 1, w_r: 2, w_d: 0.5, w_c: 1}
//	    stop_on_mastery: true
type Profile struct {
	Name              string             `yaml:"name"`
	Weights           *recommend.Weights `yaml:"weights"`
	recommend.Options `yaml:",inline"`
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// ParseProfiles decodes a profiles file. Profiles without weights get the defaults.
func ParseProfiles(r io.Reader) ([]*types.EngineSettings, error) {
	var f profileFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: parse profiles: %v", apperrors.ErrInvalidArgument, err)
	}
	seen := map[string]bool{}
	out := make([]*types.EngineSettings, 0, len(f.Profiles))
	for i, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile %d has no name", apperrors.ErrInvalidArgument, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate profile %q", apperrors.ErrInvalidArgument, p.Name)
		}
		seen[p.Name] = true
		w := recommend.DefaultWeights()
		if p.Weights != nil {
			w = *p.Weights
		}
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
		out = append(out, &types.EngineSettings{
			Name:          p.Name,
			RStar:         w.RStar,
			LStar:         w.LStar,
			WP:            w.WP,
			WR:            w.WR,
			WD:            w.WD,
			WC:            w.WC,
			StopOnMastery: p.StopOnMastery,
			Normalize:     p.Normalize,
		})
	}
	return out, nil
}

// ApplyProfiles upserts every profile by name.
func ApplyProfiles(dbc dbctx.Context, repo learnerrepo.EngineSettingsRepo, profiles []*types.EngineSettings) error {
	for _, p := range profiles {
		if err := repo.UpsertByName(dbc, p); err != nil {
			return fmt.Errorf("upsert profile %q: %w", p.Name, err)
		}
	}
	return nil
}
