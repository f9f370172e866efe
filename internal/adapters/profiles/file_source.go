// Package profiles loads vendor classification profiles from YAML.
package profiles

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/mikey/vendor-order-intake/internal/core"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type fileProfile struct {
	ID              int64    `mapstructure:"id"`
	Code            string   `mapstructure:"code"`
	Name            string   `mapstructure:"name"`
	Domains         []string `mapstructure:"domains"`
	Signatures      []string `mapstructure:"signatures"`
	SubjectKeywords []string `mapstructure:"subject_keywords"`
	BodyKeywords    []string `mapstructure:"body_keywords"`
	RequiredMatches int      `mapstructure:"required_matches"`
	Weights         struct {
		Domain    int `mapstructure:"domain"`
		Signature int `mapstructure:"signature"`
		Weak      int `mapstructure:"weak"`
	} `mapstructure:"weights"`
	// Active defaults to true when omitted
	Active *bool `mapstructure:"active"`
}

// FileSource reads the "vendors" list of a YAML (or any viper format) file
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a profile source for path
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// LoadProfiles re-reads the file on every call
func (s *FileSource) LoadProfiles(ctx context.Context) ([]core.VendorProfile, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read vendor profiles %s: %w", s.path, err)
	}

	var raw []fileProfile
	if err := v.UnmarshalKey("vendors", &raw); err != nil {
		return nil, fmt.Errorf("failed to decode vendor profiles: %w", err)
	}
	if len(raw) == 0 {
		return nil, core.ErrNoProfiles
	}

	seenCodes := make(map[string]bool, len(raw))
	seenIDs := make(map[int64]bool, len(raw))
	profiles := make([]core.VendorProfile, 0, len(raw))
	for i, p := range raw {
		switch {
		case p.Code == "":
			return nil, fmt.Errorf("vendor profile %d has no code", i+1)
		case p.ID <= 0:
			return nil, fmt.Errorf("vendor profile %s has no id", p.Code)
		case seenCodes[p.Code]:
			return nil, fmt.Errorf("duplicate vendor profile code %s", p.Code)
		case seenIDs[p.ID]:
			return nil, fmt.Errorf("duplicate vendor profile id %d", p.ID)
		}
		seenCodes[p.Code] = true
		seenIDs[p.ID] = true

		name := p.Name
		if name == "" {
			name = p.Code
		}
		profiles = append(profiles, core.VendorProfile{
			ID:              p.ID,
			Code:            p.Code,
			Name:            name,
			Domains:         p.Domains,
			Signatures:      p.Signatures,
			SubjectKeywords: p.SubjectKeywords,
			BodyKeywords:    p.BodyKeywords,
			RequiredMatches: p.RequiredMatches,
			Weights: core.TierWeights{
				Domain:    p.Weights.Domain,
				Signature: p.Weights.Signature,
				Weak:      p.Weights.Weak,
			},
			Active: p.Active == nil || *p.Active,
		})
	}

	s.logger.Debug("Loaded vendor profiles from file",
		zap.String("path", s.path),
		zap.Int("count", len(profiles)))

	return profiles, nil
}

// Watch calls onChange whenever the file is written. The watcher lives for
// the remainder of the process.
func (s *FileSource) Watch(onChange func()) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.OnConfigChange(func(e fsnotify.Event) {
		s.logger.Info("Vendor profile file changed", zap.String("path", e.Name))
		onChange()
	})
	v.WatchConfig()
}
