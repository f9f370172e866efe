package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mikey/vendor-order-intake/internal/core"
)

// LoadProfiles returns every stored vendor profile, active or not
func (s *SQLStore) LoadProfiles(ctx context.Context) ([]core.VendorProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, domains, signatures, subject_keywords, body_keywords,
			required_matches, domain_weight, signature_weight, weak_weight, active
		FROM vendor_profiles
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor profiles: %w", err)
	}
	defer rows.Close()

	var profiles []core.VendorProfile
	for rows.Next() {
		var (
			p                                  core.VendorProfile
			domains, signatures, subject, body string
		)
		err := rows.Scan(&p.ID, &p.Code, &p.Name, &domains, &signatures, &subject, &body,
			&p.RequiredMatches, &p.Weights.Domain, &p.Weights.Signature, &p.Weights.Weak, &p.Active)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor profile: %w", err)
		}

		for _, field := range []struct {
			raw string
			dst *[]string
		}{
			{domains, &p.Domains},
			{signatures, &p.Signatures},
			{subject, &p.SubjectKeywords},
			{body, &p.BodyKeywords},
		} {
			if err := json.Unmarshal([]byte(field.raw), field.dst); err != nil {
				return nil, fmt.Errorf("failed to decode profile %s: %w", p.Code, err)
			}
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, core.ErrNoProfiles
	}
	return profiles, nil
}

// UpsertProfile stores a vendor profile keyed by code and fills in its id
func (s *SQLStore) UpsertProfile(ctx context.Context, p *core.VendorProfile) error {
	lists := make([]string, 0, 4)
	for _, list := range [][]string{p.Domains, p.Signatures, p.SubjectKeywords, p.BodyKeywords} {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to encode profile %s: %w", p.Code, err)
		}
		lists = append(lists, string(data))
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.dialect.upsertProfile,
			p.Code, p.Name, lists[0], lists[1], lists[2], lists[3],
			p.RequiredMatches, p.Weights.Domain, p.Weights.Signature, p.Weights.Weak, p.Active)
		if err != nil {
			return fmt.Errorf("failed to upsert vendor profile %s: %w", p.Code, err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT id FROM vendor_profiles WHERE code = ?`, p.Code).Scan(&p.ID); err != nil {
			return fmt.Errorf("failed to read vendor profile %s: %w", p.Code, err)
		}
		return nil
	})
}
