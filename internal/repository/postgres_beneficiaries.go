package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
)

const beneficiaryColumns = `
	beneficiary_id::text AS beneficiary_id,
	document_type,
	document_number,
	first_name,
	last_name,
	birth_date,
	active,
	created_by,
	created_at`

func (t *pgTx) GetBeneficiary(ctx context.Context, id string) (*domain.Beneficiary, error) {
	var b domain.Beneficiary
	query := `SELECT ` + beneficiaryColumns + ` FROM beneficiaries WHERE beneficiary_id = $1`
	if err := t.tx.GetContext(ctx, &b, query, id); err != nil {
		return nil, translate(err, "beneficiary "+id)
	}
	return &b, nil
}

func (t *pgTx) GetBeneficiaryByDocument(ctx context.Context, docType, docNumber string) (*domain.Beneficiary, error) {
	var b domain.Beneficiary
	query := `SELECT ` + beneficiaryColumns + ` FROM beneficiaries WHERE document_type = $1 AND document_number = $2`
	if err := t.tx.GetContext(ctx, &b, query, docType, docNumber); err != nil {
		return nil, translate(err, fmt.Sprintf("beneficiary %s %s", docType, docNumber))
	}
	return &b, nil
}

func (t *pgTx) InsertBeneficiary(ctx context.Context, b *domain.Beneficiary) error {
	query := `
		INSERT INTO beneficiaries (
			beneficiary_id, document_type, document_number, first_name, last_name,
			birth_date, active, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := t.tx.ExecContext(ctx, query,
		b.ID, b.DocumentType, b.DocumentNumber, b.FirstName, b.LastName,
		b.BirthDate, b.Active, b.CreatedBy, b.CreatedAt,
	)
	return translate(err, fmt.Sprintf("insert beneficiary %s %s", b.DocumentType, b.DocumentNumber))
}

func (t *pgTx) SetBeneficiaryActive(ctx context.Context, id string, active bool) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE beneficiaries SET active = $2 WHERE beneficiary_id = $1`, id, active)
	if err != nil {
		return translate(err, "update beneficiary "+id)
	}
	return mustAffect(res, "beneficiary "+id)
}

type householdLinkRow struct {
	ID               string    `db:"link_id"`
	FromID           string    `db:"from_id"`
	ToID             string    `db:"to_id"`
	Kinship          string    `db:"kinship"`
	Cohabits         bool      `db:"cohabits"`
	PrimaryCaregiver bool      `db:"primary_caregiver"`
	Quality          string    `db:"quality"`
	CreatedBy        string    `db:"created_by"`
	CreatedAt        time.Time `db:"created_at"`
}

func (t *pgTx) ListHouseholdLinks(ctx context.Context, beneficiaryID string) ([]domain.HouseholdLink, error) {
	query := `
		SELECT
			link_id::text AS link_id,
			from_id::text AS from_id,
			to_id::text AS to_id,
			kinship,
			cohabits,
			primary_caregiver,
			quality,
			created_by,
			created_at
		FROM household_links
		WHERE from_id = $1 OR to_id = $1
		ORDER BY created_at, link_id
	`
	var rows []householdLinkRow
	if err := t.tx.SelectContext(ctx, &rows, query, beneficiaryID); err != nil {
		return nil, translate(err, "list household links")
	}
	out := make([]domain.HouseholdLink, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.HouseholdLink{
			ID:               r.ID,
			FromID:           r.FromID,
			ToID:             r.ToID,
			Kinship:          domain.Kinship(r.Kinship),
			Cohabits:         r.Cohabits,
			PrimaryCaregiver: r.PrimaryCaregiver,
			Quality:          domain.RelationshipQuality(r.Quality),
			CreatedBy:        r.CreatedBy,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out, nil
}

func (t *pgTx) InsertHouseholdLink(ctx context.Context, l *domain.HouseholdLink) error {
	query := `
		INSERT INTO household_links (
			link_id, from_id, to_id, kinship, cohabits, primary_caregiver, quality, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := t.tx.ExecContext(ctx, query,
		l.ID, l.FromID, l.ToID, string(l.Kinship), l.Cohabits, l.PrimaryCaregiver, string(l.Quality), l.CreatedBy, l.CreatedAt,
	)
	return translate(err, fmt.Sprintf("insert household link %s-%s", l.FromID, l.ToID))
}
