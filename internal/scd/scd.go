// Package scd implements slowly-changing-dimension (Type II) versioning for
// records that keep their full submission history.
//
// Every tracked row carries a stable business key plus a validity window.
// A new submission under an existing business key closes the current row
// (valid_to = now, is_current = false) and inserts the next version with
// valid_from equal to the closed row's valid_to. Rows are never deleted.
//
// The invariant "at most one current row per business key" is enforced by a
// partial unique index on (business_key) WHERE is_current, created by the
// schema migrator; concurrent first submissions race on that index and the
// loser retries, becoming version 2.
package scd

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "tutorplan.io/tutorplan/internal/pkg/errors"
)

// Revision holds the SCD Type II control fields. Tracked models embed it.
type Revision struct {
	// SCDID is the surrogate key, unique per physical row.
	SCDID uint `gorm:"column:scd_id;primaryKey;autoIncrement" json:"scd_id"`

	// BusinessKey is stable across all versions of one logical record.
	BusinessKey uuid.UUID `gorm:"column:business_key;type:uuid;not null;index:idx_business_key_current,priority:1" json:"business_key"`

	ValidFrom time.Time  `gorm:"column:valid_from;not null" json:"valid_from"`
	ValidTo   *time.Time `gorm:"column:valid_to" json:"valid_to"`
	IsCurrent bool       `gorm:"column:is_current;not null;default:false;index:idx_business_key_current,priority:2" json:"is_current"`
	Version   int        `gorm:"column:version;not null;default:1" json:"version"`
}

// Rev returns the embedded revision; satisfies Tracked for embedding models.
func (r *Revision) Rev() *Revision { return r }

// Tracked is implemented by any model embedding Revision.
type Tracked interface {
	Rev() *Revision
}

const uniqueViolation = "23505"

// Submit runs the SCD-II protocol for row inside the given database:
// close the current version of row's business key if one exists, then insert
// row as the next version. A zero business key gets a fresh one (version 1).
// The row's revision fields are overwritten by the protocol.
//
// The close-and-insert pair runs in one transaction. A unique-violation on
// the current-row index means a concurrent submission won the race for the
// same business key; the transaction is retried once and chains onto the
// winner's version.
func Submit(ctx context.Context, db *gorm.DB, row Tracked) error {
	rev := row.Rev()
	if rev.BusinessKey == uuid.Nil {
		rev.BusinessKey = uuid.New()
	}

	err := submitOnce(ctx, db, row)
	if isUniqueViolation(err) {
		err = submitOnce(ctx, db, row)
	}
	return classifySubmitErr(err)
}

// classifySubmitErr turns a unique violation that survived the retry into a
// typed version conflict; anything else passes through unchanged.
func classifySubmitErr(err error) error {
	if isUniqueViolation(err) {
		return apperrors.ErrVersionConflictf(err)
	}
	return err
}

func submitOnce(ctx context.Context, db *gorm.DB, row Tracked) error {
	rev := row.Rev()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev struct {
			SCDID   uint
			Version int
		}
		err := tx.Model(row).
			Select("scd_id", "version").
			Where("business_key = ? AND is_current = ?", rev.BusinessKey, true).
			Take(&prev).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rev.Version = 1
		case err != nil:
			return err
		default:
			// Close the predecessor; its valid_to is exactly the
			// successor's valid_from.
			if err := tx.Model(row).
				Where("scd_id = ?", prev.SCDID).
				Updates(map[string]interface{}{
					"is_current": false,
					"valid_to":   now,
				}).Error; err != nil {
				return err
			}
			rev.Version = prev.Version + 1
		}

		rev.SCDID = 0 // force insert, never update-in-place
		rev.ValidFrom = now
		rev.ValidTo = nil
		rev.IsCurrent = true
		return tx.Create(row).Error
	})
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (two concurrent submissions under the same business key).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CurrentIndexDDL returns the DDL that enforces at most one current row per
// business key on the given table. Applied by the schema migrator after
// AutoMigrate; idempotent.
func CurrentIndexDDL(table string) string {
	return "CREATE UNIQUE INDEX IF NOT EXISTS ux_" + table + "_current_key ON " +
		table + " (business_key) WHERE is_current"
}
