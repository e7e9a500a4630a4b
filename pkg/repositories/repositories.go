// Package repositories contains the persistence ports of the triage engine.
// Every repository is an interface with a pgx-backed implementation; row
// absence is reported as apperrors.ErrNotFound so services never see
// driver-level sentinels.
package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
