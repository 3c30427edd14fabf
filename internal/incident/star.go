package incident

import (
	"context"

	"github.com/s-hit/mshd-backend/internal/datastore/repository"
	"github.com/s-hit/mshd-backend/internal/errors"
	"github.com/s-hit/mshd-backend/internal/logger"
)

// SetStar sets whether userID has bookmarked reportID and returns the
// resulting state. Repeating a call is a no-op.
func (s *Service) SetStar(ctx context.Context, userID, reportID uint, desired bool) (bool, error) {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		exists, err := tx.Reports().Exists(ctx, reportID)
		if err != nil {
			return err
		}
		if !exists {
			return errors.NotFound(repository.ErrReportNotFound)
		}

		if desired {
			return tx.Stars().Ensure(ctx, userID, reportID)
		}
		_, err = tx.Stars().Remove(ctx, userID, reportID)
		return err
	})
	if err != nil {
		return false, err
	}

	s.log.Debug("star updated",
		logger.Uint("user_id", userID),
		logger.Uint("report_id", reportID),
		logger.Bool("state", desired))
	return desired, nil
}
